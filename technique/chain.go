package technique

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/prompttech/prompts"
	"github.com/teilomillet/prompttech/report"
)

// Chain executes workflows in which each step's output is stored as a named
// artifact and spliced into the prompts of the steps that declare it.
//
// A step whose call fails still stores the error-marked text as its
// artifact, so later steps see it as context. With Env.HaltOnError the
// workflow stops after recording the failed step and the next workflow
// starts.
type Chain struct {
	catalogInfo
}

func NewChain(c *prompts.Catalog) (*Chain, error) {
	if c.Kind != prompts.KindWorkflows {
		return nil, fmt.Errorf("catalog %s: expected kind %q, got %q", c.Slug, prompts.KindWorkflows, c.Kind)
	}
	return &Chain{catalogInfo{catalog: c}}, nil
}

func (ch *Chain) Kind() report.Kind { return report.KindWorkflows }

func (ch *Chain) Execute(ctx context.Context, env *Env) error {
	for i := range ch.catalog.Workflows {
		wf := &ch.catalog.Workflows[i]
		if err := checkContext(ctx); err != nil {
			return err
		}
		env.emit(Event{Kind: EventExampleStarted, Index: i + 1, Title: wf.Title})

		rec, halted, err := ch.runWorkflow(ctx, env, wf)
		if err != nil {
			return fmt.Errorf("workflow %s: %w", wf.Name, err)
		}
		env.Report.AddWorkflow(rec)
		env.emit(Event{Kind: EventWorkflowFinished, Index: len(rec.Steps), Title: wf.Name, Halted: halted})
	}
	return nil
}

func (ch *Chain) runWorkflow(ctx context.Context, env *Env, wf *prompts.Workflow) (*report.WorkflowRecord, bool, error) {
	rec := report.NewWorkflowRecord(wf.Name)
	artifacts := make(map[string]string, len(wf.Steps))

	for k := range wf.Steps {
		step := &wf.Steps[k]
		if err := checkContext(ctx); err != nil {
			return nil, false, err
		}
		env.emit(Event{Kind: EventStepStarted, Index: k + 1, Title: step.Description})

		output, failed, err := ch.runStep(ctx, env, wf, step, artifacts)
		if err != nil {
			return nil, false, fmt.Errorf("step %d (%s): %w", k+1, step.Action, err)
		}

		artifacts[step.Artifact] = output
		sr := rec.Append(step.Action, output)
		env.emit(Event{Kind: EventStepFinished, Index: sr.Step, Label: step.Label, Text: output, Failed: failed})

		if failed && env.HaltOnError {
			if env.Logger != nil {
				env.Logger.Warn("Halting workflow after failed step", "workflow", wf.Name, "step", sr.Step, "action", step.Action)
			}
			return rec, true, nil
		}
	}
	return rec, false, nil
}

// runStep returns the step's artifact text. A fan-out step calls the model
// once per item, in order, and joins the outputs.
func (ch *Chain) runStep(ctx context.Context, env *Env, wf *prompts.Workflow, step *prompts.Step, artifacts map[string]string) (string, bool, error) {
	scope := step.Scope(wf.Data, artifacts)
	temperature, maxTokens := prompts.Params(ch.catalog.Defaults, step.Temperature, step.MaxTokens)

	items, err := step.Items(wf.Data)
	if err != nil {
		return "", false, err
	}
	if items == nil {
		prompt, err := step.RenderPrompt(scope)
		if err != nil {
			return "", false, err
		}
		res := env.generate(ctx, prompt, temperature, maxTokens)
		return res.Text, res.Failed(), nil
	}

	parts := make([]string, 0, len(items))
	failed := false
	for j, item := range items {
		if err := checkContext(ctx); err != nil {
			return "", false, err
		}
		itemScope := scope.WithItem(j+1, item)
		prompt, err := step.RenderPrompt(itemScope)
		if err != nil {
			return "", false, fmt.Errorf("item %d: %w", j+1, err)
		}
		label, err := step.RenderItemLabel(itemScope)
		if err != nil {
			return "", false, fmt.Errorf("item %d: label: %w", j+1, err)
		}

		res := env.generate(ctx, prompt, temperature, maxTokens)
		parts = append(parts, res.Text)
		failed = failed || res.Failed()
		env.emit(Event{Kind: EventCallFinished, Index: j + 1, Label: label, Text: res.Text, Failed: res.Failed()})
	}
	return strings.Join(parts, step.Separator()), failed, nil
}
