package technique

import (
	"context"
	"fmt"

	"github.com/teilomillet/prompttech/prompts"
	"github.com/teilomillet/prompttech/report"
)

// CatalogRunner executes a single-call technique: every call of every
// example in declared order, one task record per call.
type CatalogRunner struct {
	catalogInfo
}

func NewCatalogRunner(c *prompts.Catalog) (*CatalogRunner, error) {
	if c.Kind != prompts.KindTasks {
		return nil, fmt.Errorf("catalog %s: expected kind %q, got %q", c.Slug, prompts.KindTasks, c.Kind)
	}
	return &CatalogRunner{catalogInfo{catalog: c}}, nil
}

func (r *CatalogRunner) Kind() report.Kind { return report.KindTasks }

func (r *CatalogRunner) Execute(ctx context.Context, env *Env) error {
	for i := range r.catalog.Examples {
		ex := &r.catalog.Examples[i]
		if err := checkContext(ctx); err != nil {
			return err
		}

		intro, err := ex.RenderIntro()
		if err != nil {
			return fmt.Errorf("example %s: intro: %w", ex.Name, err)
		}
		env.emit(Event{Kind: EventExampleStarted, Index: i + 1, Title: ex.Title, Intro: intro})

		for j := range ex.Calls {
			if err := r.runCall(ctx, env, ex, &ex.Calls[j]); err != nil {
				return fmt.Errorf("example %s: call %d: %w", ex.Name, j+1, err)
			}
		}
	}
	return nil
}

func (r *CatalogRunner) runCall(ctx context.Context, env *Env, ex *prompts.Example, call *prompts.Call) error {
	invs, err := call.Expand(ex)
	if err != nil {
		return err
	}
	temperature, maxTokens := prompts.Params(r.catalog.Defaults, call.Temperature, call.MaxTokens)

	for _, inv := range invs {
		if err := checkContext(ctx); err != nil {
			return err
		}

		banner, err := call.RenderBanner(inv.Scope)
		if err != nil {
			return fmt.Errorf("banner: %w", err)
		}
		echo, err := call.RenderEcho(inv.Scope)
		if err != nil {
			return fmt.Errorf("echo: %w", err)
		}
		prompt, err := call.RenderPrompt(inv.Scope)
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		fields, err := call.RenderRecord(inv.Scope)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}

		env.emit(Event{Kind: EventCallStarted, Index: inv.Index, Banner: banner, Echo: echo})
		res := env.generate(ctx, prompt, temperature, maxTokens)
		env.Report.AddTask(taskRecord(fields, res.Text))
		env.emit(Event{Kind: EventCallFinished, Index: inv.Index, Label: call.Label, Text: res.Text, Failed: res.Failed()})
	}
	return nil
}

func taskRecord(fields prompts.Record, output string) report.TaskRecord {
	out := make([]report.Field, len(fields))
	for i, f := range fields {
		out[i] = report.Field{Key: f.Key, Value: f.Value}
	}
	return report.NewTaskRecord(output, out...)
}
