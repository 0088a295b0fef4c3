// Package technique runs prompt technique catalogs against a model client
// and collects what each call returned into a run report.
package technique

import (
	"context"
	"fmt"

	"github.com/teilomillet/prompttech/llm"
	"github.com/teilomillet/prompttech/prompts"
	"github.com/teilomillet/prompttech/report"
	"github.com/teilomillet/prompttech/utils"
)

// Technique is one prompting strategy with its built-in examples.
type Technique interface {
	Name() string
	Slug() string
	Kind() report.Kind
	// Hints are printed when a run fails.
	Hints() []string
	Execute(ctx context.Context, env *Env) error
}

// Env is what a technique needs while it executes. The report is owned by
// the executing technique until Execute returns.
type Env struct {
	Client      llm.Generator
	Report      *report.RunReport
	Sink        Sink
	Logger      utils.Logger
	HaltOnError bool
}

func (env *Env) emit(e Event) {
	if env.Sink != nil {
		env.Sink.Emit(e)
	}
}

func (env *Env) generate(ctx context.Context, prompt string, temperature float64, maxTokens int) llm.Result {
	req := llm.NewRequest(prompt, llm.WithTemperature(temperature), llm.WithMaxTokens(maxTokens))
	return env.Client.Generate(ctx, req)
}

// FromCatalog picks the runner matching the catalog kind.
func FromCatalog(c *prompts.Catalog) (Technique, error) {
	switch c.Kind {
	case prompts.KindTasks:
		return NewCatalogRunner(c)
	case prompts.KindWorkflows:
		return NewChain(c)
	default:
		return nil, fmt.Errorf("catalog %s: unsupported kind %q", c.Slug, c.Kind)
	}
}

// Load returns the built-in technique registered under slug.
func Load(slug string) (Technique, error) {
	c, err := prompts.Load(slug)
	if err != nil {
		return nil, err
	}
	return FromCatalog(c)
}

type catalogInfo struct {
	catalog *prompts.Catalog
}

func (i catalogInfo) Name() string    { return i.catalog.Technique }
func (i catalogInfo) Slug() string    { return i.catalog.Slug }
func (i catalogInfo) Hints() []string { return i.catalog.Troubleshooting }

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}
