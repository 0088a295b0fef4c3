package technique

import (
	"context"
	"fmt"

	"github.com/teilomillet/prompttech/llm"
	"github.com/teilomillet/prompttech/report"
	"github.com/teilomillet/prompttech/utils"
)

// OrchestrationError means a run stopped before all of its examples
// completed. Nothing is persisted for such a run.
type OrchestrationError struct {
	Technique string
	Err       error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Technique, e.Err)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// Session runs one technique end to end: every example, then one write of
// the report.
type Session struct {
	Client      llm.Generator
	Persister   *report.Persister
	Sink        Sink
	Logger      utils.Logger
	HaltOnError bool
}

func NewSession(client llm.Generator, persister *report.Persister, sink Sink, logger utils.Logger) *Session {
	if sink == nil {
		sink = nopSink{}
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Session{Client: client, Persister: persister, Sink: sink, Logger: logger}
}

// Run executes t and persists its report. It returns the report path, an
// *OrchestrationError when execution stopped early, or a
// *report.PersistenceError when the report could not be written.
func (s *Session) Run(ctx context.Context, t Technique) (string, error) {
	sink := s.Sink
	if sink == nil {
		sink = nopSink{}
	}
	logger := s.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	rep := report.NewRunReport(t.Name(), t.Slug(), s.Client.Model(), t.Kind())
	env := &Env{
		Client:      s.Client,
		Report:      rep,
		Sink:        sink,
		Logger:      logger,
		HaltOnError: s.HaltOnError,
	}

	sink.Emit(Event{Kind: EventRunStarted, Technique: t.Name(), Model: s.Client.Model(), Records: t.Kind()})

	if err := execute(ctx, t, env); err != nil {
		oerr := &OrchestrationError{Technique: t.Name(), Err: err}
		sink.Emit(Event{Kind: EventRunFailed, Technique: t.Name(), Err: oerr.Err, Hints: t.Hints()})
		return "", oerr
	}

	path, err := s.Persister.Persist(rep)
	if err != nil {
		logger.Error("Failed to persist report", "technique", t.Name(), "error", err)
		return "", err
	}
	sink.Emit(Event{Kind: EventRunSaved, Technique: t.Name(), Records: t.Kind(), Path: path})
	return path, nil
}

func execute(ctx context.Context, t Technique, env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Execute(ctx, env)
}
