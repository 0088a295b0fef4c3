package technique

import (
	"slices"
	"sync"

	"github.com/teilomillet/prompttech/report"
	"github.com/teilomillet/prompttech/utils"
)

// EventKind identifies a progress event.
type EventKind int

const (
	EventRunStarted EventKind = iota
	EventExampleStarted
	EventCallStarted
	EventCallFinished
	EventStepStarted
	EventStepFinished
	EventWorkflowFinished
	EventRunSaved
	EventRunFailed
)

var eventNames = [...]string{
	EventRunStarted:       "run_started",
	EventExampleStarted:   "example_started",
	EventCallStarted:      "call_started",
	EventCallFinished:     "call_finished",
	EventStepStarted:      "step_started",
	EventStepFinished:     "step_finished",
	EventWorkflowFinished: "workflow_finished",
	EventRunSaved:         "run_saved",
	EventRunFailed:        "run_failed",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is one progress notification. Only the fields relevant to Kind are
// set.
type Event struct {
	Kind      EventKind
	Technique string
	Model     string

	// Records tells whether the run produces tasks or workflows.
	Records report.Kind

	// Index is the 1-based example, workflow, step or fan-out item number.
	Index int
	Title string
	Intro string

	Banner string
	Echo   []string
	Label  string
	Text   string
	Failed bool
	Halted bool

	Path  string
	Err   error
	Hints []string
}

// Sink consumes progress events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Kinds returns the kind of every recorded event, in order.
func (r *Recorder) Kinds() []EventKind {
	events := r.Events()
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

// Filter returns the recorded events of one kind.
func (r *Recorder) Filter(kind EventKind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// LogSink writes events as structured log lines.
type LogSink struct {
	logger utils.Logger
}

func NewLogSink(logger utils.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e Event) {
	switch e.Kind {
	case EventRunStarted:
		s.logger.Info("Run started", "technique", e.Technique, "model", e.Model)
	case EventExampleStarted:
		s.logger.Debug("Example started", "index", e.Index, "title", e.Title)
	case EventCallStarted, EventStepStarted:
		s.logger.Debug("Call started", "event", e.Kind.String(), "index", e.Index, "banner", e.Banner, "title", e.Title)
	case EventCallFinished, EventStepFinished:
		if e.Failed {
			s.logger.Warn("Call returned an error result", "event", e.Kind.String(), "index", e.Index, "text", e.Text)
			return
		}
		s.logger.Debug("Call finished", "event", e.Kind.String(), "index", e.Index, "chars", len(e.Text))
	case EventWorkflowFinished:
		if e.Halted {
			s.logger.Warn("Workflow halted", "workflow", e.Title, "index", e.Index)
			return
		}
		s.logger.Debug("Workflow finished", "workflow", e.Title, "index", e.Index)
	case EventRunSaved:
		s.logger.Info("Run saved", "technique", e.Technique, "path", e.Path)
	case EventRunFailed:
		s.logger.Error("Run failed", "technique", e.Technique, "error", e.Err)
	}
}
