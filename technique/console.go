package technique

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/teilomillet/prompttech/report"
)

const ruleWidth = 70

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	muted       = lipgloss.Color("#6B7280")
)

// ConsoleSink prints progress in the demo layout: ruled banners around each
// example, the inputs of every call, then its output under a label.
type ConsoleSink struct {
	w        io.Writer
	markdown *glamour.TermRenderer

	heading lipgloss.Style
	label   lipgloss.Style
	errText lipgloss.Style
	dim     lipgloss.Style
}

type ConsoleOption func(*ConsoleSink)

// WithMarkdown renders successful outputs as terminal markdown.
func WithMarkdown(wordWrap int) ConsoleOption {
	return func(c *ConsoleSink) {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrap),
		)
		if err == nil {
			c.markdown = r
		}
	}
}

func NewConsoleSink(w io.Writer, opts ...ConsoleOption) *ConsoleSink {
	r := lipgloss.NewRenderer(w)
	c := &ConsoleSink{
		w:       w,
		heading: r.NewStyle().Bold(true).Foreground(accent),
		label:   r.NewStyle().Bold(true),
		errText: r.NewStyle().Foreground(destructive),
		dim:     r.NewStyle().Foreground(muted),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ConsoleSink) rule() string {
	return c.dim.Render(strings.Repeat("=", ruleWidth))
}

func (c *ConsoleSink) Emit(e Event) {
	switch e.Kind {
	case EventRunStarted:
		fmt.Fprintf(c.w, "\n%s\n%s\n%s\nModel: %s\n%s\n",
			c.rule(), c.heading.Render(strings.ToUpper(e.Technique)+" DEMONSTRATION"), c.rule(), e.Model, c.rule())

	case EventExampleStarted:
		fmt.Fprintf(c.w, "\n%s\n%s\n%s\n", c.rule(), c.heading.Render(fmt.Sprintf("EXAMPLE %d: %s", e.Index, e.Title)), c.rule())
		if e.Intro != "" {
			fmt.Fprintf(c.w, "\n%s\n", e.Intro)
		}

	case EventCallStarted:
		if e.Banner != "" {
			fmt.Fprintf(c.w, "\n%s\n", c.label.Render("--- "+e.Banner+" ---"))
		}
		for _, line := range e.Echo {
			fmt.Fprintln(c.w, line)
		}

	case EventStepStarted:
		fmt.Fprintf(c.w, "\n\n %s\n", c.heading.Render(fmt.Sprintf("STEP %d: %s", e.Index, e.Title)))

	case EventCallFinished, EventStepFinished:
		switch {
		case e.Label != "":
			fmt.Fprintf(c.w, "\n%s\n%s\n", c.label.Render(e.Label+":"), c.output(e))
		case e.Kind == EventCallFinished:
			fmt.Fprintf(c.w, "\n%s\n", c.output(e))
		}

	case EventWorkflowFinished:
		if e.Halted {
			fmt.Fprintf(c.w, "\n %s\n", c.errText.Render(fmt.Sprintf("Workflow %s halted after step %d", e.Title, e.Index)))
		}

	case EventRunSaved:
		done := "examples"
		if e.Records == report.KindWorkflows {
			done = "workflows"
		}
		fmt.Fprintf(c.w, "\n%s\nResults saved to: %s\n%s\n", c.rule(), e.Path, c.rule())
		fmt.Fprintf(c.w, "\n All %s completed successfully!\n", done)

	case EventRunFailed:
		fmt.Fprintf(c.w, "\n %s\n", c.errText.Render("Error occurred: "+errString(e.Err)))
		switch len(e.Hints) {
		case 0:
		case 1:
			fmt.Fprintf(c.w, "\nMake sure %s\n", e.Hints[0])
		default:
			fmt.Fprintln(c.w, "\nMake sure:")
			for i, hint := range e.Hints {
				fmt.Fprintf(c.w, "%d. %s\n", i+1, hint)
			}
		}
	}
}

func (c *ConsoleSink) output(e Event) string {
	if e.Failed {
		return c.errText.Render(e.Text)
	}
	if c.markdown == nil {
		return e.Text
	}
	out, err := c.markdown.Render(e.Text)
	if err != nil {
		return e.Text
	}
	return strings.TrimRight(out, "\n")
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
