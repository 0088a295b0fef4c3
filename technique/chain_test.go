package technique

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/prompttech/llm"
	"github.com/teilomillet/prompttech/providers"
	"github.com/teilomillet/prompttech/report"
)

const fanOutCatalog = `
technique: Prompt Chaining
slug: fan_out
kind: workflows
defaults: {temperature: 0.7, max_tokens: 2048}
workflows:
  - name: research
    title: RESEARCH
    data:
      sources: [alpha, beta, gamma]
    steps:
      - {action: summarize, artifact: summaries, foreach: sources, item_label: 'Source {{.index}} Summary', temperature: 0.4, max_tokens: 200, template: 'summarize {{.item}}'}
      - {action: themes, artifact: themes, label: Common Themes, uses: [summaries], template: 'themes of {{.summaries}}'}
`

func runChain(t *testing.T, client llm.Generator, halt bool) (*report.RunReport, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	rep := report.NewRunReport("Prompt Chaining", "chain_test", client.Model(), report.KindWorkflows)
	env := &Env{Client: client, Report: rep, Sink: rec, HaltOnError: halt}

	err := mustTechnique(t, chainCatalog).Execute(context.Background(), env)
	require.NoError(t, err)
	return rep, rec
}

func TestChainStubOK(t *testing.T) {
	client, mock := newMockClient()
	mock.SetMockResponse("OK")
	s, _ := newTestSession(t, client, nil)

	path, err := s.Run(context.Background(), mustTechnique(t, chainCatalog))
	require.NoError(t, err)

	var doc struct {
		TotalWorkflows int                     `json:"total_workflows"`
		Workflows      []report.WorkflowRecord `json:"workflows"`
	}
	readJSON(t, path, &doc)
	require.Equal(t, 2, doc.TotalWorkflows)

	want := []report.StepRecord{
		{Step: 1, Action: "outline", Output: "OK"},
		{Step: 2, Action: "intro", Output: "OK"},
		{Step: 3, Action: "section", Output: "OK"},
		{Step: 4, Action: "meta", Output: "OK"},
	}
	assert.Equal(t, "pipeline", doc.Workflows[0].Workflow)
	if diff := cmp.Diff(want, doc.Workflows[0].Steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestChainThreadsDeclaredArtifacts(t *testing.T) {
	client, mock := newMockClient()
	mock.SetResponses("O", "I", "S", "M", "X")

	rep, _ := runChain(t, client, false)
	require.Len(t, rep.Workflows, 2)

	assert.Equal(t, []string{
		"outline Go",
		"intro from O",
		"section from I",
		"meta from I and S",
		"only",
	}, mock.Prompts())

	reqs := mock.Requests()
	assert.Equal(t, 2048, reqs[0].MaxTokens)
	assert.Equal(t, 500, reqs[1].MaxTokens)
	assert.InDelta(t, 0.7, reqs[2].Temperature, 1e-9)
	assert.InDelta(t, 0.6, reqs[3].Temperature, 1e-9)
}

// A failed step stores its error-marked text and later steps still run with
// that text as context.
func TestChainFailureFeedsForward(t *testing.T) {
	client, mock := newMockClient()
	mock.SetMockResponse("OK")
	mock.FailOn(2, errors.New("upstream unavailable"))

	rep, rec := runChain(t, client, false)

	steps := rep.Workflows[0].Steps
	require.Len(t, steps, 4)
	failedText := steps[1].Output
	assert.True(t, llm.HasErrorMarker(failedText), failedText)
	assert.Contains(t, failedText, "upstream unavailable")

	prompts := mock.Prompts()
	require.Len(t, prompts, 5)
	assert.Equal(t, "section from "+failedText, prompts[2])
	assert.Equal(t, "meta from "+failedText+" and OK", prompts[3])

	finished := rec.Filter(EventStepFinished)
	require.Len(t, finished, 5)
	assert.True(t, finished[1].Failed)
	assert.False(t, finished[2].Failed)
	assert.Empty(t, rec.Filter(EventRunFailed))
}

func TestChainHaltOnError(t *testing.T) {
	client, mock := newMockClient()
	mock.SetMockResponse("OK")
	mock.FailOn(2, errors.New("upstream unavailable"))

	rep, rec := runChain(t, client, true)

	require.Len(t, rep.Workflows, 2)
	first := rep.Workflows[0].Steps
	require.Len(t, first, 2)
	assert.Equal(t, 2, first[1].Step)
	assert.True(t, llm.HasErrorMarker(first[1].Output))

	assert.Len(t, rep.Workflows[1].Steps, 1)
	assert.Len(t, mock.Requests(), 3)

	done := rec.Filter(EventWorkflowFinished)
	require.Len(t, done, 2)
	assert.True(t, done[0].Halted)
	assert.Equal(t, 2, done[0].Index)
	assert.False(t, done[1].Halted)
}

func TestChainFanOutJoinsInOrder(t *testing.T) {
	client, mock := newMockClient()
	mock.SetResponder(func(req *providers.Request) (string, error) {
		prompt := req.Messages[len(req.Messages)-1].Content
		if item, ok := strings.CutPrefix(prompt, "summarize "); ok {
			return "summary of " + item, nil
		}
		return "themes", nil
	})

	rec := NewRecorder()
	rep := report.NewRunReport("Prompt Chaining", "fan_out", client.Model(), report.KindWorkflows)
	env := &Env{Client: client, Report: rep, Sink: rec}
	require.NoError(t, mustTechnique(t, fanOutCatalog).Execute(context.Background(), env))

	joined := "summary of alpha\n\nsummary of beta\n\nsummary of gamma"
	assert.Equal(t, []string{
		"summarize alpha",
		"summarize beta",
		"summarize gamma",
		"themes of " + joined,
	}, mock.Prompts())

	reqs := mock.Requests()
	for _, r := range reqs[:3] {
		assert.Equal(t, 200, r.MaxTokens)
		assert.InDelta(t, 0.4, r.Temperature, 1e-9)
	}

	steps := rep.Workflows[0].Steps
	require.Len(t, steps, 2)
	assert.Equal(t, report.StepRecord{Step: 1, Action: "summarize", Output: joined}, steps[0])

	items := rec.Filter(EventCallFinished)
	require.Len(t, items, 3)
	assert.Equal(t, "Source 3 Summary", items[2].Label)
	assert.Equal(t, "summary of gamma", items[2].Text)
}

func TestChainEventOrder(t *testing.T) {
	client, _ := newMockClient()
	_, rec := runChain(t, client, false)

	want := []EventKind{EventExampleStarted}
	for range 4 {
		want = append(want, EventStepStarted, EventStepFinished)
	}
	want = append(want, EventWorkflowFinished, EventExampleStarted, EventStepStarted, EventStepFinished, EventWorkflowFinished)

	if diff := cmp.Diff(want, rec.Kinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	started := rec.Filter(EventStepStarted)
	assert.Equal(t, "Outlining...", started[0].Title)
	assert.Equal(t, 4, started[3].Index)
}
