package technique

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/prompttech/prompts"
	"github.com/teilomillet/prompttech/report"
)

func TestCatalogRunnerCallsInDeclaredOrder(t *testing.T) {
	client, mock := newMockClient()
	mock.SetResponses("positive", "negative", "short")

	rec := NewRecorder()
	rep := report.NewRunReport("Zero-Shot Prompting", "tasks_test", client.Model(), report.KindTasks)
	env := &Env{Client: client, Report: rep, Sink: rec}
	require.NoError(t, mustTechnique(t, tasksCatalog).Execute(context.Background(), env))

	assert.Equal(t, []string{"classify good", "classify bad", "summarize long"}, mock.Prompts())

	reqs := mock.Requests()
	assert.InDelta(t, 0.3, reqs[0].Temperature, 1e-9)
	assert.Equal(t, 1024, reqs[0].MaxTokens)
	assert.InDelta(t, 0.7, reqs[2].Temperature, 1e-9)
	assert.Equal(t, 150, reqs[2].MaxTokens)

	want := []report.TaskRecord{
		report.NewTaskRecord("positive",
			report.Field{Key: "task", Value: "sentiment"},
			report.Field{Key: "review", Value: "good"},
			report.Field{Key: "rank", Value: 1}),
		report.NewTaskRecord("negative",
			report.Field{Key: "task", Value: "sentiment"},
			report.Field{Key: "review", Value: "bad"},
			report.Field{Key: "rank", Value: 1}),
		report.NewTaskRecord("short", report.Field{Key: "task", Value: "summary"}),
	}
	if diff := cmp.Diff(want, rep.Tasks); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	examples := rec.Filter(EventExampleStarted)
	require.Len(t, examples, 2)
	assert.Equal(t, "SENTIMENT", examples[0].Title)
	assert.Equal(t, "Original: long", examples[1].Intro)

	calls := rec.Filter(EventCallStarted)
	require.Len(t, calls, 3)
	assert.Equal(t, "Review 2", calls[1].Banner)
	assert.Equal(t, []string{"Text: bad"}, calls[1].Echo)

	finished := rec.Filter(EventCallFinished)
	require.Len(t, finished, 3)
	assert.Equal(t, "Analysis", finished[0].Label)
	assert.Equal(t, "short", finished[2].Text)
}

func TestCatalogRunnerRecordsFailuresAsText(t *testing.T) {
	client, mock := newMockClient()
	mock.SetMockResponse("OK")
	mock.PanicOn(1, "provider bug")

	rec := NewRecorder()
	rep := report.NewRunReport("Zero-Shot Prompting", "tasks_test", client.Model(), report.KindTasks)
	env := &Env{Client: client, Report: rep, Sink: rec}
	require.NoError(t, mustTechnique(t, tasksCatalog).Execute(context.Background(), env))

	require.Len(t, rep.Tasks, 3)
	assert.Contains(t, rep.Tasks[0].Output, "Error: ")
	assert.Contains(t, rep.Tasks[0].Output, "provider bug")
	assert.Equal(t, "OK", rep.Tasks[1].Output)
	assert.True(t, rec.Filter(EventCallFinished)[0].Failed)
}

// Every built-in single-call catalog produces one record per expanded call.
func TestBuiltinCatalogRecordCounts(t *testing.T) {
	for _, slug := range []string{prompts.ZeroShot, prompts.FewShot, prompts.ChainOfThought} {
		t.Run(slug, func(t *testing.T) {
			c, err := prompts.Load(slug)
			require.NoError(t, err)

			expected := 0
			for i := range c.Examples {
				ex := &c.Examples[i]
				for j := range ex.Calls {
					invs, err := ex.Calls[j].Expand(ex)
					require.NoError(t, err)
					expected += len(invs)
				}
			}

			client, mock := newMockClient()
			mock.SetMockResponse("OK")
			tech, err := FromCatalog(c)
			require.NoError(t, err)

			rep := report.NewRunReport(c.Technique, c.Slug, client.Model(), report.KindTasks)
			require.NoError(t, tech.Execute(context.Background(), &Env{Client: client, Report: rep}))

			assert.Len(t, rep.Tasks, expected)
			assert.Len(t, mock.Requests(), expected)
			for _, task := range rep.Tasks {
				v, ok := task.Get("task")
				assert.True(t, ok)
				assert.NotEmpty(t, v)
			}
		})
	}
}

func TestBuiltinChainingSteps(t *testing.T) {
	client, mock := newMockClient()
	mock.SetMockResponse("OK")

	tech, err := Load(prompts.PromptChaining)
	require.NoError(t, err)
	rep := report.NewRunReport(tech.Name(), tech.Slug(), client.Model(), report.KindWorkflows)
	require.NoError(t, tech.Execute(context.Background(), &Env{Client: client, Report: rep}))

	require.Len(t, rep.Workflows, 5)
	for _, wf := range rep.Workflows {
		require.Len(t, wf.Steps, 4, wf.Workflow)
		for i, s := range wf.Steps {
			assert.Equal(t, i+1, s.Step)
		}
	}
	// research_synthesis fans its first step out over three sources.
	assert.Len(t, mock.Requests(), 5*4+2)
	assert.Equal(t, "OK\n\nOK\n\nOK", rep.Workflows[3].Steps[0].Output)
}
