// Package report defines the records collected during a run and writes them
// as one JSON document per run.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind selects the document layout.
type Kind string

const (
	KindTasks     Kind = "tasks"
	KindWorkflows Kind = "workflows"
)

// Field is one extra key of a task record.
type Field struct {
	Key   string
	Value any
}

// TaskRecord is one model call of a single-call technique. It serializes as
// {"task": ..., <fields in order>, "output": ...}.
type TaskRecord struct {
	Fields []Field
	Output string
}

func NewTaskRecord(output string, fields ...Field) TaskRecord {
	return TaskRecord{Fields: fields, Output: output}
}

// Get returns the value of a field.
func (r TaskRecord) Get(key string) (any, bool) {
	if key == "output" {
		return r.Output, true
	}
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (r TaskRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, f := range r.Fields {
		if f.Key == "output" {
			continue
		}
		if err := writeMember(&buf, f.Key, f.Value); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, "output", r.Output); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := marshalNoEscape(key)
	if err != nil {
		return err
	}
	v, err := marshalNoEscape(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StepRecord is one step of a workflow.
type StepRecord struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Output string `json:"output"`
}

// WorkflowRecord is one chaining pipeline execution. Steps are only added
// through Append, which keeps indices contiguous from 1.
type WorkflowRecord struct {
	Workflow string       `json:"workflow"`
	Steps    []StepRecord `json:"steps"`
}

func NewWorkflowRecord(name string) *WorkflowRecord {
	return &WorkflowRecord{Workflow: name, Steps: []StepRecord{}}
}

// Append records the next step and returns it.
func (w *WorkflowRecord) Append(action, output string) StepRecord {
	step := StepRecord{Step: len(w.Steps) + 1, Action: action, Output: output}
	w.Steps = append(w.Steps, step)
	return step
}

// RunReport is everything one run produced. Timestamp is set by the
// Persister at write time.
type RunReport struct {
	Technique string
	Slug      string
	Model     string
	Timestamp string
	Kind      Kind
	Tasks     []TaskRecord
	Workflows []WorkflowRecord
}

func NewRunReport(technique, slug, model string, kind Kind) *RunReport {
	return &RunReport{
		Technique: technique,
		Slug:      slug,
		Model:     model,
		Kind:      kind,
		Tasks:     []TaskRecord{},
		Workflows: []WorkflowRecord{},
	}
}

func (r *RunReport) AddTask(rec TaskRecord) {
	r.Tasks = append(r.Tasks, rec)
}

func (r *RunReport) AddWorkflow(wf *WorkflowRecord) {
	r.Workflows = append(r.Workflows, *wf)
}

// Count is total_tasks or total_workflows depending on the kind.
func (r *RunReport) Count() int {
	if r.Kind == KindWorkflows {
		return len(r.Workflows)
	}
	return len(r.Tasks)
}

type tasksDocument struct {
	Technique  string       `json:"technique"`
	Model      string       `json:"model"`
	Timestamp  string       `json:"timestamp"`
	TotalTasks int          `json:"total_tasks"`
	Results    []TaskRecord `json:"results"`
}

type workflowsDocument struct {
	Technique      string           `json:"technique"`
	Model          string           `json:"model"`
	Timestamp      string           `json:"timestamp"`
	TotalWorkflows int              `json:"total_workflows"`
	Workflows      []WorkflowRecord `json:"workflows"`
}

func (r *RunReport) document() (any, error) {
	switch r.Kind {
	case KindTasks:
		results := r.Tasks
		if results == nil {
			results = []TaskRecord{}
		}
		return tasksDocument{
			Technique:  r.Technique,
			Model:      r.Model,
			Timestamp:  r.Timestamp,
			TotalTasks: len(results),
			Results:    results,
		}, nil
	case KindWorkflows:
		workflows := make([]WorkflowRecord, len(r.Workflows))
		for i, wf := range r.Workflows {
			if wf.Steps == nil {
				wf.Steps = []StepRecord{}
			}
			workflows[i] = wf
		}
		return workflowsDocument{
			Technique:      r.Technique,
			Model:          r.Model,
			Timestamp:      r.Timestamp,
			TotalWorkflows: len(workflows),
			Workflows:      workflows,
		}, nil
	default:
		return nil, fmt.Errorf("unknown report kind %q", r.Kind)
	}
}

// Encode renders the report with two-space indentation. Non-ASCII text is
// written as is and HTML characters are not escaped.
func (r *RunReport) Encode() ([]byte, error) {
	doc, err := r.document()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return buf.Bytes(), nil
}
