package report

import (
	"fmt"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes a task record: a task name, any number of extra
// fields, and the output text.
func (TaskRecord) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("task", &jsonschema.Schema{Type: "string", Description: "Example the call belongs to"})
	props.Set("output", &jsonschema.Schema{Type: "string", Description: "Model output, or the error marker text"})
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{"task", "output"},
		AdditionalProperties: jsonschema.TrueSchema,
	}
}

// Schema returns the JSON Schema of a report document of the given kind.
func Schema(kind Kind) (*jsonschema.Schema, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var s *jsonschema.Schema
	switch kind {
	case KindTasks:
		s = r.Reflect(&tasksDocument{})
		s.Title = "Task results"
	case KindWorkflows:
		s = r.Reflect(&workflowsDocument{})
		s.Title = "Workflow results"
	default:
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	return s, nil
}
