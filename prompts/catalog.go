package prompts

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Kind tells whether a catalog produces flat task records or workflows.
type Kind string

const (
	KindTasks     Kind = "tasks"
	KindWorkflows Kind = "workflows"
)

// DefaultJoin separates the outputs of a fan-out step.
const DefaultJoin = "\n\n"

// Catalog is the declarative description of one technique.
type Catalog struct {
	Technique       string            `yaml:"technique" validate:"required"`
	Slug            string            `yaml:"slug" validate:"required,excludesall=/\\"`
	Kind            Kind              `yaml:"kind" validate:"oneof=tasks workflows"`
	Description     string            `yaml:"description"`
	Defaults        Defaults          `yaml:"defaults"`
	Troubleshooting []string          `yaml:"troubleshooting"`
	Partials        map[string]string `yaml:"partials"`
	Examples        []Example         `yaml:"examples" validate:"dive"`
	Workflows       []Workflow        `yaml:"workflows" validate:"dive"`
}

// Defaults apply to every call that does not set its own parameters.
type Defaults struct {
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=1"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gt=0"`
}

// Example is one single-call technique demonstration. Its calls run in
// declared order; a call with Inputs runs once per element of that list.
type Example struct {
	Name  string         `yaml:"name" validate:"required"`
	Title string         `yaml:"title" validate:"required"`
	Data  map[string]any `yaml:"data"`
	Intro string         `yaml:"intro"`
	Calls []Call         `yaml:"calls" validate:"min=1,dive"`

	intro *PromptTemplate
}

type Call struct {
	Banner      string   `yaml:"banner"`
	Echo        []string `yaml:"echo"`
	Inputs      string   `yaml:"inputs"`
	Label       string   `yaml:"label"`
	Template    string   `yaml:"template" validate:"required"`
	Temperature *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=1"`
	MaxTokens   *int     `yaml:"max_tokens" validate:"omitempty,gt=0"`
	Record      Record   `yaml:"record" validate:"min=1"`

	prompt *PromptTemplate
	banner *PromptTemplate
	echo   []*PromptTemplate
}

// Workflow is one chaining pipeline.
type Workflow struct {
	Name  string         `yaml:"name" validate:"required"`
	Title string         `yaml:"title" validate:"required"`
	Data  map[string]any `yaml:"data"`
	Steps []Step         `yaml:"steps" validate:"min=1,dive"`
}

// Step is one stage of a workflow. Its prompt sees the workflow data and only
// the artifacts listed in Uses. A step with Foreach fans out over a data list
// and joins the outputs into its artifact.
type Step struct {
	Action      string   `yaml:"action" validate:"required"`
	Artifact    string   `yaml:"artifact" validate:"required"`
	Description string   `yaml:"description"`
	Label       string   `yaml:"label"`
	ItemLabel   string   `yaml:"item_label"`
	Uses        []string `yaml:"uses"`
	Foreach     string   `yaml:"foreach"`
	Join        *string  `yaml:"join"`
	Template    string   `yaml:"template" validate:"required"`
	Temperature *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=1"`
	MaxTokens   *int     `yaml:"max_tokens" validate:"omitempty,gt=0"`

	prompt    *PromptTemplate
	itemLabel *PromptTemplate
}

// Field is one key of a task record. String values are templates; any other
// scalar is copied as is.
type Field struct {
	Key   string
	Value any

	tmpl *PromptTemplate
}

// Record is an ordered list of fields. Key order is preserved from YAML to
// the JSON report.
type Record []Field

func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: record must be a mapping", node.Line)
	}
	fields := make(Record, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return fmt.Errorf("line %d: record field %q: %w", valueNode.Line, keyNode.Value, err)
		}
		fields = append(fields, Field{Key: keyNode.Value, Value: value})
	}
	*r = fields
	return nil
}

var validate = validator.New()

// Parse decodes and validates a catalog, then compiles every template.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks structure and cross references and compiles templates.
func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("catalog %s: %s failed %q", c.Slug, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("catalog %s: %w", c.Slug, err)
	}

	switch c.Kind {
	case KindTasks:
		if len(c.Workflows) > 0 {
			return fmt.Errorf("catalog %s: a tasks catalog cannot declare workflows", c.Slug)
		}
	case KindWorkflows:
		if len(c.Examples) > 0 {
			return fmt.Errorf("catalog %s: a workflows catalog cannot declare examples", c.Slug)
		}
	}

	for i := range c.Examples {
		if err := c.compileExample(&c.Examples[i]); err != nil {
			return fmt.Errorf("catalog %s: example %s: %w", c.Slug, c.Examples[i].Name, err)
		}
	}
	for i := range c.Workflows {
		if err := c.compileWorkflow(&c.Workflows[i]); err != nil {
			return fmt.Errorf("catalog %s: workflow %s: %w", c.Slug, c.Workflows[i].Name, err)
		}
	}
	return nil
}

func (c *Catalog) template(name, text string) (*PromptTemplate, error) {
	pt := NewPromptTemplate(c.Slug+"/"+name, "", text, WithPartials(c.Partials))
	if err := pt.Compile(); err != nil {
		return nil, err
	}
	return pt, nil
}

func (c *Catalog) compileExample(ex *Example) error {
	var err error
	if ex.Intro != "" {
		if ex.intro, err = c.template(ex.Name+"/intro", ex.Intro); err != nil {
			return err
		}
	}
	for i := range ex.Calls {
		call := &ex.Calls[i]
		id := fmt.Sprintf("%s/call%d", ex.Name, i+1)

		if call.Inputs != "" {
			if _, err := listOf(ex.Data, call.Inputs); err != nil {
				return fmt.Errorf("call %d: %w", i+1, err)
			}
		}
		if call.prompt, err = c.template(id, call.Template); err != nil {
			return err
		}
		if call.Banner != "" {
			if call.banner, err = c.template(id+"/banner", call.Banner); err != nil {
				return err
			}
		}
		call.echo = make([]*PromptTemplate, len(call.Echo))
		for j, text := range call.Echo {
			if call.echo[j], err = c.template(fmt.Sprintf("%s/echo%d", id, j+1), text); err != nil {
				return err
			}
		}
		for j := range call.Record {
			f := &call.Record[j]
			if s, ok := f.Value.(string); ok {
				if f.tmpl, err = c.template(id+"/record/"+f.Key, s); err != nil {
					return err
				}
			}
		}
		if slices.ContainsFunc(call.Record, func(f Field) bool { return f.Key == "output" }) {
			return fmt.Errorf("call %d: record field %q is reserved", i+1, "output")
		}
	}
	return nil
}

func (c *Catalog) compileWorkflow(wf *Workflow) error {
	seen := make(map[string]bool, len(wf.Steps))
	var err error
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if seen[step.Artifact] {
			return fmt.Errorf("step %d: duplicate artifact %q", i+1, step.Artifact)
		}
		if _, clash := wf.Data[step.Artifact]; clash {
			return fmt.Errorf("step %d: artifact %q shadows workflow data", i+1, step.Artifact)
		}
		for _, dep := range step.Uses {
			if !seen[dep] {
				return fmt.Errorf("step %d: uses %q, which no earlier step produces", i+1, dep)
			}
		}
		if step.Foreach != "" {
			if _, err := listOf(wf.Data, step.Foreach); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}

		id := fmt.Sprintf("%s/step%d", wf.Name, i+1)
		if step.prompt, err = c.template(id, step.Template); err != nil {
			return err
		}
		if step.ItemLabel != "" {
			if step.itemLabel, err = c.template(id+"/item_label", step.ItemLabel); err != nil {
				return err
			}
		}
		if err := checkStepFields(wf, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		seen[step.Artifact] = true
	}
	return nil
}

// checkStepFields rejects a step template that reads a key the step will
// not have at run time: workflow data, its declared artifacts and, for a
// fan-out step, item and index.
func checkStepFields(wf *Workflow, step *Step) error {
	visible := make(map[string]bool, len(wf.Data)+len(step.Uses)+2)
	for k := range wf.Data {
		visible[k] = true
	}
	for _, name := range step.Uses {
		visible[name] = true
	}
	if step.Foreach != "" {
		visible["item"] = true
		visible["index"] = true
	}

	for _, pt := range []*PromptTemplate{step.prompt, step.itemLabel} {
		if pt == nil {
			continue
		}
		fields, err := pt.Fields()
		if err != nil {
			return err
		}
		for _, f := range fields {
			if !visible[f] {
				return fmt.Errorf("template reads %q, which is neither workflow data nor an artifact listed in uses", f)
			}
		}
	}
	return nil
}

func listOf(data map[string]any, key string) ([]any, error) {
	v, ok := data[key]
	if !ok {
		return nil, fmt.Errorf("data has no list %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("data %q is %T, not a list", key, v)
	}
	return list, nil
}
