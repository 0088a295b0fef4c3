package prompts

import (
	"fmt"
	"maps"
)

// Scope is the data a template is executed with.
type Scope map[string]any

// Invocation is one expansion of a call: a single run, or one element of its
// Inputs list.
type Invocation struct {
	Index int
	Item  any
	Scope Scope
}

func baseScope(data map[string]any) Scope {
	scope := make(Scope, len(data)+2)
	maps.Copy(scope, data)
	return scope
}

// Params resolves temperature and max tokens against the catalog defaults.
func Params(defaults Defaults, temperature *float64, maxTokens *int) (float64, int) {
	t, m := defaults.Temperature, defaults.MaxTokens
	if temperature != nil {
		t = *temperature
	}
	if maxTokens != nil {
		m = *maxTokens
	}
	return t, m
}

// RenderIntro renders the text shown before the example's calls. It returns
// "" when the example has none.
func (ex *Example) RenderIntro() (string, error) {
	if ex.intro == nil {
		return "", nil
	}
	return ex.intro.Execute(baseScope(ex.Data))
}

// Expand lists the invocations of call within ex, in order. Index is 1-based.
func (call *Call) Expand(ex *Example) ([]Invocation, error) {
	if call.Inputs == "" {
		scope := baseScope(ex.Data)
		scope["index"] = 1
		return []Invocation{{Index: 1, Scope: scope}}, nil
	}

	items, err := listOf(ex.Data, call.Inputs)
	if err != nil {
		return nil, err
	}
	out := make([]Invocation, len(items))
	for i, item := range items {
		scope := baseScope(ex.Data)
		scope["item"] = item
		scope["index"] = i + 1
		out[i] = Invocation{Index: i + 1, Item: item, Scope: scope}
	}
	return out, nil
}

func (call *Call) RenderPrompt(scope Scope) (string, error) {
	if call.prompt == nil {
		return "", fmt.Errorf("call template not compiled")
	}
	return call.prompt.Execute(scope)
}

func (call *Call) RenderBanner(scope Scope) (string, error) {
	if call.banner == nil {
		return "", nil
	}
	return call.banner.Execute(scope)
}

func (call *Call) RenderEcho(scope Scope) ([]string, error) {
	lines := make([]string, 0, len(call.echo))
	for _, pt := range call.echo {
		line, err := pt.Execute(scope)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// RenderRecord returns the record fields with every template value executed.
func (call *Call) RenderRecord(scope Scope) (Record, error) {
	out := make(Record, len(call.Record))
	for i, f := range call.Record {
		out[i] = Field{Key: f.Key, Value: f.Value}
		if f.tmpl == nil {
			continue
		}
		v, err := f.tmpl.Execute(scope)
		if err != nil {
			return nil, err
		}
		out[i].Value = v
	}
	return out, nil
}

// Scope returns the data the step's prompt may see: workflow data plus the
// artifacts the step declares in Uses. Other artifacts are not visible.
func (step *Step) Scope(data map[string]any, artifacts map[string]string) Scope {
	scope := baseScope(data)
	for _, name := range step.Uses {
		scope[name] = artifacts[name]
	}
	return scope
}

// Items returns the fan-out inputs, or nil for a single-call step.
func (step *Step) Items(data map[string]any) ([]any, error) {
	if step.Foreach == "" {
		return nil, nil
	}
	return listOf(data, step.Foreach)
}

// Separator joins fan-out outputs.
func (step *Step) Separator() string {
	if step.Join == nil {
		return DefaultJoin
	}
	return *step.Join
}

func (step *Step) RenderPrompt(scope Scope) (string, error) {
	if step.prompt == nil {
		return "", fmt.Errorf("step template not compiled")
	}
	return step.prompt.Execute(scope)
}

func (step *Step) RenderItemLabel(scope Scope) (string, error) {
	if step.itemLabel == nil {
		return "", nil
	}
	return step.itemLabel.Execute(scope)
}

// WithItem returns a copy of scope carrying one fan-out element.
func (s Scope) WithItem(index int, item any) Scope {
	out := make(Scope, len(s)+2)
	maps.Copy(out, s)
	out["item"] = item
	out["index"] = index
	return out
}
