// Package prompts holds the prompt templates of every technique. Templates
// are data: catalogs are YAML documents embedded in the binary and executed
// with text/template.
package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"
)

// PromptTemplate is a named text/template. Missing keys are errors so that a
// typo in a catalog never sends "<no value>" to a model.
type PromptTemplate struct {
	Name        string
	Description string
	Template    string
	Partials    map[string]string

	once sync.Once
	tmpl *template.Template
	err  error
}

type PromptTemplateOption func(*PromptTemplate)

func NewPromptTemplate(name, description, text string, opts ...PromptTemplateOption) *PromptTemplate {
	pt := &PromptTemplate{
		Name:        name,
		Description: description,
		Template:    text,
	}
	for _, opt := range opts {
		opt(pt)
	}
	return pt
}

// WithPartials makes the named sub-templates available through
// {{template "name" .}}.
func WithPartials(partials map[string]string) PromptTemplateOption {
	return func(pt *PromptTemplate) {
		pt.Partials = partials
	}
}

var funcs = template.FuncMap{
	"join":  join,
	"trim":  strings.TrimSpace,
	"words": func(s string) int { return len(strings.Fields(s)) },
}

// Compile parses the template and its partials. Execute calls it lazily; it
// is exported so catalogs can be checked up front.
func (pt *PromptTemplate) Compile() error {
	pt.once.Do(func() {
		root := template.New(pt.Name).Option("missingkey=error").Funcs(funcs)
		for name, text := range pt.Partials {
			if _, err := root.New(name).Parse(text); err != nil {
				pt.err = fmt.Errorf("partial %q: %w", name, err)
				return
			}
		}
		if _, err := root.Parse(pt.Template); err != nil {
			pt.err = fmt.Errorf("template %q: %w", pt.Name, err)
			return
		}
		pt.tmpl = root
	})
	return pt.err
}

// Execute renders the template with data.
func (pt *PromptTemplate) Execute(data map[string]any) (string, error) {
	if err := pt.Compile(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := pt.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %q: %w", pt.Name, err)
	}
	return buf.String(), nil
}

// Fields lists the top-level data keys the template reads, in first-use
// order. References inside range and with bodies are relative to the element
// and are not included, except those rooted at $. Partials are not walked.
func (pt *PromptTemplate) Fields() ([]string, error) {
	if err := pt.Compile(); err != nil {
		return nil, err
	}
	var fields []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	if pt.tmpl.Tree != nil {
		walkFields(pt.tmpl.Tree.Root, true, add)
	}
	return fields, nil
}

func walkFields(node parse.Node, atRoot bool, add func(string)) {
	switch n := node.(type) {
	case nil:
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkFields(child, atRoot, add)
		}
	case *parse.ActionNode:
		walkFields(n.Pipe, atRoot, add)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			walkFields(cmd, atRoot, add)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			walkFields(arg, atRoot, add)
		}
	case *parse.FieldNode:
		if atRoot && len(n.Ident) > 0 {
			add(n.Ident[0])
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			add(n.Ident[1])
		}
	case *parse.ChainNode:
		walkFields(n.Node, atRoot, add)
	case *parse.IfNode:
		walkFields(n.Pipe, atRoot, add)
		walkFields(n.List, atRoot, add)
		walkFields(n.ElseList, atRoot, add)
	case *parse.RangeNode:
		walkFields(n.Pipe, atRoot, add)
		walkFields(n.List, false, add)
		walkFields(n.ElseList, atRoot, add)
	case *parse.WithNode:
		walkFields(n.Pipe, atRoot, add)
		walkFields(n.List, false, add)
		walkFields(n.ElseList, atRoot, add)
	case *parse.TemplateNode:
		walkFields(n.Pipe, atRoot, add)
	}
}

// join concatenates the string form of every element of a list.
func join(sep string, items any) (string, error) {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, sep), nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("join: unsupported type %T", items)
	}
}
