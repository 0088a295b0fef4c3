package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate(t *testing.T) {
	t.Run("NewPromptTemplate", func(t *testing.T) {
		pt := NewPromptTemplate("test", "A test template", "Hello, {{.name}}!")

		assert.Equal(t, "test", pt.Name)
		assert.Equal(t, "A test template", pt.Description)
		assert.Equal(t, "Hello, {{.name}}!", pt.Template)
	})

	t.Run("Execute", func(t *testing.T) {
		pt := NewPromptTemplate("greeting", "", "Hello, {{.name}}! Welcome to {{.place}}.")

		out, err := pt.Execute(map[string]any{"name": "Alice", "place": "Wonderland"})
		require.NoError(t, err)
		assert.Equal(t, "Hello, Alice! Welcome to Wonderland.", out)
	})

	t.Run("Execute with invalid template", func(t *testing.T) {
		pt := NewPromptTemplate("invalid", "", "Hello, {{.name}! Missing closing brace")

		_, err := pt.Execute(map[string]any{"name": "Bob"})
		assert.Error(t, err)
		assert.Error(t, pt.Compile())
	})

	t.Run("Missing key is an error", func(t *testing.T) {
		pt := NewPromptTemplate("strict", "", "Hello, {{.nmae}}")

		_, err := pt.Execute(map[string]any{"name": "Bob"})
		assert.Error(t, err)
	})

	t.Run("Partials", func(t *testing.T) {
		pt := NewPromptTemplate("with-partial", "", `{{template "head" .}} / {{.x}}`,
			WithPartials(map[string]string{"head": "HEAD {{.x}}"}))

		out, err := pt.Execute(map[string]any{"x": 1})
		require.NoError(t, err)
		assert.Equal(t, "HEAD 1 / 1", out)
	})

	t.Run("Funcs", func(t *testing.T) {
		pt := NewPromptTemplate("funcs", "", `{{join "\n" .list}}|{{trim .padded}}|{{words .text}}`)

		out, err := pt.Execute(map[string]any{
			"list":   []any{"a", "b", 3},
			"padded": "  x  ",
			"text":   "three little words",
		})
		require.NoError(t, err)
		assert.Equal(t, "a\nb\n3|x|3", out)
	})
}

func TestJoin(t *testing.T) {
	out, err := join(", ", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a, b", out)

	out, err = join(", ", "already joined")
	require.NoError(t, err)
	assert.Equal(t, "already joined", out)

	_, err = join(", ", 42)
	assert.Error(t, err)
}

func TestPromptTemplateFields(t *testing.T) {
	pt := NewPromptTemplate("fields", "",
		`{{.topic}} {{join ", " .sources}} {{if .draft}}{{.draft}}{{end}}`+
			`{{range .examples}}{{.input}} {{$.tone}}{{end}}{{with .meta}}{{.author}}{{else}}{{.topic}}{{end}}`)

	fields, err := pt.Fields()
	require.NoError(t, err)
	assert.Equal(t, []string{"topic", "sources", "draft", "examples", "tone", "meta"}, fields)

	_, err = NewPromptTemplate("broken", "", "{{.x").Fields()
	assert.Error(t, err)
}
