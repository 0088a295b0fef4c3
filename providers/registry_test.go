package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKnownProviders(t *testing.T) {
	r := NewProviderRegistry()

	for _, name := range []string{"groq", "openai", "gemini", "ollama", "openrouter", "deepseek", "mistral", "mock"} {
		p, err := r.Get(name, "key", "model", nil)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
	}

	p, err := r.Get("GROQ", "key", "model", nil)
	require.NoError(t, err)
	assert.Equal(t, "groq", p.Name())
}

func TestRegistryCompatibleProvidersKeepTheirConfig(t *testing.T) {
	r := NewProviderRegistry()

	p, err := r.Get("ollama", "", "llama3", nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, OllamaEndpoint, p.Endpoint())

	p, err = r.Get("mistral", "k", "mistral-small", nil)
	require.NoError(t, err)
	assert.Equal(t, MistralEndpoint, p.Endpoint())
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewProviderRegistry("groq")

	_, err := r.Get("openai", "k", "m", nil)
	assert.EqualError(t, err, "unknown provider: openai")
	assert.Equal(t, []string{"groq"}, r.Names())
}

func TestRegistryRegister(t *testing.T) {
	r := NewProviderRegistry("groq")
	mock := NewMockProvider("", "m", nil)
	r.Register("scripted", func(string, string, map[string]string) Provider { return mock })

	p, err := r.Get("scripted", "", "m", nil)
	require.NoError(t, err)
	assert.Same(t, mock, p)

	r.RegisterGeneric(ProviderConfig{Name: "local", Endpoint: "http://127.0.0.1:9000/v1/chat/completions"})
	p, err = r.Get("local", "", "m", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/v1/chat/completions", p.Endpoint())

	cfg, ok := r.Config("local")
	require.True(t, ok)
	assert.Equal(t, "local", cfg.Name)
}

func TestProviderCapabilities(t *testing.T) {
	var _ Provider = (*GenericProvider)(nil)
	var _ ErrorParser = (*GenericProvider)(nil)
	var _ Provider = (*GeminiProvider)(nil)
	var _ Completer = (*GeminiProvider)(nil)
	var _ Provider = (*MockProvider)(nil)
	var _ Completer = (*MockProvider)(nil)
}

func TestGeminiProviderRequiresKey(t *testing.T) {
	p := NewGeminiProvider("", "gemini-2.0-flash", nil)
	_, err := p.Complete(context.Background(), NewUserRequest("", "hi", 0.7, 10))
	assert.Error(t, err)

	_, err = p.PrepareRequest(NewUserRequest("", "hi", 0.7, 10))
	assert.Error(t, err)
}
