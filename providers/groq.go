package providers

const GroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// NewGroqProvider creates the default provider. Groq serves the
// llama-3.1-8b-instant model through a chat completions endpoint.
func NewGroqProvider(apiKey, model string, extraHeaders map[string]string) *GenericProvider {
	return NewGenericProvider(groqConfig(), apiKey, model, extraHeaders)
}

func groqConfig() ProviderConfig {
	return ProviderConfig{
		Name:            "groq",
		Endpoint:        GroqEndpoint,
		AuthHeader:      "Authorization",
		AuthPrefix:      "Bearer ",
		RequiredHeaders: map[string]string{"Content-Type": "application/json"},
	}
}
