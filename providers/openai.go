package providers

const (
	OpenAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	OllamaEndpoint     = "http://localhost:11434/v1/chat/completions"
	OpenRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	DeepSeekEndpoint   = "https://api.deepseek.com/chat/completions"
	MistralEndpoint    = "https://api.mistral.ai/v1/chat/completions"
)

func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) *GenericProvider {
	return NewGenericProvider(openAIConfig(), apiKey, model, extraHeaders)
}

func openAIConfig() ProviderConfig {
	return bearerConfig("openai", OpenAIEndpoint)
}

// The remaining providers expose OpenAI-compatible endpoints and differ only
// in name, URL and, for Ollama, the absence of authentication.
func compatibleConfigs() []ProviderConfig {
	return []ProviderConfig{
		bearerConfig("openrouter", OpenRouterEndpoint),
		bearerConfig("deepseek", DeepSeekEndpoint),
		bearerConfig("mistral", MistralEndpoint),
		{
			Name:            "ollama",
			Endpoint:        OllamaEndpoint,
			RequiredHeaders: map[string]string{"Content-Type": "application/json"},
		},
	}
}

func bearerConfig(name, endpoint string) ProviderConfig {
	return ProviderConfig{
		Name:            name,
		Endpoint:        endpoint,
		AuthHeader:      "Authorization",
		AuthPrefix:      "Bearer ",
		RequiredHeaders: map[string]string{"Content-Type": "application/json"},
	}
}
