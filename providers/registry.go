package providers

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ProviderRegistry maps provider names to constructors. It is safe for
// concurrent use.
type ProviderRegistry struct {
	providers map[string]ProviderConstructor
	configs   map[string]ProviderConfig
	mutex     sync.RWMutex
}

// NewProviderRegistry registers the named providers, or every known provider
// when no name is given.
func NewProviderRegistry(providerNames ...string) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: make(map[string]ProviderConstructor),
		configs:   make(map[string]ProviderConfig),
	}

	known := getKnownProviders()
	for _, cfg := range standardConfigs() {
		registry.configs[cfg.Name] = cfg
	}

	if len(providerNames) == 0 {
		for name, constructor := range known {
			registry.providers[name] = constructor
		}
		return registry
	}
	for _, name := range providerNames {
		if constructor, ok := known[strings.ToLower(name)]; ok {
			registry.providers[strings.ToLower(name)] = constructor
		}
	}
	return registry
}

func getKnownProviders() map[string]ProviderConstructor {
	known := map[string]ProviderConstructor{
		"groq": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewGroqProvider(apiKey, model, extraHeaders)
		},
		"openai": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAIProvider(apiKey, model, extraHeaders)
		},
		"gemini": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewGeminiProvider(apiKey, model, extraHeaders)
		},
		"google": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewGeminiProvider(apiKey, model, extraHeaders)
		},
		"mock": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewMockProvider(apiKey, model, extraHeaders)
		},
	}
	for _, cfg := range compatibleConfigs() {
		known[cfg.Name] = func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewGenericProvider(cfg, apiKey, model, extraHeaders)
		}
	}
	return known
}

func standardConfigs() []ProviderConfig {
	return append([]ProviderConfig{groqConfig(), openAIConfig()}, compatibleConfigs()...)
}

// Get builds a provider. Names are case-insensitive.
func (r *ProviderRegistry) Get(name, apiKey, model string, extraHeaders map[string]string) (Provider, error) {
	r.mutex.RLock()
	constructor, exists := r.providers[strings.ToLower(name)]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return constructor(apiKey, model, extraHeaders), nil
}

// Register adds or replaces a constructor.
func (r *ProviderRegistry) Register(name string, constructor ProviderConstructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[strings.ToLower(name)] = constructor
}

// RegisterGeneric adds a chat completions provider described by cfg.
func (r *ProviderRegistry) RegisterGeneric(cfg ProviderConfig) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	name := strings.ToLower(cfg.Name)
	r.configs[name] = cfg
	r.providers[name] = func(apiKey, model string, extraHeaders map[string]string) Provider {
		return NewGenericProvider(cfg, apiKey, model, extraHeaders)
	}
}

// Config returns the stored configuration of an HTTP provider.
func (r *ProviderRegistry) Config(name string) (ProviderConfig, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	cfg, ok := r.configs[strings.ToLower(name)]
	return cfg, ok
}

// Names lists the registered providers in sorted order.
func (r *ProviderRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var defaultRegistry = NewProviderRegistry()

// GetDefaultRegistry returns the registry shared by the process.
func GetDefaultRegistry() *ProviderRegistry {
	return defaultRegistry
}
