// Package config holds the runtime configuration of prompttech. Values are
// read from the environment once at start-up and passed explicitly to the
// components that need them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/teilomillet/prompttech/utils"
)

const (
	DefaultProvider         = "groq"
	DefaultModel            = "llama-3.1-8b-instant"
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 1024
	DefaultMaxTokensCeiling = 8192
	DefaultTimeout          = 60 * time.Second
)

type Config struct {
	Provider         string         `env:"LLM_PROVIDER" envDefault:"groq" validate:"required"`
	Model            string         `env:"LLM_MODEL" envDefault:"llama-3.1-8b-instant" validate:"required"`
	Endpoint         string         `env:"LLM_ENDPOINT" validate:"omitempty,url"`
	Temperature      float64        `env:"LLM_TEMPERATURE" envDefault:"0.7" validate:"gte=0,lte=1"`
	MaxTokens        int            `env:"LLM_MAX_TOKENS" envDefault:"1024" validate:"gte=1,ltefield=MaxTokensCeiling"`
	MaxTokensCeiling int            `env:"LLM_MAX_TOKENS_CEILING" envDefault:"8192" validate:"gte=1"`
	Timeout          time.Duration  `env:"LLM_TIMEOUT" envDefault:"60s" validate:"gt=0"`
	LogLevel         utils.LogLevel `env:"LLM_LOG_LEVEL" envDefault:"WARN"`
	OutputDir        string         `env:"PROMPTTECH_OUTPUT_DIR" envDefault:"." validate:"required"`
	HaltOnError      bool           `env:"PROMPTTECH_HALT_ON_ERROR" envDefault:"false"`
	RenderMarkdown   bool           `env:"PROMPTTECH_RENDER_MARKDOWN" envDefault:"false"`

	// ExtraHeaders are sent with every provider request, e.g.
	// LLM_EXTRA_HEADERS="HTTP-Referer=https://example.com,X-Title=prompttech".
	ExtraHeaders map[string]string `env:"LLM_EXTRA_HEADERS" envKeyValSeparator:"="`
	APIKeys      map[string]string

	// Logger is used by clients built without an explicit logger.
	Logger utils.Logger
}

var validate = validator.New()

// LoadConfig reads the configuration from the environment. API keys are
// collected from every *_API_KEY variable, keyed by lower-cased provider name.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIKeys: make(map[string]string),
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	loadAPIKeys(cfg)
	return cfg, nil
}

func loadAPIKeys(cfg *Config) {
	for _, envVar := range os.Environ() {
		key, value, found := strings.Cut(envVar, "=")
		if found && strings.HasSuffix(strings.ToUpper(key), "_API_KEY") && value != "" {
			provider := strings.TrimSuffix(strings.ToUpper(key), "_API_KEY")
			cfg.APIKeys[strings.ToLower(provider)] = value
		}
	}
}

// NewConfig returns the defaults without looking at the environment.
func NewConfig() *Config {
	return &Config{
		Provider:         DefaultProvider,
		Model:            DefaultModel,
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
		MaxTokensCeiling: DefaultMaxTokensCeiling,
		Timeout:          DefaultTimeout,
		LogLevel:         utils.LogLevelWarn,
		OutputDir:        ".",
		APIKeys:          make(map[string]string),
	}
}

// APIKey returns the credential of the configured provider, or "" when unset.
func (c *Config) APIKey() string {
	return c.APIKeys[strings.ToLower(c.Provider)]
}

// Validate checks value ranges. A missing API key is not an error: calls
// fail individually with an authentication error instead.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type ConfigOption func(*Config)

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func SetEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

func SetTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetMaxTokensCeiling(ceiling int) ConfigOption {
	return func(c *Config) {
		c.MaxTokensCeiling = ceiling
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// SetAPIKey sets the key of the provider configured at the time the option
// is applied.
func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[strings.ToLower(c.Provider)] = apiKey
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

func SetLogger(logger utils.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		c.ExtraHeaders = headers
	}
}

func SetOutputDir(dir string) ConfigOption {
	return func(c *Config) {
		c.OutputDir = dir
	}
}

func SetHaltOnError(halt bool) ConfigOption {
	return func(c *Config) {
		c.HaltOnError = halt
	}
}

func SetRenderMarkdown(render bool) ConfigOption {
	return func(c *Config) {
		c.RenderMarkdown = render
	}
}

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}
