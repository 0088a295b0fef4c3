package llm

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// GenerationRequest is one model call. It is a value type; options build a
// new one instead of mutating a shared instance.
type GenerationRequest struct {
	Prompt      string  `validate:"required"`
	Temperature float64 `validate:"gte=0,lte=1"`
	MaxTokens   int     `validate:"gt=0"`
}

type RequestOption func(*GenerationRequest)

func WithTemperature(temperature float64) RequestOption {
	return func(r *GenerationRequest) {
		r.Temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) RequestOption {
	return func(r *GenerationRequest) {
		r.MaxTokens = maxTokens
	}
}

// NewRequest returns a request with temperature 0.7 and 1024 max tokens
// unless overridden.
func NewRequest(prompt string, opts ...RequestOption) GenerationRequest {
	req := GenerationRequest{
		Prompt:      prompt,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

var validate = validator.New()

// Validate checks the request against a provider ceiling on max tokens.
// A ceiling of zero disables that check.
func (r GenerationRequest) Validate(maxTokensCeiling int) error {
	if err := validate.Struct(r); err != nil {
		return NewLLMError(ErrorTypeInvalidInput, "invalid generation request", err)
	}
	if maxTokensCeiling > 0 && r.MaxTokens > maxTokensCeiling {
		return NewLLMError(ErrorTypeInvalidInput, "max_tokens exceeds provider ceiling",
			fmt.Errorf("max_tokens %d > %d", r.MaxTokens, maxTokensCeiling))
	}
	return nil
}
