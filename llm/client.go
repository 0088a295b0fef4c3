// Package llm wraps a single call to a hosted completion endpoint. Generate
// never returns an error value: every failure becomes a Result carrying an
// LLMError and an error-marked text.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/teilomillet/prompttech/config"
	"github.com/teilomillet/prompttech/providers"
	"github.com/teilomillet/prompttech/utils"
)

// Generator is the contract technique runners depend on.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) Result
	Model() string
}

// Client performs exactly one outbound request per Generate call. It does not
// retry, cache or deduplicate.
type Client struct {
	provider providers.Provider
	client   *http.Client
	logger   utils.Logger
	config   *config.Config
	tokens   *tokenCounter
}

// NewClient resolves the configured provider from registry.
func NewClient(cfg *config.Config, logger utils.Logger, registry *providers.ProviderRegistry) (*Client, error) {
	if registry == nil {
		registry = providers.GetDefaultRegistry()
	}
	provider, err := registry.Get(cfg.Provider, cfg.APIKey(), cfg.Model, nil)
	if err != nil {
		return nil, err
	}
	return NewClientWithProvider(cfg, logger, provider), nil
}

// NewClientWithProvider builds a client around an existing provider. A nil
// logger falls back to cfg.Logger.
func NewClientWithProvider(cfg *config.Config, logger utils.Logger, provider providers.Provider) *Client {
	if logger == nil {
		logger = cfg.Logger
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if cfg.Endpoint != "" {
		provider.SetEndpoint(cfg.Endpoint)
	}
	if len(cfg.ExtraHeaders) > 0 {
		provider.SetExtraHeaders(cfg.ExtraHeaders)
	}
	provider.SetLogger(logger)

	return &Client{
		provider: provider,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		config:   cfg,
		tokens:   newTokenCounter(cfg.Model, logger),
	}
}

func (c *Client) Model() string { return c.config.Model }

// NewRequest builds a request seeded with the configured temperature and max
// tokens. opts are applied after them.
func (c *Client) NewRequest(prompt string, opts ...RequestOption) GenerationRequest {
	seeded := []RequestOption{WithTemperature(c.config.Temperature), WithMaxTokens(c.config.MaxTokens)}
	return NewRequest(prompt, append(seeded, opts...)...)
}

// Generate validates req, issues one call and converts any failure,
// including a provider panic, into a failed Result.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := NewLLMError(ErrorTypeProvider, "provider panicked", fmt.Errorf("%v", r))
			c.logger.Error("Generation failed", err.LoggableFields()...)
			res = failure(err)
		}
	}()

	if err := req.Validate(c.config.MaxTokensCeiling); err != nil {
		var llmErr *LLMError
		if !errors.As(err, &llmErr) {
			llmErr = NewLLMError(ErrorTypeInvalidInput, "invalid generation request", err)
		}
		c.logger.Warn("Rejected generation request", llmErr.LoggableFields()...)
		return failure(llmErr)
	}

	if c.config.LogLevel >= utils.LogLevelDebug {
		c.logger.Debug("Generating text",
			"provider", c.provider.Name(),
			"model", c.config.Model,
			"temperature", req.Temperature,
			"max_tokens", req.MaxTokens,
			"prompt_tokens", c.tokens.Count(req.Prompt))
	}

	preq := providers.NewUserRequest(c.config.Model, req.Prompt, req.Temperature, req.MaxTokens)

	var (
		resp   *providers.Response
		llmErr *LLMError
	)
	if completer, ok := c.provider.(providers.Completer); ok {
		var err error
		resp, err = completer.Complete(ctx, preq)
		if err != nil {
			llmErr = NewLLMError(ErrorTypeProvider, "provider call failed", err)
		}
	} else {
		resp, llmErr = c.doHTTP(ctx, preq)
	}
	if llmErr != nil {
		c.logger.Error("Generation failed", llmErr.LoggableFields()...)
		return failure(llmErr)
	}

	res = Result{Text: resp.Text}
	if resp.Usage != nil {
		res.Usage = &Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens}
	}
	c.logger.Debug("Text generated successfully", "chars", len(resp.Text))
	return res
}

func (c *Client) doHTTP(ctx context.Context, preq *providers.Request) (*providers.Response, *LLMError) {
	reqBody, err := c.provider.PrepareRequest(preq)
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.provider.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range c.provider.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrorTypeResponse, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp.StatusCode, body)
	}

	parsed, err := c.provider.ParseResponse(body)
	if err != nil {
		return nil, NewLLMError(ErrorTypeResponse, "failed to parse response", err)
	}
	return parsed, nil
}

func (c *Client) statusError(status int, body []byte) *LLMError {
	detail := string(body)
	if parser, ok := c.provider.(providers.ErrorParser); ok {
		detail = parser.ParseError(body)
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	errType := ErrorTypeAPI
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = ErrorTypeAuthentication
	case http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	}

	return &LLMError{
		Type:       errType,
		Message:    fmt.Sprintf("status code %d", status),
		StatusCode: status,
		Err:        errors.New(detail),
	}
}
