package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/teilomillet/prompttech/utils"
)

// GenericProvider speaks the OpenAI chat completions wire format. Most hosted
// inference APIs accept it, so a ProviderConfig is all that distinguishes them.
type GenericProvider struct {
	logger       utils.Logger
	extraHeaders map[string]string
	config       ProviderConfig
	apiKey       string
	model        string
	endpoint     string
}

// NewGenericProvider creates a provider from a configuration.
func NewGenericProvider(cfg ProviderConfig, apiKey, model string, extraHeaders map[string]string) *GenericProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &GenericProvider{
		logger:       utils.NewNopLogger(),
		extraHeaders: extraHeaders,
		config:       cfg,
		apiKey:       apiKey,
		model:        model,
		endpoint:     cfg.Endpoint,
	}
}

func (p *GenericProvider) Name() string  { return p.config.Name }
func (p *GenericProvider) Model() string { return p.model }

func (p *GenericProvider) Endpoint() string { return p.endpoint }

// SetEndpoint overrides the configured endpoint, e.g. for a local
// OpenAI-compatible server.
func (p *GenericProvider) SetEndpoint(endpoint string) {
	if endpoint != "" {
		p.endpoint = endpoint
	}
}

func (p *GenericProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *GenericProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

// Headers returns the required headers, the auth header when an API key is
// set, and any extra headers on top.
func (p *GenericProvider) Headers() map[string]string {
	headers := make(map[string]string, len(p.config.RequiredHeaders)+len(p.extraHeaders)+1)
	maps.Copy(headers, p.config.RequiredHeaders)
	if p.config.AuthHeader != "" && p.apiKey != "" {
		headers[p.config.AuthHeader] = p.config.AuthPrefix + p.apiKey
	}
	maps.Copy(headers, p.extraHeaders)
	return headers
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

func (p *GenericProvider) PrepareRequest(req *Request) ([]byte, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("request has no messages")
	}
	model := req.Model
	if model == "" {
		model = p.model
	}

	body := chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	p.logger.Debug("prepared request", "provider", p.config.Name, "model", model, "bytes", len(data))
	return data, nil
}

func (p *GenericProvider) ParseResponse(body []byte) (*Response, error) {
	var response struct {
		Usage *struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
		} `json:"usage"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return nil, errors.New("empty response from API")
	}

	resp := &Response{Text: response.Choices[0].Message.Content}
	if response.Usage != nil {
		resp.Usage = NewUsage(response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}
	return resp, nil
}

// ParseError reads the {"error": {"message": ...}} envelope used by chat
// completions APIs. It falls back to the raw body.
func (p *GenericProvider) ParseError(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(body))
}
