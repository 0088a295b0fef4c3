package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"

	"github.com/teilomillet/prompttech/utils"
)

const GeminiEndpoint = "https://generativelanguage.googleapis.com/"

var errSDKProvider = errors.New("provider performs its own calls; use Complete")

// GeminiProvider calls Gemini through the Google GenAI SDK instead of the
// shared HTTP path.
type GeminiProvider struct {
	logger       utils.Logger
	extraHeaders map[string]string
	apiKey       string
	model        string
	endpoint     string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiProvider(apiKey, model string, extraHeaders map[string]string) *GeminiProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &GeminiProvider{
		logger:       utils.NewNopLogger(),
		extraHeaders: extraHeaders,
		apiKey:       apiKey,
		model:        model,
		endpoint:     GeminiEndpoint,
	}
}

func (p *GeminiProvider) Name() string                  { return "gemini" }
func (p *GeminiProvider) Model() string                 { return p.model }
func (p *GeminiProvider) Endpoint() string              { return p.endpoint }
func (p *GeminiProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *GeminiProvider) SetEndpoint(endpoint string) {
	if endpoint != "" {
		p.endpoint = endpoint
	}
}

func (p *GeminiProvider) Headers() map[string]string { return p.extraHeaders }

func (p *GeminiProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

func (p *GeminiProvider) PrepareRequest(*Request) ([]byte, error) { return nil, errSDKProvider }
func (p *GeminiProvider) ParseResponse([]byte) (*Response, error) { return nil, errSDKProvider }

// Complete sends the request through the GenAI client. The client is created
// on first use so that constructing the provider never touches the network.
func (p *GeminiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	if p.apiKey == "" {
		return nil, errors.New("GenAI API key is required")
	}
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	var system *genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(req.Temperature)),
		SystemInstruction: system,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	p.logger.Debug("sending GenAI request", "model", model, "messages", len(contents))
	result, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, errors.New("empty response from API")
	}

	resp := &Response{Text: text}
	if result.UsageMetadata != nil {
		resp.Usage = NewUsage(int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
	}
	return resp, nil
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.endpoint != GeminiEndpoint || len(p.extraHeaders) > 0 {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.endpoint, Headers: toHTTPHeader(p.extraHeaders)}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	p.client = client
	return client, nil
}

func toHTTPHeader(headers map[string]string) http.Header {
	if len(headers) == 0 {
		return nil
	}
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	return h
}
