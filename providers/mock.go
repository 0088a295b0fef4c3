package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/teilomillet/prompttech/utils"
)

// MockProvider answers from a script instead of a network. It records every
// request it receives.
type MockProvider struct {
	logger       utils.Logger
	extraHeaders map[string]string
	model        string
	endpoint     string

	mu           sync.Mutex
	responseText string
	responses    []string
	responder    func(req *Request) (string, error)
	failOn       map[int]error
	panicOn      map[int]any
	requests     []*Request
}

// NewMockProvider returns a provider that replies "This is a mock response"
// until configured otherwise.
func NewMockProvider(_, model string, extraHeaders map[string]string) *MockProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &MockProvider{
		logger:       utils.NewNopLogger(),
		extraHeaders: extraHeaders,
		model:        model,
		endpoint:     "mock://local",
		responseText: "This is a mock response",
		failOn:       make(map[int]error),
		panicOn:      make(map[int]any),
	}
}

func (p *MockProvider) Name() string                  { return "mock" }
func (p *MockProvider) Model() string                 { return p.model }
func (p *MockProvider) Endpoint() string              { return p.endpoint }
func (p *MockProvider) SetEndpoint(endpoint string)   { p.endpoint = endpoint }
func (p *MockProvider) SetLogger(logger utils.Logger) { p.logger = logger }
func (p *MockProvider) Headers() map[string]string    { return p.extraHeaders }

func (p *MockProvider) SetExtraHeaders(headers map[string]string) { p.extraHeaders = headers }

func (p *MockProvider) PrepareRequest(*Request) ([]byte, error) { return nil, errSDKProvider }
func (p *MockProvider) ParseResponse([]byte) (*Response, error) { return nil, errSDKProvider }

// SetMockResponse sets the reply used when no queued response remains.
func (p *MockProvider) SetMockResponse(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseText = text
}

// SetResponses queues replies returned in order before the fallback reply.
func (p *MockProvider) SetResponses(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append([]string(nil), responses...)
}

// SetResponder computes each reply from the request. It takes precedence
// over queued responses.
func (p *MockProvider) SetResponder(fn func(req *Request) (string, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responder = fn
}

// FailOn makes the n-th call (1-based) return err.
func (p *MockProvider) FailOn(call int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		err = errors.New("mock failure")
	}
	p.failOn[call] = err
}

// PanicOn makes the n-th call (1-based) panic with v.
func (p *MockProvider) PanicOn(call int, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panicOn[call] = v
}

// Requests returns copies of the requests received so far.
func (p *MockProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	for i, r := range p.requests {
		out[i] = *r
	}
	return out
}

// Prompts returns the content of the last message of each request.
func (p *MockProvider) Prompts() []string {
	reqs := p.Requests()
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if len(r.Messages) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, r.Messages[len(r.Messages)-1].Content)
	}
	return out
}

func (p *MockProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	cp := *req
	cp.Messages = append([]Message(nil), req.Messages...)
	p.requests = append(p.requests, &cp)
	call := len(p.requests)
	panicValue, shouldPanic := p.panicOn[call]
	failErr := p.failOn[call]
	responder := p.responder
	var text string
	if responder == nil {
		if len(p.responses) > 0 {
			text, p.responses = p.responses[0], p.responses[1:]
		} else {
			text = p.responseText
		}
	}
	p.mu.Unlock()

	p.logger.Debug("mock call", "call", call, "model", req.Model)

	if shouldPanic {
		panic(panicValue)
	}
	if failErr != nil {
		return nil, failErr
	}
	if responder != nil {
		var err error
		text, err = responder(&cp)
		if err != nil {
			return nil, fmt.Errorf("mock responder: %w", err)
		}
	}
	return &Response{Text: text}, nil
}
