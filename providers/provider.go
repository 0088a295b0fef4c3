// Package providers implements the inference endpoints prompttech can call.
// HTTP providers only build request bodies and parse response bodies; the
// llm package owns the transport. SDK-backed providers implement Completer
// and perform the call themselves.
package providers

import (
	"context"

	"github.com/teilomillet/prompttech/utils"
)

// Provider is implemented by every inference endpoint.
type Provider interface {
	Name() string
	Model() string
	Endpoint() string
	SetEndpoint(endpoint string)
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetLogger(logger utils.Logger)

	PrepareRequest(req *Request) ([]byte, error)
	ParseResponse(body []byte) (*Response, error)
}

// Completer is implemented by providers that perform the network call
// themselves instead of going through the shared HTTP path.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ErrorParser extracts a readable message from a non-2xx response body.
type ErrorParser interface {
	ParseError(body []byte) string
}

// ProviderConfig describes an HTTP provider speaking the chat completions
// wire format.
type ProviderConfig struct {
	Name            string
	Endpoint        string
	AuthHeader      string
	AuthPrefix      string
	RequiredHeaders map[string]string
}

// ProviderConstructor creates a provider instance.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider
