package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorMarker prefixes the text of every failed generation. Recorded outputs
// carry it, so callers that only see text can still tell a failure apart.
const ErrorMarker = "Error: "

// ErrorType represents the type of an error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeAuthentication
	ErrorTypeInvalidInput
)

// LLMError is a failed model call. It never escapes the Client as an error
// value; it travels inside a Result.
type LLMError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func (e *LLMError) TypeString() string {
	switch e.Type {
	case ErrorTypeProvider:
		return "ProviderError"
	case ErrorTypeRequest:
		return "RequestError"
	case ErrorTypeResponse:
		return "ResponseError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeRateLimit:
		return "RateLimitError"
	case ErrorTypeAuthentication:
		return "AuthenticationError"
	case ErrorTypeInvalidInput:
		return "InvalidInputError"
	default:
		return "UnknownError"
	}
}

// LoggableFields returns key/value pairs for structured logging.
func (e *LLMError) LoggableFields() []any {
	fields := []any{"error_type", e.TypeString(), "message", e.Message}
	if e.StatusCode != 0 {
		fields = append(fields, "status", e.StatusCode)
	}
	if e.Err != nil {
		fields = append(fields, "cause", e.Err.Error())
	}
	return fields
}

// NewLLMError creates a new LLMError
func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsErrorType reports whether err is an LLMError of the given type.
func IsErrorType(err error, errType ErrorType) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Type == errType
}

// HasErrorMarker reports whether text is the rendering of a failed call.
func HasErrorMarker(text string) bool {
	return strings.HasPrefix(text, ErrorMarker)
}
