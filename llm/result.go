package llm

// Result is the outcome of one generation. Err is nil on success; on failure
// Text holds ErrorMarker followed by the diagnostic so that the text alone
// can still be recorded.
type Result struct {
	Text  string
	Err   *LLMError
	Usage *Usage
}

// Usage reports token counts returned by the provider.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// ErrorType returns the failure kind, or ErrorTypeUnknown on success.
func (r Result) ErrorType() ErrorType {
	if r.Err == nil {
		return ErrorTypeUnknown
	}
	return r.Err.Type
}

func failure(err *LLMError) Result {
	return Result{Text: ErrorMarker + err.Error(), Err: err}
}
