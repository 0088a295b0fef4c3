package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/prompttech/utils"
)

// tokenCounter estimates prompt sizes for debug logs. The encoding is loaded
// lazily because tiktoken may fetch its vocabulary on first use.
type tokenCounter struct {
	model  string
	logger utils.Logger

	once     sync.Once
	encoding *tiktoken.Tiktoken
}

func newTokenCounter(model string, logger utils.Logger) *tokenCounter {
	return &tokenCounter{model: model, logger: logger}
}

func (t *tokenCounter) load() {
	encoding, err := tiktoken.EncodingForModel(t.model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			t.logger.Debug("token encoding unavailable, using character estimate", "model", t.model, "error", err)
			return
		}
	}
	t.encoding = encoding
}

// Count returns the number of tokens in text. Without an encoding it falls
// back to four characters per token.
func (t *tokenCounter) Count(text string) int {
	t.once.Do(t.load)
	if t.encoding == nil {
		return (len(text) + 3) / 4
	}
	return len(t.encoding.Encode(text, nil, nil))
}
