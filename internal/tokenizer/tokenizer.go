// Package tokenizer counts model tokens for context budgeting.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// FallbackEncoding is used when the model name has no known encoding.
const FallbackEncoding = "cl100k_base"

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(string) int

func (f CounterFunc) Count(text string) int { return f(text) }

// Tiktoken counts tokens with the BPE encoding of a model.
type Tiktoken struct {
	mu       sync.Mutex
	enc      *tiktoken.Tiktoken
	encoding string
}

// NewTiktoken resolves the encoding for model, falling back to cl100k_base.
// The first call may download the BPE ranks file.
func NewTiktoken(model string) (*Tiktoken, error) {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &Tiktoken{enc: enc, encoding: model}, nil
	}

	enc, err := tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", FallbackEncoding, err)
	}
	return &Tiktoken{enc: enc, encoding: FallbackEncoding}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	// The encoder keeps an internal cache that is not safe for concurrent use.
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.enc.Encode(text, nil, nil))
}

// Encoding names the model or encoding in use.
func (t *Tiktoken) Encoding() string {
	return t.encoding
}

// Approximate estimates tokens as one per four bytes, rounded up. It is used
// when no BPE encoding can be loaded.
var Approximate = CounterFunc(func(text string) int {
	return (len(text) + 3) / 4
})
