package corpus

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoders   = make(map[string]*tiktoken.Tiktoken)
	encodersMu sync.RWMutex
)

// encoderForModel caches encoders per model name. Unknown models fall back
// to cl100k_base, which covers the current chat model families.
func encoderForModel(model string) (*tiktoken.Tiktoken, error) {
	encodersMu.RLock()
	enc, ok := encoders[model]
	encodersMu.RUnlock()
	if ok {
		return enc, nil
	}

	encodersMu.Lock()
	defer encodersMu.Unlock()
	if enc, ok := encoders[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
	}
	encoders[model] = enc
	return enc, nil
}

// TiktokenCounter counts tokens with the model's real BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter builds a counter for the given model name.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := encoderForModel(model)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
