package perplexity

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// BPETokenizer encodes text with a tiktoken byte-pair encoding. r50k_base is
// the GPT-2 vocabulary.
type BPETokenizer struct {
	enc *tiktoken.Tiktoken
}

func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", encoding, err)
	}
	return &BPETokenizer{enc: enc}, nil
}

func (t *BPETokenizer) Encode(text string) []int64 {
	tokens := t.enc.Encode(text, nil, nil)
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		ids[i] = int64(tok)
	}
	return ids
}
