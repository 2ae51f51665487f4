package perplexity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrTooShort is returned when the text has fewer than two tokens, so no
	// token can be predicted from a preceding one.
	ErrTooShort = errors.New("text too short to score")
	// ErrDisabled is returned by a scorer that has been switched off.
	ErrDisabled = errors.New("perplexity scoring disabled")
)

const DefaultStride = 512

// Tokenizer turns text into model token ids.
type Tokenizer interface {
	Encode(text string) []int64
}

// LanguageModel is a causal language model. Logits returns one row of
// vocabulary logits per input position; row i scores the token at i+1.
type LanguageModel interface {
	ContextLength() int
	Logits(ctx context.Context, ids []int64) ([][]float32, error)
}

// Scorer computes perplexity with a sliding window: windows of the model's
// context length advance by stride tokens, and each token is scored once, by
// the first window whose new region contains it.
type Scorer struct {
	tokenizer Tokenizer
	model     LanguageModel
	stride    int
}

func NewScorer(tokenizer Tokenizer, model LanguageModel, stride int) *Scorer {
	if stride <= 0 {
		stride = DefaultStride
	}
	return &Scorer{tokenizer: tokenizer, model: model, stride: stride}
}

// Score returns exp(mean negative log-likelihood) of text under the model.
func (s *Scorer) Score(ctx context.Context, text string) (float64, error) {
	ids := s.tokenizer.Encode(text)
	if len(ids) < 2 {
		return 0, ErrTooShort
	}
	maxLen := s.model.ContextLength()
	if maxLen < 2 {
		return 0, fmt.Errorf("invalid model context length %d", maxLen)
	}
	stride := min(s.stride, maxLen)

	var (
		nll    float64
		scored int
		prev   int
	)
	for begin := 0; begin < len(ids); begin += stride {
		end := min(begin+maxLen, len(ids))
		window := ids[begin:end]
		targets := end - prev

		logits, err := s.model.Logits(ctx, window)
		if err != nil {
			return 0, err
		}
		if len(logits) != len(window) {
			return 0, fmt.Errorf("model returned %d logit rows for %d tokens", len(logits), len(window))
		}

		for p := max(len(window)-targets, 1); p < len(window); p++ {
			row := logits[p-1]
			tok := window[p]
			if tok < 0 || int(tok) >= len(row) {
				return 0, fmt.Errorf("token id %d outside vocabulary of %d", tok, len(row))
			}
			nll -= logSoftmaxAt(row, int(tok))
			scored++
		}

		prev = end
		if end == len(ids) {
			break
		}
	}
	if scored == 0 {
		return 0, ErrTooShort
	}
	return math.Exp(nll / float64(scored)), nil
}

// Close releases the model when it holds native resources.
func (s *Scorer) Close() error {
	if c, ok := s.model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// logSoftmaxAt returns log(softmax(row)[i]) computed stably.
func logSoftmaxAt(row []float32, i int) float64 {
	maxLogit := math.Inf(-1)
	for _, v := range row {
		maxLogit = math.Max(maxLogit, float64(v))
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - maxLogit)
	}
	return float64(row[i]) - maxLogit - math.Log(sum)
}
