package perplexity

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"document-chat/internal/config"
)

// LazyScorer loads the tokenizer and model on first use and reuses them for
// every later call. A failed load is retried on the next call.
type LazyScorer struct {
	enabled bool
	load    func() (*Scorer, error)

	mu     sync.Mutex
	scorer *Scorer
}

// NewLazyScorer returns a scorer backed by the ONNX model described in cfg.
func NewLazyScorer(cfg *config.PerplexityConfig) *LazyScorer {
	return &LazyScorer{
		enabled: cfg.Enabled,
		load: func() (*Scorer, error) {
			tok, err := NewBPETokenizer(cfg.Encoding)
			if err != nil {
				return nil, err
			}
			model, err := LoadONNXModel(cfg)
			if err != nil {
				return nil, err
			}
			log.Info().Str("model", cfg.ModelPath).Int("context_length", model.ContextLength()).Msg("Loaded perplexity model")
			return NewScorer(tok, model, cfg.Stride), nil
		},
	}
}

func (l *LazyScorer) Score(ctx context.Context, text string) (float64, error) {
	if !l.enabled {
		return 0, ErrDisabled
	}
	s, err := l.get()
	if err != nil {
		return 0, err
	}
	return s.Score(ctx, text)
}

func (l *LazyScorer) get() (*Scorer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.scorer != nil {
		return l.scorer, nil
	}
	s, err := l.load()
	if err != nil {
		return nil, err
	}
	l.scorer = s
	return s, nil
}

// Close releases the model if it was loaded.
func (l *LazyScorer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.scorer == nil {
		return nil
	}
	err := l.scorer.Close()
	l.scorer = nil
	return err
}
