// Package testutil holds deterministic stand-ins for the remote services the
// assistant talks to, so pipelines can be exercised without network access.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/llms"
)

const embeddingDims = 64

// Embedder is a bag-of-words hashing embedder. Texts sharing words get
// similar vectors.
type Embedder struct {
	Err error
}

func (e Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embed(t)
	}
	return out, nil
}

func (e Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return embed(text), nil
}

func embed(text string) []float32 {
	v := make([]float32, embeddingDims)
	v[0] = 0.1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[1+int(h.Sum32()%(embeddingDims-1))]++
	}
	return v
}

// LLM is a scripted chat model. It returns Answer for every call and records
// the prompts it was given.
type LLM struct {
	Answer string
	Err    error

	mu      sync.Mutex
	prompts []string
}

func (l *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				b.WriteString(t.Text)
			}
		}
	}
	l.record(b.String())
	if l.Err != nil {
		return nil, l.Err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: l.Answer}}}, nil
}

func (l *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	l.record(prompt)
	if l.Err != nil {
		return "", l.Err
	}
	return l.Answer, nil
}

func (l *LLM) record(prompt string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
}

// Prompts returns every prompt seen so far.
func (l *LLM) Prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.prompts...)
}

// SearchTool is a scripted web search tool.
type SearchTool struct {
	Result string
	Err    error

	mu      sync.Mutex
	queries []string
}

func (s *SearchTool) Name() string        { return "fake_search" }
func (s *SearchTool) Description() string { return "scripted search results" }

func (s *SearchTool) Call(ctx context.Context, input string) (string, error) {
	s.mu.Lock()
	s.queries = append(s.queries, input)
	s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Result, nil
}

// Queries returns every query seen so far.
func (s *SearchTool) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Scorer returns a fixed perplexity, or Err.
type Scorer struct {
	Value float64
	Err   error
}

func (s Scorer) Score(ctx context.Context, text string) (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	if text == "" {
		return 0, errors.New("empty text")
	}
	return s.Value, nil
}
