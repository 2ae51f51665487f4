package websearch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"

	"document-chat/internal/config"
)

// Searcher answers a query from live web search results.
type Searcher struct {
	tool tools.Tool
}

// New creates a Searcher backed by DuckDuckGo.
func New(cfg *config.SearchConfig) (*Searcher, error) {
	tool, err := duckduckgo.New(cfg.MaxResults, cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}
	return NewWithTool(tool), nil
}

// NewWithTool wraps any langchaingo tool that takes a query as input.
func NewWithTool(tool tools.Tool) *Searcher {
	return &Searcher{tool: tool}
}

// Search returns the tool's result text verbatim.
func (s *Searcher) Search(ctx context.Context, query string) (string, error) {
	log.Debug().Str("tool", s.tool.Name()).Str("query", query).Msg("Running web search")
	result, err := s.tool.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}
	return result, nil
}
