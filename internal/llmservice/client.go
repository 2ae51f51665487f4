package llmservice

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"document-chat/internal/config"
)

// NewChatModel connects to the hosted chat model over its OpenAI-compatible API.
// The credential is passed through as is; an empty key surfaces as an error
// from the client constructor.
func NewChatModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating chat model")
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return llm, nil
}

// Factory returns a constructor bound to llmConfig, so the model is only
// built when a conversation chain needs it.
func Factory(llmConfig *config.LLMConfig) func() (llms.Model, error) {
	return func() (llms.Model, error) {
		return NewChatModel(llmConfig)
	}
}
