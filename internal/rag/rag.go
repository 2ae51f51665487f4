package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"
)

const defaultMemoryWindow = 10

// Chain answers questions about an indexed document. It condenses the running
// conversation and the new question into a standalone query, retrieves the
// matching chunks and asks the chat model to answer from them.
type Chain struct {
	qa     chains.ConversationalRetrievalQA
	memory schema.Memory
}

// NewChain binds llm and retriever together with a conversation memory that
// keeps the last window question/answer turns verbatim.
func NewChain(llm llms.Model, retriever schema.Retriever, window int) *Chain {
	if window <= 0 {
		window = defaultMemoryWindow
	}
	mem := memory.NewConversationWindowBuffer(window)
	return &Chain{
		qa:     chains.NewConversationalRetrievalQAFromLLM(llm, retriever, mem),
		memory: mem,
	}
}

// Ask runs one turn and returns the model's answer.
func (c *Chain) Ask(ctx context.Context, question string) (string, error) {
	log.Debug().Str("question", question).Msg("Querying conversation chain")
	out, err := chains.Call(ctx, c.qa, map[string]any{c.qa.InputKey: question})
	if err != nil {
		return "", err
	}
	answer, ok := out[c.qa.OutputKey].(string)
	if !ok {
		return "", fmt.Errorf("chain returned no %q output", c.qa.OutputKey)
	}
	return answer, nil
}

// History renders the turns currently held in memory.
func (c *Chain) History(ctx context.Context) (string, error) {
	vars, err := c.memory.LoadMemoryVariables(ctx, map[string]any{})
	if err != nil {
		return "", err
	}
	switch h := vars[c.memory.GetMemoryKey(ctx)].(type) {
	case string:
		return h, nil
	case []schema.ChatMessage:
		return schema.GetBufferString(h, "Human", "AI")
	default:
		return "", nil
	}
}

// Reset forgets the conversation so far.
func (c *Chain) Reset(ctx context.Context) error {
	return c.memory.Clear(ctx)
}
