package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/config"
)

func TestNewSelectsProvider(t *testing.T) {
	emb, err := New(&config.LLMConfig{Provider: "Ollama", BaseURL: "http://localhost:11434", Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.NotNil(t, emb)

	emb, err = New(&config.LLMConfig{Provider: ProviderOpenAI, BaseURL: "http://localhost:1234/v1", Model: "text-embedding-3-small", Key: "Bearer sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, emb)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(&config.LLMConfig{Provider: "bert"})
	assert.ErrorContains(t, err, "unknown embedding provider")
}
