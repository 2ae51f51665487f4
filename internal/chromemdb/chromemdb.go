package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
)

// ErrEmptyIndex is returned when there is nothing to index.
var ErrEmptyIndex = errors.New("no chunks to index")

const collectionName = "uploaded_document"

// VectorDBManager owns an in-memory chromem-go collection. Search over it is
// exact: every stored embedding is compared against the query.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// BuildIndex embeds every chunk and stores it in a fresh collection.
func BuildIndex(ctx context.Context, embedder embeddings.Embedder, chunks []schema.Document) (*VectorDBManager, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyIndex
	}

	m := &VectorDBManager{db: chromem.NewDB(), embedder: embedder}
	c, err := m.db.GetOrCreateCollection(collectionName, nil, m.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = c

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.PageContent
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("chunk-%d", i),
			Content:   chunk.PageContent,
			Metadata:  stringMetadata(chunk.Metadata),
			Embedding: vectors[i],
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add document: %v", err)
	}

	log.Debug().Int("chunks", len(docs)).Msg("Built vector index")
	return m, nil
}

// Count returns the number of indexed chunks.
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// Search returns the topK chunks most similar to query, best first.
func (m *VectorDBManager) Search(ctx context.Context, query string, topK int) ([]schema.Document, error) {
	n := min(topK, m.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	queryEmbedding, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := m.collection.QueryEmbedding(ctx, queryEmbedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	docs := make([]schema.Document, len(results))
	for i, r := range results {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		docs[i] = schema.Document{PageContent: r.Content, Metadata: meta, Score: r.Similarity}
	}
	return docs, nil
}

// Retriever exposes the index as a langchaingo retriever returning topK chunks.
func (m *VectorDBManager) Retriever(topK int) schema.Retriever {
	return Retriever{index: m, topK: topK}
}

// Retriever implements schema.Retriever over a VectorDBManager.
type Retriever struct {
	index *VectorDBManager
	topK  int
}

func (r Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	return r.index.Search(ctx, query, r.topK)
}

// embeddingFunc keeps chromem from falling back to its default OpenAI
// embedder for documents added without a vector.
func (m *VectorDBManager) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return m.embedder.EmbedQuery(ctx, text)
	}
}

func stringMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = fmt.Sprint(v)
	}
	return out
}
