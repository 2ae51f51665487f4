package parser

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

var vocabulary = []string{"engine", "oil", "filter", "change", "interval", "miles", "viscosity", "synthetic", "drain", "plug"}

// wordText builds n distinct words so that overlaps cannot match by accident.
func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = vocabulary[i%len(vocabulary)] + strconv.Itoa(i)
	}
	return strings.Join(words, " ")
}

// sharedEdge returns the length of the longest suffix of a that is a prefix of b.
func sharedEdge(a, b string) int {
	for k := min(len(a), len(b)); k > 0; k-- {
		if a[len(a)-k:] == b[:k] {
			return k
		}
	}
	return 0
}

func TestChunkDocumentsRespectsSizeAndOverlap(t *testing.T) {
	docs := []schema.Document{{PageContent: wordText(600), Metadata: map[string]any{MetaSource: "a.txt", MetaPage: 1}}}

	chunks, err := ChunkDocuments(docs, 500, 100)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.PageContent), 500, "chunk %d too long", i)
		assert.Equal(t, i+1, c.Metadata[MetaChunkID])
		assert.Equal(t, "a.txt", c.Metadata[MetaSource])
	}
	for i := 1; i < len(chunks); i++ {
		overlap := sharedEdge(chunks[i-1].PageContent, chunks[i].PageContent)
		assert.Greater(t, overlap, 0, "chunks %d and %d do not overlap", i-1, i)
		assert.LessOrEqual(t, overlap, 100)
	}
}

func TestChunkDocumentsPrefersParagraphs(t *testing.T) {
	paragraphs := []string{wordText(40), wordText(45), wordText(42)}
	for _, p := range paragraphs {
		require.Greater(t, len(p), 250)
		require.Less(t, len(p), 500)
	}
	docs := []schema.Document{{PageContent: strings.Join(paragraphs, "\n\n")}}

	chunks, err := ChunkDocuments(docs, 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, len(paragraphs))
	for i, c := range chunks {
		assert.Equal(t, paragraphs[i], c.PageContent)
	}
}

func TestChunkDocumentsShortTextSingleChunk(t *testing.T) {
	docs := []schema.Document{{PageContent: "Check tire pressure monthly."}}

	chunks, err := ChunkDocuments(docs, 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Check tire pressure monthly.", chunks[0].PageContent)
}

func TestChunkDocumentsFallsBackToCharacters(t *testing.T) {
	docs := []schema.Document{{PageContent: strings.Repeat("x", 1200)}}

	chunks, err := ChunkDocuments(docs, 500, 100)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.PageContent), 500)
	}
}

func TestChunkDocumentsIDsRestartPerDocument(t *testing.T) {
	docs := []schema.Document{
		{PageContent: wordText(200), Metadata: map[string]any{MetaPage: 1}},
		{PageContent: wordText(200), Metadata: map[string]any{MetaPage: 2}},
	}

	chunks, err := ChunkDocuments(docs, 500, 100)
	require.NoError(t, err)

	var firstOfPage2 *schema.Document
	for i := range chunks {
		if chunks[i].Metadata[MetaPage] == 2 {
			firstOfPage2 = &chunks[i]
			break
		}
	}
	require.NotNil(t, firstOfPage2)
	assert.Equal(t, 1, firstOfPage2.Metadata[MetaChunkID])
	// parent metadata must not be mutated
	assert.NotContains(t, docs[0].Metadata, MetaChunkID)
}
