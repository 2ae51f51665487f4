package parser

import (
	"fmt"
	"maps"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 500 // characters
	defaultChunkOverlap = 100 // characters
)

// Separators are tried in order; the empty separator falls back to splitting
// between characters.
var Separators = []string{"\n\n", "\n", " ", ""}

// ChunkDocuments splits docs into overlapping segments of at most chunkSize
// characters, preferring paragraph, line and word boundaries. Each chunk keeps
// its parent's metadata plus a 1-based chunk id.
func ChunkDocuments(docs []schema.Document, chunkSize, chunkOverlap int) ([]schema.Document, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = min(defaultChunkOverlap, chunkSize/2)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(Separators),
	)

	var chunks []schema.Document
	for _, doc := range docs {
		parts, err := splitter.SplitText(doc.PageContent)
		if err != nil {
			return nil, fmt.Errorf("failed to split document: %w", err)
		}
		chunkID := 0
		for _, part := range parts {
			if part == "" {
				continue
			}
			chunkID++
			meta := make(map[string]any, len(doc.Metadata)+1)
			maps.Copy(meta, doc.Metadata)
			meta[MetaChunkID] = chunkID
			chunks = append(chunks, schema.Document{PageContent: part, Metadata: meta})
		}
	}
	log.Debug().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Chunked documents")
	return chunks, nil
}
