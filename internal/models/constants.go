package models

const (
	SourceDocument  = "Document"
	SourceWebSearch = "Web Search"

	// PerplexitySentinel marks a failed perplexity computation; it suppresses
	// the annotation in the rendered reply.
	PerplexitySentinel = -1.0

	TruncationMarker = "..."

	IndexedNotice         = "File indexed for retrieval."
	IngestErrorPrefix     = "Error processing document: "
	GenerationErrorPrefix = "Error generating response: "
)

// ResponseMode selects how much of an answer is displayed.
type ResponseMode string

const (
	ModeConcise  ResponseMode = "Concise"
	ModeDetailed ResponseMode = "Detailed"
)

// ParseResponseMode maps user input onto a mode, defaulting to Detailed.
func ParseResponseMode(s string) ResponseMode {
	if ResponseMode(s) == ModeConcise {
		return ModeConcise
	}
	return ModeDetailed
}
