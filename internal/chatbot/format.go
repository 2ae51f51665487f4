package chatbot

import (
	"fmt"
	"strings"

	"document-chat/internal/models"
)

const defaultConciseLimit = 250

// Format renders a turn's outcome as the markdown shown in the chat.
//
//	<body>\n\n_Source: <source>_\n🔢 *Perplexity:* <ppl>
//
// The perplexity line is left out for the sentinel and the source line for
// failed turns.
func Format(res models.PromptResponse, mode models.ResponseMode, conciseLimit int) string {
	body := res.Content
	if mode == models.ModeConcise {
		body = Truncate(body, conciseLimit)
	}
	if res.Failed {
		return body
	}

	var b strings.Builder
	b.WriteString(body)
	fmt.Fprintf(&b, "\n\n_Source: %s_", res.Source)
	if res.Perplexity >= 0 {
		fmt.Fprintf(&b, "\n🔢 *Perplexity:* %.2f", res.Perplexity)
	}
	return b.String()
}

// Truncate cuts text to limit characters and appends the truncation marker
// when it is longer.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		limit = defaultConciseLimit
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + models.TruncationMarker
}
