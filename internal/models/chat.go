package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's chat history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptResponse is the outcome of a single turn before it is rendered.
type PromptResponse struct {
	Query      string  `json:"query"`
	Source     string  `json:"source"`
	Content    string  `json:"content"`
	Perplexity float64 `json:"perplexity"`
	Failed     bool    `json:"failed"`
}
