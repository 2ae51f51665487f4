package session

import (
	"sync"
	"time"

	"document-chat/internal/chromemdb"
	"document-chat/internal/models"
	"document-chat/internal/rag"
)

// Notice is a one-line status shown above the chat, e.g. after an upload.
type Notice struct {
	Text  string `json:"text"`
	Error bool   `json:"error"`
}

// Session is the state of one user's conversation. The index and chain are
// either both set or both nil.
type Session struct {
	ID string

	turn sync.Mutex

	mu           sync.RWMutex
	messages     []models.Message
	index        *chromemdb.VectorDBManager
	chain        *rag.Chain
	documentName string
	mode         models.ResponseMode
	notice       *Notice
}

func New(id string) *Session {
	return &Session{ID: id, mode: models.ModeDetailed}
}

// BeginTurn serializes uploads and messages within the session. The returned
// func ends the turn.
func (s *Session) BeginTurn() func() {
	s.turn.Lock()
	return s.turn.Unlock
}

// Attach replaces the index and chain with the ones built for document name.
func (s *Session) Attach(index *chromemdb.VectorDBManager, chain *rag.Chain, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
	s.chain = chain
	s.documentName = name
}

// Chain returns the conversation chain, or nil before a document is indexed.
func (s *Session) Chain() *rag.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain
}

func (s *Session) Index() *chromemdb.VectorDBManager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Session) DocumentName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentName
}

// Append adds a message to the history.
func (s *Session) Append(role models.Role, content string) models.Message {
	msg := models.Message{Role: role, Content: content, CreatedAt: time.Now()}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// Messages returns a copy of the history in order.
func (s *Session) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages...)
}

func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

func (s *Session) Mode() models.ResponseMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) SetMode(mode models.ResponseMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

func (s *Session) SetNotice(text string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = &Notice{Text: text, Error: isError}
}

// TakeNotice returns the pending notice, if any, and clears it.
func (s *Session) TakeNotice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = nil
	return n
}
