package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"document-chat/internal/models"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	Mode    string `json:"mode"`
}

type historyResponse struct {
	SessionID string           `json:"session_id"`
	Document  string           `json:"document,omitempty"`
	Mode      string           `json:"mode"`
	Messages  []models.Message `json:"messages"`
}

func (s *Server) uploadDocument(c *gin.Context) {
	sess := currentSession(c)
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeBadRequest, "missing file field")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	defer f.Close()

	if err := s.chat.Ingest(c.Request.Context(), sess, fh.Filename, f); err != nil {
		sess.TakeNotice()
		respondError(c, http.StatusUnprocessableEntity, CodeIngestFailed, models.IngestErrorPrefix+err.Error())
		return
	}
	sess.TakeNotice()
	respondOK(c, gin.H{
		"document": sess.DocumentName(),
		"chunks":   sess.Index().Count(),
		"message":  models.IndexedNotice,
	})
}

func (s *Server) sendMessage(c *gin.Context) {
	sess := currentSession(c)
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		respondError(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	mode := sess.Mode()
	if req.Mode != "" {
		mode = models.ParseResponseMode(req.Mode)
	}
	respondOK(c, s.chat.Reply(c.Request.Context(), sess, strings.TrimSpace(req.Content), mode))
}

func (s *Server) getHistory(c *gin.Context) {
	sess := currentSession(c)
	msgs := sess.Messages()
	if msgs == nil {
		msgs = []models.Message{}
	}
	respondOK(c, historyResponse{
		SessionID: sess.ID,
		Document:  sess.DocumentName(),
		Mode:      string(sess.Mode()),
		Messages:  msgs,
	})
}

func (s *Server) clearHistory(c *gin.Context) {
	sess := currentSession(c)
	if err := s.chat.ClearHistory(c.Request.Context(), sess); err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternalServer, err.Error())
		return
	}
	respondOK(c, gin.H{"cleared": true})
}
