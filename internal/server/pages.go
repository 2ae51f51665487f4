package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"document-chat/internal/models"
	"document-chat/internal/parser"
	"document-chat/internal/session"
)

type messageView struct {
	Role models.Role
	HTML template.HTML
}

type chatView struct {
	Page         string
	Title        string
	Messages     []messageView
	Mode         models.ResponseMode
	Modes        []models.ResponseMode
	Notice       *session.Notice
	DocumentName string
	Accept       string
}

func (s *Server) chatPage(c *gin.Context) {
	sess := currentSession(c)
	msgs := sess.Messages()
	views := make([]messageView, len(msgs))
	for i, m := range msgs {
		views[i] = messageView{Role: m.Role, HTML: renderMarkdown(s.md, m.Content)}
	}
	c.HTML(http.StatusOK, "chat.html", chatView{
		Page:         "chat",
		Title:        s.cfg.App.Name,
		Messages:     views,
		Mode:         sess.Mode(),
		Modes:        []models.ResponseMode{models.ModeConcise, models.ModeDetailed},
		Notice:       sess.TakeNotice(),
		DocumentName: sess.DocumentName(),
		Accept:       acceptedTypes(),
	})
}

func (s *Server) instructionsPage(c *gin.Context) {
	c.HTML(http.StatusOK, "instructions.html", gin.H{
		"Page":       "instructions",
		"Title":      s.cfg.App.Name,
		"Extensions": acceptedTypes(),
	})
}

func (s *Server) uploadForm(c *gin.Context) {
	sess := currentSession(c)
	fh, err := c.FormFile("file")
	if err != nil {
		sess.SetNotice(models.IngestErrorPrefix+"no file uploaded", true)
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	f, err := fh.Open()
	if err != nil {
		sess.SetNotice(models.IngestErrorPrefix+err.Error(), true)
		c.Redirect(http.StatusSeeOther, "/chat")
		return
	}
	defer f.Close()

	// the outcome is reported through the session notice
	_ = s.chat.Ingest(c.Request.Context(), sess, fh.Filename, f)
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) messageForm(c *gin.Context) {
	sess := currentSession(c)
	mode := models.ParseResponseMode(c.PostForm("mode"))
	sess.SetMode(mode)

	if prompt := strings.TrimSpace(c.PostForm("prompt")); prompt != "" {
		s.chat.Reply(c.Request.Context(), sess, prompt, mode)
	}
	c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) clearForm(c *gin.Context) {
	sess := currentSession(c)
	if err := s.chat.ClearHistory(c.Request.Context(), sess); err != nil {
		sess.SetNotice(err.Error(), true)
	}
	c.Redirect(http.StatusSeeOther, "/chat")
}

// acceptedTypes is the uploader's accept attribute, e.g. ".pdf,.docx,.txt".
func acceptedTypes() string {
	return strings.Join(parser.SupportedExtensions, ",")
}
