package server

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"document-chat/internal/chatbot"
	"document-chat/internal/config"
	"document-chat/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxUploadSize = 32 << 20 // 32 MB

type Server struct {
	cfg       *config.Config
	chat      *chatbot.Service
	sessions  *session.Store
	md        goldmark.Markdown
	startedAt time.Time
}

func New(cfg *config.Config, chat *chatbot.Service, sessions *session.Store) *Server {
	return &Server{
		cfg:       cfg,
		chat:      chat,
		sessions:  sessions,
		md:        newMarkdown(),
		startedAt: time.Now(),
	}
}

// Router builds the gin engine serving the pages and the JSON API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(s.cfg.App.GinMode)
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	router.MaxMultipartMemory = maxUploadSize
	router.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))

	router.GET("/healthz", s.health)
	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/chat") })
	router.GET("/instructions", s.instructionsPage)

	maxAge := s.cfg.Session.TTLMinutes * 60
	withSess := withSession(s.sessions, s.cfg.Session.CookieName, maxAge)

	chat := router.Group("/chat", withSess)
	chat.GET("", s.chatPage)
	chat.POST("/upload", s.uploadForm)
	chat.POST("/messages", s.messageForm)
	chat.POST("/clear", s.clearForm)

	v1 := router.Group("/api/v1", withSess)
	v1.POST("/documents", s.uploadDocument)
	v1.POST("/messages", s.sendMessage)
	v1.GET("/history", s.getHistory)
	v1.DELETE("/history", s.clearHistory)

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":        s.cfg.App.Name,
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
		"sessions":   s.sessions.Len(),
	})
}
