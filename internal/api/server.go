// Package api serves the HTTP and WebSocket surface used by the UI.
package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/notetugas/tugas/internal/assistant"
	"github.com/notetugas/tugas/internal/note"
	"github.com/notetugas/tugas/internal/parser"
	"github.com/notetugas/tugas/internal/realtime"
)

// NoteService reads and mutates notes. *sync.Coordinator implements it.
type NoteService interface {
	OwnerID() int64
	Notes(ctx context.Context) ([]note.Note, error)
	Sync(ctx context.Context) ([]note.Note, error)
	CreateNote(ctx context.Context, draft note.Draft) (string, error)
	UpdateStatus(ctx context.Context, id string, status note.Status) error
	UpdateFields(ctx context.Context, id string, fields note.Fields) error
	DeleteNote(ctx context.Context, id string) error
}

// ChatStore persists chat sessions. *cache.Store implements it.
type ChatStore interface {
	Get(ctx context.Context, id string) (note.Note, error)
	CreateSession(ctx context.Context, title string) (int64, error)
	ListSessions(ctx context.Context) ([]note.ChatSession, error)
	GetSession(ctx context.Context, id int64) (note.ChatSession, error)
	DeleteSession(ctx context.Context, id int64) error
	AppendMessage(ctx context.Context, sessionID int64, sender note.Sender, content string) (int64, error)
	ListMessages(ctx context.Context, sessionID int64) ([]note.ChatMessage, error)
}

// Config wires the server's dependencies.
type Config struct {
	Notes     NoteService
	Chats     ChatStore
	Parser    *parser.Parser
	Assistant *assistant.Assistant
	// Hub serves /ws. Optional.
	Hub *realtime.Hub
	// SettingsPath is the settings file edited by /api/settings.
	SettingsPath string
	Logger       *log.Logger
}

// Server is the HTTP front end.
type Server struct {
	notes        NoteService
	chats        ChatStore
	parser       *parser.Parser
	assistant    *assistant.Assistant
	hub          *realtime.Hub
	settingsPath string
	logger       *log.Logger
	startedAt    time.Time
}

// New creates a server from cfg.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[api] ", log.LstdFlags)
	}
	p := cfg.Parser
	if p == nil {
		p = parser.New()
	}
	a := cfg.Assistant
	if a == nil {
		a = assistant.New(nil, logger)
	}
	return &Server{
		notes:        cfg.Notes,
		chats:        cfg.Chats,
		parser:       p,
		assistant:    a,
		hub:          cfg.Hub,
		settingsPath: cfg.SettingsPath,
		logger:       logger,
		startedAt:    time.Now(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.logger.Writer()), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", s.handleHealth)
	if s.hub != nil {
		r.GET("/ws", gin.WrapF(s.hub.HandleWebSocket))
	}

	api := r.Group("/api")
	{
		notes := api.Group("/notes")
		{
			notes.GET("", s.handleListNotes)
			notes.POST("", s.requireOwner, s.handleCreateNote)
			notes.POST("/text", s.requireOwner, s.handleCreateNoteFromText)
			notes.PUT("/:id", s.requireOwner, s.handleUpdateNote)
			notes.PATCH("/:id/status", s.requireOwner, s.handleSetStatus)
			notes.DELETE("/:id", s.requireOwner, s.handleDeleteNote)
		}
		api.POST("/sync", s.requireOwner, s.handleSync)

		api.GET("/settings", s.handleGetSettings)
		api.POST("/settings", s.handleSaveSettings)

		chat := api.Group("/chat/sessions")
		{
			chat.GET("", s.handleListSessions)
			chat.POST("", s.handleCreateSession)
			chat.DELETE("/:id", s.handleDeleteSession)
			chat.GET("/:id/messages", s.handleListMessages)
			chat.POST("/:id/messages", s.handleSendMessage)
		}
		api.POST("/ask-ai", s.handleAskAI)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Println("Server stopped")
	return nil
}

func (s *Server) requireOwner(c *gin.Context) {
	if s.notes.OwnerID() == 0 {
		abort(c, newBadRequestError("Telegram User ID is not set in Settings."))
		return
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"clients": clients,
	})
}
