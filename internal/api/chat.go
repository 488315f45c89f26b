package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/notetugas/tugas/internal/assistant"
	"github.com/notetugas/tugas/internal/note"
)

func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, newBadRequestError(errInvalidID.Error()))
		return 0, false
	}
	return id, true
}

// GET /api/chat/sessions
func (s *Server) handleListSessions(c *gin.Context) {
	sessions, err := s.chats.ListSessions(c.Request.Context())
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	if sessions == nil {
		sessions = []note.ChatSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// POST /api/chat/sessions
func (s *Server) handleCreateSession(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	// An empty body creates an untitled session.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, newBadRequestError(errInvalidRequestBody.Error()))
			return
		}
	}

	ctx := c.Request.Context()
	id, err := s.chats.CreateSession(ctx, assistant.SessionTitle(req.Title))
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	session, err := s.chats.GetSession(ctx, id)
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	c.JSON(http.StatusCreated, session)
}

// DELETE /api/chat/sessions/:id
func (s *Server) handleDeleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := s.chats.DeleteSession(c.Request.Context(), id); err != nil {
		abort(c, errorFor(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}

// GET /api/chat/sessions/:id/messages
func (s *Server) handleListMessages(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.chats.GetSession(ctx, id); err != nil {
		abort(c, errorFor(err))
		return
	}
	messages, err := s.chats.ListMessages(ctx, id)
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	if messages == nil {
		messages = []note.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// POST /api/chat/sessions/:id/messages stores the user's message, asks the
// assistant with the whole session as history and stores the answer.
func (s *Server) handleSendMessage(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
		NoteID  string `json:"note_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	ctx := c.Request.Context()
	if _, err := s.chats.GetSession(ctx, id); err != nil {
		abort(c, errorFor(err))
		return
	}

	var noteContext string
	if req.NoteID != "" {
		n, err := s.chats.Get(ctx, req.NoteID)
		if err != nil {
			abort(c, errorFor(err))
			return
		}
		noteContext = assistant.NoteContext(n)
	}

	if _, err := s.chats.AppendMessage(ctx, id, note.SenderUser, req.Content); err != nil {
		abort(c, errorFor(err))
		return
	}
	history, err := s.chats.ListMessages(ctx, id)
	if err != nil {
		abort(c, errorFor(err))
		return
	}

	answer, err := s.assistant.Reply(ctx, history, noteContext)
	if err != nil {
		s.logger.Printf("Chat session %d: %v", id, err)
		abort(c, errorFor(err))
		return
	}
	if _, err := s.chats.AppendMessage(ctx, id, note.SenderAI, answer); err != nil {
		abort(c, errorFor(err))
		return
	}

	messages, err := s.chats.ListMessages(ctx, id)
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer, "messages": messages})
}

// POST /api/ask-ai answers one question without storing it.
func (s *Server) handleAskAI(c *gin.Context) {
	var req struct {
		Prompt  string `json:"prompt" binding:"required"`
		Context string `json:"context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError("Prompt is required"))
		return
	}

	answer, err := s.assistant.Ask(c.Request.Context(), req.Prompt, req.Context)
	if err != nil {
		s.logger.Printf("Ask AI: %v", err)
		abort(c, errorFor(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}
