package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/notetugas/tugas/internal/note"
)

// noteRequest is the body of create and edit requests. The Indonesian
// field names are accepted for older clients.
type noteRequest struct {
	Subject        *string `json:"subject"`
	Description    *string `json:"description"`
	Deadline       *string `json:"deadline"`
	MataKuliah     *string `json:"mata_kuliah"`
	DeskripsiTugas *string `json:"deskripsi_tugas"`
}

func (r noteRequest) subject() *string {
	if r.Subject != nil {
		return r.Subject
	}
	return r.MataKuliah
}

func (r noteRequest) description() *string {
	if r.Description != nil {
		return r.Description
	}
	return r.DeskripsiTugas
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GET /api/notes?status=pending
func (s *Server) handleListNotes(c *gin.Context) {
	notes, err := s.notes.Notes(c.Request.Context())
	if err != nil {
		abort(c, errorFor(err))
		return
	}

	if raw := c.Query("status"); raw != "" {
		status, err := note.ParseStatus(raw)
		if err != nil {
			abort(c, newBadRequestError(err.Error()))
			return
		}
		filtered := make([]note.Note, 0, len(notes))
		for _, n := range notes {
			if n.Status == status {
				filtered = append(filtered, n)
			}
		}
		notes = filtered
	}

	if notes == nil {
		notes = []note.Note{}
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes, "total": len(notes)})
}

// POST /api/notes
func (s *Server) handleCreateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	draft, err := s.parser.ParseFields(deref(req.subject()), deref(req.description()), deref(req.Deadline))
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	s.create(c, draft)
}

// POST /api/notes/text takes the same one-line command the bot accepts.
func (s *Server) handleCreateNoteFromText(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	draft, err := s.parser.Parse(req.Text)
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	s.create(c, draft)
}

func (s *Server) create(c *gin.Context, draft *note.Draft) {
	id, err := s.notes.CreateNote(c.Request.Context(), *draft)
	if id == "" && err != nil {
		abort(c, errorFor(err))
		return
	}
	written(c, http.StatusCreated, gin.H{"id": id, "note": draft}, err)
}

// PUT /api/notes/:id
func (s *Server) handleUpdateNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	var fields note.Fields
	if v := req.subject(); v != nil {
		subject := strings.TrimSpace(*v)
		fields.Subject = &subject
	}
	if v := req.description(); v != nil {
		description := strings.TrimSpace(*v)
		fields.Description = &description
	}
	if req.Deadline != nil {
		deadline, err := s.parser.ParseDeadline(*req.Deadline)
		if err != nil {
			abort(c, errorFor(err))
			return
		}
		fields.Deadline = &deadline
	}

	err := s.notes.UpdateFields(c.Request.Context(), c.Param("id"), fields)
	written(c, http.StatusOK, gin.H{"id": c.Param("id"), "updated": fields.Map()}, err)
}

// PATCH /api/notes/:id/status
func (s *Server) handleSetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}
	status, err := note.ParseStatus(req.Status)
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}

	err = s.notes.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	written(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": status}, err)
}

// DELETE /api/notes/:id
func (s *Server) handleDeleteNote(c *gin.Context) {
	err := s.notes.DeleteNote(c.Request.Context(), c.Param("id"))
	written(c, http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true}, err)
}

// POST /api/sync
func (s *Server) handleSync(c *gin.Context) {
	notes, err := s.notes.Sync(c.Request.Context())
	if err != nil {
		abort(c, errorFor(err))
		return
	}
	if notes == nil {
		notes = []note.Note{}
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes, "total": len(notes)})
}
