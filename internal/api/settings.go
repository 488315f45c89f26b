package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notetugas/tugas/internal/config"
)

// GET /api/settings
func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := config.Load(s.settingsPath)
	if err != nil {
		abort(c, newAPIError(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, settings.Public())
}

// POST /api/settings merges the given fields into the settings file.
// Owner and credential changes take effect after a restart.
func (s *Server) handleSaveSettings(c *gin.Context) {
	var update config.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	settings, err := config.Load(s.settingsPath)
	if err != nil {
		abort(c, newAPIError(http.StatusInternalServerError, err.Error()))
		return
	}
	update.Apply(settings)

	if settings.TelegramID != "" {
		if _, err := settings.OwnerID(); err != nil {
			abort(c, newBadRequestError(err.Error()))
			return
		}
	}

	if err := config.Save(s.settingsPath, settings); err != nil {
		abort(c, newAPIError(http.StatusInternalServerError, err.Error()))
		return
	}
	s.logger.Printf("Settings saved to %s", s.settingsPath)

	c.JSON(http.StatusOK, gin.H{
		"message":          "Settings saved. Restart to apply owner and credential changes.",
		"settings":         settings.Public(),
		"restart_required": true,
	})
}
