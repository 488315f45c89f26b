package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notetugas/tugas/internal/assistant"
	"github.com/notetugas/tugas/internal/cache"
	"github.com/notetugas/tugas/internal/config"
	"github.com/notetugas/tugas/internal/parser"
	"github.com/notetugas/tugas/internal/remote"
	"github.com/notetugas/tugas/internal/sync"
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errInvalidID          = errors.New("invalid id")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

// errorFor maps a domain error onto an HTTP status.
func errorFor(err error) apiError {
	var perr *parser.ParseError
	switch {
	case errors.As(err, &perr):
		return newBadRequestError(perr.Error())
	case errors.Is(err, sync.ErrInvalidInput),
		errors.Is(err, assistant.ErrEmptyPrompt):
		return newBadRequestError(err.Error())
	case errors.Is(err, config.ErrOwnerNotSet):
		return newBadRequestError(config.ErrOwnerNotSet.Error() + ".")
	case errors.Is(err, remote.ErrNotFound), errors.Is(err, cache.ErrNotFound):
		return newNotFoundError("not found")
	case errors.Is(err, assistant.ErrNotConfigured):
		return newAPIError(http.StatusServiceUnavailable, err.Error())
	case sync.IsRemoteError(err):
		return newAPIError(http.StatusBadGateway, err.Error())
	case cache.IsStoreError(err):
		return newAPIError(http.StatusInternalServerError, err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// written responds to a successful remote write. A write whose refresh
// failed is accepted with a warning.
func written(c *gin.Context, status int, body gin.H, err error) {
	if err == nil {
		c.JSON(status, body)
		return
	}
	if errors.Is(err, sync.ErrStaleCache) {
		body["warning"] = err.Error()
		c.JSON(http.StatusAccepted, body)
		return
	}
	abort(c, errorFor(err))
}
