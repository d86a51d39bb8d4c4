package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/termhost/internal/domain/terminal"
)

// errorStatus maps domain errors to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, terminal.ErrUnknownSession):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, terminal.ErrDuplicateSession):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, terminal.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, terminal.ErrWriteFailure):
		return http.StatusConflict, "write_failed"
	case errors.Is(err, terminal.ErrManagerClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, terminal.ErrSpawnFailure):
		return http.StatusInternalServerError, "spawn_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	c.Error(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func badRequest(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    "invalid_argument",
	})
}
