package http

import (
	"net/http"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/gin-gonic/gin"
)

// statusFor maps lifecycle errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, errors.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// codeFor names the sentinel for machine-readable error bodies.
func codeFor(err error) string {
	switch {
	case errors.Is(err, errors.ErrInstanceNotFound):
		return "instance_not_found"
	case errors.Is(err, errors.ErrNotFound):
		return "not_found"
	case errors.Is(err, errors.ErrAlreadyRunning):
		return "already_running"
	case errors.Is(err, errors.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, errors.ErrTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrInvalidHandle):
		return "invalid_handle"
	case errors.Is(err, errors.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, errors.ErrUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    codeFor(err),
	})
}
