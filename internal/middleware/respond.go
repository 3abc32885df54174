package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

// Status maps an error kind to its HTTP status.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindPendingApproval, apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidationFailure:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// Redirect is where the frontend should send a user who hit err.
func Redirect(kind apperr.Kind) string {
	switch kind {
	case apperr.KindUnauthenticated, apperr.KindPendingApproval:
		return "/login"
	case apperr.KindForbidden:
		return "/"
	default:
		return ""
	}
}

// ErrorBody renders err for a response.
func ErrorBody(err error) dto.ErrorResponse {
	kind := apperr.KindOf(err)
	return dto.ErrorResponse{
		Error:    apperr.MessageOf(err),
		Code:     apperr.CodeOf(err),
		Redirect: Redirect(kind),
	}
}

// RespondError writes err with the status of its kind and aborts the handler
// chain. Upstream failures are logged; their cause is not sent to the client.
func RespondError(c *drift.Context, err error) {
	kind := apperr.KindOf(err)
	status := Status(kind)
	if status == http.StatusServiceUnavailable {
		slog.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorBody(err))
}
