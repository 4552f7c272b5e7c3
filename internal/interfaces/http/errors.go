package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/club-approvals/internal/domain/approval"
)

// errorMapping pairs a domain sentinel with its status and client-facing message
type errorMapping struct {
	target  error
	status  int
	message string
}

// Order matters: the first match wins. An empty message echoes the error text.
var errorMappings = []errorMapping{
	{approval.ErrAccessDenied, http.StatusForbidden, ""},
	{approval.ErrUnauthenticated, http.StatusUnauthorized, "invalid bearer token"},
	{approval.ErrEntityNotFound, http.StatusNotFound, "entity not found"},
	{approval.ErrConcurrentWriteConflict, http.StatusConflict, "the entity was modified concurrently, please retry"},
	{approval.ErrDuplicateProfile, http.StatusConflict, "a profile already exists for this account"},
	{approval.ErrCommentRequired, http.StatusBadRequest, "a comment is required to reject"},
	{approval.ErrInvalidAction, http.StatusBadRequest, ""},
	{approval.ErrInvalidMembers, http.StatusBadRequest, ""},
	{approval.ErrInvalidRecipients, http.StatusBadRequest, ""},
	{approval.ErrInvalidEntity, http.StatusBadRequest, ""},
}

// statusFor maps an application error to an HTTP status and message
func statusFor(err error) (int, string) {
	if approval.IsUnauthorizedReview(err) {
		return http.StatusForbidden, "not authorized to review this"
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.message == "" {
				return m.status, err.Error()
			}
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// respondError writes the mapped error and logs server-side failures
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
	} else {
		h.logger.Info("Request rejected", "op", op, "status", status, "error", err)
	}
	c.JSON(status, Response{
		Success: false,
		Error:   msg,
	})
}
