package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chronicle/internal/knowledge"
	"chronicle/internal/store"
	"chronicle/internal/tools"
)

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusOf(err error) int {
	var inputErr *tools.InputError
	switch {
	case knowledge.IsValidation(err), errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, knowledge.ErrIdentityMismatch):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
