package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
	"go.uber.org/zap"
)

// statusFor maps an error kind to its HTTP status. Conflict and InvalidState
// are reported as 400 to match the published API contract.
func statusFor(kind error) int {
	switch {
	case errors.Is(kind, apperr.ErrInvalidArgument),
		errors.Is(kind, apperr.ErrConflict),
		errors.Is(kind, apperr.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(kind, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error", "code"}. Unclassified errors are logged
// and reported as a generic 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	if ae, ok := apperr.As(err); ok {
		c.JSON(statusFor(ae.Kind), gin.H{"error": ae.Message, "code": ae.Code()})
		return
	}
	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// badBody reports an unparseable JSON body.
func badBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "invalid_argument"})
}

// pathID parses a UUID path parameter. Malformed IDs cannot name an existing
// record, so they are reported as not found.
func pathID(c *gin.Context, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.NotFound("%s not found", what)
	}
	return id, nil
}

// bodyID parses an optional UUID from a request body field. Empty means absent.
func bodyID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidArgument("invalid %s", field)
	}
	return id, nil
}
