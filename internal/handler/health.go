package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable. *store.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz handles GET /healthz. It only proves the process is serving.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz returns a handler for GET /readyz that pings the store.
func Readyz(db Pinger, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			RecordReadinessCheck(false)
			logger.Warn("readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		RecordReadinessCheck(true)
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
