package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig holds the HTTP-layer settings.
type RouterConfig struct {
	CORSOrigins  []string
	RateLimitRPS int
	BodyLimit    int64
}

// Routes groups the handlers mounted under /api.
type Routes struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Swaps   *SwapHandler
	Ratings *RatingHandler
}

// NewRouter builds the gin engine with the middleware chain, health endpoints, metrics
// and API routes. ctx bounds background work such as the rate limiter sweep.
func NewRouter(ctx context.Context, cfg RouterConfig, routes Routes, db Pinger, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))
	router.Use(SecurityHeaders())

	if cfg.BodyLimit > 0 {
		router.Use(BodyLimit(cfg.BodyLimit))
	}
	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	router.Use(PrometheusMiddleware())
	router.Use(RequestLogger(logger))

	router.GET("/healthz", Healthz)
	router.GET("/readyz", Readyz(db, logger))
	router.GET("/metrics", MetricsHandler())

	api := router.Group("/api")
	routes.Auth.Register(api)
	routes.Users.Register(api)
	routes.Swaps.Register(api)
	routes.Ratings.Register(api)

	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
