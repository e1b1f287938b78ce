package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	skillswapRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_requests_total",
		Help: "Total HTTP requests by method, route, and response status.",
	}, []string{"method", "path", "status"})

	skillswapRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skillswap_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	skillswapRegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_registrations_total",
		Help: "Accounts created, by sign-up method.",
	}, []string{"method"})

	skillswapSwapEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_swap_events_total",
		Help: "Swap lifecycle events by resulting status (pending on create, deleted on delete).",
	}, []string{"status"})

	skillswapRatingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_ratings_total",
		Help: "Ratings submitted, by score.",
	}, []string{"score"})

	skillswapReadinessChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_readiness_checks_total",
		Help: "Readiness checks by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		skillswapRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		skillswapRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordRegistration counts a new account; method is "password" or the OAuth provider.
func RecordRegistration(method string) {
	skillswapRegistrationsTotal.WithLabelValues(method).Inc()
}

// RecordSwapEvent counts a swap lifecycle event.
func RecordSwapEvent(status string) {
	skillswapSwapEventsTotal.WithLabelValues(status).Inc()
}

// RecordRating counts a submitted rating.
func RecordRating(score int) {
	skillswapRatingsTotal.WithLabelValues(strconv.Itoa(score)).Inc()
}

// RecordReadinessCheck records a readiness check result.
func RecordReadinessCheck(ok bool) {
	if ok {
		skillswapReadinessChecksTotal.WithLabelValues("success").Inc()
	} else {
		skillswapReadinessChecksTotal.WithLabelValues("failure").Inc()
	}
}
