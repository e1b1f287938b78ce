// Package health watches the backing store and publishes the result to the
// gRPC health service.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	CheckTimeout  time.Duration
	FailThreshold int
}

// Pinger is the dependency being watched. *store.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSetter receives serving status changes. *health.Server from
// google.golang.org/grpc/health satisfies it.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// MetricsRecordFunc is an optional callback for recording check results.
type MetricsRecordFunc func(success bool)

// Checker pings a dependency on an interval and flips the serving status
// after FailThreshold consecutive failures.
type Checker struct {
	db        Pinger
	status    StatusSetter
	service   string
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	mu        sync.Mutex
	failCount int
	serving   bool
}

// New creates a Checker that reports under service. The empty service name is
// the server-wide status queried by most checks.
func New(db Pinger, status StatusSetter, service string, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 15 * time.Second
	}
	if cfg.CheckTimeout == 0 {
		cfg.CheckTimeout = 2 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		db:      db,
		status:  status,
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start checks once immediately, then on every interval until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check pings once and updates the serving status. It reports whether the
// dependency is currently considered serving.
func (h *Checker) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, h.cfg.CheckTimeout)
	err := h.db.Ping(pctx)
	cancel()

	if h.onMetrics != nil {
		h.onMetrics(err == nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		if !h.serving && h.failCount >= h.cfg.FailThreshold {
			h.logger.Info("health: store recovered", zap.Int("after_failures", h.failCount))
		}
		h.failCount = 0
		h.serving = true
		h.status.SetServingStatus(h.service, healthpb.HealthCheckResponse_SERVING)
		return true
	}

	h.failCount++
	if h.failCount == h.cfg.FailThreshold {
		h.serving = false
		h.status.SetServingStatus(h.service, healthpb.HealthCheckResponse_NOT_SERVING)
		h.logger.Warn("health: store unreachable",
			zap.Int("fail_count", h.failCount),
			zap.Error(err),
		)
	}
	return h.serving
}
