package handler

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ErrDraining is reported by Check once shutdown has begun.
var ErrDraining = errors.New("shutting down")

// Pinger checks connectivity to a backing store (e.g. *pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker answers liveness and readiness for the HTTP and gRPC health surfaces.
type Checker struct {
	pinger   Pinger
	timeout  time.Duration
	draining atomic.Bool
}

// NewChecker returns a Checker. If pinger is nil, readiness skips the store ping
// (in-memory stores).
func NewChecker(pinger Pinger) *Checker {
	return &Checker{pinger: pinger, timeout: 2 * time.Second}
}

// SetDraining marks the service as shutting down so readiness fails while
// in-flight requests finish.
func (h *Checker) SetDraining() {
	h.draining.Store(true)
}

// Check returns nil when the service can take traffic.
func (h *Checker) Check(ctx context.Context) error {
	if h.draining.Load() {
		return ErrDraining
	}
	if h.pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.pinger.Ping(ctx)
}

// RegisterRoutes mounts GET /health (liveness) and GET /ready (readiness) on r.
func (h *Checker) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Live)
	r.GET("/ready", h.Ready)
}

// Live always reports ok while the process serves HTTP.
func (h *Checker) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports 503 when Check fails. The cause is logged, not returned.
func (h *Checker) Ready(c *gin.Context) {
	if err := h.Check(c.Request.Context()); err != nil {
		status := "unavailable"
		if errors.Is(err, ErrDraining) {
			status = "shutting_down"
		} else {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("readiness check failed")
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SyncGRPC sets the overall serving status of srv from Check.
func (h *Checker) SyncGRPC(ctx context.Context, srv *health.Server) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := h.Check(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	srv.SetServingStatus("", st)
	return st
}

// WatchGRPC calls SyncGRPC every interval until ctx is done, then marks srv as
// not serving.
func (h *Checker) WatchGRPC(ctx context.Context, srv *health.Server, interval time.Duration) {
	h.SyncGRPC(ctx, srv)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-ticker.C:
			h.SyncGRPC(ctx, srv)
		}
	}
}
