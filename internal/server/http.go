package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	healthhandler "session-auth-service/internal/health/handler"
	identityhandler "session-auth-service/internal/identity/handler"
	identityservice "session-auth-service/internal/identity/service"
	"session-auth-service/internal/server/middleware"
	sessionhandler "session-auth-service/internal/session/handler"
)

// Deps holds what the HTTP engine needs.
type Deps struct {
	Auth   *identityservice.AuthService
	Health *healthhandler.Checker
	// Logger is the base request logger; each request gets a child with request_id.
	Logger zerolog.Logger
	// Registry receives the HTTP collectors and is served at /metrics. If nil, a new registry is used.
	Registry *prometheus.Registry
	// ServiceName names the otelgin server spans.
	ServiceName string
}

// NewEngine builds the gin engine with tracing, logging and metrics middleware and all routes:
//
//   - GET  /health, /ready, /metrics
//   - POST /auth/register, /auth/login, /auth/refresh
//   - POST /auth/logout, GET /auth/profile, GET /auth/admin-only (bearer)
//   - GET  /auth/sessions, DELETE /auth/sessions/:sessionId (bearer)
func NewEngine(deps Deps) (*gin.Engine, error) {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	httpMetrics, err := middleware.NewHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(deps.ServiceName),
		middleware.RequestLogger(deps.Logger),
		httpMetrics.Middleware(),
	)

	deps.Health.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	requireAuth := middleware.BearerAuth(deps.Auth)
	auth := r.Group("/auth")
	identityhandler.NewHandler(deps.Auth).RegisterRoutes(auth, requireAuth)
	sessionhandler.NewHandler(deps.Auth).RegisterRoutes(auth, requireAuth)
	return r, nil
}
