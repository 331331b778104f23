package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthhandler "session-auth-service/internal/health/handler"
	identityservice "session-auth-service/internal/identity/service"
	"session-auth-service/internal/security"
	sessionrepo "session-auth-service/internal/session/repository"
	sessionservice "session-auth-service/internal/session/service"
	userrepo "session-auth-service/internal/user/repository"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	auth := identityservice.NewAuthService(
		userrepo.NewMemoryRepository(),
		sessionservice.NewManager(sessionrepo.NewMemoryRepository()),
		security.NewTestHasher(),
		tokens,
		identityservice.Policy{},
		nil,
	)
	r, err := NewEngine(Deps{
		Auth:        auth,
		Health:      healthhandler.NewChecker(nil),
		Logger:      zerolog.Nop(),
		Registry:    prometheus.NewRegistry(),
		ServiceName: "test",
	})
	require.NoError(t, err)
	return r
}

func TestNewEngine_Routes(t *testing.T) {
	r := newTestEngine(t)
	tests := []struct {
		method, path string
		body         string
		want         int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"secret1"}`, http.StatusCreated},
		{http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret1"}`, http.StatusOK},
		{http.MethodGet, "/auth/sessions", "", http.StatusUnauthorized},
		{http.MethodGet, "/auth/profile", "", http.StatusUnauthorized},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "http_requests_total")
}

func TestNewGRPCServer_Health(t *testing.T) {
	hs := health.NewServer()
	s := NewGRPCServer(hs)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
