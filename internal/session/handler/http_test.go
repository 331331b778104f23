package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"session-auth-service/internal/identity/service"
	"session-auth-service/internal/security"
	"session-auth-service/internal/server/middleware"
	sessiondomain "session-auth-service/internal/session/domain"
	sessionrepo "session-auth-service/internal/session/repository"
	sessionservice "session-auth-service/internal/session/service"
	userrepo "session-auth-service/internal/user/repository"
)

type fixture struct {
	engine *gin.Engine
	auth   *service.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	auth := service.NewAuthService(
		userrepo.NewMemoryRepository(),
		sessionservice.NewManager(sessionrepo.NewMemoryRepository()),
		security.NewTestHasher(),
		tokens,
		service.Policy{},
		nil,
	)
	r := gin.New()
	NewHandler(auth).RegisterRoutes(r.Group("/auth"), middleware.BearerAuth(auth))
	return &fixture{engine: r, auth: auth}
}

func (f *fixture) login(t *testing.T, email string) *service.TokenPair {
	t.Helper()
	ctx := context.Background()
	if _, err := f.auth.Register(ctx, email, "secret1", ""); err != nil {
		require.ErrorIs(t, err, service.ErrDuplicateEmail)
	}
	pair, err := f.auth.Login(ctx, email, "secret1", sessiondomain.Metadata{IP: "10.0.0.1", UserAgent: "ua"})
	require.NoError(t, err)
	return pair
}

func (f *fixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestListAndRevokeSessions(t *testing.T) {
	f := newFixture(t)
	first := f.login(t, "a@x.com")
	second := f.login(t, "a@x.com")

	w := f.do(http.MethodGet, "/auth/sessions", second.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []service.SessionView `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 2)
	require.NotContains(t, w.Body.String(), first.RefreshToken)
	require.Equal(t, "10.0.0.1", list.Sessions[0].IP)

	w = f.do(http.MethodDelete, "/auth/sessions/"+first.SessionID, second.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Session revoked successfully"}`, w.Body.String())

	w = f.do(http.MethodGet, "/auth/sessions", second.AccessToken)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	require.Equal(t, second.SessionID, list.Sessions[0].SessionID)
}

func TestRevokeSession_OtherUserForbidden(t *testing.T) {
	f := newFixture(t)
	alice := f.login(t, "alice@x.com")
	bob := f.login(t, "bob@x.com")

	w := f.do(http.MethodDelete, "/auth/sessions/"+bob.SessionID, alice.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodDelete, "/auth/sessions/does-not-exist", alice.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/auth/sessions", bob.AccessToken)
	require.Contains(t, w.Body.String(), bob.SessionID)
}

func TestSessionRoutesRequireBearer(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/auth/sessions", "").Code)
	require.Equal(t, http.StatusUnauthorized, f.do(http.MethodDelete, "/auth/sessions/x", "").Code)
}
