package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"session-auth-service/internal/identity/service"
	"session-auth-service/internal/server/middleware"
)

// Handler serves the caller's own session routes. Every route requires a bearer token.
type Handler struct {
	auth *service.AuthService
}

// NewHandler returns a session Handler backed by auth.
func NewHandler(auth *service.AuthService) *Handler {
	return &Handler{auth: auth}
}

// RegisterRoutes mounts GET /sessions and DELETE /sessions/:sessionId on rg behind requireAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/sessions", requireAuth)
	g.GET("", h.ListSessions)
	g.DELETE("/:sessionId", h.RevokeSession)
}

// ListSessions returns the caller's active sessions, most recently used first.
func (h *Handler) ListSessions(c *gin.Context) {
	userID, _ := middleware.GetUserID(c.Request.Context())
	views, err := h.auth.ListSessions(c.Request.Context(), userID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// RevokeSession revokes one of the caller's sessions. A session that does not
// exist or belongs to someone else yields 403.
func (h *Handler) RevokeSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c.Request.Context())
	conf, err := h.auth.RevokeSession(c.Request.Context(), userID, c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "session not found or not owned by caller"})
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}

func internalError(c *gin.Context, err error) {
	zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
