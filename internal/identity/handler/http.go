package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"session-auth-service/internal/identity/service"
	"session-auth-service/internal/platform/rbac"
	"session-auth-service/internal/server/middleware"
	sessiondomain "session-auth-service/internal/session/domain"
	userdomain "session-auth-service/internal/user/domain"
)

// Handler serves the /auth credential and token routes.
type Handler struct {
	auth *service.AuthService
}

// NewHandler returns a Handler backed by auth.
func NewHandler(auth *service.AuthService) *Handler {
	return &Handler{auth: auth}
}

// RegisterRoutes mounts the routes on rg. requireAuth guards the routes that need a bearer token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/refresh", h.Refresh)

	protected := rg.Group("", requireAuth)
	protected.POST("/logout", h.Logout)
	protected.GET("/profile", h.Profile)
	protected.GET("/admin-only", rbac.Require(userdomain.RoleAdmin), h.AdminOnly)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	FullName string `json:"fullName" binding:"max=255"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	SessionID string `json:"sessionId"`
}

// userResponse is the public shape of a user. It never carries the password hash.
type userResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      userdomain.Role `json:"role"`
	FullName  string          `json:"fullName,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toUserResponse(u *userdomain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(u)})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, requestMetadata(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, requestMetadata(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout handles POST /auth/logout. An optional {"sessionId"} body limits the
// logout to that session; otherwise every session of the caller is revoked.
func (h *Handler) Logout(c *gin.Context) {
	var req logoutRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		// Chunked requests report ContentLength -1, so an empty body shows up as io.EOF.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	userID, _ := middleware.GetUserID(c.Request.Context())
	conf, err := h.auth.Logout(c.Request.Context(), userID, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}

// Profile handles GET /auth/profile.
func (h *Handler) Profile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c.Request.Context())
	u, err := h.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// AdminOnly handles GET /auth/admin-only.
func (h *Handler) AdminOnly(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := middleware.GetUserID(ctx)
	email, _ := middleware.GetEmail(ctx)
	role, _ := middleware.GetRole(ctx)
	c.JSON(http.StatusOK, gin.H{
		"message": "This is admin-only data",
		"user":    gin.H{"id": userID, "email": email, "role": role},
	})
}

func requestMetadata(c *gin.Context) sessiondomain.Metadata {
	return sessiondomain.Metadata{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// writeError maps auth service errors to HTTP responses. Unclassified errors are
// logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrDuplicateEmail.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidRefreshToken.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
