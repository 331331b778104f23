package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"session-auth-service/internal/identity/service"
)

const bearerPrefix = "bearer "

// Authenticator verifies an access token. *service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*service.Principal, error)
}

// BearerAuth returns a gin middleware that validates the Bearer access token and
// sets user_id, email and role in the request context. Requests without a valid
// token are aborted with 401.
func BearerAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}
		ctx := c.Request.Context()
		p, err := auth.Authenticate(ctx, token)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("bearer token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
			return
		}

		ctx = WithIdentity(ctx, p.UserID, p.Email, p.Role)
		logger := zerolog.Ctx(ctx).With().Str("user_id", p.UserID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(ctx))
		c.Next()
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
