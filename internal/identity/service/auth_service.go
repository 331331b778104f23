package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"session-auth-service/internal/security"
	sessiondomain "session-auth-service/internal/session/domain"
	authotel "session-auth-service/internal/telemetry/otel"
	userdomain "session-auth-service/internal/user/domain"
	userrepo "session-auth-service/internal/user/repository"
)

// UserRepo is the user store needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) (*userdomain.User, error)
	Update(ctx context.Context, id string, upd userdomain.Update) error
}

// SessionManager is the session record manager needed by the auth service.
// *session/service.Manager implements it.
type SessionManager interface {
	Now() time.Time
	Create(ctx context.Context, userID string, expiresAt time.Time, meta sessiondomain.Metadata) (*sessiondomain.Session, error)
	FindByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	FindActiveByUserID(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	Touch(ctx context.Context, id string, meta sessiondomain.Metadata) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) (int64, error)
	RevokeIfActive(ctx context.Context, id string) (bool, error)
}

// PasswordHasher is the credential verifier needed by the auth service.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(hash string, password []byte) bool
	NeedsRehash(hash string) bool
	DummyVerify(password []byte)
}

// Policy holds the configurable session policies.
type Policy struct {
	// RotateRefreshTokens makes every refresh revoke its session and open a new one.
	RotateRefreshTokens bool
	// SingleSessionPerUser revokes the user's existing sessions on login.
	SingleSessionPerUser bool
}

// TokenPair is the result of Login and Refresh.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	SessionID        string    `json:"sessionId"`
}

// SessionView is the outward projection of a session. It carries no token material.
type SessionView struct {
	SessionID  string     `json:"sessionId"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	IP         string     `json:"ip,omitempty"`
	UserAgent  string     `json:"userAgent,omitempty"`
}

// Confirmation is the result of Logout and RevokeSession.
type Confirmation struct {
	Message string `json:"message"`
}

// Principal is the identity carried by a verified access token.
type Principal struct {
	UserID string
	Email  string
	Role   userdomain.Role
}

// AuthService implements register, login, refresh, logout and session management.
// It holds no mutable state; all durable state lives in the stores.
type AuthService struct {
	users    UserRepo
	sessions SessionManager
	hasher   PasswordHasher
	tokens   *security.TokenProvider
	policy   Policy
	metrics  *authotel.AuthMetrics
	tracer   trace.Tracer
}

// NewAuthService returns an AuthService with the given dependencies. metrics may be nil.
func NewAuthService(
	users UserRepo,
	sessions SessionManager,
	hasher PasswordHasher,
	tokens *security.TokenProvider,
	policy Policy,
	metrics *authotel.AuthMetrics,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		policy:   policy,
		metrics:  metrics,
		tracer:   otel.Tracer("session-auth-service/identity"),
	}
}

// Register creates a user with role "user". Returns ErrDuplicateEmail if the email is taken.
// The returned user includes the password hash; callers must not shape it into responses.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*userdomain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email = strings.TrimSpace(email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("register: lookup user: %w", err))
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("register: hash password: %w", err))
	}
	user, err := s.users.Create(ctx, &userdomain.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         userdomain.RoleUser,
		FullName:     strings.TrimSpace(fullName),
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, ErrDuplicateEmail
		}
		return nil, s.fail(span, fmt.Errorf("register: create user: %w", err))
	}
	span.SetAttributes(attribute.String("user.id", user.ID))
	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login verifies credentials, opens a new session and issues a token pair.
// Unknown email and wrong password both return ErrInvalidCredentials after a full hash verification.
func (s *AuthService) Login(ctx context.Context, email, password string, meta sessiondomain.Metadata) (*TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.metrics.LoginAttempt(ctx, "error")
		return nil, s.fail(span, fmt.Errorf("login: lookup user: %w", err))
	}
	if user == nil {
		s.hasher.DummyVerify([]byte(password))
		s.metrics.LoginAttempt(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, []byte(password)) {
		s.metrics.LoginAttempt(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	s.maybeRehash(ctx, user, password)

	if s.policy.SingleSessionPerUser {
		n, err := s.sessions.RevokeAllByUser(ctx, user.ID)
		if err != nil {
			s.metrics.LoginAttempt(ctx, "error")
			return nil, s.fail(span, fmt.Errorf("login: revoke previous sessions: %w", err))
		}
		s.metrics.SessionsRevoked(ctx, "single_session", n)
	}

	sess, err := s.sessions.Create(ctx, user.ID, s.sessions.Now().Add(s.tokens.RefreshTTL()), meta)
	if err != nil {
		s.metrics.LoginAttempt(ctx, "error")
		return nil, s.fail(span, fmt.Errorf("login: create session: %w", err))
	}
	pair, err := s.issuePair(user, sess)
	if err != nil {
		s.metrics.LoginAttempt(ctx, "error")
		return nil, s.fail(span, fmt.Errorf("login: %w", err))
	}
	s.metrics.LoginAttempt(ctx, "success")
	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("session.id", sess.ID))
	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Str("session_id", sess.ID).Msg("login succeeded")
	return pair, nil
}

// Refresh exchanges a refresh token for a new token pair. Every rejection is
// ErrInvalidRefreshToken wrapping an internal reason; store failures are returned
// as internal errors instead.
//
// With rotation enabled the presented session is revoked with a conditional
// update and a new session is opened, so a replayed or concurrently reused token
// fails. Without rotation the same session is reissued until it expires or is revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta sessiondomain.Metadata) (*TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh", trace.WithAttributes(attribute.Bool("rotation", s.policy.RotateRefreshTokens)))
	defer span.End()

	pair, err := s.refresh(ctx, meta, refreshToken)
	switch {
	case err == nil:
		s.metrics.RefreshAttempt(ctx, "success", s.policy.RotateRefreshTokens)
	case errors.Is(err, ErrInvalidRefreshToken):
		s.metrics.RefreshAttempt(ctx, "invalid", s.policy.RotateRefreshTokens)
		zerolog.Ctx(ctx).Debug().Err(err).Msg("refresh rejected")
	default:
		s.metrics.RefreshAttempt(ctx, "error", s.policy.RotateRefreshTokens)
		s.fail(span, err)
	}
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, meta sessiondomain.Metadata, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, invalidRefresh(err.Error())
	}
	if claims.SessionID == "" {
		return nil, invalidRefresh("missing session reference")
	}

	sess, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("refresh: load session: %w", err)
	}
	if sess == nil {
		return nil, invalidRefresh("session not found")
	}
	if now := s.sessions.Now(); !sess.IsValid(now) {
		return nil, invalidRefresh("session " + string(sess.State(now)))
	}
	if sess.UserID != claims.Subject {
		return nil, invalidRefresh("session bound to another subject")
	}

	if err := s.sessions.Touch(ctx, sess.ID, meta); err != nil {
		return nil, fmt.Errorf("refresh: touch session: %w", err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("refresh: lookup user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, ErrUserNotFound)
	}

	if s.policy.RotateRefreshTokens {
		won, err := s.sessions.RevokeIfActive(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("refresh: revoke rotated session: %w", err)
		}
		if !won {
			return nil, invalidRefresh("session already rotated")
		}
		s.metrics.SessionsRevoked(ctx, "rotation", 1)

		sess, err = s.sessions.Create(ctx, user.ID, s.sessions.Now().Add(s.tokens.RefreshTTL()), mergeMetadata(meta, sess))
		if err != nil {
			return nil, fmt.Errorf("refresh: create rotated session: %w", err)
		}
	}

	pair, err := s.issuePair(user, sess)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return pair, nil
}

// Logout revokes sessionID if given and owned by userID, or every session of
// the user when sessionID is empty. It always succeeds for valid input; a
// session of another user is left untouched.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if sessionID == "" {
		n, err := s.sessions.RevokeAllByUser(ctx, userID)
		if err != nil {
			return nil, s.fail(span, fmt.Errorf("logout: revoke all: %w", err))
		}
		s.metrics.SessionsRevoked(ctx, "logout_all", n)
		zerolog.Ctx(ctx).Info().Str("user_id", userID).Int64("revoked", n).Msg("logged out of all sessions")
		return &Confirmation{Message: "Logged out from all sessions"}, nil
	}

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("logout: load session: %w", err))
	}
	if sess != nil && sess.UserID == userID {
		if err := s.sessions.Revoke(ctx, sessionID); err != nil {
			return nil, s.fail(span, fmt.Errorf("logout: revoke: %w", err))
		}
		s.metrics.SessionsRevoked(ctx, "logout", 1)
	}
	zerolog.Ctx(ctx).Info().Str("user_id", userID).Str("session_id", sessionID).Msg("logged out")
	return &Confirmation{Message: "Logged out successfully"}, nil
}

// ListSessions returns the user's active sessions, most recently used first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]SessionView, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ListSessions")
	defer span.End()

	list, err := s.sessions.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("list sessions: %w", err))
	}
	views := make([]SessionView, len(list))
	for i, sess := range list {
		views[i] = SessionView{
			SessionID:  sess.ID,
			CreatedAt:  sess.CreatedAt,
			LastUsedAt: sess.LastUsedAt,
			ExpiresAt:  sess.ExpiresAt,
			IP:         sess.IP,
			UserAgent:  sess.UserAgent,
		}
	}
	return views, nil
}

// RevokeSession revokes one of the user's sessions. Returns ErrForbidden when
// the session does not exist or belongs to someone else; ownership is checked
// before anything is written.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.RevokeSession")
	defer span.End()

	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("revoke session: load: %w", err))
	}
	if sess == nil || sess.UserID != userID {
		return nil, ErrForbidden
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return nil, s.fail(span, fmt.Errorf("revoke session: %w", err))
	}
	s.metrics.SessionsRevoked(ctx, "revoke", 1)
	zerolog.Ctx(ctx).Info().Str("user_id", userID).Str("session_id", sessionID).Msg("session revoked")
	return &Confirmation{Message: "Session revoked successfully"}, nil
}

// Authenticate verifies an access token and returns its principal.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	return &Principal{UserID: claims.Subject, Email: claims.Email, Role: userdomain.Role(claims.Role)}, nil
}

// Profile returns the user for userID or ErrUserNotFound.
func (s *AuthService) Profile(ctx context.Context, userID string) (*userdomain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) issuePair(user *userdomain.User, sess *sessiondomain.Session) (*TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(security.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		Email:            user.Email,
		Role:             string(user.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(security.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID, ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt)},
		SessionID:        sess.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
	}, nil
}

// maybeRehash upgrades a legacy or outdated hash after a successful login. Failures are logged only.
func (s *AuthService) maybeRehash(ctx context.Context, user *userdomain.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err == nil {
		err = s.users.Update(ctx, user.ID, userdomain.Update{PasswordHash: &hashed})
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("password rehash failed")
		return
	}
	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Msg("password hash upgraded")
}

func (s *AuthService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// mergeMetadata fills empty request metadata from the rotated session.
func mergeMetadata(meta sessiondomain.Metadata, prev *sessiondomain.Session) sessiondomain.Metadata {
	if meta.IP == "" {
		meta.IP = prev.IP
	}
	if meta.UserAgent == "" {
		meta.UserAgent = prev.UserAgent
	}
	return meta
}
