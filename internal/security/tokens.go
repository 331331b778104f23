package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid. Every
	// classified token error below wraps it.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenMalformed covers unparsable tokens and claim mismatches (iss, aud, token_use, alg).
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	// ErrTokenExpired is returned once the exp claim has passed.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	// ErrTokenSignature is returned when the signature does not verify with the given secret.
	ErrTokenSignature = fmt.Errorf("%w: signature invalid", ErrInvalidToken)
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
}

// RefreshClaims holds JWT claims for the refresh token. SessionID binds the
// token to a session row; the token itself is never stored.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sess"`
	TokenUse  string `json:"token_use"`
}

// TokenConfig configures a TokenProvider.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenProvider issues and validates HS256 access and refresh tokens. The two
// token classes use distinct secrets, so a token of one class never verifies as the other.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenProvider returns a TokenProvider. Secrets must be non-empty and distinct; TTLs must be positive.
func NewTokenProvider(cfg TokenConfig) (*TokenProvider, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("security: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("security: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("security: token TTLs must be positive")
	}
	return &TokenProvider{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock replaces the clock used for iat/exp and for expiry checks. Intended for tests.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	p.now = now
	return p
}

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess signs an access token for claims.Subject, claims.Email and
// claims.Role. Registered claims other than Subject are filled in by the provider.
func (p *TokenProvider) IssueAccess(claims AccessClaims) (token string, expiresAt time.Time, err error) {
	now := p.now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims.RegisteredClaims = p.registered(claims.Subject, now, expiresAt)
	claims.TokenUse = tokenUseAccess
	token, err = IssueToken(claims, p.accessSecret)
	return token, expiresAt, err
}

// IssueRefresh signs a refresh token bound to claims.SessionID. If
// claims.ExpiresAt is set and earlier than now+RefreshTTL it is kept, so a
// reissued token never outlives its session.
func (p *TokenProvider) IssueRefresh(claims RefreshClaims) (token string, expiresAt time.Time, err error) {
	now := p.now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(expiresAt) {
		expiresAt = claims.ExpiresAt.Time.UTC()
	}
	claims.RegisteredClaims = p.registered(claims.Subject, now, expiresAt)
	claims.TokenUse = tokenUseRefresh
	token, err = IssueToken(claims, p.refreshSecret)
	return token, expiresAt, err
}

// ValidateAccess verifies signature, exp, iss, aud and token_use of an access token.
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := VerifyToken(tokenString, p.accessSecret, claims, p.parserOptions()...); err != nil {
		return nil, err
	}
	if claims.TokenUse != tokenUseAccess || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ValidateRefresh verifies signature, exp, iss, aud and token_use of a refresh token.
// The session reference is not checked here.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := VerifyToken(tokenString, p.refreshSecret, claims, p.parserOptions()...); err != nil {
		return nil, err
	}
	if claims.TokenUse != tokenUseRefresh || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (p *TokenProvider) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (p *TokenProvider) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithTimeFunc(p.now),
	}
}

// IssueToken signs claims with secret using HS256.
func IssueToken(claims jwt.Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("security: empty signing secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyToken parses tokenString into claims and verifies it against secret.
// Only HS256 is accepted and exp is required. Failures are classified as
// ErrTokenExpired, ErrTokenSignature or ErrTokenMalformed.
func VerifyToken(tokenString string, secret []byte, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}, opts...)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return classify(err)
	}
	if !token.Valid {
		return ErrTokenMalformed
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
