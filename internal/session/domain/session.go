package domain

import "time"

// Session is one authenticated login lineage. Refresh tokens reference it by ID
// and are valid exactly as long as the session is.
type Session struct {
	ID         string
	UserID     string
	ExpiresAt  time.Time
	Revoked    bool       // monotonic: never goes back to false
	LastUsedAt *time.Time // nil until the first refresh
	IP         string     // optional, at most 45 chars
	UserAgent  string     // optional
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// State is the lifecycle state of a session at a given instant.
type State string

const (
	StateActive  State = "active"
	StateRevoked State = "revoked"
	StateExpired State = "expired"
)

// IsValid reports whether the session can back a refresh at now: not revoked and now < ExpiresAt.
func (s *Session) IsValid(now time.Time) bool {
	return s != nil && !s.Revoked && now.Before(s.ExpiresAt)
}

// IsExpired reports whether the session's expiry has been reached at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsRevoked reports whether the session was revoked.
func (s *Session) IsRevoked() bool {
	return s.Revoked
}

// State returns the session state at now. Revocation takes precedence over expiry.
func (s *Session) State(now time.Time) State {
	switch {
	case s.Revoked:
		return StateRevoked
	case s.IsExpired(now):
		return StateExpired
	default:
		return StateActive
	}
}

// Metadata is request-origin information recorded on a session.
type Metadata struct {
	IP        string
	UserAgent string
}

// MaxIPLength matches the sessions.ip column.
const MaxIPLength = 45

// Normalize truncates fields to their storage limits.
func (m Metadata) Normalize() Metadata {
	if len(m.IP) > MaxIPLength {
		m.IP = m.IP[:MaxIPLength]
	}
	return m
}
