package domain

import (
	"strings"
	"testing"
	"time"
)

func TestSession_IsValid(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name  string
		s     *Session
		valid bool
		state State
	}{
		{"active", &Session{ExpiresAt: now.Add(time.Minute)}, true, StateActive},
		{"expires exactly now", &Session{ExpiresAt: now}, false, StateExpired},
		{"expired", &Session{ExpiresAt: now.Add(-time.Minute)}, false, StateExpired},
		{"revoked", &Session{ExpiresAt: now.Add(time.Minute), Revoked: true}, false, StateRevoked},
		{"revoked and expired", &Session{ExpiresAt: now.Add(-time.Minute), Revoked: true}, false, StateRevoked},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.s.IsValid(now); got != tc.valid {
				t.Errorf("IsValid = %v, want %v", got, tc.valid)
			}
			if got := tc.s.State(now); got != tc.state {
				t.Errorf("State = %q, want %q", got, tc.state)
			}
		})
	}
}

func TestSession_NilIsNotValid(t *testing.T) {
	var s *Session
	if s.IsValid(time.Now()) {
		t.Error("nil session should not be valid")
	}
}

func TestMetadata_Normalize(t *testing.T) {
	long := strings.Repeat("a", 60)
	m := Metadata{IP: long, UserAgent: "curl"}.Normalize()
	if len(m.IP) != MaxIPLength {
		t.Errorf("len(IP) = %d, want %d", len(m.IP), MaxIPLength)
	}
	if m.UserAgent != "curl" {
		t.Errorf("UserAgent = %q, want curl", m.UserAgent)
	}
}
