package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

// NewTestTokenProvider returns a TokenProvider using fixed test secrets,
// a 15 minute access TTL and a 24 hour refresh TTL.
// For unit tests only. Callers must not use in production.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTokenProvider(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "test-issuer",
		Audience:      "test-audience",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
}

// NewTestHasher returns a Hasher with the cheapest accepted argon2id cost
// (8 MiB, t=1, p=1). For unit tests only.
func NewTestHasher() *Hasher {
	return NewHasher(Argon2Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1}, 4)
}
