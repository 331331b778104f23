package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidHash is returned by decodeArgon2id for malformed or unsupported encoded hashes.
var ErrInvalidHash = errors.New("invalid password hash")

// maxLegacyBcryptCost bounds the cost of legacy bcrypt hashes we are willing to verify.
const maxLegacyBcryptCost = 14

// Argon2Params controls argon2id hashing cost. MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the production baseline (64 MiB, t=3, p=2).
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords using argon2id. Hashes produced by the
// previous bcrypt-based service still verify and are reported by NeedsRehash.
// Callers must not log or persist plaintext passwords.
//
// Hasher is safe for concurrent use; a weighted semaphore caps the number of
// hash computations running at once.
type Hasher struct {
	params Argon2Params
	sem    *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash string
}

// NewHasher returns a Hasher using params. Zero salt/key lengths fall back to
// 16/32 bytes. concurrency <= 0 means 1.
func NewHasher(params Argon2Params, concurrency int) *Hasher {
	if params.SaltLength == 0 {
		params.SaltLength = 16
	}
	if params.KeyLength == 0 {
		params.KeyLength = 32
	}
	if params.Iterations == 0 {
		params.Iterations = 1
	}
	if params.Parallelism == 0 {
		params.Parallelism = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Hasher{params: params, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Params returns the configured argon2id parameters.
func (h *Hasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of password in PHC form:
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>.
// Each call uses a fresh random salt.
func (h *Hasher) Hash(password []byte) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	h.acquire()
	key := argon2.IDKey(password, salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)
	h.release()

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches hash. Malformed or unsupported hashes
// return false. Comparison is constant-time.
func (h *Hasher) Verify(hash string, password []byte) bool {
	if isBcrypt(hash) {
		return h.verifyBcrypt(hash, password)
	}

	params, salt, expected, err := decodeArgon2id(hash)
	if err != nil {
		return false
	}
	// Refuse attacker-influenced hashes with pathological cost.
	if !withinReasonableBounds(params, h.params) {
		return false
	}

	h.acquire()
	key := argon2.IDKey(password, salt, params.Iterations, params.MemoryKiB, params.Parallelism, uint32(len(expected)))
	h.release()

	return subtle.ConstantTimeCompare(key, expected) == 1
}

// DummyVerify runs a full verification against a fixed hash and discards the
// result. Login uses it for unknown emails so both failure paths cost the same.
func (h *Hasher) DummyVerify(password []byte) {
	h.dummyOnce.Do(func() {
		hash, err := h.Hash([]byte("dummy-password-for-timing"))
		if err == nil {
			h.dummyHash = hash
		}
	})
	_ = h.Verify(h.dummyHash, password)
}

// NeedsRehash reports whether hash should be replaced with a fresh hash using
// the current parameters: legacy bcrypt hashes and argon2id hashes with other
// cost parameters.
func (h *Hasher) NeedsRehash(hash string) bool {
	if isBcrypt(hash) {
		return true
	}
	params, _, _, err := decodeArgon2id(hash)
	if err != nil {
		return true
	}
	return params.MemoryKiB != h.params.MemoryKiB ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		params.KeyLength != h.params.KeyLength
}

func (h *Hasher) verifyBcrypt(hash string, password []byte) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost > maxLegacyBcryptCost {
		return false
	}
	h.acquire()
	defer h.release()
	return bcrypt.CompareHashAndPassword([]byte(hash), password) == nil
}

// Acquire never fails with a background context.
func (h *Hasher) acquire() { _ = h.sem.Acquire(context.Background(), 1) }
func (h *Hasher) release() { h.sem.Release(1) }

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func withinReasonableBounds(got, limits Argon2Params) bool {
	// Older/smaller settings are fine; wildly larger ones are not.
	if got.MemoryKiB > limits.MemoryKiB*2 {
		return false
	}
	if got.Iterations > limits.Iterations*2 {
		return false
	}
	if uint32(got.Parallelism) > uint32(limits.Parallelism)*2 {
		return false
	}
	if got.SaltLength < 8 || got.SaltLength > 64 {
		return false
	}
	if got.KeyLength < 16 || got.KeyLength > 128 {
		return false
	}
	return true
}

// decodeArgon2id parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodeArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Argon2Params{}, nil, nil, ErrInvalidHash
	}

	return Argon2Params{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}, salt, key, nil
}
