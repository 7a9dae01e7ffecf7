package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt hashing and verification. bcrypt salts
// internally and embeds the salt in the digest, so Hash is all a caller
// needs before storage. The cost is injectable so tests can use
// bcrypt.MinCost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the bcrypt default cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// NewPasswordHasherWithCost returns a hasher with a custom cost.
// Intended for tests; production code should use NewPasswordHasher.
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash derives a one-way digest from plaintext. bcrypt silently truncates
// inputs longer than 72 bytes, so those are rejected instead.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", errors.New("password must be 72 bytes or fewer")
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. A mismatch
// is a false return, never an error; bcrypt compares in constant time.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
