// Package auth — password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, and the slowness is the point: it makes
// offline brute-force expensive. It also generates a random salt per hash
// and embeds it in the output, so two accounts with the same password get
// different hashes and no separate salt column is needed.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
)

// defaultCost is the bcrypt work factor — roughly 250ms per hash on
// current server hardware, which is the usual target.
const defaultCost = 12

// ErrPasswordMismatch is returned by Verify for a DEFINITIVE wrong
// password. Any other Verify error is an infrastructure problem
// (malformed stored hash) and must NOT be treated as a failed login
// attempt — only a resolved mismatch advances the lockout counter.
var ErrPasswordMismatch = errors.New("auth: password mismatch")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct rather than free functions so the cost can be lowered in
// tests — cost 4 hashes in microseconds, cost 12 in hundreds of
// milliseconds, and the logic under test is identical.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a reduced
// bcrypt cost. Use cost 4 (the bcrypt minimum) in tests; never in
// production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt. The returned
// string is self-contained (version, cost, salt, hash) and is stored
// directly in the admins table.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) < 6 {
		return "", apperror.ValidationFailed("password", "password must be at least 6 characters")
	}
	if len(plaintext) > 72 {
		// bcrypt silently truncates beyond 72 bytes; reject instead.
		return "", apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks a plaintext password against a stored bcrypt hash.
//
// Returns nil on match, ErrPasswordMismatch on a definitive mismatch,
// and a wrapped infrastructure error for anything else (e.g. a corrupted
// hash in storage). Callers deciding whether to count a failed login
// must check errors.Is(err, ErrPasswordMismatch).
//
// bcrypt.CompareHashAndPassword is constant-time internally, so response
// timing doesn't reveal how much of the password was right.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
