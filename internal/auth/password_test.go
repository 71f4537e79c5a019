package auth

import (
	"errors"
	"strings"
	"testing"
)

// All tests use cost 4 (bcrypt minimum) — same logic, microseconds
// instead of hundreds of milliseconds per hash.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHash_ProducesVerifiableHash(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty hash")
	}
	if hash == "correct horse battery staple" {
		t.Fatal("Hash() returned the plaintext")
	}

	if err := ps.Verify(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Verify() with correct password error = %v", err)
	}
}

func TestHash_SamePasswordDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	h1, _ := ps.Hash("samepassword")
	h2, _ := ps.Hash("samepassword")

	// Random salts mean identical passwords never share a hash
	if h1 == h2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHash_RejectsTooShort(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash("12345"); err == nil {
		t.Error("Hash() accepted a 5-character password")
	}
}

func TestHash_RejectsTooLong(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("Hash() accepted a 73-byte password (bcrypt truncates at 72)")
	}
}

func TestVerify_WrongPasswordIsMismatch(t *testing.T) {
	ps := newTestPasswordService()

	hash, _ := ps.Hash("rightpassword")

	err := ps.Verify(hash, "wrongpassword")
	if err == nil {
		t.Fatal("Verify() accepted the wrong password")
	}
	// A definitive mismatch must be distinguishable from infrastructure
	// failures — only the former counts as a failed login attempt.
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("Verify() error = %v, want ErrPasswordMismatch", err)
	}
}

func TestVerify_CorruptHashIsNotMismatch(t *testing.T) {
	ps := newTestPasswordService()

	err := ps.Verify("not-a-bcrypt-hash", "anypassword")
	if err == nil {
		t.Fatal("Verify() accepted a corrupt stored hash")
	}
	if errors.Is(err, ErrPasswordMismatch) {
		t.Error("corrupt hash reported as a password mismatch — would falsely advance the lockout counter")
	}
}
