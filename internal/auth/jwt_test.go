package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", 0)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ts.ttl, DefaultTokenTTL)
	}
}

// =========================================================================
// GENERATE TESTS
// =========================================================================

func TestGenerate_ReturnsNonEmptyToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("admin-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Error("Generate() returned empty token")
	}

	// JWT tokens have 3 dot-separated parts: header.payload.signature
	dots := 0
	for _, c := range token {
		if c == '.' {
			dots++
		}
	}
	if dots != 2 {
		t.Errorf("Generate() token doesn't look like a JWT (expected 2 dots, got %d)", dots)
	}
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	adminID := "admin-abc-123"

	token, err := ts.Generate(adminID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != adminID {
		t.Errorf("Validate() adminID = %q, want %q", got, adminID)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	// Mint a token that expired a minute ago
	token, err := ts.GenerateWithDuration("admin-123", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() accepted an expired token")
	}
	if !errors.Is(err, apperror.ErrCredentialExpired) {
		t.Errorf("Validate() error = %v, want ErrCredentialExpired", err)
	}
	// An expired token must NOT be reported as invalid — the client
	// reacts differently to the two cases.
	if errors.Is(err, apperror.ErrInvalidCredential) {
		t.Error("expired token also tagged ErrInvalidCredential")
	}
}

func TestValidate_TamperedSignature(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Generate("admin-123")

	// Flip the last character of the signature
	tampered := token[:len(token)-1]
	if token[len(token)-1] == 'A' {
		tampered += "B"
	} else {
		tampered += "A"
	}

	_, err := ts.Validate(tampered)
	if err == nil {
		t.Fatal("Validate() accepted a tampered token")
	}
	if !errors.Is(err, apperror.ErrInvalidCredential) {
		t.Errorf("Validate() error = %v, want ErrInvalidCredential", err)
	}
	if errors.Is(err, apperror.ErrCredentialExpired) {
		t.Error("tampered token also tagged ErrCredentialExpired")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1 := newTestTokenService(t)
	ts2, err := NewTokenService("a-completely-different-secret!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts1.Generate("admin-123")

	if _, err := ts2.Validate(token); !errors.Is(err, apperror.ErrInvalidCredential) {
		t.Errorf("Validate() with wrong secret error = %v, want ErrInvalidCredential", err)
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tok := range []string{"", "not.a.jwt", "aaaa"} {
		if _, err := ts.Validate(tok); !errors.Is(err, apperror.ErrInvalidCredential) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidCredential", tok, err)
		}
	}
}
