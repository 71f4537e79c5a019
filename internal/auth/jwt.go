// Package auth provides the building blocks of admin authentication:
// JWT bearer tokens, bcrypt password hashing, and the HTTP middleware
// that gates protected routes.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Admin POSTs username/email + password to /api/admin/login
// 2. The login flow (service.AuthService) verifies the password against
//    the stored bcrypt hash, subject to the account-lockout policy
// 3. On success the server issues a JWT and also sets it as an HttpOnly
//    cookie; on failure the lockout counter advances
// 4. On subsequent requests, RequireAuth reads the bearer token (header
//    or cookie), validates it, resolves the account fresh from the
//    database, and attaches it to the request context
//
// The JWT is stateless — the signature plus the subject/issuer/expiry
// claims are all the server needs, no session table. The database lookup
// in the middleware is deliberate anyway: lock/disable changes must take
// effect on the very next request, so account state is never cached.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
)

// tokenIssuer is the fixed "iss" claim. Validation rejects tokens minted
// by anything else, so a leaked secret shared with another app still
// doesn't let that app's tokens through here.
const tokenIssuer = "chatqa-backend"

// DefaultTokenTTL is the bearer token validity when none is configured.
const DefaultTokenTTL = 30 * 24 * time.Hour

// TokenService signs and verifies bearer tokens.
//
// It holds the HMAC secret and the configured validity. The same secret
// signs and verifies — keep it long (32+ random bytes) and out of source
// control.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl <= 0 selects
// DefaultTokenTTL. Secrets shorter than 16 characters are rejected
// outright — an HMAC key that short is guessable.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. The standard "sub" claim carries the
// internal admin ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a bearer token for the given admin ID,
// valid for the configured duration.
func (s *TokenService) Generate(adminID string) (string, error) {
	return s.GenerateWithDuration(adminID, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry. Used by
// tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(adminID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a bearer token string and returns the
// admin ID from the "sub" claim.
//
// The two failure modes are distinguishable with errors.Is:
//   - apperror.ErrCredentialExpired — signature fine, token past expiry;
//     the client should prompt a fresh login
//   - apperror.ErrInvalidCredential — malformed, bad signature, wrong
//     issuer, or wrong algorithm
//
// Passing jwt.WithValidMethods pins the algorithm to HS256 — without it
// an attacker could try an algorithm-confusion token (e.g. "none").
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: %w: token expired", apperror.ErrCredentialExpired)
		}
		return "", fmt.Errorf("auth: %w: %w", apperror.ErrInvalidCredential, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: %w: invalid token claims", apperror.ErrInvalidCredential)
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: %w: token has no subject", apperror.ErrInvalidCredential)
	}

	return c.Subject, nil
}
