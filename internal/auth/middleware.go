package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
)

// TokenCookieName is the HttpOnly cookie the login handler sets. The
// middleware falls back to it when no Authorization header is present.
const TokenCookieName = "token"

// contextKey is an unexported type for context keys in this package.
// A package-private key type means no other package can read or shadow
// the principal we attach to the context.
type contextKey string

const adminKey contextKey = "admin"

// Middleware is the authentication gate. It turns an inbound request
// into either a resolved, active, unlocked principal on the request
// context, or a rejection.
//
// The gate is read-only with respect to account state: it never touches
// the attempt counter (that's the login flow's job). It also never
// caches — every request resolves the account fresh, so disabling or
// locking an account takes effect on the very next request.
type Middleware struct {
	tokens *TokenService
	admins repository.AdminRepository
	logger *slog.Logger
}

// NewMiddleware creates the gate with its dependencies.
func NewMiddleware(tokens *TokenService, admins repository.AdminRepository, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, admins: admins, logger: logger}
}

// RequireAuth enforces authentication on protected routes.
//
// Steps, in order:
//  1. Extract the bearer token from "Authorization: Bearer <token>",
//     falling back to the session cookie. Neither present → 401.
//  2. Verify signature, issuer, and expiry. Expired and invalid are
//     reported as distinct error codes.
//  3. Resolve the subject against the admins table. Gone → 401.
//  4. Reject disabled accounts (401) and locked accounts (423, with the
//     remaining minutes).
//  5. Attach the resolved account to the request context and continue.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := m.resolve(r)
		if err != nil {
			m.reject(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), adminKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the principal when a valid token is present but
// never blocks the request. Routes that personalize for staff but stay
// public use this; handlers check AdminFromContext.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if admin, err := m.resolve(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), adminKey, admin))
		}
		// Any rejection just means "no principal" here.
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only principals whose role is in the given set.
// It must be chained AFTER RequireAuth — with no principal on the
// context it rejects with 401, never panics.
func (m *Middleware) RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, ok := AdminFromContext(r.Context())
			if !ok {
				m.reject(w, apperror.Unauthenticated("authentication required"))
				return
			}

			for _, role := range roles {
				if admin.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.reject(w, apperror.Forbidden("role "+string(admin.Role)+" is not allowed to perform this action"))
		})
	}
}

// AdminFromContext retrieves the authenticated account from the request
// context. Returns (nil, false) for anonymous requests.
func AdminFromContext(ctx context.Context) (*model.Admin, bool) {
	admin, ok := ctx.Value(adminKey).(*model.Admin)
	return admin, ok && admin != nil
}

// resolve performs extraction, verification, and account resolution.
// Every failure is one of the apperror kinds; nothing escapes untyped.
func (m *Middleware) resolve(r *http.Request) (*model.Admin, error) {
	token := extractToken(r)
	if token == "" {
		return nil, apperror.Unauthenticated("authentication required, please log in")
	}

	adminID, err := m.tokens.Validate(token)
	if err != nil {
		// Already tagged ErrCredentialExpired or ErrInvalidCredential.
		return nil, err
	}

	admin, err := m.admins.GetByID(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrUnknownPrincipal,
				Message: "account no longer exists",
			}
		}
		return nil, apperror.Infrastructure("resolving principal", err)
	}

	if !admin.IsActive {
		return nil, &apperror.AppError{
			Err:     apperror.ErrAccountDisabled,
			Message: "account has been disabled",
		}
	}

	if now := time.Now(); admin.Locked(now) {
		return nil, apperror.AccountLocked(admin.LockRemainingMinutes(now))
	}

	// Handlers only ever see the resolved account through the context;
	// response bodies use Projection(), which has no hash field.
	return admin, nil
}

// extractToken reads the bearer token from the Authorization header,
// falling back to the session cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// reject writes the rejection as JSON. The middleware can't use the
// handler package's helpers (it would import upward), so it carries its
// own small status mapping for the auth taxonomy.
func (m *Middleware) reject(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	code := "unauthenticated"

	switch {
	case errors.Is(err, apperror.ErrCredentialExpired):
		code = "credential_expired"
	case errors.Is(err, apperror.ErrInvalidCredential):
		code = "invalid_credential"
	case errors.Is(err, apperror.ErrUnknownPrincipal):
		code = "unknown_principal"
	case errors.Is(err, apperror.ErrAccountDisabled):
		code = "account_disabled"
	case errors.Is(err, apperror.ErrAccountLocked):
		status = http.StatusLocked
		code = "account_locked"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		code = "forbidden"
	case errors.Is(err, apperror.ErrInfrastructure):
		status = http.StatusInternalServerError
		code = "internal_error"
		m.logger.Error("auth middleware infrastructure error", slog.String("error", err.Error()))
	}

	message := "authentication required"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
