// Package service — authentication and account business logic.
//
// AuthService is the business logic layer for staff authentication. It
// sits between the HTTP handlers and the repository/auth utilities:
//
//	AdminHandler (HTTP) → AuthService (business rules) → AdminRepository (DB)
//	                    ↘ TokenService (JWT) / PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Run the login flow: lookup → lock check → password check → transitions
//   - Enforce the lockout policy (threshold and duration live HERE, not in
//     the repository — storage executes transitions, policy decides them)
//   - Keep authentication failures indistinguishable to outsiders: an
//     unknown username and a wrong password produce the same error
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/auth"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
)

// Lockout policy. Five consecutive failed attempts lock the account for
// two hours. The lock expires lazily: nothing unsets it on a schedule,
// the next transition observes the timestamp and resets.
const (
	maxLoginAttempts = 5
	lockDuration     = 2 * time.Hour
)

// genericLoginMessage is returned for BOTH unknown identifiers and wrong
// passwords. The two cases must stay byte-identical — a different string
// (or a measurably different code path) lets an attacker enumerate
// usernames.
const genericLoginMessage = "invalid username or password"

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,50}$`)

// AuthService handles authentication and staff-account management.
type AuthService struct {
	admins    repository.AdminRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// now is swappable in tests to step through lock expiry.
	now func() time.Time
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go (or main.go) when wiring the dependency graph.
func NewAuthService(
	admins repository.AdminRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		admins:    admins,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// AuthResult is returned by Login. It bundles the sanitized account view
// and the issued JWT so the handler can set the cookie and respond in one
// step.
type AuthResult struct {
	Admin model.AdminProjection
	Token string
}

// Login authenticates a staff member by username-or-email and password.
//
// The flow runs in a fixed order:
//
//  1. Resolve the identifier among ACTIVE accounts. Unknown → generic 401.
//  2. Check the lock. Locked → 423 with the remaining minutes. This comes
//     BEFORE the password check: a locked account never evaluates
//     passwords, so the lock also caps bcrypt work during an attack.
//  3. Verify the password. A definitive mismatch records a failed attempt
//     (which may set the lock) and returns the generic 401; if that
//     record cannot be persisted the login fails as an infrastructure
//     error instead. A failure during verification itself does NOT touch
//     the counter — only evidence of a wrong password advances it.
//  4. On success: reset the counter, stamp last_login_at, issue the JWT.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, apperror.ValidationFailed("", "username and password are required")
	}

	admin, err := s.admins.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(genericLoginMessage)
		}
		return nil, apperror.Infrastructure("looking up account", err)
	}

	now := s.now()
	if admin.Locked(now) {
		return nil, apperror.AccountLocked(admin.LockRemainingMinutes(now))
	}

	if err := s.passwords.Verify(admin.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Infrastructure("verifying password", err)
		}
		// The increment MUST land before the 401 goes out. If it cannot
		// be persisted the lock will never engage, so a storage outage
		// would turn into an unbounded brute-force window. Surface it.
		if rerr := s.admins.RecordFailedLogin(ctx, admin.ID, now, now.Add(lockDuration), maxLoginAttempts); rerr != nil {
			s.logger.Error("failed to record failed login attempt",
				slog.String("adminID", admin.ID),
				slog.String("error", rerr.Error()),
			)
			return nil, apperror.Infrastructure("recording failed attempt", rerr)
		}
		return nil, apperror.Unauthenticated(genericLoginMessage)
	}

	if err := s.admins.RecordSuccessfulLogin(ctx, admin.ID, now); err != nil {
		return nil, apperror.Infrastructure("recording login", err)
	}
	admin.FailedLoginAttempts = 0
	admin.LockUntil = nil
	admin.LastLoginAt = &now

	token, err := s.tokens.Generate(admin.ID)
	if err != nil {
		return nil, apperror.Infrastructure("issuing token", err)
	}

	s.logger.Info("admin logged in",
		slog.String("adminID", admin.ID),
		slog.String("username", admin.Username),
	)

	return &AuthResult{Admin: admin.Projection(), Token: token}, nil
}

// RegisterInput carries the fields needed to create a staff account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     model.Role
}

func (in *RegisterInput) normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Role == "" {
		in.Role = model.RoleAdmin
	}
}

func (in *RegisterInput) validate() error {
	if !usernamePattern.MatchString(in.Username) {
		return apperror.ValidationFailed("username", "username must be 3-50 characters of a-z, 0-9 or _")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return apperror.ValidationFailed("email", "invalid email address")
	}
	if in.FullName == "" {
		return apperror.ValidationFailed("fullName", "full name is required")
	}
	if !in.Role.Valid() {
		return apperror.ValidationFailed("role", "unknown role")
	}
	return nil
}

// Register creates a new staff account. Only a super_admin may call it
// (enforced by RequireRole on the route); creating a second super_admin
// is rejected here and, as a backstop, by a unique index in storage.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.Admin, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Role == model.RoleSuperAdmin {
		return nil, apperror.Forbidden("cannot create another super admin")
	}

	taken, err := s.admins.ExistsUsernameOrEmail(ctx, in.Username, in.Email, "")
	if err != nil {
		return nil, apperror.Infrastructure("checking uniqueness", err)
	}
	if taken {
		return nil, apperror.Conflict("admin", "username or email already in use")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	admin := &model.Admin{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Info("admin account created",
		slog.String("adminID", admin.ID),
		slog.String("username", admin.Username),
		slog.String("role", string(admin.Role)),
	)
	return admin, nil
}

// GetByID returns the account for the given internal ID.
func (s *AuthService) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: admin ID must not be empty")
	}
	return s.admins.GetByID(ctx, id)
}

// UpdateProfile changes the email and full name of the given account.
// The email must not collide with any OTHER account.
func (s *AuthService) UpdateProfile(ctx context.Context, id, email, fullName string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "invalid email address")
	}
	if fullName == "" {
		return nil, apperror.ValidationFailed("fullName", "full name is required")
	}

	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if email != admin.Email {
		taken, err := s.admins.ExistsUsernameOrEmail(ctx, "", email, id)
		if err != nil {
			return nil, apperror.Infrastructure("checking uniqueness", err)
		}
		if taken {
			return nil, apperror.Conflict("admin", "email already in use")
		}
	}

	admin.Email = email
	admin.FullName = fullName
	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// ChangePassword replaces the caller's password after re-verifying the
// current one. A wrong current password is a plain validation failure —
// the caller already holds a valid session, so it does NOT advance the
// lockout counter.
func (s *AuthService) ChangePassword(ctx context.Context, id, current, next string) error {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.passwords.Verify(admin.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperror.ValidationFailed("currentPassword", "current password is incorrect")
		}
		return apperror.Infrastructure("verifying password", err)
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return err
	}
	if err := s.admins.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.logger.Info("admin changed password", slog.String("adminID", id))
	return nil
}

// List returns a page of accounts plus the total matching count.
func (s *AuthService) List(ctx context.Context, filter repository.AdminFilter, opts repository.ListOptions) ([]model.Admin, int, error) {
	return s.admins.List(ctx, filter, opts)
}

// ToggleActive flips the active flag of the target account. Self-service
// suicide is rejected: a super_admin cannot deactivate their own account,
// and the super_admin account cannot be deactivated by anyone.
func (s *AuthService) ToggleActive(ctx context.Context, callerID, targetID string) (*model.Admin, error) {
	if callerID == targetID {
		return nil, apperror.Forbidden("cannot change your own active status")
	}

	target, err := s.admins.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == model.RoleSuperAdmin {
		return nil, apperror.Forbidden("cannot deactivate the super admin account")
	}

	target.IsActive = !target.IsActive
	if err := s.admins.SetActive(ctx, targetID, target.IsActive); err != nil {
		return nil, err
	}

	s.logger.Info("admin active status toggled",
		slog.String("adminID", targetID),
		slog.Bool("isActive", target.IsActive),
	)
	return target, nil
}

// AdminStats summarizes the staff roster for the dashboard.
type AdminStats struct {
	Total  int                `json:"total"`
	ByRole map[model.Role]int `json:"byRole"`
}

// Stats returns per-role account counts.
func (s *AuthService) Stats(ctx context.Context) (*AdminStats, error) {
	counts, err := s.admins.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &AdminStats{Total: total, ByRole: counts}, nil
}

// BootstrapSuperAdmin creates the first super_admin account. It refuses
// to run when one already exists; the unique index on the role column
// closes the window between the check and the insert.
func (s *AuthService) BootstrapSuperAdmin(ctx context.Context, in RegisterInput) (*model.Admin, error) {
	in.normalize()
	in.Role = model.RoleSuperAdmin
	if err := in.validate(); err != nil {
		return nil, err
	}

	exists, err := s.admins.HasSuperAdmin(ctx)
	if err != nil {
		return nil, apperror.Infrastructure("checking for super admin", err)
	}
	if exists {
		return nil, apperror.Conflict("admin", "a super admin account already exists")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	admin := &model.Admin{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         model.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
