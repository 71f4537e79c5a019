// Package model defines the data structures used throughout the application.
package model

import (
	"math"
	"time"
)

// Role is the fixed set of staff permission levels.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleSuperAdmin:
		return true
	}
	return false
}

// Admin represents a staff account that can log in to the admin panel.
//
// Username and Email are normalized to lowercase at write time and are
// globally unique. PasswordHash is a bcrypt hash and must never appear in
// a response body — handlers return the Projection instead.
//
// FailedLoginAttempts and LockUntil implement the lockout policy: five
// consecutive wrong passwords set LockUntil two hours into the future.
// Whether the account is locked right now is DERIVED (see Locked), never
// stored — a stored boolean would drift from LockUntil.
type Admin struct {
	ID           string `db:"id"`
	Username     string `db:"username"` // lowercase, 3–50 chars, [a-z0-9_]
	Email        string `db:"email"`    // lowercase, validated format
	PasswordHash string `db:"password_hash"`
	FullName     string `db:"full_name"`
	Role         Role   `db:"role"`
	IsActive     bool   `db:"is_active"`

	LastLoginAt         *time.Time `db:"last_login_at"`
	FailedLoginAttempts int        `db:"failed_login_attempts"`
	LockUntil           *time.Time `db:"lock_until"`

	// Reserved for a future password-reset flow; excluded from every
	// projection alongside PasswordHash.
	ResetPasswordToken  string     `db:"reset_password_token"`
	ResetPasswordExpire *time.Time `db:"reset_password_expire"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Locked reports whether the account is locked at the given instant.
//
// The predicate is LockUntil != nil && LockUntil > now. An expired lock
// simply evaluates false here — nothing clears it eagerly. The stale
// LockUntil value is reset lazily by the next failed-attempt transition.
func (a *Admin) Locked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// LockRemainingMinutes returns the remaining lock duration rounded UP to
// whole minutes, for the "try again in N minutes" hint. Returns 0 when
// the account isn't locked.
func (a *Admin) LockRemainingMinutes(now time.Time) int {
	if !a.Locked(now) {
		return 0
	}
	return int(math.Ceil(a.LockUntil.Sub(now).Minutes()))
}

// AdminProjection is the client-safe view of an account. It carries no
// password hash and no reset-token fields.
type AdminProjection struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Projection returns the client-safe view of the account.
func (a *Admin) Projection() AdminProjection {
	return AdminProjection{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName,
		Role:        a.Role,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
