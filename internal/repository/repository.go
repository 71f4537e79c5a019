// Package repository defines the storage interfaces the services depend
// on. The sqlite subpackage implements them; tests substitute in-memory
// fakes. Services never see a concrete database type.
package repository

import (
	"context"
	"time"

	"github.com/phm-oh/chatqa-backend/internal/model"
)

// ListOptions controls pagination and ordering for list queries.
type ListOptions struct {
	Limit    int
	Offset   int
	SortBy   string // whitelisted per repository; "" means created_at
	SortDesc bool
}

// AdminFilter narrows List results. Nil fields are "don't care".
type AdminFilter struct {
	Role     *model.Role
	IsActive *bool
}

// AdminRepository persists staff accounts.
//
// RecordFailedLogin and RecordSuccessfulLogin are the two lockout
// transitions. Both must be single atomic statements against the row —
// two concurrent failed attempts must both count (no read-modify-write
// of the whole record).
type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	GetByID(ctx context.Context, id string) (*model.Admin, error)

	// FindByIdentifier matches the lowercased identifier against username
	// OR email, among ACTIVE accounts only. Returns apperror.ErrNotFound
	// when nothing matches.
	FindByIdentifier(ctx context.Context, identifier string) (*model.Admin, error)

	// ExistsUsernameOrEmail reports whether any account (active or not)
	// already holds the username or the email. excludeID skips one
	// account, for profile updates; pass "" to check all.
	ExistsUsernameOrEmail(ctx context.Context, username, email, excludeID string) (bool, error)

	List(ctx context.Context, filter AdminFilter, opts ListOptions) ([]model.Admin, int, error)
	Update(ctx context.Context, admin *model.Admin) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
	CountByRole(ctx context.Context) (map[model.Role]int, error)
	HasSuperAdmin(ctx context.Context) (bool, error)

	// RecordFailedLogin applies the failed-attempt transition atomically:
	// a stale (expired) lock is first reset to attempts=0, then the
	// counter increments; reaching threshold on an unlocked account sets
	// lock_until to the given instant.
	RecordFailedLogin(ctx context.Context, id string, now, lockUntil time.Time, threshold int) error

	// RecordSuccessfulLogin clears the attempt counter and any lock, and
	// stamps last_login_at.
	RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error

	// ClearStaleLocks resets counters and locks that have already
	// expired. Maintenance only (cmd/fixadmins) — the login flow relies
	// on lazy expiry, not on this.
	ClearStaleLocks(ctx context.Context, now time.Time) (int64, error)

	// ReactivateAll flips every disabled account back to active and
	// returns the number changed. Maintenance only.
	ReactivateAll(ctx context.Context) (int64, error)
}

// QuestionFilter narrows question queries. Zero-value Status and
// Category mean "any". FAQOnly restricts to published questions flagged
// for the public FAQ; Search matches question or answer text,
// case-insensitively.
type QuestionFilter struct {
	Status   model.Status
	Category model.Category
	FAQOnly  bool
	Search   string
}

// CategoryCount is one row of a per-category aggregation.
type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int            `json:"count"`
}

// QuestionRepository persists visitor questions.
type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	List(ctx context.Context, filter QuestionFilter, opts ListOptions) ([]model.Question, int, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.Status]int, error)
	CountByCategory(ctx context.Context, faqOnly bool) ([]CategoryCount, error)
	CountFAQ(ctx context.Context) (int, error)
}
