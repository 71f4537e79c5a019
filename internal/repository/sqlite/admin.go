package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
)

// AdminDB implements repository.AdminRepository over the shared pool.
type AdminDB struct {
	conn *sql.DB
}

var _ repository.AdminRepository = (*AdminDB)(nil)

// adminColumns is the canonical SELECT list, kept in one place so every
// query scans the same shape.
const adminColumns = `id, username, email, password_hash, full_name, role, is_active,
	last_login_at, failed_login_attempts, lock_until,
	reset_password_token, reset_password_expire, created_at, updated_at`

// scanAdmin reads one admin row. Works for both *sql.Row and *sql.Rows
// via the common Scan signature.
func scanAdmin(scan func(dest ...any) error) (*model.Admin, error) {
	var (
		a           model.Admin
		lastLogin   sql.NullTime
		lockUntil   sql.NullTime
		resetExpire sql.NullTime
	)

	err := scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.FullName, &a.Role, &a.IsActive,
		&lastLogin, &a.FailedLoginAttempts, &lockUntil,
		&a.ResetPasswordToken, &resetExpire, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	if lockUntil.Valid {
		t := lockUntil.Time
		a.LockUntil = &t
	}
	if resetExpire.Valid {
		t := resetExpire.Time
		a.ResetPasswordExpire = &t
	}

	return &a, nil
}

// Create inserts a new admin. It fills in ID and timestamps, and
// normalizes username/email to lowercase — the write side owns the
// case-insensitivity invariant. UNIQUE violations come back as
// apperror.ErrConflict.
func (db *AdminDB) Create(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.ID = xid.New().String()
	admin.Username = strings.ToLower(admin.Username)
	admin.Email = strings.ToLower(admin.Email)
	admin.CreatedAt = now
	admin.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO admins (id, username, email, password_hash, full_name, role, is_active,
			failed_login_attempts, reset_password_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, '', ?, ?)`,
		admin.ID,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
		admin.FullName,
		admin.Role,
		admin.IsActive,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("admin", "username, email, or super_admin role already taken")
		}
		return fmt.Errorf("sqlite: inserting admin %s: %w", admin.Username, err)
	}

	return nil
}

// GetByID retrieves an admin by internal ID, active or not.
// Returns apperror.ErrNotFound if no such account exists.
func (db *AdminDB) GetByID(ctx context.Context, id string) (*model.Admin, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = ?`, id)

	admin, err := scanAdmin(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("admin", id)
		}
		return nil, fmt.Errorf("sqlite: getting admin %s: %w", id, err)
	}

	return admin, nil
}

// FindByIdentifier matches the identifier against username OR email,
// lowercased, among active accounts only. The login flow uses this;
// deactivated accounts simply don't exist as far as login is concerned.
func (db *AdminDB) FindByIdentifier(ctx context.Context, identifier string) (*model.Admin, error) {
	ident := strings.ToLower(strings.TrimSpace(identifier))

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins
		 WHERE (username = ? OR email = ?) AND is_active = 1`,
		ident, ident)

	admin, err := scanAdmin(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("admin", ident)
		}
		return nil, fmt.Errorf("sqlite: finding admin by identifier: %w", err)
	}

	return admin, nil
}

// ExistsUsernameOrEmail reports whether another account already holds
// the username or email. excludeID skips one account (profile updates).
func (db *AdminDB) ExistsUsernameOrEmail(ctx context.Context, username, email, excludeID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins
		 WHERE (username = ? OR email = ?) AND id != ?`,
		strings.ToLower(username), strings.ToLower(email), excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username/email existence: %w", err)
	}
	return count > 0, nil
}

// List returns a page of admins plus the total matching count.
// Results are sorted newest-first.
func (db *AdminDB) List(ctx context.Context, filter repository.AdminFilter, opts repository.ListOptions) ([]model.Admin, int, error) {
	where := "1=1"
	args := []any{}

	if filter.Role != nil {
		where += " AND role = ?"
		args = append(args, *filter.Role)
	}
	if filter.IsActive != nil {
		where += " AND is_active = ?"
		args = append(args, *filter.IsActive)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting admins: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + adminColumns + ` FROM admins WHERE ` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := db.conn.QueryContext(ctx, query, append(args, limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing admins: %w", err)
	}
	defer rows.Close()

	var admins []model.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning admin row: %w", err)
		}
		admins = append(admins, *admin)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating admin rows: %w", err)
	}

	return admins, total, nil
}

// Update persists profile fields (email, full name). It does NOT touch
// the password hash or the lockout columns — those have dedicated
// atomic operations.
func (db *AdminDB) Update(ctx context.Context, admin *model.Admin) error {
	admin.Email = strings.ToLower(admin.Email)
	admin.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET email = ?, full_name = ?, updated_at = ? WHERE id = ?`,
		admin.Email, admin.FullName, admin.UpdatedAt, admin.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("admin", "email already taken")
		}
		return fmt.Errorf("sqlite: updating admin %s: %w", admin.ID, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("admin", admin.ID)
	}

	return nil
}

// UpdatePassword replaces the stored hash. The hash is computed by the
// caller; this layer never sees a clear password.
func (db *AdminDB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for admin %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("admin", id)
	}
	return nil
}

// SetActive toggles the active flag. Deactivation is the deletion
// substitute — admin rows are never hard-deleted.
func (db *AdminDB) SetActive(ctx context.Context, id string, active bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: setting active=%t for admin %s: %w", active, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("admin", id)
	}
	return nil
}

// CountByRole returns the number of accounts per role.
func (db *AdminDB) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM admins GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting admins by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Role]int)
	for rows.Next() {
		var role model.Role
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning role count: %w", err)
		}
		counts[role] = count
	}
	return counts, rows.Err()
}

// HasSuperAdmin reports whether a super_admin account exists.
func (db *AdminDB) HasSuperAdmin(ctx context.Context) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE role = ?`, model.RoleSuperAdmin,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking for super_admin: %w", err)
	}
	return count > 0, nil
}

// RecordFailedLogin applies the failed-attempt transition in ONE
// statement. SQLite evaluates every SET expression against the
// pre-update row, so:
//
//   - a lock that has already expired resets the counter to 1 (the lazy
//     expiry: stale lock cleared, THEN this attempt counted);
//   - otherwise the counter increments, and if the pre-increment value
//     plus one reaches the threshold on an unlocked account, lock_until
//     is set.
//
// Because it's a single UPDATE, two concurrent failed attempts are
// serialized by the storage engine and both count.
func (db *AdminDB) RecordFailedLogin(ctx context.Context, id string, now, lockUntil time.Time, threshold int) error {
	now = now.UTC()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE admins SET
			failed_login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= ? THEN 1
				ELSE failed_login_attempts + 1
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= ? THEN NULL
				WHEN lock_until IS NULL AND failed_login_attempts + 1 >= ? THEN ?
				ELSE lock_until
			END,
			updated_at = ?
		WHERE id = ?`,
		now, now, threshold, lockUntil.UTC(), now, id)
	if err != nil {
		return fmt.Errorf("sqlite: recording failed login for admin %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("admin", id)
	}
	return nil
}

// RecordSuccessfulLogin is the only transition back to a clean unlocked
// state: counter to zero, lock cleared, last_login_at stamped.
func (db *AdminDB) RecordSuccessfulLogin(ctx context.Context, id string, now time.Time) error {
	now = now.UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET failed_login_attempts = 0, lock_until = NULL,
			last_login_at = ?, updated_at = ?
		 WHERE id = ?`,
		now, now, id)
	if err != nil {
		return fmt.Errorf("sqlite: recording successful login for admin %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("admin", id)
	}
	return nil
}

// ClearStaleLocks resets counters whose lock has already expired.
// Maintenance helper for cmd/fixadmins; the login path never needs it.
func (db *AdminDB) ClearStaleLocks(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET failed_login_attempts = 0, lock_until = NULL, updated_at = ?
		 WHERE lock_until IS NOT NULL AND lock_until <= ?`,
		now, now)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing stale locks: %w", err)
	}
	return res.RowsAffected()
}

// ReactivateAll re-enables every disabled account. Maintenance helper.
func (db *AdminDB) ReactivateAll(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE admins SET is_active = 1, updated_at = ? WHERE is_active = 0`,
		time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: reactivating admins: %w", err)
	}
	return res.RowsAffected()
}

// isUniqueViolation detects UNIQUE constraint failures without tying the
// caller to driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
