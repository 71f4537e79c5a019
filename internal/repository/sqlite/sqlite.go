// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — a single file inside the deployment,
// no separate server to run. For a low-volume institutional FAQ backend
// that is exactly the right amount of infrastructure, and ":memory:"
// gives tests a real SQL engine for free.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 needs CGo and a C toolchain; modernc.org/sqlite is a
// pure Go translation of SQLite, so cross-compilation just works.
//
// ATOMIC FIELD UPDATES:
// The lockout counter is mutated with single UPDATE statements that
// compute the new values from the OLD column values (SQLite evaluates
// every SET expression against the pre-update row). Two concurrent
// failed-login updates therefore both count — there is no fetch-mutate-
// store window to lose one in.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces. Created by New, closed by the owner (the server) on
// shutdown.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs the
// migrations. Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Force an immediate connection so a bad path surfaces here, not on
	// the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — the
	// normal state of affairs for a web server.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always deferred by the owner.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Admins returns the admin repository view of this database.
// AdminDB and QuestionDB share the one connection pool; the split exists
// so each can implement its repository interface without method-name
// collisions on DB itself.
func (db *DB) Admins() *AdminDB {
	return &AdminDB{conn: db.conn}
}

// Questions returns the question repository view of this database.
func (db *DB) Questions() *QuestionDB {
	return &QuestionDB{conn: db.conn}
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent, which is fine at this scale; a versioned migration tool
// would replace this if the schema started churning.
func (db *DB) migrate() error {
	// Staff accounts. Timestamps are stored in UTC so the datetime
	// comparisons in the lockout statements collate correctly.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS admins (
			id                    TEXT PRIMARY KEY,
			username              TEXT NOT NULL UNIQUE,
			email                 TEXT NOT NULL UNIQUE,
			password_hash         TEXT NOT NULL,
			full_name             TEXT NOT NULL,
			role                  TEXT NOT NULL DEFAULT 'admin',
			is_active             INTEGER NOT NULL DEFAULT 1,
			last_login_at         DATETIME,
			failed_login_attempts INTEGER NOT NULL DEFAULT 0,
			lock_until            DATETIME,
			reset_password_token  TEXT NOT NULL DEFAULT '',
			reset_password_expire DATETIME,
			created_at            DATETIME NOT NULL,
			updated_at            DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_admins_is_active ON admins(is_active);
		CREATE INDEX IF NOT EXISTS idx_admins_role ON admins(role);
	`)
	if err != nil {
		return fmt.Errorf("creating admins table: %w", err)
	}

	// At most one super_admin, enforced by the database itself. The
	// bootstrap command also checks first for a friendly error, but this
	// partial index is what actually closes the check-then-insert race.
	_, err = db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_admins_single_super_admin
		ON admins(role) WHERE role = 'super_admin';
	`)
	if err != nil {
		return fmt.Errorf("creating super_admin uniqueness index: %w", err)
	}

	// Visitor questions.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL,
			phone         TEXT NOT NULL,
			category      TEXT NOT NULL,
			question      TEXT NOT NULL,
			answer        TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT 'pending',
			show_in_faq   INTEGER NOT NULL DEFAULT 0,
			admin_notes   TEXT NOT NULL DEFAULT '',
			answered_by   TEXT NOT NULL DEFAULT '',
			date_answered DATETIME,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_questions_status ON questions(status);
		CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category);
		CREATE INDEX IF NOT EXISTS idx_questions_faq ON questions(show_in_faq, status);
		CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at);
		CREATE INDEX IF NOT EXISTS idx_questions_email ON questions(email);
	`)
	if err != nil {
		return fmt.Errorf("creating questions table: %w", err)
	}

	return nil
}
