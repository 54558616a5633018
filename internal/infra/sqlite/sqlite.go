// Package sqlite is the durable ledger store. It holds accounts, tasks,
// products, the append-only ledger, and the audit log.
//
// Every mutating engine operation runs inside a single transaction opened
// by WithTx. The pool is capped at one connection, so SQLite serializes all
// writers: concurrent operations on the same task, product, or account are
// linearized by the store, which is the correctness foundation for
// exactly-once payout and non-negative balance/stock.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle with typed operations for the economy engine.
type DB struct {
	db *sql.DB
}

// Open opens (and creates if missing) the database at path.
// Use ":memory:" for an in-process throwaway store (tests).
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: all transactions are serialized by the pool, so a
	// read-modify-write unit can never interleave with another writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error { return d.db.Close() }

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			role           TEXT NOT NULL DEFAULT 'member',
			category       TEXT NOT NULL DEFAULT 'junior',
			can_move_tasks INTEGER NOT NULL DEFAULT 0,
			balance        INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at     TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id                TEXT PRIMARY KEY,
			title             TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			points_reward     INTEGER NOT NULL DEFAULT 0 CHECK (points_reward >= 0),
			category_required TEXT NOT NULL DEFAULT 'junior',
			assigned_to       TEXT REFERENCES accounts(id),
			status            TEXT NOT NULL DEFAULT 'open',
			created_by        TEXT,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_by ON tasks(created_by)`,

		`CREATE TABLE IF NOT EXISTS products (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			price_points INTEGER NOT NULL CHECK (price_points >= 0),
			stock        INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			is_active    INTEGER NOT NULL DEFAULT 1,
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active, price_points)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id          TEXT PRIMARY KEY,
			account_id  TEXT NOT NULL REFERENCES accounts(id),
			amount      INTEGER NOT NULL,
			reason      TEXT NOT NULL,
			task_id     TEXT,
			product_id  TEXT,
			description TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account_id, created_at)`,
		// One reward per task, enforced by the store itself. The state-machine
		// re-check is the primary guard; this index makes double payout
		// impossible even if a future code path bypasses it.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_task_reward
			ON ledger_entries(task_id) WHERE reason = 'task_reward'`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id         TEXT PRIMARY KEY,
			actor_id   TEXT NOT NULL,
			action     TEXT NOT NULL,
			target_id  TEXT,
			details    TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}
}

// Migrate applies the schema.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range Migrations() {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// WithTx runs fn inside a SQL transaction. The transaction commits only if
// fn returns nil; any error rolls back every statement fn issued, so a
// caller abandoning mid-unit observes no partial state.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// ─── Time Encoding ──────────────────────────────────────────────────────────

// Timestamps are stored as RFC 3339 UTC strings.

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
