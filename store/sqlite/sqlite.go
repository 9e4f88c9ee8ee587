/*
Package sqlite provides the SQLite-backed implementation of ledger.Store.

PURPOSE:
  Implements all persistence interfaces (accounts, the four entry
  tables, open-month state, snapshots, the close log, recurring
  templates) using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  accounts:                  User accounts with fixed beginning balances
  payments/deposits/
  transfers/adjustments:     The four financial-entry tables (soft-deleted,
                             never removed)
  open_month_states:         One row per user, the open accounting period
  account_month_snapshots:   Per-account frozen balances for closed months
  dashboard_month_snapshots: Per-month frozen aggregates
  close_month_master:        Append-only close audit log
  recurring_templates:       Monthly entry generators

INDEXES:
  - per-user date indexes on every entry table (the replay hot path)
  - UNIQUE(user_id, closed_year, closed_month) on close_month_master:
    the idempotency guard against double close
  - UNIQUE(user_id, year, month, account_id) on account snapshots

MONEY:
  Amounts are stored as decimal strings and summed in Go with
  shopspring/decimal. SQLite SUM would coerce to float and lose the
  2-digit exactness the balance invariants depend on.

WAL MODE:
  The database is opened with WAL and a single writer connection;
  per-user serialization above this layer handles the rest.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/budgethq/budgethq/ledger"
)

// dbtx is the subset of *sql.DB and *sql.Tx the queries run against, so
// the same code serves both the plain store and its transactional view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	queries
}

// New opens (or creates) a SQLite store at the given path. Use ":memory:"
// for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer connection; WAL readers don't block it.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, queries: queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		beginning_balance TEXT NOT NULL,
		cached_balance TEXT NOT NULL DEFAULT '0',
		created_on TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id, created_on);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_payments_user_date ON payments(user_id, entry_date);

	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		received BOOLEAN NOT NULL DEFAULT TRUE,
		description TEXT,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_deposits_user_date ON deposits(user_id, entry_date);

	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		from_account_id TEXT NOT NULL,
		to_account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_transfers_user_date ON transfers(user_id, entry_date);

	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_adjustments_user_date ON adjustments(user_id, entry_date);

	-- Exactly one row per user, lazily created, never deleted.
	CREATE TABLE IF NOT EXISTS open_month_states (
		user_id TEXT PRIMARY KEY,
		current_year INTEGER NOT NULL,
		current_month INTEGER NOT NULL,
		is_closed BOOLEAN NOT NULL DEFAULT FALSE,
		locked_at TEXT,
		locked_by TEXT,
		has_data BOOLEAN NOT NULL DEFAULT FALSE,
		first_data_at TEXT,
		first_data_source TEXT,
		reopen_count INTEGER NOT NULL DEFAULT 0,
		last_reopened_at TEXT,
		last_reopened_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS account_month_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		beginning_balance TEXT NOT NULL,
		ending_balance TEXT NOT NULL,
		is_stale BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, year, month, account_id)
	);
	CREATE INDEX IF NOT EXISTS idx_account_snapshots_user_period
		ON account_month_snapshots(user_id, year, month);

	CREATE TABLE IF NOT EXISTS dashboard_month_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		total_spent TEXT NOT NULL,
		total_income TEXT NOT NULL,
		beginning_balance TEXT NOT NULL,
		ending_balance TEXT NOT NULL,
		net_worth TEXT NOT NULL,
		is_stale BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, year, month)
	);

	-- Append-only close audit log. The unique index is the idempotency
	-- guard against closing the same month twice.
	CREATE TABLE IF NOT EXISTS close_month_master (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		closed_year INTEGER NOT NULL,
		closed_month INTEGER NOT NULL,
		closed_at TEXT NOT NULL,
		closed_by TEXT,
		notes TEXT,
		UNIQUE(user_id, closed_year, closed_month)
	);

	CREATE TABLE IF NOT EXISTS recurring_templates (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		day_of_month INTEGER NOT NULL,
		next_year INTEGER NOT NULL,
		next_month INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_recurring_user ON recurring_templates(user_id, active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a transactional view of the store.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &txStore{queries: queries{db: sqlTx}}
	if err := fn(view); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transactional view. A nested WithTx joins the same
// transaction rather than opening another.
type txStore struct {
	queries
}

func (t *txStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return fn(t)
}

// =============================================================================
// HELPERS
// =============================================================================

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func scanNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(s string) ledger.Date {
	d, _ := ledger.ParseDate(s)
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
