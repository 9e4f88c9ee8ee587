/*
store.go - Persistence interfaces for accounts, entries and period state

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  AccountStore:   Account records (soft-deletable)
  EntryStore:     The four entry tables plus the grouped sums the replay
                  engine merges
  OpenMonthStore: The per-user open-month singleton row
  SnapshotStore:  Month snapshots written only by close/reopen
  CloseLogStore:  Append-only close audit log
  RecurringStore: Recurring entry templates
  Store:          All of the above plus WithTx

SOFT-DELETE CONTRACT:
  Entries and accounts are never hard-deleted. SoftDelete* stamps a
  deletion timestamp; every active-data query excludes stamped rows.
  The grouped-sum methods likewise exclude them, so replay only ever
  sees live history.

ATOMICITY:
  WithTx runs fn against a transactional view of the store. The close
  and reopen orchestrators wrap their whole step sequence in it so a
  failure anywhere rolls back snapshots, audit rows and the period
  advance together.

IMPLEMENTATIONS:
  - store/sqlite: production persistence
  - ledger/store: in-memory, for tests and dev
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountStore interface {
	SaveAccount(ctx context.Context, a Account) error

	// GetAccount returns ErrAccountNotFound for a missing or foreign id.
	GetAccount(ctx context.Context, user UserID, id AccountID) (*Account, error)

	// ListAccounts returns the user's active accounts.
	ListAccounts(ctx context.Context, user UserID) ([]Account, error)

	// AccountsCreatedThrough returns active accounts whose creation
	// timestamp is on or before end-of-day(asOf). Accounts created later
	// contribute nothing to balances as of that date.
	AccountsCreatedThrough(ctx context.Context, user UserID, asOf Date) ([]Account, error)

	SoftDeleteAccount(ctx context.Context, user UserID, id AccountID) error
}

// =============================================================================
// ENTRIES
// =============================================================================

type EntryStore interface {
	// SaveEntry dispatches on the entry's concrete kind.
	SaveEntry(ctx context.Context, e Entry) error

	// GetEntry returns ErrEntryNotFound for a missing or foreign id.
	GetEntry(ctx context.Context, user UserID, kind EntryKind, id EntryID) (Entry, error)

	SoftDeleteEntry(ctx context.Context, user UserID, kind EntryKind, id EntryID) error

	// ListEntriesInPeriod returns all active entries of every kind dated
	// within the month, ordered by date.
	ListEntriesInPeriod(ctx context.Context, user UserID, period YearMonth) ([]Entry, error)

	// HasEntriesInPeriod reports whether any active entry of any kind is
	// dated within the month.
	HasEntriesInPeriod(ctx context.Context, user UserID, period YearMonth) (bool, error)

	// Grouped sums for the replay engine. Each returns per-account totals
	// of active entries dated on or before asOf. Accounts with no entries
	// of that kind are simply absent from the map.
	PaymentTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
	DepositTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error) // received only
	TransferInTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
	TransferOutTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
	AdjustmentTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error) // signed

	// PeriodTotals returns total payments and total received income dated
	// within the month.
	PeriodTotals(ctx context.Context, user UserID, period YearMonth) (PeriodTotals, error)
}

// =============================================================================
// OPEN-MONTH STATE
// =============================================================================

type OpenMonthStore interface {
	// GetOpenMonth returns ErrStateNotFound when no row exists yet.
	GetOpenMonth(ctx context.Context, user UserID) (*OpenMonthState, error)

	// PutOpenMonth inserts or updates the user's single row.
	PutOpenMonth(ctx context.Context, s OpenMonthState) error
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SnapshotStore is written only by the close/reopen orchestrators; every
// other component treats snapshots as read-only reporting data.
type SnapshotStore interface {
	SaveAccountSnapshot(ctx context.Context, s AccountMonthSnapshot) error
	SaveDashboardSnapshot(ctx context.Context, s DashboardMonthSnapshot) error

	AccountSnapshots(ctx context.Context, user UserID, period YearMonth) ([]AccountMonthSnapshot, error)
	DashboardSnapshot(ctx context.Context, user UserID, period YearMonth) (*DashboardMonthSnapshot, error)

	// MarkSnapshotsStale flags every snapshot row for the period. Rows are
	// never deleted.
	MarkSnapshotsStale(ctx context.Context, user UserID, period YearMonth) error
}

// =============================================================================
// CLOSE LOG
// =============================================================================

type CloseLogStore interface {
	// AppendCloseRecord writes one audit row. A duplicate (user, period)
	// violates the unique index and surfaces as ErrConsistency.
	AppendCloseRecord(ctx context.Context, r CloseRecord) error

	CloseRecords(ctx context.Context, user UserID) ([]CloseRecord, error)
	HasCloseRecord(ctx context.Context, user UserID, period YearMonth) (bool, error)
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

type RecurringStore interface {
	SaveRecurringTemplate(ctx context.Context, t RecurringTemplate) error
	ListRecurringTemplates(ctx context.Context, user UserID, activeOnly bool) ([]RecurringTemplate, error)
}

// =============================================================================
// STORE - Everything, plus transactions
// =============================================================================

type Store interface {
	AccountStore
	EntryStore
	OpenMonthStore
	SnapshotStore
	CloseLogStore
	RecurringStore

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
