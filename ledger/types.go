/*
Package ledger provides the core balance engine for BudgetHQ.

PURPOSE:
  This package holds the domain types every other component consumes:
  accounts, the four financial-entry variants, the open-month record,
  snapshots, and the replay engine that computes point-in-time balances
  by summing history instead of trusting a stored running total.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: owns a fixed beginning balance set at creation
  - Entry: the capability shared by payments, deposits, transfers and
    adjustments (date + signed per-account deltas)
  - OpenMonthState: the single mutable accounting period per user
  - Snapshots and close records: frozen history owned by the close and
    reopen orchestrators

DESIGN PRINCIPLES:
  1. Replay over caching: balances are derived, never authoritative
     in a column
  2. Precision: decimal.Decimal for all money, two fractional digits
  3. Soft deletion: entries carry a deletion timestamp and are never
     removed, so historical replay stays stable
  4. Mark, don't delete: invalidated snapshots are flagged stale and
     kept for audit

SEE ALSO:
  - replay.go: Balance computation from entry history
  - store.go: Persistence interfaces
  - period.go: Half-open month scoping
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type AccountID string
type EntryID string

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is a user-owned money container. BeginningBalance is fixed at
// creation; the effective balance at any date is beginning balance plus
// the signed sum of entries through that date, computed by the replay
// engine. CachedBalance is denormalized display data and is never read
// back as a source of truth.
type Account struct {
	ID               AccountID
	UserID           UserID
	Name             string
	BeginningBalance decimal.Decimal
	CachedBalance    decimal.Decimal
	CreatedOn        Date
	CreatedAt        time.Time
	DeletedAt        *time.Time
}

func (a Account) Deleted() bool { return a.DeletedAt != nil }

// =============================================================================
// FINANCIAL ENTRIES - Tagged union of the four dated money movements
// =============================================================================

type EntryKind string

const (
	KindPayment    EntryKind = "payment"
	KindDeposit    EntryKind = "deposit"
	KindTransfer   EntryKind = "transfer"
	KindAdjustment EntryKind = "adjustment"
)

// AccountDelta is one signed balance contribution of an entry. A payment
// yields one negative delta, a transfer yields two (source negative,
// destination positive).
type AccountDelta struct {
	AccountID AccountID
	Amount    decimal.Decimal
}

// Entry is the capability shared by all four financial-entry variants.
// The replay engine and the open-month validators consume entries only
// through this interface; there is no common supertype in storage.
type Entry interface {
	EntryID() EntryID
	Kind() EntryKind
	Owner() UserID
	EffectiveOn() Date
	// Deltas returns the signed per-account contributions this entry makes
	// to balances. Soft-deleted entries and unreceived deposits return nil.
	Deltas() []AccountDelta
	Deleted() bool
}

// Payment is money leaving an account.
type Payment struct {
	ID          EntryID
	UserID      UserID
	AccountID   AccountID
	Amount      decimal.Decimal // positive
	Date        Date
	Description string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

func (p Payment) EntryID() EntryID   { return p.ID }
func (p Payment) Kind() EntryKind    { return KindPayment }
func (p Payment) Owner() UserID      { return p.UserID }
func (p Payment) EffectiveOn() Date  { return p.Date }
func (p Payment) Deleted() bool      { return p.DeletedAt != nil }
func (p Payment) Deltas() []AccountDelta {
	if p.Deleted() {
		return nil
	}
	return []AccountDelta{{AccountID: p.AccountID, Amount: p.Amount.Neg()}}
}

// Deposit is money entering an account. Only received deposits count
// toward balances; an expected-but-unreceived deposit is visible in
// listings but contributes nothing to replay.
type Deposit struct {
	ID          EntryID
	UserID      UserID
	AccountID   AccountID
	Amount      decimal.Decimal // positive
	Date        Date
	Received    bool
	Description string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

func (d Deposit) EntryID() EntryID  { return d.ID }
func (d Deposit) Kind() EntryKind   { return KindDeposit }
func (d Deposit) Owner() UserID     { return d.UserID }
func (d Deposit) EffectiveOn() Date { return d.Date }
func (d Deposit) Deleted() bool     { return d.DeletedAt != nil }
func (d Deposit) Deltas() []AccountDelta {
	if d.Deleted() || !d.Received {
		return nil
	}
	return []AccountDelta{{AccountID: d.AccountID, Amount: d.Amount}}
}

// Transfer moves money between two accounts of the same user.
type Transfer struct {
	ID            EntryID
	UserID        UserID
	FromAccountID AccountID
	ToAccountID   AccountID
	Amount        decimal.Decimal // positive
	Date          Date
	Description   string
	CreatedAt     time.Time
	DeletedAt     *time.Time
}

func (t Transfer) EntryID() EntryID  { return t.ID }
func (t Transfer) Kind() EntryKind   { return KindTransfer }
func (t Transfer) Owner() UserID     { return t.UserID }
func (t Transfer) EffectiveOn() Date { return t.Date }
func (t Transfer) Deleted() bool     { return t.DeletedAt != nil }
func (t Transfer) Deltas() []AccountDelta {
	if t.Deleted() {
		return nil
	}
	return []AccountDelta{
		{AccountID: t.FromAccountID, Amount: t.Amount.Neg()},
		{AccountID: t.ToAccountID, Amount: t.Amount},
	}
}

// Adjustment is a signed manual correction to one account.
type Adjustment struct {
	ID        EntryID
	UserID    UserID
	AccountID AccountID
	Amount    decimal.Decimal // signed
	Date      Date
	Reason    string
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (a Adjustment) EntryID() EntryID  { return a.ID }
func (a Adjustment) Kind() EntryKind   { return KindAdjustment }
func (a Adjustment) Owner() UserID     { return a.UserID }
func (a Adjustment) EffectiveOn() Date { return a.Date }
func (a Adjustment) Deleted() bool     { return a.DeletedAt != nil }
func (a Adjustment) Deltas() []AccountDelta {
	if a.Deleted() {
		return nil
	}
	return []AccountDelta{{AccountID: a.AccountID, Amount: a.Amount}}
}

// =============================================================================
// OPEN-MONTH STATE - The single mutable period per user
// =============================================================================

// OpenMonthState is the per-user singleton describing the currently
// active accounting period. Exactly one row exists per user, created
// lazily on first access and never deleted. All mutations go through the
// openmonth package under a per-user lock.
type OpenMonthState struct {
	UserID UserID
	Period YearMonth

	IsClosed bool
	LockedAt *time.Time
	LockedBy string

	// HasData flips true the first time a financial entry lands in the
	// current period; FirstDataAt/FirstDataSource record what broke the
	// "empty" status. Reopen eligibility reads HasData.
	HasData         bool
	FirstDataAt     *time.Time
	FirstDataSource string

	ReopenCount    int
	LastReopenedAt *time.Time
	LastReopenedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// SNAPSHOTS - Frozen history owned by the close/reopen orchestrators
// =============================================================================

// AccountMonthSnapshot freezes one account's balances for a closed month.
// Reopening the month marks it stale; it is never deleted.
type AccountMonthSnapshot struct {
	ID               string
	UserID           UserID
	Period           YearMonth
	AccountID        AccountID
	BeginningBalance decimal.Decimal
	EndingBalance    decimal.Decimal
	IsStale          bool
	CreatedAt        time.Time
}

// DashboardMonthSnapshot freezes the period aggregates shown on the
// dashboard for a closed month.
type DashboardMonthSnapshot struct {
	ID               string
	UserID           UserID
	Period           YearMonth
	TotalSpent       decimal.Decimal
	TotalIncome      decimal.Decimal
	BeginningBalance decimal.Decimal
	EndingBalance    decimal.Decimal
	NetWorth         decimal.Decimal
	IsStale          bool
	CreatedAt        time.Time
}

// CloseRecord is one row of the append-only close audit log. The unique
// (user, period) index on this table is the idempotency guard against
// closing the same month twice.
type CloseRecord struct {
	ID       string
	UserID   UserID
	Period   YearMonth
	ClosedAt time.Time
	ClosedBy string
	Notes    string
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

// RecurringTemplate generates one payment or deposit per month on a fixed
// day. NextRun is the first period the template has not yet produced an
// entry for; the close checklist flags templates lagging behind the
// closing period.
type RecurringTemplate struct {
	ID          string
	UserID      UserID
	Kind        EntryKind // KindPayment or KindDeposit
	AccountID   AccountID
	Amount      decimal.Decimal
	Description string
	DayOfMonth  int
	NextRun     YearMonth
	Active      bool
	CreatedAt   time.Time
}

// PeriodTotals are the live aggregates for one month: total payments and
// total received income.
type PeriodTotals struct {
	Spent  decimal.Decimal
	Income decimal.Decimal
}
