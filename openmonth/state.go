/*
Package openmonth manages the open-month lifecycle for BudgetHQ.

PURPOSE:
  Every user has exactly one mutable accounting period at a time: the
  open month. This package owns that record end to end — lazy creation,
  date validation against it, advancing it when the user insists on an
  out-of-period entry, closing it (with snapshots and an audit row) and
  reopening it (with staleness marking).

KEY CONCEPTS:
  - Manager: accessor + validator over the open-month row, and the
    single-writer-per-user lock every mutation runs under
  - Closer: the soft-close state machine (checklist, consent gate,
    atomic snapshot + advance)
  - Reopener: the reverse transition, guarded by has-data eligibility
  - Generator: synchronous recurring-entry materialization

CONCURRENCY:
  All open-month mutations for one user serialize through a per-user
  mutex held for the mutation plus its paired snapshot writes. There is
  no cross-user contention. Two concurrent "proceed" advances resolve
  deterministically to the later of the two requested periods.

SEE ALSO:
  - validate.go: Date validation and the cancel/proceed flow
  - close.go: Soft-close orchestration
  - reopen.go: Reopen orchestration
*/
package openmonth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/budgethq/budgethq/ledger"
)

// Manager is the accessor for open-month state. The zero default period
// for a brand-new user is the calendar month of the system clock at
// first access; it is stored immediately and never recomputed.
type Manager struct {
	store ledger.Store

	// Clock is overridable in tests. Defaults to time.Now.
	Clock func() time.Time

	mu    sync.Mutex
	locks map[ledger.UserID]*sync.Mutex
}

func NewManager(store ledger.Store) *Manager {
	return &Manager{
		store: store,
		Clock: time.Now,
		locks: make(map[ledger.UserID]*sync.Mutex),
	}
}

// userLock returns the mutex serializing all open-month mutations for one
// user. Locks are created on demand and kept for the process lifetime.
func (m *Manager) userLock(user ledger.UserID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[user]
	if !ok {
		l = &sync.Mutex{}
		m.locks[user] = l
	}
	return l
}

// ForUser returns the user's open-month state, creating it on first
// access with the current calendar month as the starting period.
func (m *Manager) ForUser(ctx context.Context, user ledger.UserID) (ledger.OpenMonthState, error) {
	if s, err := m.store.GetOpenMonth(ctx, user); err == nil {
		return *s, nil
	} else if err != ledger.ErrStateNotFound {
		return ledger.OpenMonthState{}, fmt.Errorf("loading open month for %s: %w", user, err)
	}

	lock := m.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: another request may have created the row.
	if s, err := m.store.GetOpenMonth(ctx, user); err == nil {
		return *s, nil
	} else if err != ledger.ErrStateNotFound {
		return ledger.OpenMonthState{}, fmt.Errorf("loading open month for %s: %w", user, err)
	}

	now := m.Clock().UTC()
	s := ledger.OpenMonthState{
		UserID:    user,
		Period:    ledger.PeriodOf(ledger.DateOf(now)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.PutOpenMonth(ctx, s); err != nil {
		return ledger.OpenMonthState{}, fmt.Errorf("creating open month for %s: %w", user, err)
	}
	return s, nil
}

// CurrentPeriod returns the user's open period.
func (m *Manager) CurrentPeriod(ctx context.Context, user ledger.UserID) (ledger.YearMonth, error) {
	s, err := m.ForUser(ctx, user)
	if err != nil {
		return ledger.YearMonth{}, err
	}
	return s.Period, nil
}

// IsWithinOpenPeriod reports whether the date falls inside the open month
// per the half-open [start, start+1month) rule.
func (m *Manager) IsWithinOpenPeriod(ctx context.Context, user ledger.UserID, d ledger.Date) (bool, error) {
	s, err := m.ForUser(ctx, user)
	if err != nil {
		return false, err
	}
	return s.Period.Contains(d), nil
}

// MarkHasData records that a financial entry landed in the current
// period. Idempotent: the first caller stamps FirstDataAt and
// FirstDataSource, subsequent calls are no-ops.
func (m *Manager) MarkHasData(ctx context.Context, user ledger.UserID, source string) error {
	lock := m.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.forUserLocked(ctx, user)
	if err != nil {
		return err
	}
	if s.HasData {
		return nil
	}

	now := m.Clock().UTC()
	s.HasData = true
	s.FirstDataAt = &now
	s.FirstDataSource = source
	s.UpdatedAt = now
	if err := m.store.PutOpenMonth(ctx, s); err != nil {
		return fmt.Errorf("marking has_data for %s: %w", user, err)
	}
	return nil
}

// forUserLocked is ForUser for callers already holding the user lock.
func (m *Manager) forUserLocked(ctx context.Context, user ledger.UserID) (ledger.OpenMonthState, error) {
	s, err := m.store.GetOpenMonth(ctx, user)
	if err == ledger.ErrStateNotFound {
		now := m.Clock().UTC()
		created := ledger.OpenMonthState{
			UserID:    user,
			Period:    ledger.PeriodOf(ledger.DateOf(now)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := m.store.PutOpenMonth(ctx, created); err != nil {
			return ledger.OpenMonthState{}, fmt.Errorf("creating open month for %s: %w", user, err)
		}
		return created, nil
	}
	if err != nil {
		return ledger.OpenMonthState{}, fmt.Errorf("loading open month for %s: %w", user, err)
	}
	return *s, nil
}
