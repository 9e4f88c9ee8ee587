/*
reopen.go - Reopen orchestration

PURPOSE:
  Rolls the open month back by one calendar month. Permitted only while
  the current period is still empty (has_data=false): once anything has
  been entered, the close is final without manual intervention.

MARK, DON'T DELETE:
  Snapshots for the period being reopened into are flagged stale, never
  removed. Reporting must recompute them before trusting them again,
  but the audit history survives.
*/
package openmonth

import (
	"context"
	"fmt"

	"github.com/budgethq/budgethq/ledger"
)

// ReopenResult reports what a successful reopen did.
type ReopenResult struct {
	ReopenedPeriod ledger.YearMonth // the period now open again
	ReopenCount    int
}

// Reopener runs the reopen transition.
type Reopener struct {
	store   ledger.Store
	manager *Manager
}

func NewReopener(store ledger.Store, manager *Manager) *Reopener {
	return &Reopener{store: store, manager: manager}
}

// Reopen moves the user's open month back one calendar month. actor is
// recorded in the audit fields.
func (r *Reopener) Reopen(ctx context.Context, user ledger.UserID, actor string) (*ReopenResult, error) {
	lock := r.manager.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	state, err := r.manager.forUserLocked(ctx, user)
	if err != nil {
		return nil, err
	}

	// Sole automated guard: the current period must still be empty.
	if state.HasData {
		return nil, &ledger.EligibilityError{
			Reason: "has_data",
			Period: state.Period,
			Detail: fmt.Sprintf("entries already recorded in %s (first: %s)", state.Period.Label(), state.FirstDataSource),
		}
	}

	// Reopening only makes sense into a month that was actually closed;
	// anything earlier predates the user's history.
	target := state.Period.Previous()
	closed, err := r.store.HasCloseRecord(ctx, user, target)
	if err != nil {
		return nil, fmt.Errorf("checking close history: %w", err)
	}
	if !closed {
		return nil, &ledger.EligibilityError{
			Reason: "never_closed",
			Period: target,
			Detail: "cannot reopen past the earliest closed period",
		}
	}

	now := r.manager.Clock().UTC()
	err = r.store.WithTx(ctx, func(tx ledger.Store) error {
		// Snapshots for the reopened month are no longer trustworthy.
		if err := tx.MarkSnapshotsStale(ctx, user, target); err != nil {
			return fmt.Errorf("marking %s snapshots stale: %w", target, err)
		}

		hasData, err := tx.HasEntriesInPeriod(ctx, user, target)
		if err != nil {
			return fmt.Errorf("checking entries in %s: %w", target, err)
		}

		state.Period = target
		state.HasData = hasData
		if hasData {
			state.FirstDataAt = &now
			state.FirstDataSource = "existing entries"
		} else {
			state.FirstDataAt = nil
			state.FirstDataSource = ""
		}
		state.ReopenCount++
		state.LastReopenedAt = &now
		state.LastReopenedBy = actor
		state.UpdatedAt = now
		if err := tx.PutOpenMonth(ctx, state); err != nil {
			return fmt.Errorf("rolling back open month: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReopenResult{ReopenedPeriod: target, ReopenCount: state.ReopenCount}, nil
}
