/*
close.go - Soft-close orchestration

PURPOSE:
  Finalizes the open month: evaluates the checklist, verifies the two
  user consent flags, snapshots per-account and dashboard balances for
  the closing period, appends one close audit row, and advances the
  open month — all inside a single transaction under the per-user lock.

STATE MACHINE:
  checklist (read-only) -> consent gate -> atomic transition
  Terminal states: closed-and-advanced, or aborted with everything
  rolled back. There is no partial close.

IDEMPOTENCY:
  The unique (user, year, month) index on the close audit log rejects a
  second close of the same period; the violation surfaces as a
  ConsistencyError and the transaction rolls back. The one sanctioned
  second close is of a reopened month: its close record already exists
  and its snapshots are stale, so the close refreshes the snapshots and
  advances again without appending a second audit row.
*/
package openmonth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgethq/budgethq/ledger"
)

// Confirmations are the two explicit consent flags the soft-close screen
// collects before the close is allowed to run.
type Confirmations struct {
	TotalsReviewed   bool
	FinalLockConsent bool
}

// CloseResult reports what a successful close did.
type CloseResult struct {
	ClosedPeriod     ledger.YearMonth
	NewPeriod        ledger.YearMonth
	AccountSnapshots int
	Checklist        []CheckResult
}

// Closer runs the soft-close state machine.
type Closer struct {
	store   ledger.Store
	manager *Manager
}

func NewCloser(store ledger.Store, manager *Manager) *Closer {
	return &Closer{store: store, manager: manager}
}

// Close finalizes the user's open month and advances to the next one.
// actor and notes go into the audit row.
func (c *Closer) Close(ctx context.Context, user ledger.UserID, actor, notes string, conf Confirmations) (*CloseResult, error) {
	lock := c.manager.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	state, err := c.manager.forUserLocked(ctx, user)
	if err != nil {
		return nil, err
	}
	closing := state.Period

	// Consent gate. The caller collects the flags; the orchestrator
	// refuses to run without them.
	if !conf.TotalsReviewed || !conf.FinalLockConsent {
		return nil, &ledger.EligibilityError{
			Reason: "consent_required",
			Period: closing,
			Detail: "totals-reviewed and final-lock-consent must both be affirmed",
		}
	}

	// Fast idempotency check before doing any work. The unique index on
	// the close log is the authoritative guard; this just gives a clearer
	// error on the common path. A reopened month is the exception: its
	// close record survives the reopen but its snapshots were marked
	// stale, and closing it again refreshes them in place.
	reclose := false
	if closed, err := c.store.HasCloseRecord(ctx, user, closing); err != nil {
		return nil, fmt.Errorf("checking close history: %w", err)
	} else if closed {
		dash, err := c.store.DashboardSnapshot(ctx, user, closing)
		if err != nil {
			return nil, fmt.Errorf("checking snapshot staleness: %w", err)
		}
		if dash == nil || !dash.IsStale {
			return nil, &ledger.EligibilityError{Reason: "already_closed", Period: closing}
		}
		reclose = true
	}

	// Checklist is advisory: evaluated, reported, never blocking.
	checklist, err := c.manager.EvaluateChecklist(ctx, user)
	if err != nil {
		return nil, err
	}

	now := c.manager.Clock().UTC()
	result := &CloseResult{ClosedPeriod: closing, NewPeriod: closing.Next(), Checklist: checklist}

	err = c.store.WithTx(ctx, func(tx ledger.Store) error {
		// (a) Per-account snapshots from the replay engine at the period
		// boundaries. The engine must read through the transaction: the
		// sqlite store runs on a single connection, which the transaction
		// holds until commit.
		engine := ledger.NewReplayEngine(tx)
		opening, err := engine.BalancesAsOf(ctx, user, closing.Start())
		if err != nil {
			return err
		}
		ending, err := engine.BalancesAsOf(ctx, user, closing.End())
		if err != nil {
			return err
		}
		accounts, err := tx.AccountsCreatedThrough(ctx, user, closing.End())
		if err != nil {
			return fmt.Errorf("loading accounts for close: %w", err)
		}
		for _, a := range accounts {
			snap := ledger.AccountMonthSnapshot{
				ID:               uuid.NewString(),
				UserID:           user,
				Period:           closing,
				AccountID:        a.ID,
				BeginningBalance: opening[a.ID],
				EndingBalance:    ending[a.ID],
				CreatedAt:        now,
			}
			if err := tx.SaveAccountSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("snapshotting account %s: %w", a.ID, err)
			}
			result.AccountSnapshots++
		}

		// (b) One dashboard snapshot aggregating the period.
		totals, err := tx.PeriodTotals(ctx, user, closing)
		if err != nil {
			return fmt.Errorf("aggregating period totals: %w", err)
		}
		beginningTotal := sumBalances(opening)
		endingTotal := sumBalances(ending)
		dash := ledger.DashboardMonthSnapshot{
			ID:               uuid.NewString(),
			UserID:           user,
			Period:           closing,
			TotalSpent:       totals.Spent,
			TotalIncome:      totals.Income,
			BeginningBalance: beginningTotal,
			EndingBalance:    endingTotal,
			NetWorth:         endingTotal,
			CreatedAt:        now,
		}
		if err := tx.SaveDashboardSnapshot(ctx, dash); err != nil {
			return fmt.Errorf("snapshotting dashboard: %w", err)
		}

		// (c) One append-only audit row. A duplicate period violates the
		// unique index and aborts the whole transaction. A re-close keeps
		// the original row: the log records when the month first locked.
		if !reclose {
			record := ledger.CloseRecord{
				ID:       uuid.NewString(),
				UserID:   user,
				Period:   closing,
				ClosedAt: now,
				ClosedBy: actor,
				Notes:    notes,
			}
			if err := tx.AppendCloseRecord(ctx, record); err != nil {
				return err
			}
		}

		// (d) Advance the open month and reset data-entry provenance for
		// the fresh period.
		state.Period = closing.Next()
		state.HasData = false
		state.FirstDataAt = nil
		state.FirstDataSource = ""
		state.IsClosed = false
		state.LockedAt = &now
		state.LockedBy = actor
		state.UpdatedAt = now
		if err := tx.PutOpenMonth(ctx, state); err != nil {
			return fmt.Errorf("advancing open month: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func sumBalances(balances map[ledger.AccountID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total
}
