/*
replay.go - Point-in-time balance computation

PURPOSE:
  Computes account balances as of an arbitrary date by replaying entry
  history on top of each account's beginning balance. This is the one
  calculation everything else depends on: dashboards, the soft-close
  snapshots and the confirmation screens all read balances from here,
  never from a cached column.

ALGORITHM:
  For each account created on or before end-of-day(asOf):

    balance = beginning_balance
            + Σ received deposits  (date <= asOf)
            - Σ payments           (date <= asOf)
            + Σ transfers in       (date <= asOf)
            - Σ transfers out      (date <= asOf)
            + Σ adjustments        (date <= asOf, signed)

  The five contributions come from independent grouped sums merged by
  account id. Computing them separately avoids cross-join blowup and
  tolerates accounts with zero entries of any kind: an account with no
  history yields exactly its beginning balance.

FAILURE:
  Any aggregation error propagates wrapped in ErrBalanceComputation.
  A failed query is never reported as a zero balance.

SEE ALSO:
  - store.go: The grouped-sum interface the engine reads through
  - openmonth/close.go: Snapshots balances at period boundaries
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReplayStore is the read-only slice of Store the engine needs.
type ReplayStore interface {
	AccountsCreatedThrough(ctx context.Context, user UserID, asOf Date) ([]Account, error)
	PaymentTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
	DepositTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
	TransferInTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
	TransferOutTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
	AdjustmentTotalsThrough(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error)
}

// ReplayEngine computes balances from history. It holds no state of its
// own and no cache across calls, so it is safe to invoke repeatedly
// within one request for different as-of dates.
type ReplayEngine struct {
	Store ReplayStore
}

func NewReplayEngine(store ReplayStore) *ReplayEngine {
	return &ReplayEngine{Store: store}
}

// BalancesAsOf returns the balance of every account existing on asOf,
// keyed by account id. The result is empty only when the user has no
// accounts as of that date.
func (e *ReplayEngine) BalancesAsOf(ctx context.Context, user UserID, asOf Date) (map[AccountID]decimal.Decimal, error) {
	accounts, err := e.Store.AccountsCreatedThrough(ctx, user, asOf)
	if err != nil {
		return nil, fmt.Errorf("%w: loading accounts: %v", ErrBalanceComputation, err)
	}

	balances := make(map[AccountID]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		balances[a.ID] = a.BeginningBalance
	}
	if len(balances) == 0 {
		return balances, nil
	}

	type contribution struct {
		name string
		load func(context.Context, UserID, Date) (map[AccountID]decimal.Decimal, error)
		sign int
	}
	contributions := []contribution{
		{"deposits", e.Store.DepositTotalsThrough, +1},
		{"payments", e.Store.PaymentTotalsThrough, -1},
		{"transfers in", e.Store.TransferInTotalsThrough, +1},
		{"transfers out", e.Store.TransferOutTotalsThrough, -1},
		{"adjustments", e.Store.AdjustmentTotalsThrough, +1},
	}

	for _, c := range contributions {
		totals, err := c.load(ctx, user, asOf)
		if err != nil {
			return nil, fmt.Errorf("%w: summing %s: %v", ErrBalanceComputation, c.name, err)
		}
		for id, total := range totals {
			// Entries against accounts outside the as-of set (created later,
			// or deleted) are ignored rather than invented into the result.
			current, ok := balances[id]
			if !ok {
				continue
			}
			if c.sign < 0 {
				balances[id] = current.Sub(total)
			} else {
				balances[id] = current.Add(total)
			}
		}
	}

	return balances, nil
}

// TotalAsOf returns the sum of all account balances as of a date. This is
// the net-worth figure the dashboard and the close snapshots use.
func (e *ReplayEngine) TotalAsOf(ctx context.Context, user UserID, asOf Date) (decimal.Decimal, error) {
	balances, err := e.BalancesAsOf(ctx, user, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total, nil
}
