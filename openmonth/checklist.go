package openmonth

import (
	"context"
	"fmt"

	"github.com/budgethq/budgethq/ledger"
)

// =============================================================================
// CLOSE CHECKLIST - Read-only system checks run before a soft close
// =============================================================================

// CheckResult is one checklist line shown on the soft-close screen.
// Checklist failures are advisory: they inform the user, they do not
// block the close. Reconciliation completeness was deliberately removed
// as a check, so close never depends on it.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

const (
	CheckRecurringCurrent = "recurring_current"
	CheckRequiredFields   = "required_fields"
	CheckLiveAccounts     = "live_accounts"
	CheckTransferAccounts = "transfer_accounts"
)

// EvaluateChecklist runs the fixed set of system checks against the
// user's open period. Read-only; mutates nothing.
func (m *Manager) EvaluateChecklist(ctx context.Context, user ledger.UserID) ([]CheckResult, error) {
	s, err := m.ForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	period := s.Period

	entries, err := m.store.ListEntriesInPeriod(ctx, user, period)
	if err != nil {
		return nil, fmt.Errorf("listing entries for checklist: %w", err)
	}
	accounts, err := m.store.ListAccounts(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("listing accounts for checklist: %w", err)
	}
	live := make(map[ledger.AccountID]bool, len(accounts))
	for _, a := range accounts {
		live[a.ID] = true
	}

	var results []CheckResult

	// 1. Every active recurring template has generated through period end.
	templates, err := m.store.ListRecurringTemplates(ctx, user, true)
	if err != nil {
		return nil, fmt.Errorf("listing templates for checklist: %w", err)
	}
	lagging := 0
	for _, t := range templates {
		if !t.NextRun.After(period) {
			lagging++
		}
	}
	results = append(results, CheckResult{
		Name:   CheckRecurringCurrent,
		Passed: lagging == 0,
		Detail: fmt.Sprintf("%d recurring template(s) have not run through %s", lagging, period.Label()),
	})

	// 2. Every entry has its required fields populated.
	missing := 0
	for _, e := range entries {
		if e.EffectiveOn().IsZero() || !entryAmountValid(e) {
			missing++
		}
	}
	results = append(results, CheckResult{
		Name:   CheckRequiredFields,
		Passed: missing == 0,
		Detail: fmt.Sprintf("%d entr(ies) missing required fields", missing),
	})

	// 3. Every entry references a non-deleted account.
	orphaned := 0
	for _, e := range entries {
		for _, d := range entryAccountRefs(e) {
			if !live[d] {
				orphaned++
				break
			}
		}
	}
	results = append(results, CheckResult{
		Name:   CheckLiveAccounts,
		Passed: orphaned == 0,
		Detail: fmt.Sprintf("%d entr(ies) reference a deleted account", orphaned),
	})

	// 4. Every transfer references two distinct valid accounts.
	badTransfers := 0
	for _, e := range entries {
		t, ok := e.(ledger.Transfer)
		if !ok {
			continue
		}
		if t.FromAccountID == t.ToAccountID || !live[t.FromAccountID] || !live[t.ToAccountID] {
			badTransfers++
		}
	}
	results = append(results, CheckResult{
		Name:   CheckTransferAccounts,
		Passed: badTransfers == 0,
		Detail: fmt.Sprintf("%d transfer(s) with invalid account pair", badTransfers),
	})

	return results, nil
}

func entryAmountValid(e ledger.Entry) bool {
	switch v := e.(type) {
	case ledger.Payment:
		return v.Amount.IsPositive()
	case ledger.Deposit:
		return v.Amount.IsPositive()
	case ledger.Transfer:
		return v.Amount.IsPositive()
	case ledger.Adjustment:
		return !v.Amount.IsZero()
	}
	return false
}

// entryAccountRefs returns every account an entry touches, including
// contributions suppressed from replay (unreceived deposits still
// reference their account for checklist purposes).
func entryAccountRefs(e ledger.Entry) []ledger.AccountID {
	switch v := e.(type) {
	case ledger.Payment:
		return []ledger.AccountID{v.AccountID}
	case ledger.Deposit:
		return []ledger.AccountID{v.AccountID}
	case ledger.Transfer:
		return []ledger.AccountID{v.FromAccountID, v.ToAccountID}
	case ledger.Adjustment:
		return []ledger.AccountID{v.AccountID}
	}
	return nil
}
