/*
validate.go - Entry-date validation and the cancel/proceed flow

PURPOSE:
  Any date-bearing financial entry is checked here before it is saved.
  An out-of-period date is advisory, not a hard block: the user sees a
  warning naming the OPEN month and chooses Cancel (nothing persisted)
  or Proceed (the open month moves to the entry's period, then the
  entry is saved).

DETERMINISM UNDER RACES:
  The proceed token carries the period the client observed when the
  warning was issued. If the state moved between observation and the
  advance — two proceeds racing — the advance resolves to the later of
  the raced-to period and the requested target, so concurrent proceeds
  always end at the later of the two targets regardless of arrival
  order.
*/
package openmonth

import (
	"context"
	"fmt"

	"github.com/budgethq/budgethq/ledger"
)

// DateCheck is the result of validating a candidate entry date.
type DateCheck struct {
	OK      bool
	Warning *ledger.OutsidePeriodWarning
	Proceed *ProceedToken
}

// ProceedToken authorizes one open-month advance. Observed is the open
// period at validation time; the advance uses it to detect races.
type ProceedToken struct {
	UserID   ledger.UserID
	Target   ledger.YearMonth
	Observed ledger.YearMonth
}

// ValidateDate checks a candidate date against the open month. An
// in-period date returns OK; an out-of-period date returns the warning
// to present and the token that authorizes Proceed.
func (m *Manager) ValidateDate(ctx context.Context, user ledger.UserID, d ledger.Date) (DateCheck, error) {
	s, err := m.ForUser(ctx, user)
	if err != nil {
		return DateCheck{}, err
	}
	if s.Period.Contains(d) {
		return DateCheck{OK: true}, nil
	}

	candidate := ledger.PeriodOf(d)
	return DateCheck{
		Warning: &ledger.OutsidePeriodWarning{
			OpenPeriod:      s.Period,
			CandidatePeriod: candidate,
			CandidateDate:   d,
		},
		Proceed: &ProceedToken{UserID: user, Target: candidate, Observed: s.Period},
	}, nil
}

// AdvanceOpenMonthTo moves the open month to the token's target period,
// forward or backward. Returns the period actually settled on, which
// differs from the target only when a concurrent advance raced to a
// later period.
func (m *Manager) AdvanceOpenMonthTo(ctx context.Context, token ProceedToken) (ledger.YearMonth, error) {
	lock := m.userLock(token.UserID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.forUserLocked(ctx, token.UserID)
	if err != nil {
		return ledger.YearMonth{}, err
	}

	final := token.Target
	if !s.Period.Equal(token.Observed) {
		// The state moved since the warning was issued. Concurrent proceeds
		// must settle on the later of the two requested periods.
		final = ledger.Later(s.Period, token.Target)
	}
	if s.Period.Equal(final) {
		return final, nil
	}

	// The destination period may already contain entries (the user moved
	// back into a month with history), so has_data is recomputed rather
	// than carried over.
	hasData, err := m.store.HasEntriesInPeriod(ctx, token.UserID, final)
	if err != nil {
		return ledger.YearMonth{}, fmt.Errorf("checking entries in %s: %w", final, err)
	}

	now := m.Clock().UTC()
	s.Period = final
	s.HasData = hasData
	if hasData {
		// The provenance fields belong to the period left behind; restamp
		// them so they agree with the recomputed flag.
		s.FirstDataAt = &now
		s.FirstDataSource = "existing entries"
	} else {
		s.FirstDataAt = nil
		s.FirstDataSource = ""
	}
	s.UpdatedAt = now
	if err := m.store.PutOpenMonth(ctx, s); err != nil {
		return ledger.YearMonth{}, fmt.Errorf("advancing open month for %s: %w", token.UserID, err)
	}
	return final, nil
}

// AdvanceTo is the convenience form used when the caller holds the date
// rather than a token: it validates and, if out of period, immediately
// proceeds.
func (m *Manager) AdvanceTo(ctx context.Context, user ledger.UserID, d ledger.Date) (ledger.YearMonth, error) {
	check, err := m.ValidateDate(ctx, user, d)
	if err != nil {
		return ledger.YearMonth{}, err
	}
	if check.OK {
		return m.CurrentPeriod(ctx, user)
	}
	return m.AdvanceOpenMonthTo(ctx, *check.Proceed)
}
