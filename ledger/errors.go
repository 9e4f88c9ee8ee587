/*
errors.go - Centralized error types for the balance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The openmonth orchestrators and the API layer wrap these with
  additional context and map them to HTTP statuses.

ERROR CATEGORIES:
  1. Validation warnings - Out-of-period dates, recoverable by user choice
  2. Eligibility errors  - Reopen/re-close attempted against the rules
  3. Consistency errors  - Races that correct locking should prevent
  4. Computation errors  - Balance aggregation failures (never silently
     reported as a zero balance)

USAGE:
  Callers classify with errors.Is / errors.As:

    var warn *ledger.OutsidePeriodWarning
    if errors.As(err, &warn) {
        // offer Cancel / Proceed with warn.OpenPeriod.Label()
    }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOutsideOpenPeriod is returned when an entry date falls outside the
	// open month. Non-fatal: the caller offers Cancel or Proceed.
	ErrOutsideOpenPeriod = errors.New("date outside open period")

	// ErrNotEligible is returned when a close or reopen is requested
	// against the eligibility rules. The same request must not be retried
	// unmodified.
	ErrNotEligible = errors.New("operation not eligible")

	// ErrConsistency is returned when a concurrent close/reopen is detected
	// mid-transaction, typically via the unique close-record index. The
	// whole transaction is rolled back.
	ErrConsistency = errors.New("concurrent period mutation detected")

	// ErrBalanceComputation is returned when a balance aggregation query
	// fails. It exists so "query failed" is never conflated with "no
	// transactions".
	ErrBalanceComputation = errors.New("balance computation failed")

	// ErrAccountNotFound is returned when a referenced account doesn't
	// exist or belongs to another user.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEntryNotFound is returned when a referenced entry doesn't exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrStateNotFound is returned by stores when no open-month row exists.
	// Callers normally go through the lazy-creating accessor instead.
	ErrStateNotFound = errors.New("open month state not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OutsidePeriodWarning reports an entry date outside the open month. The
// message names the OPEN period, not the candidate's, because that is what
// the user must decide to keep or leave.
type OutsidePeriodWarning struct {
	OpenPeriod      YearMonth
	CandidatePeriod YearMonth
	CandidateDate   Date
}

func (e *OutsidePeriodWarning) Error() string {
	return fmt.Sprintf("date %s is outside the open month %s", e.CandidateDate, e.OpenPeriod.Label())
}

func (e *OutsidePeriodWarning) Unwrap() error { return ErrOutsideOpenPeriod }

// EligibilityError reports why a close or reopen was refused.
type EligibilityError struct {
	Reason string // machine-readable, e.g. "has_data", "already_closed"
	Period YearMonth
	Detail string
}

func (e *EligibilityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %s", e.Reason, e.Period.Label(), e.Detail)
	}
	return fmt.Sprintf("%s (%s)", e.Reason, e.Period.Label())
}

func (e *EligibilityError) Unwrap() error { return ErrNotEligible }

// ConsistencyError reports a detected race on period state.
type ConsistencyError struct {
	Period YearMonth
	Cause  error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("concurrent mutation of period %s: %v", e.Period.Label(), e.Cause)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to a request the user can
// correct or resolve.
func IsClientError(err error) bool {
	return errors.Is(err, ErrOutsideOpenPeriod) ||
		errors.Is(err, ErrNotEligible)
}

// IsConflict returns true if the error indicates a state conflict that
// should surface as HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConsistency) ||
		errors.Is(err, ErrOutsideOpenPeriod)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrStateNotFound)
}
