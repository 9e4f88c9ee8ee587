package openmonth

import (
	"context"
	"fmt"

	"github.com/budgethq/budgethq/ledger"
)

// =============================================================================
// RECORDER - The save path every financial entry goes through
// =============================================================================

// Recorder persists financial entries behind the date validator. Every
// Add/Edit flow calls Record; nothing writes an entry table directly.
type Recorder struct {
	store   ledger.Store
	manager *Manager
}

func NewRecorder(store ledger.Store, manager *Manager) *Recorder {
	return &Recorder{store: store, manager: manager}
}

// Record validates the entry's date against the open month and persists
// it. An out-of-period date with proceed=false returns the
// OutsidePeriodWarning and persists nothing (the Cancel path is simply
// not calling again). With proceed=true the open month advances to the
// entry's period first, then the entry is saved.
func (r *Recorder) Record(ctx context.Context, e ledger.Entry, proceed bool) error {
	user := e.Owner()

	check, err := r.manager.ValidateDate(ctx, user, e.EffectiveOn())
	if err != nil {
		return err
	}
	if !check.OK {
		if !proceed {
			return check.Warning
		}
		if _, err := r.manager.AdvanceOpenMonthTo(ctx, *check.Proceed); err != nil {
			return err
		}
	}

	if err := r.verifyAccounts(ctx, e); err != nil {
		return err
	}
	if err := r.store.SaveEntry(ctx, e); err != nil {
		return fmt.Errorf("saving %s: %w", e.Kind(), err)
	}
	return r.manager.MarkHasData(ctx, user, string(e.Kind()))
}

// Delete soft-deletes an entry. Replay integrity depends on the row
// surviving; only the deletion timestamp is written.
func (r *Recorder) Delete(ctx context.Context, user ledger.UserID, kind ledger.EntryKind, id ledger.EntryID) error {
	return r.store.SoftDeleteEntry(ctx, user, kind, id)
}

func (r *Recorder) verifyAccounts(ctx context.Context, e ledger.Entry) error {
	for _, id := range entryAccountRefs(e) {
		if _, err := r.store.GetAccount(ctx, e.Owner(), id); err != nil {
			return fmt.Errorf("%s references account %s: %w", e.Kind(), id, err)
		}
	}
	if t, ok := e.(ledger.Transfer); ok && t.FromAccountID == t.ToAccountID {
		return fmt.Errorf("transfer source and destination must differ: %w", ledger.ErrAccountNotFound)
	}
	return nil
}
