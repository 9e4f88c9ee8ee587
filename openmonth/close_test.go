package openmonth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgethq/budgethq/ledger"
	memstore "github.com/budgethq/budgethq/ledger/store"
	"github.com/budgethq/budgethq/openmonth"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

type closeFixture struct {
	store    ledger.Store
	manager  *openmonth.Manager
	recorder *openmonth.Recorder
	closer   *openmonth.Closer
	reopener *openmonth.Reopener
}

func newCloseFixture(store ledger.Store) *closeFixture {
	manager := openmonth.NewManager(store)
	manager.Clock = fixedClock()
	return &closeFixture{
		store:    store,
		manager:  manager,
		recorder: openmonth.NewRecorder(store, manager),
		closer:   openmonth.NewCloser(store, manager),
		reopener: openmonth.NewReopener(store, manager),
	}
}

func allConfirmed() openmonth.Confirmations {
	return openmonth.Confirmations{TotalsReviewed: true, FinalLockConsent: true}
}

// seedMarch gives the fixture one account and two March entries.
func seedMarch(t *testing.T, f *closeFixture) {
	t.Helper()
	seedAccount(t, f.store, "checking", "100.00")
	ctx := context.Background()
	require.NoError(t, f.recorder.Record(ctx, payment("p1", "20.00", ledger.NewDate(2025, time.March, 5)), false))
	require.NoError(t, f.recorder.Record(ctx, ledger.Deposit{
		ID: "d1", UserID: testUser, AccountID: "checking",
		Amount: dec("50.00"), Date: ledger.NewDate(2025, time.March, 12), Received: true,
	}, false))
}

// =============================================================================
// SOFT CLOSE
// =============================================================================

func TestCloseSnapshotsAndAdvances(t *testing.T) {
	// GIVEN March 2025 open with entries
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()
	march := ledger.NewYearMonth(2025, time.March)

	// WHEN the month is closed with both confirmations
	result, err := f.closer.Close(ctx, testUser, "user-1", "month end", allConfirmed())
	require.NoError(t, err)

	// THEN the result reports the transition
	assert.Equal(t, march, result.ClosedPeriod)
	assert.Equal(t, ledger.NewYearMonth(2025, time.April), result.NewPeriod)
	assert.Equal(t, 1, result.AccountSnapshots)
	assert.Len(t, result.Checklist, 4)

	// AND the account snapshot froze the replayed boundaries
	snaps, err := f.store.AccountSnapshots(ctx, testUser, march)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, ledger.AccountID("checking"), snaps[0].AccountID)
	assert.True(t, snaps[0].EndingBalance.Equal(dec("130.00")), "ending = 100 - 20 + 50, got %s", snaps[0].EndingBalance)
	assert.False(t, snaps[0].IsStale)

	// AND the dashboard snapshot froze the aggregates
	dash, err := f.store.DashboardSnapshot(ctx, testUser, march)
	require.NoError(t, err)
	require.NotNil(t, dash)
	assert.True(t, dash.TotalSpent.Equal(dec("20.00")))
	assert.True(t, dash.TotalIncome.Equal(dec("50.00")))
	assert.True(t, dash.EndingBalance.Equal(dec("130.00")))

	// AND the audit row exists with the notes
	records, err := f.store.CloseRecords(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, march, records[0].Period)
	assert.Equal(t, "month end", records[0].Notes)

	// AND the open month advanced with a clean slate
	state, err := f.manager.ForUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, ledger.NewYearMonth(2025, time.April), state.Period)
	assert.False(t, state.HasData)
	assert.Empty(t, state.FirstDataSource)
}

func TestCloseRequiresBothConfirmations(t *testing.T) {
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()

	cases := []openmonth.Confirmations{
		{},
		{TotalsReviewed: true},
		{FinalLockConsent: true},
	}
	for _, conf := range cases {
		_, err := f.closer.Close(ctx, testUser, "user-1", "", conf)
		require.ErrorIs(t, err, ledger.ErrNotEligible)

		var elig *ledger.EligibilityError
		require.ErrorAs(t, err, &elig)
		assert.Equal(t, "consent_required", elig.Reason)
	}

	// Nothing was written by the refused attempts.
	records, err := f.store.CloseRecords(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCloseTwiceIsRejected(t *testing.T) {
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()

	_, err := f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
	require.NoError(t, err)

	// Move the open month back into closed March via the proceed flow
	// (not a reopen, so the March snapshots are still trusted), then try
	// to close it a second time.
	_, err = f.manager.AdvanceTo(ctx, testUser, ledger.NewDate(2025, time.March, 20))
	require.NoError(t, err)

	_, err = f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
	require.ErrorIs(t, err, ledger.ErrNotEligible)

	var elig *ledger.EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Equal(t, "already_closed", elig.Reason)
}

func TestRecloseAfterReopenRefreshesSnapshots(t *testing.T) {
	// GIVEN March closed, reopened, and edited
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()
	march := ledger.NewYearMonth(2025, time.March)

	_, err := f.closer.Close(ctx, testUser, "user-1", "first close", allConfirmed())
	require.NoError(t, err)
	_, err = f.reopener.Reopen(ctx, testUser, "user-1")
	require.NoError(t, err)
	require.NoError(t, f.recorder.Record(ctx, payment("p-late", "10.00", ledger.NewDate(2025, time.March, 28)), false))

	// WHEN the user closes March again
	result, err := f.closer.Close(ctx, testUser, "user-1", "after reopen", allConfirmed())
	require.NoError(t, err)
	assert.Equal(t, march, result.ClosedPeriod)

	// THEN the snapshots are recomputed and trusted again
	snaps, err := f.store.AccountSnapshots(ctx, testUser, march)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.False(t, snaps[0].IsStale)
	assert.Equal(t, "120", snaps[0].EndingBalance.String(), "100 - 20 + 50 - 10")

	dash, err := f.store.DashboardSnapshot(ctx, testUser, march)
	require.NoError(t, err)
	require.NotNil(t, dash)
	assert.False(t, dash.IsStale)
	assert.Equal(t, "30", dash.TotalSpent.String())

	// AND the audit log still holds the original close row only
	records, err := f.store.CloseRecords(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first close", records[0].Notes)

	state, err := f.manager.ForUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, march.Next(), state.Period)
}

func TestCloseProceedsDespiteFailedChecklist(t *testing.T) {
	// A lagging recurring template fails a check but never blocks close.
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()

	require.NoError(t, f.store.SaveRecurringTemplate(ctx, ledger.RecurringTemplate{
		ID: "rent", UserID: testUser, Kind: ledger.KindPayment, AccountID: "checking",
		Amount: dec("900.00"), DayOfMonth: 1,
		NextRun: ledger.NewYearMonth(2025, time.February), Active: true,
	}))

	result, err := f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
	require.NoError(t, err)

	var recurring *openmonth.CheckResult
	for i := range result.Checklist {
		if result.Checklist[i].Name == openmonth.CheckRecurringCurrent {
			recurring = &result.Checklist[i]
		}
	}
	require.NotNil(t, recurring)
	assert.False(t, recurring.Passed)
}

// =============================================================================
// ATOMICITY
// =============================================================================

var errInjected = errors.New("injected failure")

// failingStore wraps a store and fails AppendCloseRecord, including
// inside transactions.
type failingStore struct {
	ledger.Store
}

func (f *failingStore) AppendCloseRecord(context.Context, ledger.CloseRecord) error {
	return errInjected
}

func (f *failingStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return f.Store.WithTx(ctx, func(tx ledger.Store) error {
		return fn(&failingStore{Store: tx})
	})
}

func TestCloseRollsBackOnMidTransactionFailure(t *testing.T) {
	// GIVEN a store that fails when the audit row is appended
	inner := memstore.NewMemory()
	f := newCloseFixture(&failingStore{Store: inner})
	seedMarch(t, f)
	ctx := context.Background()
	march := ledger.NewYearMonth(2025, time.March)

	// WHEN the close runs
	_, err := f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
	require.ErrorIs(t, err, errInjected)

	// THEN the snapshots written earlier in the transaction are gone,
	// and the open month did not move
	snaps, err := inner.AccountSnapshots(ctx, testUser, march)
	require.NoError(t, err)
	assert.Empty(t, snaps, "account snapshots must roll back with the failed close")

	dash, err := inner.DashboardSnapshot(ctx, testUser, march)
	require.NoError(t, err)
	assert.Nil(t, dash)

	state, err := f.manager.ForUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, march, state.Period)
	assert.True(t, state.HasData, "the period keeps its entries after a failed close")
}
