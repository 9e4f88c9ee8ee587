package sqlite_test

// End-to-end month lifecycle over the real SQLite store. The store runs
// on a single connection, so these tests also prove the close and
// reopen transactions never query outside their own transaction view.

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgethq/budgethq/ledger"
	"github.com/budgethq/budgethq/openmonth"
	"github.com/budgethq/budgethq/store/sqlite"
)

const flowUser = ledger.UserID("user-1")

type flowFixture struct {
	store    *sqlite.Store
	manager  *openmonth.Manager
	recorder *openmonth.Recorder
	closer   *openmonth.Closer
	reopener *openmonth.Reopener
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager := openmonth.NewManager(store)
	manager.Clock = func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	return &flowFixture{
		store:    store,
		manager:  manager,
		recorder: openmonth.NewRecorder(store, manager),
		closer:   openmonth.NewCloser(store, manager),
		reopener: openmonth.NewReopener(store, manager),
	}
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *flowFixture) seedMarch(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveAccount(ctx, ledger.Account{
		ID:               "checking",
		UserID:           flowUser,
		Name:             "checking",
		BeginningBalance: mustDec("100.00"),
		CreatedOn:        ledger.NewDate(2025, time.January, 1),
		CreatedAt:        time.Now().UTC(),
	}))
	require.NoError(t, f.recorder.Record(ctx, ledger.Payment{
		ID: "p1", UserID: flowUser, AccountID: "checking",
		Amount: mustDec("20.00"), Date: ledger.NewDate(2025, time.March, 5),
	}, false))
	require.NoError(t, f.recorder.Record(ctx, ledger.Deposit{
		ID: "d1", UserID: flowUser, AccountID: "checking",
		Amount: mustDec("50.00"), Date: ledger.NewDate(2025, time.March, 12), Received: true,
	}, false))
}

func allConfirmed() openmonth.Confirmations {
	return openmonth.Confirmations{TotalsReviewed: true, FinalLockConsent: true}
}

func TestCloseOverSQLiteCompletesAndSnapshots(t *testing.T) {
	// GIVEN one account and two March entries in a SQLite-backed month
	f := newFlowFixture(t)
	f.seedMarch(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	march := ledger.NewYearMonth(2025, time.March)

	// WHEN the month closes
	result, err := f.closer.Close(ctx, flowUser, "user-1", "month end", allConfirmed())
	require.NoError(t, err)
	assert.Equal(t, march, result.ClosedPeriod)
	assert.Equal(t, 1, result.AccountSnapshots)

	// THEN the snapshots, audit row, and advanced state are all visible
	snaps, err := f.store.AccountSnapshots(ctx, flowUser, march)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "100", snaps[0].BeginningBalance.String())
	assert.Equal(t, "130", snaps[0].EndingBalance.String())

	dash, err := f.store.DashboardSnapshot(ctx, flowUser, march)
	require.NoError(t, err)
	require.NotNil(t, dash)
	assert.Equal(t, "20", dash.TotalSpent.String())
	assert.Equal(t, "50", dash.TotalIncome.String())
	assert.Equal(t, "130", dash.NetWorth.String())

	records, err := f.store.CloseRecords(ctx, flowUser)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "month end", records[0].Notes)

	state, err := f.manager.ForUser(ctx, flowUser)
	require.NoError(t, err)
	assert.Equal(t, march.Next(), state.Period)
	assert.False(t, state.HasData)
}

func TestCloseReopenRecloseOverSQLite(t *testing.T) {
	// GIVEN a closed March
	f := newFlowFixture(t)
	f.seedMarch(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	march := ledger.NewYearMonth(2025, time.March)

	_, err := f.closer.Close(ctx, flowUser, "user-1", "", allConfirmed())
	require.NoError(t, err)

	// WHEN the user reopens, adds a late payment, and closes again
	reopened, err := f.reopener.Reopen(ctx, flowUser, "user-1")
	require.NoError(t, err)
	assert.Equal(t, march, reopened.ReopenedPeriod)

	snaps, err := f.store.AccountSnapshots(ctx, flowUser, march)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].IsStale, "reopen marks the snapshots stale")

	require.NoError(t, f.recorder.Record(ctx, ledger.Payment{
		ID: "p-late", UserID: flowUser, AccountID: "checking",
		Amount: mustDec("10.00"), Date: ledger.NewDate(2025, time.March, 28),
	}, false))

	_, err = f.closer.Close(ctx, flowUser, "user-1", "after reopen", allConfirmed())
	require.NoError(t, err)

	// THEN the snapshots are recomputed and trusted again, and the audit
	// log still holds the single original row
	snaps, err = f.store.AccountSnapshots(ctx, flowUser, march)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.False(t, snaps[0].IsStale)
	assert.Equal(t, "120", snaps[0].EndingBalance.String())

	records, err := f.store.CloseRecords(ctx, flowUser)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	state, err := f.manager.ForUser(ctx, flowUser)
	require.NoError(t, err)
	assert.Equal(t, march.Next(), state.Period)
}
