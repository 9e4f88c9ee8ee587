package openmonth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgethq/budgethq/ledger"
	memstore "github.com/budgethq/budgethq/ledger/store"
)

// =============================================================================
// REOPEN
// =============================================================================

func TestReopenRestoresClosedMonth(t *testing.T) {
	// GIVEN March closed and April open and empty
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()
	march := ledger.NewYearMonth(2025, time.March)

	_, err := f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
	require.NoError(t, err)

	// WHEN the user reopens
	result, err := f.reopener.Reopen(ctx, testUser, "user-1")
	require.NoError(t, err)

	// THEN March is the open month again, with its history intact
	assert.Equal(t, march, result.ReopenedPeriod)
	assert.Equal(t, 1, result.ReopenCount)

	state, err := f.manager.ForUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, march, state.Period)
	assert.True(t, state.HasData, "the reopened month still has its entries")
	require.NotNil(t, state.FirstDataAt, "has_data and its provenance move together")
	assert.Equal(t, "existing entries", state.FirstDataSource)
	assert.Equal(t, 1, state.ReopenCount)
	require.NotNil(t, state.LastReopenedAt)
	assert.Equal(t, "user-1", state.LastReopenedBy)
}

func TestReopenMarksSnapshotsStaleButKeepsThem(t *testing.T) {
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()
	march := ledger.NewYearMonth(2025, time.March)

	_, err := f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
	require.NoError(t, err)
	_, err = f.reopener.Reopen(ctx, testUser, "user-1")
	require.NoError(t, err)

	snaps, err := f.store.AccountSnapshots(ctx, testUser, march)
	require.NoError(t, err)
	require.Len(t, snaps, 1, "snapshots are marked, never deleted")
	assert.True(t, snaps[0].IsStale)

	dash, err := f.store.DashboardSnapshot(ctx, testUser, march)
	require.NoError(t, err)
	require.NotNil(t, dash)
	assert.True(t, dash.IsStale)
}

func TestReopenRefusedWhenCurrentMonthHasData(t *testing.T) {
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()

	_, err := f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
	require.NoError(t, err)

	// An April entry ends reopen eligibility.
	require.NoError(t, f.recorder.Record(ctx, payment("p-april", "5.00", ledger.NewDate(2025, time.April, 2)), false))

	_, err = f.reopener.Reopen(ctx, testUser, "user-1")
	require.ErrorIs(t, err, ledger.ErrNotEligible)

	var elig *ledger.EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Equal(t, "has_data", elig.Reason)
	assert.Contains(t, elig.Detail, "payment", "the refusal names what created the data")
}

func TestReopenRefusedWhenPreviousMonthNeverClosed(t *testing.T) {
	// A brand-new user has no close history behind the open month.
	f := newCloseFixture(memstore.NewMemory())
	ctx := context.Background()

	_, err := f.reopener.Reopen(ctx, testUser, "user-1")
	require.ErrorIs(t, err, ledger.ErrNotEligible)

	var elig *ledger.EligibilityError
	require.ErrorAs(t, err, &elig)
	assert.Equal(t, "never_closed", elig.Reason)
}

func TestCloseReopenCycleIncrementsCount(t *testing.T) {
	// Close and reopen alternate freely: the reopened month re-closes by
	// refreshing its snapshots, so every cycle bumps the counter.
	f := newCloseFixture(memstore.NewMemory())
	seedMarch(t, f)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		_, err := f.closer.Close(ctx, testUser, "user-1", "", allConfirmed())
		require.NoError(t, err)

		result, err := f.reopener.Reopen(ctx, testUser, "user-1")
		require.NoError(t, err)
		assert.Equal(t, i, result.ReopenCount)
	}
}
