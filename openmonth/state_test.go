package openmonth_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgethq/budgethq/ledger"
	memstore "github.com/budgethq/budgethq/ledger/store"
	"github.com/budgethq/budgethq/openmonth"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testUser = ledger.UserID("user-1")

// fixedClock pins a manager to 2025-03-10 so the lazily created open
// month is deterministic.
func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
}

func newTestManager(store ledger.Store) *openmonth.Manager {
	m := openmonth.NewManager(store)
	m.Clock = fixedClock()
	return m
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedAccount(t *testing.T, store ledger.Store, id, beginning string) {
	t.Helper()
	err := store.SaveAccount(context.Background(), ledger.Account{
		ID:               ledger.AccountID(id),
		UserID:           testUser,
		Name:             id,
		BeginningBalance: dec(beginning),
		CreatedOn:        ledger.NewDate(2025, time.January, 1),
		CreatedAt:        time.Now(),
	})
	require.NoError(t, err)
}

func payment(id string, amount string, date ledger.Date) ledger.Payment {
	return ledger.Payment{
		ID:        ledger.EntryID(id),
		UserID:    testUser,
		AccountID: "checking",
		Amount:    dec(amount),
		Date:      date,
	}
}

// =============================================================================
// LAZY CREATION
// =============================================================================

func TestForUserCreatesStateOnFirstAccess(t *testing.T) {
	// GIVEN a user with no open-month row
	store := memstore.NewMemory()
	manager := newTestManager(store)
	ctx := context.Background()

	_, err := store.GetOpenMonth(ctx, testUser)
	require.ErrorIs(t, err, ledger.ErrStateNotFound)

	// WHEN the state is first accessed
	state, err := manager.ForUser(ctx, testUser)
	require.NoError(t, err)

	// THEN it defaults to the clock's calendar month and is persisted
	assert.Equal(t, ledger.NewYearMonth(2025, time.March), state.Period)
	assert.False(t, state.HasData)

	stored, err := store.GetOpenMonth(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, state.Period, stored.Period)
}

func TestForUserDoesNotRecomputeOnLaterAccess(t *testing.T) {
	// GIVEN a state created in March
	store := memstore.NewMemory()
	manager := newTestManager(store)
	ctx := context.Background()

	_, err := manager.ForUser(ctx, testUser)
	require.NoError(t, err)

	// WHEN the wall clock moves to June
	manager.Clock = func() time.Time {
		return time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	}
	state, err := manager.ForUser(ctx, testUser)
	require.NoError(t, err)

	// THEN the open month stays where it was; only close/advance move it
	assert.Equal(t, ledger.NewYearMonth(2025, time.March), state.Period)
}

// =============================================================================
// HAS-DATA TRACKING
// =============================================================================

func TestMarkHasDataStampsFirstSourceOnce(t *testing.T) {
	store := memstore.NewMemory()
	manager := newTestManager(store)
	ctx := context.Background()

	require.NoError(t, manager.MarkHasData(ctx, testUser, "payment"))

	first, err := manager.ForUser(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, first.HasData)
	assert.Equal(t, "payment", first.FirstDataSource)
	require.NotNil(t, first.FirstDataAt)

	// A second mark from a different source changes nothing.
	require.NoError(t, manager.MarkHasData(ctx, testUser, "deposit"))

	second, err := manager.ForUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "payment", second.FirstDataSource)
	assert.Equal(t, first.FirstDataAt, second.FirstDataAt)
}

func TestIsWithinOpenPeriod(t *testing.T) {
	store := memstore.NewMemory()
	manager := newTestManager(store)
	ctx := context.Background()

	in, err := manager.IsWithinOpenPeriod(ctx, testUser, ledger.NewDate(2025, time.March, 31))
	require.NoError(t, err)
	assert.True(t, in)

	out, err := manager.IsWithinOpenPeriod(ctx, testUser, ledger.NewDate(2025, time.April, 1))
	require.NoError(t, err)
	assert.False(t, out)
}
