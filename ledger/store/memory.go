// Package store provides an in-memory ledger.Store implementation for
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgethq/budgethq/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	accounts    map[ledger.AccountID]ledger.Account
	payments    map[ledger.EntryID]ledger.Payment
	deposits    map[ledger.EntryID]ledger.Deposit
	transfers   map[ledger.EntryID]ledger.Transfer
	adjustments map[ledger.EntryID]ledger.Adjustment

	openMonths map[ledger.UserID]ledger.OpenMonthState

	accountSnapshots   map[string]ledger.AccountMonthSnapshot
	dashboardSnapshots map[string]ledger.DashboardMonthSnapshot
	closeRecords       []ledger.CloseRecord
	templates          map[string]ledger.RecurringTemplate
}

func NewMemory() *Memory {
	return &Memory{
		accounts:           make(map[ledger.AccountID]ledger.Account),
		payments:           make(map[ledger.EntryID]ledger.Payment),
		deposits:           make(map[ledger.EntryID]ledger.Deposit),
		transfers:          make(map[ledger.EntryID]ledger.Transfer),
		adjustments:        make(map[ledger.EntryID]ledger.Adjustment),
		openMonths:         make(map[ledger.UserID]ledger.OpenMonthState),
		accountSnapshots:   make(map[string]ledger.AccountMonthSnapshot),
		dashboardSnapshots: make(map[string]ledger.DashboardMonthSnapshot),
		templates:          make(map[string]ledger.RecurringTemplate),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) SaveAccount(_ context.Context, a ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) GetAccount(_ context.Context, user ledger.UserID, id ledger.AccountID) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != user {
		return nil, ledger.ErrAccountNotFound
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context, user ledger.UserID) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Account
	for _, a := range m.accounts {
		if a.UserID == user && !a.Deleted() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) AccountsCreatedThrough(_ context.Context, user ledger.UserID, asOf ledger.Date) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Account
	for _, a := range m.accounts {
		if a.UserID == user && !a.Deleted() && a.CreatedOn.BeforeOrEqual(asOf) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SoftDeleteAccount(_ context.Context, user ledger.UserID, id ledger.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != user || a.Deleted() {
		return ledger.ErrAccountNotFound
	}
	now := time.Now().UTC()
	a.DeletedAt = &now
	m.accounts[id] = a
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (m *Memory) SaveEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEntryLocked(e)
}

func (m *Memory) saveEntryLocked(e ledger.Entry) error {
	switch v := e.(type) {
	case ledger.Payment:
		m.payments[v.ID] = v
	case *ledger.Payment:
		m.payments[v.ID] = *v
	case ledger.Deposit:
		m.deposits[v.ID] = v
	case *ledger.Deposit:
		m.deposits[v.ID] = *v
	case ledger.Transfer:
		m.transfers[v.ID] = v
	case *ledger.Transfer:
		m.transfers[v.ID] = *v
	case ledger.Adjustment:
		m.adjustments[v.ID] = v
	case *ledger.Adjustment:
		m.adjustments[v.ID] = *v
	default:
		return ledger.ErrEntryNotFound
	}
	return nil
}

func (m *Memory) GetEntry(_ context.Context, user ledger.UserID, kind ledger.EntryKind, id ledger.EntryID) (ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.lookupLocked(kind, id)
	if e == nil || e.Owner() != user {
		return nil, ledger.ErrEntryNotFound
	}
	return e, nil
}

func (m *Memory) lookupLocked(kind ledger.EntryKind, id ledger.EntryID) ledger.Entry {
	switch kind {
	case ledger.KindPayment:
		if v, ok := m.payments[id]; ok {
			return v
		}
	case ledger.KindDeposit:
		if v, ok := m.deposits[id]; ok {
			return v
		}
	case ledger.KindTransfer:
		if v, ok := m.transfers[id]; ok {
			return v
		}
	case ledger.KindAdjustment:
		if v, ok := m.adjustments[id]; ok {
			return v
		}
	}
	return nil
}

func (m *Memory) SoftDeleteEntry(_ context.Context, user ledger.UserID, kind ledger.EntryKind, id ledger.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	switch kind {
	case ledger.KindPayment:
		if v, ok := m.payments[id]; ok && v.UserID == user && !v.Deleted() {
			v.DeletedAt = &now
			m.payments[id] = v
			return nil
		}
	case ledger.KindDeposit:
		if v, ok := m.deposits[id]; ok && v.UserID == user && !v.Deleted() {
			v.DeletedAt = &now
			m.deposits[id] = v
			return nil
		}
	case ledger.KindTransfer:
		if v, ok := m.transfers[id]; ok && v.UserID == user && !v.Deleted() {
			v.DeletedAt = &now
			m.transfers[id] = v
			return nil
		}
	case ledger.KindAdjustment:
		if v, ok := m.adjustments[id]; ok && v.UserID == user && !v.Deleted() {
			v.DeletedAt = &now
			m.adjustments[id] = v
			return nil
		}
	}
	return ledger.ErrEntryNotFound
}

func (m *Memory) allEntries(user ledger.UserID) []ledger.Entry {
	var out []ledger.Entry
	for _, v := range m.payments {
		if v.UserID == user {
			out = append(out, v)
		}
	}
	for _, v := range m.deposits {
		if v.UserID == user {
			out = append(out, v)
		}
	}
	for _, v := range m.transfers {
		if v.UserID == user {
			out = append(out, v)
		}
	}
	for _, v := range m.adjustments {
		if v.UserID == user {
			out = append(out, v)
		}
	}
	return out
}

func (m *Memory) ListEntriesInPeriod(_ context.Context, user ledger.UserID, period ledger.YearMonth) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Entry
	for _, e := range m.allEntries(user) {
		if !e.Deleted() && period.Contains(e.EffectiveOn()) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveOn().Before(out[j].EffectiveOn()) })
	return out, nil
}

func (m *Memory) HasEntriesInPeriod(_ context.Context, user ledger.UserID, period ledger.YearMonth) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.allEntries(user) {
		if !e.Deleted() && period.Contains(e.EffectiveOn()) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) PaymentTotalsThrough(_ context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[ledger.AccountID]decimal.Decimal)
	for _, v := range m.payments {
		if v.UserID == user && !v.Deleted() && v.Date.BeforeOrEqual(asOf) {
			totals[v.AccountID] = totals[v.AccountID].Add(v.Amount)
		}
	}
	return totals, nil
}

func (m *Memory) DepositTotalsThrough(_ context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[ledger.AccountID]decimal.Decimal)
	for _, v := range m.deposits {
		if v.UserID == user && !v.Deleted() && v.Received && v.Date.BeforeOrEqual(asOf) {
			totals[v.AccountID] = totals[v.AccountID].Add(v.Amount)
		}
	}
	return totals, nil
}

func (m *Memory) TransferInTotalsThrough(_ context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[ledger.AccountID]decimal.Decimal)
	for _, v := range m.transfers {
		if v.UserID == user && !v.Deleted() && v.Date.BeforeOrEqual(asOf) {
			totals[v.ToAccountID] = totals[v.ToAccountID].Add(v.Amount)
		}
	}
	return totals, nil
}

func (m *Memory) TransferOutTotalsThrough(_ context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[ledger.AccountID]decimal.Decimal)
	for _, v := range m.transfers {
		if v.UserID == user && !v.Deleted() && v.Date.BeforeOrEqual(asOf) {
			totals[v.FromAccountID] = totals[v.FromAccountID].Add(v.Amount)
		}
	}
	return totals, nil
}

func (m *Memory) AdjustmentTotalsThrough(_ context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := make(map[ledger.AccountID]decimal.Decimal)
	for _, v := range m.adjustments {
		if v.UserID == user && !v.Deleted() && v.Date.BeforeOrEqual(asOf) {
			totals[v.AccountID] = totals[v.AccountID].Add(v.Amount)
		}
	}
	return totals, nil
}

func (m *Memory) PeriodTotals(_ context.Context, user ledger.UserID, period ledger.YearMonth) (ledger.PeriodTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	totals := ledger.PeriodTotals{Spent: decimal.Zero, Income: decimal.Zero}
	for _, v := range m.payments {
		if v.UserID == user && !v.Deleted() && period.Contains(v.Date) {
			totals.Spent = totals.Spent.Add(v.Amount)
		}
	}
	for _, v := range m.deposits {
		if v.UserID == user && !v.Deleted() && v.Received && period.Contains(v.Date) {
			totals.Income = totals.Income.Add(v.Amount)
		}
	}
	return totals, nil
}

// =============================================================================
// OPEN-MONTH STATE
// =============================================================================

func (m *Memory) GetOpenMonth(_ context.Context, user ledger.UserID) (*ledger.OpenMonthState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.openMonths[user]
	if !ok {
		return nil, ledger.ErrStateNotFound
	}
	return &s, nil
}

func (m *Memory) PutOpenMonth(_ context.Context, s ledger.OpenMonthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openMonths[s.UserID] = s
	return nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func accountSnapshotKey(user ledger.UserID, period ledger.YearMonth, account ledger.AccountID) string {
	return string(user) + "|" + period.String() + "|" + string(account)
}

func dashboardSnapshotKey(user ledger.UserID, period ledger.YearMonth) string {
	return string(user) + "|" + period.String()
}

func (m *Memory) SaveAccountSnapshot(_ context.Context, s ledger.AccountMonthSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountSnapshots[accountSnapshotKey(s.UserID, s.Period, s.AccountID)] = s
	return nil
}

func (m *Memory) SaveDashboardSnapshot(_ context.Context, s ledger.DashboardMonthSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboardSnapshots[dashboardSnapshotKey(s.UserID, s.Period)] = s
	return nil
}

func (m *Memory) AccountSnapshots(_ context.Context, user ledger.UserID, period ledger.YearMonth) ([]ledger.AccountMonthSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.AccountMonthSnapshot
	for _, s := range m.accountSnapshots {
		if s.UserID == user && s.Period.Equal(period) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (m *Memory) DashboardSnapshot(_ context.Context, user ledger.UserID, period ledger.YearMonth) (*ledger.DashboardMonthSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.dashboardSnapshots[dashboardSnapshotKey(user, period)]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) MarkSnapshotsStale(_ context.Context, user ledger.UserID, period ledger.YearMonth) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.accountSnapshots {
		if s.UserID == user && s.Period.Equal(period) {
			s.IsStale = true
			m.accountSnapshots[k] = s
		}
	}
	if s, ok := m.dashboardSnapshots[dashboardSnapshotKey(user, period)]; ok {
		s.IsStale = true
		m.dashboardSnapshots[dashboardSnapshotKey(user, period)] = s
	}
	return nil
}

// =============================================================================
// CLOSE LOG
// =============================================================================

func (m *Memory) AppendCloseRecord(_ context.Context, r ledger.CloseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.closeRecords {
		if existing.UserID == r.UserID && existing.Period.Equal(r.Period) {
			return &ledger.ConsistencyError{Period: r.Period, Cause: ledger.ErrConsistency}
		}
	}
	m.closeRecords = append(m.closeRecords, r)
	return nil
}

func (m *Memory) CloseRecords(_ context.Context, user ledger.UserID) ([]ledger.CloseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.CloseRecord
	for _, r := range m.closeRecords {
		if r.UserID == user {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (m *Memory) HasCloseRecord(_ context.Context, user ledger.UserID, period ledger.YearMonth) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.closeRecords {
		if r.UserID == user && r.Period.Equal(period) {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

func (m *Memory) SaveRecurringTemplate(_ context.Context, t ledger.RecurringTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t
	return nil
}

func (m *Memory) ListRecurringTemplates(_ context.Context, user ledger.UserID, activeOnly bool) ([]ledger.RecurringTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.RecurringTemplate
	for _, t := range m.templates {
		if t.UserID != user {
			continue
		}
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// TRANSACTIONS - Simulated with snapshot + rollback on error
// =============================================================================

func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restoreLocked(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts           map[ledger.AccountID]ledger.Account
	payments           map[ledger.EntryID]ledger.Payment
	deposits           map[ledger.EntryID]ledger.Deposit
	transfers          map[ledger.EntryID]ledger.Transfer
	adjustments        map[ledger.EntryID]ledger.Adjustment
	openMonths         map[ledger.UserID]ledger.OpenMonthState
	accountSnapshots   map[string]ledger.AccountMonthSnapshot
	dashboardSnapshots map[string]ledger.DashboardMonthSnapshot
	closeRecords       []ledger.CloseRecord
	templates          map[string]ledger.RecurringTemplate
}

func (m *Memory) snapshotLocked() memorySnapshot {
	return memorySnapshot{
		accounts:           copyMap(m.accounts),
		payments:           copyMap(m.payments),
		deposits:           copyMap(m.deposits),
		transfers:          copyMap(m.transfers),
		adjustments:        copyMap(m.adjustments),
		openMonths:         copyMap(m.openMonths),
		accountSnapshots:   copyMap(m.accountSnapshots),
		dashboardSnapshots: copyMap(m.dashboardSnapshots),
		closeRecords:       append([]ledger.CloseRecord{}, m.closeRecords...),
		templates:          copyMap(m.templates),
	}
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.accounts = s.accounts
	m.payments = s.payments
	m.deposits = s.deposits
	m.transfers = s.transfers
	m.adjustments = s.adjustments
	m.openMonths = s.openMonths
	m.accountSnapshots = s.accountSnapshots
	m.dashboardSnapshots = s.dashboardSnapshots
	m.closeRecords = s.closeRecords
	m.templates = s.templates
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
