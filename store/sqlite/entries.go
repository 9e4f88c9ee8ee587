package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgethq/budgethq/ledger"
)

// =============================================================================
// ENTRY STORE - The four financial-entry tables
// =============================================================================

func (q queries) SaveEntry(ctx context.Context, e ledger.Entry) error {
	switch v := e.(type) {
	case ledger.Payment:
		return q.savePayment(ctx, v)
	case *ledger.Payment:
		return q.savePayment(ctx, *v)
	case ledger.Deposit:
		return q.saveDeposit(ctx, v)
	case *ledger.Deposit:
		return q.saveDeposit(ctx, *v)
	case ledger.Transfer:
		return q.saveTransfer(ctx, v)
	case *ledger.Transfer:
		return q.saveTransfer(ctx, *v)
	case ledger.Adjustment:
		return q.saveAdjustment(ctx, v)
	case *ledger.Adjustment:
		return q.saveAdjustment(ctx, *v)
	}
	return fmt.Errorf("unknown entry kind %q: %w", e.Kind(), ledger.ErrEntryNotFound)
}

func entryCreatedAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return fmtTime(t)
}

func (q queries) savePayment(ctx context.Context, p ledger.Payment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, account_id, amount, entry_date, description, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			amount = excluded.amount,
			entry_date = excluded.entry_date,
			description = excluded.description`,
		p.ID, p.UserID, p.AccountID, p.Amount.String(), p.Date.String(),
		p.Description, entryCreatedAt(p.CreatedAt), nullTime(p.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (q queries) saveDeposit(ctx context.Context, d ledger.Deposit) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO deposits (id, user_id, account_id, amount, entry_date, received, description, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			amount = excluded.amount,
			entry_date = excluded.entry_date,
			received = excluded.received,
			description = excluded.description`,
		d.ID, d.UserID, d.AccountID, d.Amount.String(), d.Date.String(),
		d.Received, d.Description, entryCreatedAt(d.CreatedAt), nullTime(d.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save deposit: %w", err)
	}
	return nil
}

func (q queries) saveTransfer(ctx context.Context, t ledger.Transfer) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transfers (id, user_id, from_account_id, to_account_id, amount, entry_date, description, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			from_account_id = excluded.from_account_id,
			to_account_id = excluded.to_account_id,
			amount = excluded.amount,
			entry_date = excluded.entry_date,
			description = excluded.description`,
		t.ID, t.UserID, t.FromAccountID, t.ToAccountID, t.Amount.String(), t.Date.String(),
		t.Description, entryCreatedAt(t.CreatedAt), nullTime(t.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save transfer: %w", err)
	}
	return nil
}

func (q queries) saveAdjustment(ctx context.Context, a ledger.Adjustment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO adjustments (id, user_id, account_id, amount, entry_date, reason, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			amount = excluded.amount,
			entry_date = excluded.entry_date,
			reason = excluded.reason`,
		a.ID, a.UserID, a.AccountID, a.Amount.String(), a.Date.String(),
		a.Reason, entryCreatedAt(a.CreatedAt), nullTime(a.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save adjustment: %w", err)
	}
	return nil
}

func entryTable(kind ledger.EntryKind) string {
	switch kind {
	case ledger.KindPayment:
		return "payments"
	case ledger.KindDeposit:
		return "deposits"
	case ledger.KindTransfer:
		return "transfers"
	case ledger.KindAdjustment:
		return "adjustments"
	}
	return ""
}

func (q queries) GetEntry(ctx context.Context, user ledger.UserID, kind ledger.EntryKind, id ledger.EntryID) (ledger.Entry, error) {
	switch kind {
	case ledger.KindPayment:
		ps, err := q.queryPayments(ctx, `WHERE id = ? AND user_id = ?`, id, user)
		if err != nil {
			return nil, err
		}
		if len(ps) == 0 {
			return nil, ledger.ErrEntryNotFound
		}
		return ps[0], nil
	case ledger.KindDeposit:
		ds, err := q.queryDeposits(ctx, `WHERE id = ? AND user_id = ?`, id, user)
		if err != nil {
			return nil, err
		}
		if len(ds) == 0 {
			return nil, ledger.ErrEntryNotFound
		}
		return ds[0], nil
	case ledger.KindTransfer:
		ts, err := q.queryTransfers(ctx, `WHERE id = ? AND user_id = ?`, id, user)
		if err != nil {
			return nil, err
		}
		if len(ts) == 0 {
			return nil, ledger.ErrEntryNotFound
		}
		return ts[0], nil
	case ledger.KindAdjustment:
		as, err := q.queryAdjustments(ctx, `WHERE id = ? AND user_id = ?`, id, user)
		if err != nil {
			return nil, err
		}
		if len(as) == 0 {
			return nil, ledger.ErrEntryNotFound
		}
		return as[0], nil
	}
	return nil, ledger.ErrEntryNotFound
}

func (q queries) SoftDeleteEntry(ctx context.Context, user ledger.UserID, kind ledger.EntryKind, id ledger.EntryID) error {
	table := entryTable(kind)
	if table == "" {
		return ledger.ErrEntryNotFound
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE `+table+` SET deleted_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		fmtTime(time.Now()), id, user,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrEntryNotFound
	}
	return nil
}

// =============================================================================
// PERIOD QUERIES - Half-open [start, next month start) on entry_date
// =============================================================================

func periodRange(period ledger.YearMonth) (string, string) {
	return period.Start().String(), period.Start().AddMonths(1).String()
}

func (q queries) ListEntriesInPeriod(ctx context.Context, user ledger.UserID, period ledger.YearMonth) ([]ledger.Entry, error) {
	from, to := periodRange(period)
	cond := `WHERE user_id = ? AND deleted_at IS NULL AND entry_date >= ? AND entry_date < ? ORDER BY entry_date`

	var entries []ledger.Entry

	payments, err := q.queryPayments(ctx, cond, user, from, to)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		entries = append(entries, p)
	}

	deposits, err := q.queryDeposits(ctx, cond, user, from, to)
	if err != nil {
		return nil, err
	}
	for _, d := range deposits {
		entries = append(entries, d)
	}

	transfers, err := q.queryTransfers(ctx, cond, user, from, to)
	if err != nil {
		return nil, err
	}
	for _, t := range transfers {
		entries = append(entries, t)
	}

	adjustments, err := q.queryAdjustments(ctx, cond, user, from, to)
	if err != nil {
		return nil, err
	}
	for _, a := range adjustments {
		entries = append(entries, a)
	}

	return entries, nil
}

func (q queries) HasEntriesInPeriod(ctx context.Context, user ledger.UserID, period ledger.YearMonth) (bool, error) {
	from, to := periodRange(period)
	for _, table := range []string{"payments", "deposits", "transfers", "adjustments"} {
		var count int
		err := q.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+table+` WHERE user_id = ? AND deleted_at IS NULL AND entry_date >= ? AND entry_date < ?`,
			user, from, to,
		).Scan(&count)
		if err != nil {
			return false, fmt.Errorf("failed to count %s: %w", table, err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// GROUPED SUMS - The replay engine's five contributions
// =============================================================================
// Amounts are decimal strings, so grouping happens in SQL but the
// summation happens in Go to keep exactness.

func (q queries) sumByAccount(ctx context.Context, query string, args ...any) (map[ledger.AccountID]decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[ledger.AccountID]decimal.Decimal)
	for rows.Next() {
		var account ledger.AccountID
		var amount string
		if err := rows.Scan(&account, &amount); err != nil {
			return nil, err
		}
		totals[account] = totals[account].Add(parseDec(amount))
	}
	return totals, rows.Err()
}

func (q queries) PaymentTotalsThrough(ctx context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	return q.sumByAccount(ctx,
		`SELECT account_id, amount FROM payments WHERE user_id = ? AND deleted_at IS NULL AND entry_date <= ?`,
		user, asOf.String(),
	)
}

func (q queries) DepositTotalsThrough(ctx context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	return q.sumByAccount(ctx,
		`SELECT account_id, amount FROM deposits WHERE user_id = ? AND deleted_at IS NULL AND received AND entry_date <= ?`,
		user, asOf.String(),
	)
}

func (q queries) TransferInTotalsThrough(ctx context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	return q.sumByAccount(ctx,
		`SELECT to_account_id, amount FROM transfers WHERE user_id = ? AND deleted_at IS NULL AND entry_date <= ?`,
		user, asOf.String(),
	)
}

func (q queries) TransferOutTotalsThrough(ctx context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	return q.sumByAccount(ctx,
		`SELECT from_account_id, amount FROM transfers WHERE user_id = ? AND deleted_at IS NULL AND entry_date <= ?`,
		user, asOf.String(),
	)
}

func (q queries) AdjustmentTotalsThrough(ctx context.Context, user ledger.UserID, asOf ledger.Date) (map[ledger.AccountID]decimal.Decimal, error) {
	return q.sumByAccount(ctx,
		`SELECT account_id, amount FROM adjustments WHERE user_id = ? AND deleted_at IS NULL AND entry_date <= ?`,
		user, asOf.String(),
	)
}

func (q queries) PeriodTotals(ctx context.Context, user ledger.UserID, period ledger.YearMonth) (ledger.PeriodTotals, error) {
	from, to := periodRange(period)
	totals := ledger.PeriodTotals{Spent: decimal.Zero, Income: decimal.Zero}

	spent, err := q.sumColumn(ctx,
		`SELECT amount FROM payments WHERE user_id = ? AND deleted_at IS NULL AND entry_date >= ? AND entry_date < ?`,
		user, from, to,
	)
	if err != nil {
		return totals, err
	}
	totals.Spent = spent

	income, err := q.sumColumn(ctx,
		`SELECT amount FROM deposits WHERE user_id = ? AND deleted_at IS NULL AND received AND entry_date >= ? AND entry_date < ?`,
		user, from, to,
	)
	if err != nil {
		return totals, err
	}
	totals.Income = income
	return totals, nil
}

func (q queries) sumColumn(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query sum: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(parseDec(amount))
	}
	return total, rows.Err()
}

// =============================================================================
// ROW SCANNERS
// =============================================================================

func (q queries) queryPayments(ctx context.Context, cond string, args ...any) ([]ledger.Payment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, amount, entry_date, description, created_at, deleted_at FROM payments `+cond,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []ledger.Payment
	for rows.Next() {
		var p ledger.Payment
		var amount, date, created string
		var desc, deleted sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.AccountID, &amount, &date, &desc, &created, &deleted); err != nil {
			return nil, err
		}
		p.Amount = parseDec(amount)
		p.Date = parseDate(date)
		p.Description = desc.String
		p.CreatedAt = parseTime(created)
		p.DeletedAt = scanNullTime(deleted)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q queries) queryDeposits(ctx context.Context, cond string, args ...any) ([]ledger.Deposit, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, amount, entry_date, received, description, created_at, deleted_at FROM deposits `+cond,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	var out []ledger.Deposit
	for rows.Next() {
		var d ledger.Deposit
		var amount, date, created string
		var desc, deleted sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.AccountID, &amount, &date, &d.Received, &desc, &created, &deleted); err != nil {
			return nil, err
		}
		d.Amount = parseDec(amount)
		d.Date = parseDate(date)
		d.Description = desc.String
		d.CreatedAt = parseTime(created)
		d.DeletedAt = scanNullTime(deleted)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q queries) queryTransfers(ctx context.Context, cond string, args ...any) ([]ledger.Transfer, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, from_account_id, to_account_id, amount, entry_date, description, created_at, deleted_at FROM transfers `+cond,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transfer
	for rows.Next() {
		var t ledger.Transfer
		var amount, date, created string
		var desc, deleted sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.FromAccountID, &t.ToAccountID, &amount, &date, &desc, &created, &deleted); err != nil {
			return nil, err
		}
		t.Amount = parseDec(amount)
		t.Date = parseDate(date)
		t.Description = desc.String
		t.CreatedAt = parseTime(created)
		t.DeletedAt = scanNullTime(deleted)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q queries) queryAdjustments(ctx context.Context, cond string, args ...any) ([]ledger.Adjustment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, amount, entry_date, reason, created_at, deleted_at FROM adjustments `+cond,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var out []ledger.Adjustment
	for rows.Next() {
		var a ledger.Adjustment
		var amount, date, created string
		var reason, deleted sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &a.AccountID, &amount, &date, &reason, &created, &deleted); err != nil {
			return nil, err
		}
		a.Amount = parseDec(amount)
		a.Date = parseDate(date)
		a.Reason = reason.String
		a.CreatedAt = parseTime(created)
		a.DeletedAt = scanNullTime(deleted)
		out = append(out, a)
	}
	return out, rows.Err()
}
