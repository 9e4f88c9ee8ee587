package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/budgethq/budgethq/ledger"
)

// =============================================================================
// MONTH SNAPSHOTS - Written only inside the close/reopen transactions
// =============================================================================

func (q queries) SaveAccountSnapshot(ctx context.Context, s ledger.AccountMonthSnapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO account_month_snapshots (
			id, user_id, year, month, account_id,
			beginning_balance, ending_balance, is_stale, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, year, month, account_id) DO UPDATE SET
			beginning_balance = excluded.beginning_balance,
			ending_balance = excluded.ending_balance,
			is_stale = excluded.is_stale,
			created_at = excluded.created_at`,
		s.ID, s.UserID, s.Period.Year, int(s.Period.Month), s.AccountID,
		s.BeginningBalance.String(), s.EndingBalance.String(), s.IsStale, fmtTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save account snapshot: %w", err)
	}
	return nil
}

func (q queries) SaveDashboardSnapshot(ctx context.Context, s ledger.DashboardMonthSnapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO dashboard_month_snapshots (
			id, user_id, year, month, total_spent, total_income,
			beginning_balance, ending_balance, net_worth, is_stale, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, year, month) DO UPDATE SET
			total_spent = excluded.total_spent,
			total_income = excluded.total_income,
			beginning_balance = excluded.beginning_balance,
			ending_balance = excluded.ending_balance,
			net_worth = excluded.net_worth,
			is_stale = excluded.is_stale,
			created_at = excluded.created_at`,
		s.ID, s.UserID, s.Period.Year, int(s.Period.Month),
		s.TotalSpent.String(), s.TotalIncome.String(),
		s.BeginningBalance.String(), s.EndingBalance.String(), s.NetWorth.String(),
		s.IsStale, fmtTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save dashboard snapshot: %w", err)
	}
	return nil
}

func (q queries) AccountSnapshots(ctx context.Context, user ledger.UserID, period ledger.YearMonth) ([]ledger.AccountMonthSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, year, month, account_id,
		       beginning_balance, ending_balance, is_stale, created_at
		FROM account_month_snapshots
		WHERE user_id = ? AND year = ? AND month = ?
		ORDER BY account_id`,
		user, period.Year, int(period.Month),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query account snapshots: %w", err)
	}
	defer rows.Close()

	var out []ledger.AccountMonthSnapshot
	for rows.Next() {
		var s ledger.AccountMonthSnapshot
		var year, month int
		var begin, end, created string
		if err := rows.Scan(&s.ID, &s.UserID, &year, &month, &s.AccountID,
			&begin, &end, &s.IsStale, &created); err != nil {
			return nil, err
		}
		s.Period = ledger.NewYearMonth(year, time.Month(month))
		s.BeginningBalance = parseDec(begin)
		s.EndingBalance = parseDec(end)
		s.CreatedAt = parseTime(created)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q queries) DashboardSnapshot(ctx context.Context, user ledger.UserID, period ledger.YearMonth) (*ledger.DashboardMonthSnapshot, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, year, month, total_spent, total_income,
		       beginning_balance, ending_balance, net_worth, is_stale, created_at
		FROM dashboard_month_snapshots
		WHERE user_id = ? AND year = ? AND month = ?`,
		user, period.Year, int(period.Month),
	)

	var s ledger.DashboardMonthSnapshot
	var year, month int
	var spent, income, begin, end, net, created string
	err := row.Scan(&s.ID, &s.UserID, &year, &month, &spent, &income,
		&begin, &end, &net, &s.IsStale, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard snapshot: %w", err)
	}

	s.Period = ledger.NewYearMonth(year, time.Month(month))
	s.TotalSpent = parseDec(spent)
	s.TotalIncome = parseDec(income)
	s.BeginningBalance = parseDec(begin)
	s.EndingBalance = parseDec(end)
	s.NetWorth = parseDec(net)
	s.CreatedAt = parseTime(created)
	return &s, nil
}

func (q queries) MarkSnapshotsStale(ctx context.Context, user ledger.UserID, period ledger.YearMonth) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE account_month_snapshots SET is_stale = TRUE WHERE user_id = ? AND year = ? AND month = ?`,
		user, period.Year, int(period.Month),
	)
	if err != nil {
		return fmt.Errorf("failed to mark account snapshots stale: %w", err)
	}
	_, err = q.db.ExecContext(ctx,
		`UPDATE dashboard_month_snapshots SET is_stale = TRUE WHERE user_id = ? AND year = ? AND month = ?`,
		user, period.Year, int(period.Month),
	)
	if err != nil {
		return fmt.Errorf("failed to mark dashboard snapshots stale: %w", err)
	}
	return nil
}

// =============================================================================
// CLOSE LOG - Append-only
// =============================================================================

func (q queries) AppendCloseRecord(ctx context.Context, r ledger.CloseRecord) error {
	if r.ClosedAt.IsZero() {
		r.ClosedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO close_month_master (id, user_id, closed_year, closed_month, closed_at, closed_by, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Period.Year, int(r.Period.Month),
		fmtTime(r.ClosedAt), r.ClosedBy, r.Notes,
	)
	if isUniqueConstraintError(err) {
		return &ledger.ConsistencyError{Period: r.Period, Cause: err}
	}
	if err != nil {
		return fmt.Errorf("failed to append close record: %w", err)
	}
	return nil
}

func (q queries) CloseRecords(ctx context.Context, user ledger.UserID) ([]ledger.CloseRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, closed_year, closed_month, closed_at, closed_by, notes
		FROM close_month_master
		WHERE user_id = ?
		ORDER BY closed_year, closed_month`,
		user,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query close records: %w", err)
	}
	defer rows.Close()

	var out []ledger.CloseRecord
	for rows.Next() {
		var r ledger.CloseRecord
		var year, month int
		var closed string
		var by, notes sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &year, &month, &closed, &by, &notes); err != nil {
			return nil, err
		}
		r.Period = ledger.NewYearMonth(year, time.Month(month))
		r.ClosedAt = parseTime(closed)
		r.ClosedBy = by.String
		r.Notes = notes.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q queries) HasCloseRecord(ctx context.Context, user ledger.UserID, period ledger.YearMonth) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM close_month_master WHERE user_id = ? AND closed_year = ? AND closed_month = ?`,
		user, period.Year, int(period.Month),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check close record: %w", err)
	}
	return count > 0, nil
}
