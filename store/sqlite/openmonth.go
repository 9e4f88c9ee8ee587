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
// OPEN-MONTH STATE - One row per user
// =============================================================================

func (q queries) GetOpenMonth(ctx context.Context, user ledger.UserID) (*ledger.OpenMonthState, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT user_id, current_year, current_month, is_closed, locked_at, locked_by,
		       has_data, first_data_at, first_data_source,
		       reopen_count, last_reopened_at, last_reopened_by,
		       created_at, updated_at
		FROM open_month_states WHERE user_id = ?`, user)

	var s ledger.OpenMonthState
	var year, month int
	var lockedAt, firstAt, reopenedAt sql.NullString
	var lockedBy, firstSrc, reopenBy sql.NullString
	var created, updated string
	err := row.Scan(&s.UserID, &year, &month, &s.IsClosed, &lockedAt, &lockedBy,
		&s.HasData, &firstAt, &firstSrc,
		&s.ReopenCount, &reopenedAt, &reopenBy,
		&created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open month: %w", err)
	}

	s.Period = ledger.NewYearMonth(year, time.Month(month))
	s.LockedAt = scanNullTime(lockedAt)
	s.LockedBy = lockedBy.String
	s.FirstDataAt = scanNullTime(firstAt)
	s.FirstDataSource = firstSrc.String
	s.LastReopenedAt = scanNullTime(reopenedAt)
	s.LastReopenedBy = reopenBy.String
	s.CreatedAt = parseTime(created)
	s.UpdatedAt = parseTime(updated)
	return &s, nil
}

func (q queries) PutOpenMonth(ctx context.Context, s ledger.OpenMonthState) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO open_month_states (
			user_id, current_year, current_month, is_closed, locked_at, locked_by,
			has_data, first_data_at, first_data_source,
			reopen_count, last_reopened_at, last_reopened_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_year = excluded.current_year,
			current_month = excluded.current_month,
			is_closed = excluded.is_closed,
			locked_at = excluded.locked_at,
			locked_by = excluded.locked_by,
			has_data = excluded.has_data,
			first_data_at = excluded.first_data_at,
			first_data_source = excluded.first_data_source,
			reopen_count = excluded.reopen_count,
			last_reopened_at = excluded.last_reopened_at,
			last_reopened_by = excluded.last_reopened_by,
			updated_at = excluded.updated_at`,
		s.UserID, s.Period.Year, int(s.Period.Month), s.IsClosed,
		nullTime(s.LockedAt), s.LockedBy,
		s.HasData, nullTime(s.FirstDataAt), s.FirstDataSource,
		s.ReopenCount, nullTime(s.LastReopenedAt), s.LastReopenedBy,
		fmtTime(s.CreatedAt), fmtTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save open month: %w", err)
	}
	return nil
}
