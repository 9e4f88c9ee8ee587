package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/budgethq/budgethq/ledger"
)

// =============================================================================
// RECURRING TEMPLATES
// =============================================================================

func (q queries) SaveRecurringTemplate(ctx context.Context, t ledger.RecurringTemplate) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO recurring_templates (
			id, user_id, kind, account_id, amount, description,
			day_of_month, next_year, next_month, active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			account_id = excluded.account_id,
			amount = excluded.amount,
			description = excluded.description,
			day_of_month = excluded.day_of_month,
			next_year = excluded.next_year,
			next_month = excluded.next_month,
			active = excluded.active`,
		t.ID, t.UserID, string(t.Kind), t.AccountID, t.Amount.String(), t.Description,
		t.DayOfMonth, t.NextRun.Year, int(t.NextRun.Month), t.Active, fmtTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save recurring template: %w", err)
	}
	return nil
}

func (q queries) ListRecurringTemplates(ctx context.Context, user ledger.UserID, activeOnly bool) ([]ledger.RecurringTemplate, error) {
	query := `
		SELECT id, user_id, kind, account_id, amount, description,
		       day_of_month, next_year, next_month, active, created_at
		FROM recurring_templates WHERE user_id = ?`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at`

	rows, err := q.db.QueryContext(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring templates: %w", err)
	}
	defer rows.Close()

	var out []ledger.RecurringTemplate
	for rows.Next() {
		var (
			t               ledger.RecurringTemplate
			kind            string
			amount, created string
			desc            sql.NullString
			year, month     int
		)
		if err := rows.Scan(&t.ID, &t.UserID, &kind, &t.AccountID, &amount, &desc,
			&t.DayOfMonth, &year, &month, &t.Active, &created); err != nil {
			return nil, err
		}
		t.Kind = ledger.EntryKind(kind)
		t.Amount = parseDec(amount)
		t.Description = desc.String
		t.NextRun = ledger.NewYearMonth(year, time.Month(month))
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}
