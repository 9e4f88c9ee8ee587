package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/budgethq/budgethq/ledger"
)

// queries holds every ledger.Store method except WithTx, so the plain
// store and the transactional view share one implementation.
type queries struct {
	db dbtx
}

// =============================================================================
// ACCOUNT STORE
// =============================================================================

func (q queries) SaveAccount(ctx context.Context, a ledger.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, beginning_balance, cached_balance, created_on, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cached_balance = excluded.cached_balance,
			deleted_at = excluded.deleted_at
	`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.Name,
		a.BeginningBalance.String(),
		a.CachedBalance.String(),
		a.CreatedOn.String(),
		fmtTime(createdAt),
		nullTime(a.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (q queries) GetAccount(ctx context.Context, user ledger.UserID, id ledger.AccountID) (*ledger.Account, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, beginning_balance, cached_balance, created_on, created_at, deleted_at
		FROM accounts
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		id, user,
	)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (q queries) ListAccounts(ctx context.Context, user ledger.UserID) ([]ledger.Account, error) {
	return q.queryAccounts(ctx, `
		SELECT id, user_id, name, beginning_balance, cached_balance, created_on, created_at, deleted_at
		FROM accounts
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY name`,
		user,
	)
}

func (q queries) AccountsCreatedThrough(ctx context.Context, user ledger.UserID, asOf ledger.Date) ([]ledger.Account, error) {
	return q.queryAccounts(ctx, `
		SELECT id, user_id, name, beginning_balance, cached_balance, created_on, created_at, deleted_at
		FROM accounts
		WHERE user_id = ? AND deleted_at IS NULL AND created_on <= ?
		ORDER BY id`,
		user, asOf.String(),
	)
}

func (q queries) SoftDeleteAccount(ctx context.Context, user ledger.UserID, id ledger.AccountID) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		fmtTime(time.Now()), id, user,
	)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (q queries) queryAccounts(ctx context.Context, query string, args ...any) ([]ledger.Account, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*ledger.Account, error) {
	var (
		a                  ledger.Account
		beginning, cached  string
		createdOn, created string
		deletedAt          sql.NullString
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &beginning, &cached, &createdOn, &created, &deletedAt)
	if err != nil {
		return nil, err
	}
	a.BeginningBalance = parseDec(beginning)
	a.CachedBalance = parseDec(cached)
	a.CreatedOn = parseDate(createdOn)
	a.CreatedAt = parseTime(created)
	a.DeletedAt = scanNullTime(deletedAt)
	return &a, nil
}
