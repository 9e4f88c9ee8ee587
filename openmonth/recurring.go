package openmonth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/budgethq/budgethq/ledger"
)

// =============================================================================
// RECURRING GENERATOR - Synchronous materialization of template entries
// =============================================================================

// Generator materializes recurring templates into dated payment or
// deposit entries. There is no background scheduler: generation runs
// synchronously when a user or orchestrator asks for it, and the close
// checklist reports templates that have not caught up to period end.
type Generator struct {
	store   ledger.Store
	manager *Manager
}

func NewGenerator(store ledger.Store, manager *Manager) *Generator {
	return &Generator{store: store, manager: manager}
}

// GenerateThrough produces every due entry for the user's active
// templates up to and including the month containing `through`, advancing
// each template's NextRun as it goes. Returns the number of entries
// created.
func (g *Generator) GenerateThrough(ctx context.Context, user ledger.UserID, through ledger.Date) (int, error) {
	lock := g.manager.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	templates, err := g.store.ListRecurringTemplates(ctx, user, true)
	if err != nil {
		return 0, fmt.Errorf("listing recurring templates: %w", err)
	}

	limit := ledger.PeriodOf(through)
	created := 0

	err = g.store.WithTx(ctx, func(tx ledger.Store) error {
		for _, t := range templates {
			run := t.NextRun
			for !run.After(limit) {
				if err := tx.SaveEntry(ctx, g.materialize(t, run)); err != nil {
					return fmt.Errorf("materializing template %s for %s: %w", t.ID, run, err)
				}
				created++
				run = run.Next()
			}
			if !run.Equal(t.NextRun) {
				t.NextRun = run
				if err := tx.SaveRecurringTemplate(ctx, t); err != nil {
					return fmt.Errorf("advancing template %s: %w", t.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		if err := g.markHasDataLocked(ctx, user); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (g *Generator) materialize(t ledger.RecurringTemplate, period ledger.YearMonth) ledger.Entry {
	day := t.DayOfMonth
	if last := period.End().Day(); day > last {
		day = last // e.g. "the 31st" in February
	}
	date := ledger.NewDate(period.Year, period.Month, day)
	now := time.Now().UTC()

	if t.Kind == ledger.KindDeposit {
		return ledger.Deposit{
			ID:          ledger.EntryID(uuid.NewString()),
			UserID:      t.UserID,
			AccountID:   t.AccountID,
			Amount:      t.Amount,
			Date:        date,
			Received:    false,
			Description: t.Description,
			CreatedAt:   now,
		}
	}
	return ledger.Payment{
		ID:          ledger.EntryID(uuid.NewString()),
		UserID:      t.UserID,
		AccountID:   t.AccountID,
		Amount:      t.Amount,
		Date:        date,
		Description: t.Description,
		CreatedAt:   now,
	}
}

// markHasDataLocked mirrors Manager.MarkHasData for callers already
// holding the user lock, and only flips the flag when a generated entry
// actually landed in the open period.
func (g *Generator) markHasDataLocked(ctx context.Context, user ledger.UserID) error {
	s, err := g.manager.forUserLocked(ctx, user)
	if err != nil {
		return err
	}
	if s.HasData {
		return nil
	}
	has, err := g.store.HasEntriesInPeriod(ctx, user, s.Period)
	if err != nil || !has {
		return err
	}
	now := g.manager.Clock().UTC()
	s.HasData = true
	s.FirstDataAt = &now
	s.FirstDataSource = "recurring generator"
	s.UpdatedAt = now
	return g.store.PutOpenMonth(ctx, s)
}
