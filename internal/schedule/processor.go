package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trackspend/expense-tracker/internal"
	"github.com/trackspend/expense-tracker/internal/expense"
)

// ExpenseAppender is the slice of the expense store the processor
// needs: appending one materialized record to its day partition.
type ExpenseAppender interface {
	Append(ctx context.Context, exp *expense.Expense) error
}

// Conversion reports one materialized scheduled expense.
type Conversion struct {
	FutureExpenseID string           `json:"futureExpenseId"`
	UserID          string           `json:"userId"`
	Expense         *expense.Expense `json:"createdExpense"`
}

// Processor runs the due-expense cycle: scan the scheduled collection,
// materialize each due entry into a realized expense, then advance the
// recurrence or complete the entry. Runs are mutually exclusive so a
// manual trigger never overlaps the periodic one.
type Processor struct {
	repo     Repository
	expenses ExpenseAppender
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time

	runMu sync.Mutex
}

func NewProcessor(repo Repository, expenses ExpenseAppender, loc *time.Location, logger *slog.Logger) *Processor {
	if loc == nil {
		loc = time.Local
	}
	return &Processor{
		repo:     repo,
		expenses: expenses,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessDueExpenses materializes every due entry as of the given
// reference time and returns the successful conversions.
//
// A failed materialization leaves its entry untouched so the next run
// retries it; one bad entry never aborts the batch. Only a failure to
// read the scheduled collection itself is fatal for the run. Running
// twice without time passing is a no-op the second time: one-shot
// entries complete, and advanced recurring entries are no longer due.
func (p *Processor) ProcessDueExpenses(ctx context.Context, asOf time.Time) ([]Conversion, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	entries, err := p.repo.ListAll(ctx)
	if err != nil {
		p.logger.Error("processing run aborted: cannot load scheduled expenses", "error", err)
		return nil, internal.NewStoreError("failed to load future expenses", err)
	}

	var conversions []Conversion
	for _, entry := range entries {
		if !entry.IsDue(asOf, p.loc) {
			continue
		}

		conv, err := p.processEntry(ctx, entry)
		if err != nil {
			p.logger.Error("failed to process due expense, will retry next run",
				"future_expense_id", entry.ID,
				"user_id", entry.UserID,
				"error", err)
			continue
		}
		conversions = append(conversions, conv)
	}

	p.logger.Info("processing run finished",
		"as_of", asOf.In(p.loc).Format("2006-01-02"),
		"scanned", len(entries),
		"materialized", len(conversions))

	return conversions, nil
}

// processEntry materializes one entry and applies its state
// transition. The realized record is written first; the schedule
// mutation follows only on success, so a store failure between the two
// at worst repeats the entry on the next run.
func (p *Processor) processEntry(ctx context.Context, entry *FutureExpense) (Conversion, error) {
	now := p.now()

	materialized := &expense.Expense{
		UserID:                  entry.UserID,
		Kind:                    expense.KindManual,
		Title:                   entry.Title,
		Amount:                  entry.Amount,
		Category:                entry.Category,
		Date:                    entry.ScheduledDate,
		IsFromFutureExpense:     true,
		OriginalFutureExpenseID: entry.ID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := p.expenses.Append(ctx, materialized); err != nil {
		return Conversion{}, err
	}

	if entry.IsRecurring && entry.Recurrence != nil {
		if next, ok := NextOccurrence(entry.ScheduledDate, entry.Recurrence); ok {
			if err := p.repo.AdvanceSchedule(ctx, entry.ID, next); err != nil {
				return Conversion{}, err
			}
			entry.Advance(next, now)

			p.logger.Info("recurring expense advanced",
				"future_expense_id", entry.ID,
				"next_date", next.In(p.loc).Format("2006-01-02"),
				"occurrence", entry.Recurrence.CurrentOccurrence)
		} else {
			if err := p.repo.UpdateStatus(ctx, entry.ID, StatusCompleted); err != nil {
				return Conversion{}, err
			}
			entry.Complete(now)

			p.logger.Info("recurring expense completed", "future_expense_id", entry.ID)
		}
	} else {
		if err := p.repo.UpdateStatus(ctx, entry.ID, StatusCompleted); err != nil {
			return Conversion{}, err
		}
		entry.Complete(now)

		p.logger.Info("one-time expense completed", "future_expense_id", entry.ID)
	}

	return Conversion{
		FutureExpenseID: entry.ID,
		UserID:          entry.UserID,
		Expense:         materialized,
	}, nil
}
