package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trackspend/expense-tracker/internal/schedule"
	"github.com/trackspend/expense-tracker/internal/storage"
)

const documentKey = "future-expenses"

// ScheduleRepository implements schedule.Repository on the document
// store. All scheduled expenses share the single future-expenses JSON
// document; every mutation holds its key lock across the whole
// read-modify-write cycle.
type ScheduleRepository struct {
	store  storage.DocStore
	locks  *storage.KeyLock
	logger *slog.Logger
}

func NewScheduleRepository(store storage.DocStore, locks *storage.KeyLock, logger *slog.Logger) schedule.Repository {
	return &ScheduleRepository{store: store, locks: locks, logger: logger}
}

func (r *ScheduleRepository) readAll(ctx context.Context) ([]*schedule.FutureExpense, error) {
	data, err := r.store.Get(ctx, documentKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return []*schedule.FutureExpense{}, nil
		}
		return nil, err
	}

	var entries []*schedule.FutureExpense
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed future-expenses document: %w", err)
	}
	return entries, nil
}

func (r *ScheduleRepository) writeAll(ctx context.Context, entries []*schedule.FutureExpense) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return r.store.Put(ctx, documentKey, data)
}

func (r *ScheduleRepository) Append(ctx context.Context, entry *schedule.FutureExpense) error {
	release := r.locks.Acquire(documentKey)
	defer release()

	entries, err := r.readAll(ctx)
	if err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entries = append(entries, entry)

	return r.writeAll(ctx, entries)
}

func (r *ScheduleRepository) ListAll(ctx context.Context) ([]*schedule.FutureExpense, error) {
	return r.readAll(ctx)
}

func (r *ScheduleRepository) ListByUser(ctx context.Context, userID string) ([]*schedule.FutureExpense, error) {
	entries, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*schedule.FutureExpense, 0, len(entries))
	for _, entry := range entries {
		if entry.UserID == userID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// UpdateStatus sets the status of one entry. A missing id is logged
// and ignored: the entry was already processed or removed concurrently.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id string, status schedule.Status) error {
	return r.mutate(ctx, id, func(entry *schedule.FutureExpense, now time.Time) {
		entry.Status = status
		entry.UpdatedAt = now
	})
}

// AdvanceSchedule moves a recurring entry to its next date and bumps
// the occurrence counter. A missing id is logged and ignored.
func (r *ScheduleRepository) AdvanceSchedule(ctx context.Context, id string, next time.Time) error {
	return r.mutate(ctx, id, func(entry *schedule.FutureExpense, now time.Time) {
		entry.ScheduledDate = next
		entry.UpdatedAt = now
		if entry.Recurrence != nil {
			entry.Recurrence.CurrentOccurrence++
		}
	})
}

func (r *ScheduleRepository) mutate(ctx context.Context, id string, apply func(*schedule.FutureExpense, time.Time)) error {
	release := r.locks.Acquire(documentKey)
	defer release()

	entries, err := r.readAll(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.ID == id {
			apply(entry, time.Now())
			return r.writeAll(ctx, entries)
		}
	}

	r.logger.Warn("future expense not found for update, skipping", "future_expense_id", id)
	return nil
}
