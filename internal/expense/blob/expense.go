package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trackspend/expense-tracker/internal"
	"github.com/trackspend/expense-tracker/internal/expense"
	"github.com/trackspend/expense-tracker/internal/storage"
)

const partitionPrefix = "expenses-"

// ExpenseRepository implements expense.Repository on the document
// store. Each calendar day owns one JSON array document keyed
// expenses-YYYY-MM-DD; mutations hold the partition's key lock for
// the whole read-modify-write cycle.
type ExpenseRepository struct {
	store storage.DocStore
	locks *storage.KeyLock
	loc   *time.Location
}

func NewExpenseRepository(store storage.DocStore, locks *storage.KeyLock, loc *time.Location) expense.Repository {
	if loc == nil {
		loc = time.Local
	}
	return &ExpenseRepository{store: store, locks: locks, loc: loc}
}

func (r *ExpenseRepository) partitionKey(t time.Time) string {
	return partitionPrefix + t.In(r.loc).Format("2006-01-02")
}

func (r *ExpenseRepository) readPartition(ctx context.Context, key string) ([]*expense.Expense, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if err == storage.ErrNotFound {
			return []*expense.Expense{}, nil
		}
		return nil, err
	}

	var records []*expense.Expense
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("malformed partition document %s: %w", key, err)
	}
	return records, nil
}

func (r *ExpenseRepository) writePartition(ctx context.Context, key string, records []*expense.Expense) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return r.store.Put(ctx, key, data)
}

// Append adds a record to its day partition, assigning an id when the
// caller has not set one.
func (r *ExpenseRepository) Append(ctx context.Context, exp *expense.Expense) error {
	key := r.partitionKey(exp.Date)

	release := r.locks.Acquire(key)
	defer release()

	records, err := r.readPartition(ctx, key)
	if err != nil {
		return err
	}

	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	records = append(records, exp)

	return r.writePartition(ctx, key, records)
}

// ListByUser scans every day partition and returns the user's records
// sorted by date, newest first.
func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string) ([]*expense.Expense, error) {
	keys, err := r.store.ListKeys(ctx, partitionPrefix)
	if err != nil {
		return nil, err
	}

	var result []*expense.Expense
	for _, key := range keys {
		records, err := r.readPartition(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if rec.UserID == userID {
				result = append(result, rec)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

func (r *ExpenseRepository) ListByDay(ctx context.Context, day time.Time, userID string) ([]*expense.Expense, error) {
	records, err := r.readPartition(ctx, r.partitionKey(day))
	if err != nil {
		return nil, err
	}

	result := make([]*expense.Expense, 0, len(records))
	for _, rec := range records {
		if rec.UserID == userID {
			result = append(result, rec)
		}
	}
	return result, nil
}

// FindByID scans partitions for the record, since the owning day is
// not known a priori.
func (r *ExpenseRepository) FindByID(ctx context.Context, id string) (*expense.Expense, error) {
	_, rec, err := r.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Replace rewrites the partition holding the record's current copy.
// The record stays in its original partition even when the patched
// date names a different day, matching the persisted layout's rule
// that the filing day is fixed at creation.
func (r *ExpenseRepository) Replace(ctx context.Context, exp *expense.Expense) error {
	key, _, err := r.locate(ctx, exp.ID)
	if err != nil {
		return err
	}

	release := r.locks.Acquire(key)
	defer release()

	records, err := r.readPartition(ctx, key)
	if err != nil {
		return err
	}

	for i, rec := range records {
		if rec.ID == exp.ID {
			records[i] = exp
			return r.writePartition(ctx, key, records)
		}
	}
	return internal.ErrExpenseNotFound
}

// Delete removes the record, trying the hinted day partition before
// falling back to a full scan. It returns the removed record so the
// caller can clean up any attached file.
func (r *ExpenseRepository) Delete(ctx context.Context, dayHint string, id string) (*expense.Expense, error) {
	key := partitionPrefix + dayHint

	if dayHint == "" || !r.partitionHolds(ctx, key, id) {
		foundKey, _, err := r.locate(ctx, id)
		if err != nil {
			return nil, err
		}
		key = foundKey
	}

	release := r.locks.Acquire(key)
	defer release()

	records, err := r.readPartition(ctx, key)
	if err != nil {
		return nil, err
	}

	for i, rec := range records {
		if rec.ID == id {
			records = append(records[:i], records[i+1:]...)
			if err := r.writePartition(ctx, key, records); err != nil {
				return nil, err
			}
			return rec, nil
		}
	}
	return nil, internal.ErrExpenseNotFound
}

// partitionHolds reports whether the hinted partition holds the record.
func (r *ExpenseRepository) partitionHolds(ctx context.Context, key, id string) bool {
	records, err := r.readPartition(ctx, key)
	if err != nil {
		return false
	}
	for _, rec := range records {
		if rec.ID == id {
			return true
		}
	}
	return false
}

func (r *ExpenseRepository) locate(ctx context.Context, id string) (string, *expense.Expense, error) {
	keys, err := r.store.ListKeys(ctx, partitionPrefix)
	if err != nil {
		return "", nil, err
	}

	for _, key := range keys {
		records, err := r.readPartition(ctx, key)
		if err != nil {
			return "", nil, err
		}
		for _, rec := range records {
			if rec.ID == id {
				return key, rec, nil
			}
		}
	}
	return "", nil, internal.ErrExpenseNotFound
}
