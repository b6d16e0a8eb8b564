package schedule

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/trackspend/expense-tracker/internal"
)

// Repository defines data access for the single future-expenses
// document. UpdateStatus and AdvanceSchedule are no-ops when the id is
// missing: the entry was processed or removed by another path, which
// is not an error for an at-least-once processor.
type Repository interface {
	Append(ctx context.Context, entry *FutureExpense) error
	ListAll(ctx context.Context) ([]*FutureExpense, error)
	ListByUser(ctx context.Context, userID string) ([]*FutureExpense, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	AdvanceSchedule(ctx context.Context, id string, next time.Time) error
}

// Service handles scheduled-expense business logic.
type Service struct {
	repo   Repository
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:   repo,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Create schedules a future expense. Status starts as scheduled and
// the occurrence counter at zero.
func (s *Service) Create(ctx context.Context, userID string, dto CreateFutureExpenseDTO) (*FutureExpense, error) {
	now := s.now()

	if err := dto.Validate(now, s.loc); err != nil {
		s.logger.Error("future expense validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	entry := &FutureExpense{
		UserID:        userID,
		Title:         dto.Title,
		Amount:        dto.Amount,
		Category:      dto.Category,
		ScheduledDate: dto.ScheduledDate,
		IsRecurring:   dto.IsRecurring,
		Status:        StatusScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if dto.IsRecurring {
		rule := *dto.Recurrence
		rule.CurrentOccurrence = 0
		entry.Recurrence = &rule
	}
	if dto.NotificationSettings != nil {
		entry.NotificationSettings = *dto.NotificationSettings
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("failed to save future expense", "error", err, "user_id", userID)
		return nil, internal.NewStoreError("failed to save future expense", err)
	}

	s.logger.Info("future expense scheduled",
		"future_expense_id", entry.ID,
		"user_id", userID,
		"scheduled_date", entry.ScheduledDate,
		"recurring", entry.IsRecurring)

	return entry, nil
}

// ListForUser returns the user's scheduled expenses, earliest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*FutureExpense, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list future expenses", "error", err, "user_id", userID)
		return nil, internal.NewStoreError("failed to load future expenses", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ScheduledDate.Before(entries[j].ScheduledDate)
	})
	return entries, nil
}

// ListDue returns scheduled entries due on or before asOf, optionally
// restricted to one user.
func (s *Service) ListDue(ctx context.Context, asOf time.Time, userID string) ([]*FutureExpense, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to load future expenses", "error", err)
		return nil, internal.NewStoreError("failed to load future expenses", err)
	}

	due := make([]*FutureExpense, 0, len(entries))
	for _, entry := range entries {
		if userID != "" && entry.UserID != userID {
			continue
		}
		if entry.IsDue(asOf, s.loc) {
			due = append(due, entry)
		}
	}
	return due, nil
}
