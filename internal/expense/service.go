package expense

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trackspend/expense-tracker/internal"
)

// Repository defines the data access methods for realized expenses.
// Records live in one JSON document per calendar day; every mutation
// rewrites the owning partition.
type Repository interface {
	Append(ctx context.Context, exp *Expense) error
	ListByUser(ctx context.Context, userID string) ([]*Expense, error)
	ListByDay(ctx context.Context, day time.Time, userID string) ([]*Expense, error)
	FindByID(ctx context.Context, id string) (*Expense, error)
	Replace(ctx context.Context, exp *Expense) error
	Delete(ctx context.Context, dayHint string, id string) (*Expense, error)
}

// Service handles realized-expense business logic.
type Service struct {
	repo   Repository
	files  FileStore
	logger *slog.Logger
}

// FileStore is the slice of the file store the service needs for
// receipt attachments.
type FileStore interface {
	PutFile(ctx context.Context, name string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, name string) error
}

func NewService(repo Repository, files FileStore, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		files:  files,
		logger: logger,
	}
}

// CreateManual records a manually entered expense.
func (s *Service) CreateManual(ctx context.Context, userID string, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "user_id", userID)
		return nil, err
	}

	now := time.Now()
	date := dto.Date
	if date.IsZero() {
		date = now
	}

	exp := &Expense{
		UserID:    userID,
		Kind:      KindManual,
		Title:     dto.Title,
		Amount:    dto.Amount,
		Category:  dto.Category,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Append(ctx, exp); err != nil {
		s.logger.Error("failed to save expense", "error", err, "user_id", userID)
		return nil, internal.NewStoreError("failed to save expense", err)
	}

	s.logger.Info("expense created",
		"expense_id", exp.ID,
		"user_id", userID,
		"amount", exp.Amount)

	return exp, nil
}

// CreateReceipt stores an uploaded bill file and records the matching
// receipt expense.
func (s *Service) CreateReceipt(ctx context.Context, userID string, dto CreateReceiptDTO, fileName, contentType string, data []byte) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("receipt validation failed", "error", err, "user_id", userID)
		return nil, err
	}
	if len(data) == 0 {
		return nil, internal.NewValidationError("bill file is required", internal.ErrCodeMissingField)
	}

	now := time.Now()
	date := dto.Date
	if date.IsZero() {
		date = now
	}

	blobName := receiptBlobName(date, fileName)
	fileURL, err := s.files.PutFile(ctx, blobName, data, contentType)
	if err != nil {
		s.logger.Error("failed to upload bill file", "error", err, "user_id", userID, "file", fileName)
		return nil, internal.NewStoreError("failed to upload bill file", err)
	}

	exp := &Expense{
		UserID:      userID,
		Kind:        KindReceipt,
		Supermarket: dto.Supermarket,
		Amount:      dto.Amount,
		Category:    dto.Category,
		Date:        date,
		FileURL:     fileURL,
		FileName:    fileName,
		FileType:    contentType,
		FileSize:    int64(len(data)),
		IsImage:     strings.HasPrefix(contentType, "image/"),
		IsPDF:       contentType == "application/pdf",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Append(ctx, exp); err != nil {
		s.logger.Error("failed to save receipt expense", "error", err, "user_id", userID)
		return nil, internal.NewStoreError("failed to save expense", err)
	}

	s.logger.Info("receipt expense created",
		"expense_id", exp.ID,
		"user_id", userID,
		"file", fileName,
		"amount", exp.Amount)

	return exp, nil
}

// ListForUser returns all of a user's expenses, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Expense, error) {
	expenses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "user_id", userID)
		return nil, internal.NewStoreError("failed to load expenses", err)
	}
	return expenses, nil
}

// ListByDay returns the user's expenses filed under one calendar day.
func (s *Service) ListByDay(ctx context.Context, userID string, day time.Time) ([]*Expense, error) {
	expenses, err := s.repo.ListByDay(ctx, day, userID)
	if err != nil {
		s.logger.Error("failed to list expenses by day", "error", err, "user_id", userID)
		return nil, internal.NewStoreError("failed to load expenses", err)
	}
	return expenses, nil
}

// ListByRange filters the user's expenses to [start, end] by calendar
// day, newest first. Used by the export endpoint.
func (s *Service) ListByRange(ctx context.Context, userID string, start, end time.Time) ([]*Expense, error) {
	all, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load expenses for export", "error", err, "user_id", userID)
		return nil, internal.NewStoreError("failed to load expenses", err)
	}

	startDay := start.Format("2006-01-02")
	endDay := end.Format("2006-01-02")

	filtered := make([]*Expense, 0, len(all))
	for _, exp := range all {
		day := exp.Date.Format("2006-01-02")
		if day >= startDay && day <= endDay {
			filtered = append(filtered, exp)
		}
	}
	return filtered, nil
}

// Update merges a patch into an expense owned by userID. Records owned
// by someone else are reported as not found rather than forbidden.
func (s *Service) Update(ctx context.Context, id, userID string, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to load expense for update", "error", err, "expense_id", id)
		return nil, internal.NewStoreError("failed to load expense", err)
	}

	if exp.UserID != userID {
		s.logger.Warn("update denied: expense owned by another user", "expense_id", id, "user_id", userID)
		return nil, internal.ErrExpenseNotFound
	}

	dto.Apply(exp)
	exp.UpdatedAt = time.Now()

	if err := s.repo.Replace(ctx, exp); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, internal.NewStoreError("failed to update expense", err)
	}

	s.logger.Info("expense updated", "expense_id", id, "user_id", userID)
	return exp, nil
}

// Delete removes an expense, trying the hinted day partition first.
// An attached bill file is cleaned up best-effort: a failed file
// delete is logged but does not fail the record deletion.
func (s *Service) Delete(ctx context.Context, userID, dayHint, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		s.logger.Error("failed to load expense for delete", "error", err, "expense_id", id)
		return internal.NewStoreError("failed to load expense", err)
	}

	if existing.UserID != userID {
		s.logger.Warn("delete denied: expense owned by another user", "expense_id", id, "user_id", userID)
		return internal.ErrExpenseNotFound
	}

	exp, err := s.repo.Delete(ctx, dayHint, id)
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return internal.NewStoreError("failed to delete expense", err)
	}

	if exp.HasAttachment() {
		blobName := "bills/" + path.Base(exp.FileURL)
		if err := s.files.DeleteFile(ctx, blobName); err != nil {
			s.logger.Warn("failed to delete bill file", "error", err, "expense_id", id, "file", blobName)
		}
	}

	s.logger.Info("expense deleted", "expense_id", id, "user_id", userID)
	return nil
}

func receiptBlobName(date time.Time, fileName string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, fileName)

	return fmt.Sprintf("bills/%s-%d-%s-%s",
		date.Format("2006-01-02"),
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		sanitized)
}
