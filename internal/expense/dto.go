package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trackspend/expense-tracker/internal"
)

// CreateExpenseDTO is the request payload for a manual expense.
type CreateExpenseDTO struct {
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     time.Time       `json:"date"`
}

func (dto CreateExpenseDTO) Validate() error {
	if dto.Title == "" {
		return internal.NewValidationError("title is required", internal.ErrCodeMissingField)
	}
	if !dto.Amount.IsPositive() {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	return nil
}

// CreateReceiptDTO is the form payload accompanying a bill upload.
type CreateReceiptDTO struct {
	Supermarket string          `json:"supermarket"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
}

func (dto CreateReceiptDTO) Validate() error {
	if dto.Supermarket == "" {
		return internal.NewValidationError("supermarket is required", internal.ErrCodeMissingField)
	}
	if !dto.Amount.IsPositive() {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	return nil
}

// UpdateExpenseDTO is a patch: nil fields keep their prior values.
// File-attachment metadata is not patchable and always survives edits.
type UpdateExpenseDTO struct {
	Title       *string          `json:"title,omitempty"`
	Supermarket *string          `json:"supermarket,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
}

func (dto UpdateExpenseDTO) Validate() error {
	if dto.Amount != nil && !dto.Amount.IsPositive() {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.Date != nil && dto.Date.IsZero() {
		return internal.NewValidationError("date must be a valid date", internal.ErrCodeInvalidDate)
	}
	return nil
}

// Apply merges the patch into an expense, leaving unset fields alone.
func (dto UpdateExpenseDTO) Apply(e *Expense) {
	if dto.Title != nil {
		e.Title = *dto.Title
	}
	if dto.Supermarket != nil {
		e.Supermarket = *dto.Supermarket
	}
	if dto.Amount != nil {
		e.Amount = *dto.Amount
	}
	if dto.Category != nil {
		e.Category = *dto.Category
	}
	if dto.Date != nil {
		e.Date = *dto.Date
	}
}
