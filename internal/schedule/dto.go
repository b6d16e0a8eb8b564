package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trackspend/expense-tracker/internal"
)

// CreateFutureExpenseDTO is the request payload for scheduling a
// future expense.
type CreateFutureExpenseDTO struct {
	Title                string                `json:"title"`
	Amount               decimal.Decimal       `json:"amount"`
	Category             string                `json:"category"`
	ScheduledDate        time.Time             `json:"scheduledDate"`
	IsRecurring          bool                  `json:"isRecurring"`
	Recurrence           *Recurrence           `json:"recurrence,omitempty"`
	NotificationSettings *NotificationSettings `json:"notificationSettings,omitempty"`
}

func (dto CreateFutureExpenseDTO) Validate(now time.Time, loc *time.Location) error {
	if dto.Title == "" {
		return internal.NewValidationError("title is required", internal.ErrCodeMissingField)
	}
	if !dto.Amount.IsPositive() {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.ScheduledDate.IsZero() {
		return internal.NewValidationError("scheduledDate is required", internal.ErrCodeMissingField)
	}

	scheduledDay := dto.ScheduledDate.In(loc).Format("2006-01-02")
	today := now.In(loc).Format("2006-01-02")
	if scheduledDay < today {
		return internal.NewValidationError("scheduled date must not be in the past", internal.ErrCodeInvalidDate)
	}

	if dto.IsRecurring {
		if dto.Recurrence == nil {
			return internal.NewValidationError("recurrence rule is required for recurring expenses", internal.ErrCodeInvalidRecurrence)
		}
		switch dto.Recurrence.Type {
		case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		default:
			return internal.NewValidationError("recurrence type must be daily, weekly, monthly or yearly", internal.ErrCodeInvalidRecurrence)
		}
		if dto.Recurrence.Interval <= 0 {
			return internal.NewValidationError("recurrence interval must be a positive integer", internal.ErrCodeInvalidRecurrence)
		}
		if dto.Recurrence.MaxOccurrences < 0 {
			return internal.NewValidationError("maxOccurrences must not be negative", internal.ErrCodeInvalidRecurrence)
		}
	}

	if dto.NotificationSettings != nil && dto.NotificationSettings.DaysBefore < 0 {
		return internal.NewValidationError("daysBefore must not be negative", internal.ErrCodeValidationFailed)
	}

	return nil
}
