package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status values for a scheduled expense. Completed and cancelled are
// terminal; the processor only ever touches scheduled entries.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// Recurrence describes how a scheduled expense repeats. Termination is
// bounded by EndDate, MaxOccurrences, or both; CurrentOccurrence only
// ever increases and never exceeds MaxOccurrences.
type Recurrence struct {
	Type              RecurrenceType `json:"type"`
	Interval          int            `json:"interval"`
	EndDate           *time.Time     `json:"endDate,omitempty"`
	MaxOccurrences    int            `json:"maxOccurrences,omitempty"`
	CurrentOccurrence int            `json:"currentOccurrence"`
}

// NotificationSettings is stored with the entry and consumed by the
// notification layer outside this service.
type NotificationSettings struct {
	Enabled    bool `json:"enabled"`
	DaysBefore int  `json:"daysBefore"`
}

// FutureExpense is a planned, possibly recurring, future obligation.
// ScheduledDate is mutated only by the processor advancing a recurring
// entry; IsRecurring and the rule shape are immutable after creation.
type FutureExpense struct {
	ID                   string               `json:"id"`
	UserID               string               `json:"userId"`
	Title                string               `json:"title"`
	Amount               decimal.Decimal      `json:"amount"`
	Category             string               `json:"category,omitempty"`
	ScheduledDate        time.Time            `json:"scheduledDate"`
	IsRecurring          bool                 `json:"isRecurring"`
	Recurrence           *Recurrence          `json:"recurrence,omitempty"`
	NotificationSettings NotificationSettings `json:"notificationSettings"`
	Status               Status               `json:"status"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// IsDue reports whether the entry should fire on asOf. Comparison is
// on calendar day in loc, not on the instant: any time-of-day on or
// before asOf's day counts as due.
func (f *FutureExpense) IsDue(asOf time.Time, loc *time.Location) bool {
	if f.Status != StatusScheduled {
		return false
	}
	scheduled := f.ScheduledDate.In(loc).Format("2006-01-02")
	reference := asOf.In(loc).Format("2006-01-02")
	return scheduled <= reference
}

// Complete marks the entry terminally done.
func (f *FutureExpense) Complete(now time.Time) {
	f.Status = StatusCompleted
	f.UpdatedAt = now
}

// Advance moves a recurring entry to its next occurrence. The status
// stays scheduled; only the date and the occurrence counter change.
func (f *FutureExpense) Advance(next, now time.Time) {
	f.ScheduledDate = next
	f.UpdatedAt = now
	if f.Recurrence != nil {
		f.Recurrence.CurrentOccurrence++
	}
}
