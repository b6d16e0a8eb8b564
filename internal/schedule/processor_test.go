package schedule_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/trackspend/expense-tracker/internal/expense"
	expenseblob "github.com/trackspend/expense-tracker/internal/expense/blob"
	"github.com/trackspend/expense-tracker/internal/schedule"
	scheduleblob "github.com/trackspend/expense-tracker/internal/schedule/blob"
	"github.com/trackspend/expense-tracker/internal/storage"
)

// failingAppender rejects writes for the given user and forwards the
// rest, so one bad entry can be simulated inside a batch.
type failingAppender struct {
	inner    schedule.ExpenseAppender
	failUser string
}

func (f *failingAppender) Append(ctx context.Context, exp *expense.Expense) error {
	if exp.UserID == f.failUser {
		return errors.New("store unavailable")
	}
	return f.inner.Append(ctx, exp)
}

var _ = Describe("Processor", func() {
	var (
		ctx         context.Context
		store       *storage.MemoryStore
		scheduleRep schedule.Repository
		expenseRep  expense.Repository
		processor   *schedule.Processor
		lg          *slog.Logger
	)

	loc := time.UTC

	newEntry := func(userID, title string, scheduled time.Time, rule *schedule.Recurrence) *schedule.FutureExpense {
		entry := &schedule.FutureExpense{
			UserID:        userID,
			Title:         title,
			Amount:        decimal.NewFromInt(649),
			Category:      "entertainment",
			ScheduledDate: scheduled,
			IsRecurring:   rule != nil,
			Recurrence:    rule,
			Status:        schedule.StatusScheduled,
		}
		Expect(scheduleRep.Append(ctx, entry)).To(Succeed())
		return entry
	}

	allEntries := func() []*schedule.FutureExpense {
		entries, err := scheduleRep.ListAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		return entries
	}

	userExpenses := func(userID string) []*expense.Expense {
		records, err := expenseRep.ListByUser(ctx, userID)
		Expect(err).NotTo(HaveOccurred())
		return records
	}

	BeforeEach(func() {
		ctx = context.Background()
		lg = slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		store = storage.NewMemoryStore()
		locks := storage.NewKeyLock()
		scheduleRep = scheduleblob.NewScheduleRepository(store, locks, lg)
		expenseRep = expenseblob.NewExpenseRepository(store, locks, loc)
		processor = schedule.NewProcessor(scheduleRep, expenseRep, loc, lg)
	})

	It("should materialize and complete a due one-time entry", func() {
		entry := newEntry("user-1", "Car insurance", day(2026, 3, 1), nil)

		conversions, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(conversions).To(HaveLen(1))
		Expect(conversions[0].FutureExpenseID).To(Equal(entry.ID))
		Expect(conversions[0].UserID).To(Equal("user-1"))

		records := userExpenses("user-1")
		Expect(records).To(HaveLen(1))
		Expect(records[0].Title).To(Equal("Car insurance"))
		Expect(records[0].IsFromFutureExpense).To(BeTrue())
		Expect(records[0].OriginalFutureExpenseID).To(Equal(entry.ID))

		entries := allEntries()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Status).To(Equal(schedule.StatusCompleted))
	})

	It("should skip entries that are not yet due", func() {
		newEntry("user-1", "Rent", day(2026, 3, 10), nil)

		conversions, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 9))
		Expect(err).NotTo(HaveOccurred())
		Expect(conversions).To(BeEmpty())
		Expect(userExpenses("user-1")).To(BeEmpty())
	})

	It("should skip completed and cancelled entries", func() {
		done := newEntry("user-1", "Paid already", day(2026, 3, 1), nil)
		dropped := newEntry("user-1", "Cancelled plan", day(2026, 3, 1), nil)
		Expect(scheduleRep.UpdateStatus(ctx, done.ID, schedule.StatusCompleted)).To(Succeed())
		Expect(scheduleRep.UpdateStatus(ctx, dropped.ID, schedule.StatusCancelled)).To(Succeed())

		conversions, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(conversions).To(BeEmpty())
		Expect(userExpenses("user-1")).To(BeEmpty())
	})

	It("should be a no-op when run twice without time passing", func() {
		newEntry("user-1", "One-time bill", day(2026, 3, 1), nil)

		first, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(1))

		second, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeEmpty())

		Expect(userExpenses("user-1")).To(HaveLen(1))
	})

	It("should advance a recurring entry and keep it scheduled", func() {
		newEntry("user-1", "Gym membership", day(2026, 3, 1), &schedule.Recurrence{
			Type:     schedule.RecurrenceMonthly,
			Interval: 1,
		})

		conversions, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(conversions).To(HaveLen(1))

		entries := allEntries()
		Expect(entries[0].Status).To(Equal(schedule.StatusScheduled))
		Expect(entries[0].ScheduledDate.Month()).To(Equal(time.April))
		Expect(entries[0].Recurrence.CurrentOccurrence).To(Equal(1))
	})

	It("should run a capped subscription to completion over its lifetime", func() {
		newEntry("user-1", "Streaming subscription", day(2026, 3, 5), &schedule.Recurrence{
			Type:           schedule.RecurrenceMonthly,
			Interval:       1,
			MaxOccurrences: 2,
		})

		first, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 5))
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(1))

		entries := allEntries()
		Expect(entries[0].Status).To(Equal(schedule.StatusScheduled))
		Expect(entries[0].ScheduledDate).To(Equal(day(2026, 4, 5)))

		second, err := processor.ProcessDueExpenses(ctx, day(2026, 4, 5))
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(HaveLen(1))

		entries = allEntries()
		Expect(entries[0].Status).To(Equal(schedule.StatusCompleted))

		third, err := processor.ProcessDueExpenses(ctx, day(2026, 5, 5))
		Expect(err).NotTo(HaveOccurred())
		Expect(third).To(BeEmpty())

		records := userExpenses("user-1")
		Expect(records).To(HaveLen(2))
	})

	It("should leave an entry untouched when its materialization fails", func() {
		broken := newEntry("user-broken", "Unreachable partition", day(2026, 3, 1), nil)
		healthy := newEntry("user-ok", "Electricity bill", day(2026, 3, 1), nil)

		failing := schedule.NewProcessor(scheduleRep, &failingAppender{
			inner:    expenseRep,
			failUser: "user-broken",
		}, loc, lg)

		conversions, err := failing.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(conversions).To(HaveLen(1))
		Expect(conversions[0].FutureExpenseID).To(Equal(healthy.ID))

		// The failed entry stays scheduled and a later healthy run
		// picks it up again.
		for _, entry := range allEntries() {
			if entry.ID == broken.ID {
				Expect(entry.Status).To(Equal(schedule.StatusScheduled))
			}
		}

		retried, err := processor.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(retried).To(HaveLen(1))
		Expect(retried[0].FutureExpenseID).To(Equal(broken.ID))
	})

	It("should abort the run when the scheduled collection cannot be read", func() {
		failingStore := storage.NewMemoryStore()
		locks := storage.NewKeyLock()
		repo := scheduleblob.NewScheduleRepository(failingStore, locks, lg)

		entry := &schedule.FutureExpense{
			UserID:        "user-1",
			Title:         "Rent",
			Amount:        decimal.NewFromInt(15000),
			ScheduledDate: day(2026, 3, 1),
			Status:        schedule.StatusScheduled,
		}
		Expect(repo.Append(ctx, entry)).To(Succeed())

		// Corrupt the document so the read fails.
		Expect(failingStore.Put(ctx, "future-expenses", []byte("{not json"))).To(Succeed())

		broken := schedule.NewProcessor(repo, expenseRep, loc, lg)
		_, err := broken.ProcessDueExpenses(ctx, day(2026, 3, 1))
		Expect(err).To(HaveOccurred())
	})
})
