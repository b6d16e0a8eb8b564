package schedule_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/trackspend/expense-tracker/internal"
	scheduleblob "github.com/trackspend/expense-tracker/internal/schedule/blob"
	"github.com/trackspend/expense-tracker/internal/storage"

	"github.com/trackspend/expense-tracker/internal/schedule"
)

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		service *schedule.Service
		repo    schedule.Repository
	)

	loc := time.UTC

	BeforeEach(func() {
		ctx = context.Background()
		lg := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		store := storage.NewMemoryStore()
		repo = scheduleblob.NewScheduleRepository(store, storage.NewKeyLock(), lg)
		service = schedule.NewService(repo, loc, lg)
	})

	futureDate := time.Now().AddDate(0, 1, 0)

	Describe("Create", func() {
		It("should schedule a one-time future expense", func() {
			entry, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Car insurance",
				Amount:        decimal.NewFromInt(12000),
				Category:      "insurance",
				ScheduledDate: futureDate,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(entry.ID).NotTo(BeEmpty())
			Expect(entry.Status).To(Equal(schedule.StatusScheduled))
			Expect(entry.IsRecurring).To(BeFalse())
		})

		It("should reset the occurrence counter on a recurring entry", func() {
			entry, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Netflix",
				Amount:        decimal.NewFromInt(649),
				ScheduledDate: futureDate,
				IsRecurring:   true,
				Recurrence: &schedule.Recurrence{
					Type:              schedule.RecurrenceMonthly,
					Interval:          1,
					CurrentOccurrence: 7,
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Recurrence.CurrentOccurrence).To(Equal(0))
		})

		It("should reject a missing title", func() {
			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Amount:        decimal.NewFromInt(100),
				ScheduledDate: futureDate,
			})
			expectValidation(err)
		})

		It("should reject a non-positive amount", func() {
			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Rent",
				Amount:        decimal.Zero,
				ScheduledDate: futureDate,
			})
			expectValidation(err)
		})

		It("should reject a scheduled date in the past", func() {
			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Rent",
				Amount:        decimal.NewFromInt(100),
				ScheduledDate: time.Now().AddDate(0, 0, -2),
			})
			expectValidation(err)
		})

		It("should accept a scheduled date of today", func() {
			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Rent",
				Amount:        decimal.NewFromInt(100),
				ScheduledDate: time.Now(),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject a recurring entry without a rule", func() {
			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Gym",
				Amount:        decimal.NewFromInt(100),
				ScheduledDate: futureDate,
				IsRecurring:   true,
			})
			expectValidation(err)
		})

		It("should reject an unknown recurrence type", func() {
			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Gym",
				Amount:        decimal.NewFromInt(100),
				ScheduledDate: futureDate,
				IsRecurring:   true,
				Recurrence: &schedule.Recurrence{
					Type:     "quarterly",
					Interval: 1,
				},
			})
			expectValidation(err)
		})

		It("should reject a negative daysBefore", func() {
			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title:         "Gym",
				Amount:        decimal.NewFromInt(100),
				ScheduledDate: futureDate,
				NotificationSettings: &schedule.NotificationSettings{
					Enabled:    true,
					DaysBefore: -1,
				},
			})
			expectValidation(err)
		})
	})

	Describe("ListForUser", func() {
		It("should return only the user's entries, earliest first", func() {
			later := futureDate.AddDate(0, 1, 0)

			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title: "Later", Amount: decimal.NewFromInt(10), ScheduledDate: later,
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title: "Sooner", Amount: decimal.NewFromInt(10), ScheduledDate: futureDate,
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, "user-2", schedule.CreateFutureExpenseDTO{
				Title: "Other user", Amount: decimal.NewFromInt(10), ScheduledDate: futureDate,
			})
			Expect(err).NotTo(HaveOccurred())

			entries, err := service.ListForUser(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Title).To(Equal("Sooner"))
			Expect(entries[1].Title).To(Equal("Later"))
		})
	})

	Describe("ListDue", func() {
		It("should return due entries for one user only", func() {
			today := time.Now()

			_, err := service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title: "Due now", Amount: decimal.NewFromInt(10), ScheduledDate: today,
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, "user-1", schedule.CreateFutureExpenseDTO{
				Title: "Not yet", Amount: decimal.NewFromInt(10), ScheduledDate: futureDate,
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, "user-2", schedule.CreateFutureExpenseDTO{
				Title: "Someone else", Amount: decimal.NewFromInt(10), ScheduledDate: today,
			})
			Expect(err).NotTo(HaveOccurred())

			due, err := service.ListDue(ctx, today, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(due).To(HaveLen(1))
			Expect(due[0].Title).To(Equal("Due now"))
		})
	})
})

var _ = Describe("ScheduleRepository", func() {
	var (
		ctx  context.Context
		repo schedule.Repository
	)

	BeforeEach(func() {
		ctx = context.Background()
		lg := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		repo = scheduleblob.NewScheduleRepository(storage.NewMemoryStore(), storage.NewKeyLock(), lg)
	})

	It("should assign an id on append", func() {
		entry := &schedule.FutureExpense{
			UserID:        "user-1",
			Title:         "Rent",
			Amount:        decimal.NewFromInt(15000),
			ScheduledDate: day(2026, 4, 1),
			Status:        schedule.StatusScheduled,
		}
		Expect(repo.Append(ctx, entry)).To(Succeed())
		Expect(entry.ID).NotTo(BeEmpty())
	})

	It("should treat a status update for a missing id as a no-op", func() {
		Expect(repo.UpdateStatus(ctx, "no-such-id", schedule.StatusCompleted)).To(Succeed())
	})

	It("should treat an advance for a missing id as a no-op", func() {
		Expect(repo.AdvanceSchedule(ctx, "no-such-id", day(2026, 4, 1))).To(Succeed())
	})

	It("should round-trip the recurrence rule", func() {
		end := day(2026, 12, 31)
		entry := &schedule.FutureExpense{
			UserID:        "user-1",
			Title:         "Subscription",
			Amount:        decimal.NewFromInt(649),
			ScheduledDate: day(2026, 4, 1),
			IsRecurring:   true,
			Recurrence: &schedule.Recurrence{
				Type:           schedule.RecurrenceMonthly,
				Interval:       2,
				EndDate:        &end,
				MaxOccurrences: 4,
			},
			Status: schedule.StatusScheduled,
		}
		Expect(repo.Append(ctx, entry)).To(Succeed())

		entries, err := repo.ListAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Recurrence).NotTo(BeNil())
		Expect(entries[0].Recurrence.Interval).To(Equal(2))
		Expect(entries[0].Recurrence.MaxOccurrences).To(Equal(4))
		Expect(entries[0].Recurrence.EndDate.Equal(end)).To(BeTrue())
	})
})

func expectValidation(err error) {
	Expect(err).To(HaveOccurred())
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue())
	Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
}
