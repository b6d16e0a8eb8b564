package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/trackspend/expense-tracker/internal"
	"github.com/trackspend/expense-tracker/internal/auth"
	authblob "github.com/trackspend/expense-tracker/internal/auth/blob"
	"github.com/trackspend/expense-tracker/internal/expense"
	expenseblob "github.com/trackspend/expense-tracker/internal/expense/blob"
	"github.com/trackspend/expense-tracker/internal/schedule"
	scheduleblob "github.com/trackspend/expense-tracker/internal/schedule/blob"
	"github.com/trackspend/expense-tracker/internal/storage"
	"github.com/trackspend/expense-tracker/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with sample data",
	Long:  `Seed the document store with a demo account and sample expenses for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		logger.Init(os.Getenv("APP_ENV"))
		lg := logger.LoggerWrapper()

		store, _, err := initStorage(cfg.Storage)
		if err != nil {
			log.Fatalf("failed to init storage: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		loc := cfg.Storage.Location()
		locks := storage.NewKeyLock()

		userRepo := authblob.NewUserRepository(store, locks)
		expenseRepo := expenseblob.NewExpenseRepository(store, locks, loc)
		scheduleRepo := scheduleblob.NewScheduleRepository(store, locks, lg)

		demoEmail := "demo@mail.com"
		hash, _ := bcrypt.GenerateFromPassword([]byte("Demo123!pass"), bcrypt.DefaultCost)

		user, err := userRepo.GetByEmail(ctx, demoEmail)
		if err == internal.ErrUserNotFound {
			user = &auth.User{
				Email:        demoEmail,
				Name:         "Demo User",
				PasswordHash: string(hash),
				CreatedAt:    time.Now(),
			}
			if err := userRepo.Create(ctx, user); err != nil {
				log.Fatalf("failed to seed demo user: %v", err)
			}
			fmt.Println("Seeded demo user:", demoEmail)
		} else if err != nil {
			log.Fatalf("failed to check demo user: %v", err)
		} else {
			fmt.Println("demo user already exists:", demoEmail)
		}

		now := time.Now()
		samples := []*expense.Expense{
			{
				UserID:   user.ID,
				Kind:     expense.KindManual,
				Title:    "Groceries",
				Amount:   decimal.NewFromFloat(1240.50),
				Category: "food",
				Date:     now.AddDate(0, 0, -2),
			},
			{
				UserID:   user.ID,
				Kind:     expense.KindManual,
				Title:    "Metro card top-up",
				Amount:   decimal.NewFromInt(500),
				Category: "transport",
				Date:     now.AddDate(0, 0, -1),
			},
		}
		for _, exp := range samples {
			exp.CreatedAt = now
			exp.UpdatedAt = now
			if err := expenseRepo.Append(ctx, exp); err != nil {
				log.Fatalf("failed to seed expense %q: %v", exp.Title, err)
			}
			fmt.Println("Seeded expense:", exp.Title)
		}

		subscription := &schedule.FutureExpense{
			UserID:        user.ID,
			Title:         "Streaming subscription",
			Amount:        decimal.NewFromInt(649),
			Category:      "entertainment",
			ScheduledDate: now.AddDate(0, 0, 7),
			IsRecurring:   true,
			Recurrence: &schedule.Recurrence{
				Type:     schedule.RecurrenceMonthly,
				Interval: 1,
			},
			Status:    schedule.StatusScheduled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := scheduleRepo.Append(ctx, subscription); err != nil {
			log.Fatalf("failed to seed future expense: %v", err)
		}
		fmt.Println("Seeded future expense:", subscription.Title)
	},
}
