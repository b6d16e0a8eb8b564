package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trackspend/expense-tracker/internal"
	"github.com/trackspend/expense-tracker/internal/auth"
	authblob "github.com/trackspend/expense-tracker/internal/auth/blob"
	"github.com/trackspend/expense-tracker/internal/expense"
	expenseblob "github.com/trackspend/expense-tracker/internal/expense/blob"
	"github.com/trackspend/expense-tracker/internal/schedule"
	scheduleblob "github.com/trackspend/expense-tracker/internal/schedule/blob"
	"github.com/trackspend/expense-tracker/internal/storage"
	"github.com/trackspend/expense-tracker/internal/transport/rest"
	"github.com/trackspend/expense-tracker/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	Store     storage.DocStore
	Files     storage.FileStore
	Router    *chi.Mux
	Scheduler *schedule.Scheduler
	Logger    *slog.Logger

	AuthHandler     *auth.Handler
	ExpenseHandler  *expense.Handler
	ScheduleHandler *schedule.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.Store, deps.Scheduler,
		deps.AuthHandler, deps.ExpenseHandler, deps.ScheduleHandler, deps.Logger)

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()

	if deps.Config.Scheduler.Enabled {
		deps.Scheduler.Start(schedulerCtx)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.Scheduler.Stop()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	store, files, err := initStorage(config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	loc := config.Storage.Location()
	locks := storage.NewKeyLock()

	userRepo := authblob.NewUserRepository(store, locks)
	expenseRepo := expenseblob.NewExpenseRepository(store, locks, loc)
	scheduleRepo := scheduleblob.NewScheduleRepository(store, locks, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenTTL,
		config.Security.RefreshTokenTTL,
	)
	authService := auth.NewService(userRepo, tokenGen, config.Security.BCryptCost, lg)
	expenseService := expense.NewService(expenseRepo, files, lg)
	scheduleService := schedule.NewService(scheduleRepo, loc, lg)

	processor := schedule.NewProcessor(scheduleRepo, expenseRepo, loc, lg)
	scheduler := schedule.NewScheduler(processor, config.Scheduler.Interval, lg)

	return &Dependencies{
		Config:          config,
		Store:           store,
		Files:           files,
		Router:          chi.NewRouter(),
		Scheduler:       scheduler,
		Logger:          lg,
		AuthHandler:     auth.NewHandler(authService),
		ExpenseHandler:  expense.NewHandler(expenseService),
		ScheduleHandler: schedule.NewHandler(scheduleService, processor),
	}, nil
}

// initStorage selects the document store backend. The azure backend
// also ensures the blob container exists before serving traffic.
func initStorage(cfg internal.StorageConfig) (storage.DocStore, storage.FileStore, error) {
	switch cfg.Backend {
	case "memory":
		mem := storage.NewMemoryStore()
		return mem, mem, nil
	case "azure":
		azure, err := storage.NewAzureStore(cfg.ConnectionString, cfg.Container)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create blob client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := azure.EnsureContainer(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to ensure container %q: %w", cfg.Container, err)
		}
		return azure, azure, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
