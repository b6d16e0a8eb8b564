package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/trackspend/expense-tracker/internal/auth"
	"github.com/trackspend/expense-tracker/internal/expense"
	"github.com/trackspend/expense-tracker/internal/schedule"
	"github.com/trackspend/expense-tracker/internal/storage"
	"github.com/trackspend/expense-tracker/internal/transport/middleware"
	"github.com/trackspend/expense-tracker/internal/transport/swagger"
)

func RegisterAllRoutes(router *chi.Mux, store storage.DocStore, scheduler SchedulerStatus, authHandler *auth.Handler, expenseHandler *expense.Handler, scheduleHandler *schedule.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(store, scheduler)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)
		r.Get("/system/status", healthHandler.systemStatusHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/register", authHandler.Register)
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)

				sr.Group(func(pr chi.Router) {
					pr.Use(authHandler.AuthMiddleware)
					pr.Get("/me", authHandler.Me)
				})
			})
		}

		if authHandler != nil && expenseHandler != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				pr.Route("/expenses", func(er chi.Router) {
					er.Post("/", expenseHandler.CreateExpense)
					er.Get("/", expenseHandler.GetExpenses)
					er.Post("/upload", expenseHandler.UploadBill)
					er.Get("/export", expenseHandler.ExportExpenses)
					er.Put("/update/{id}", expenseHandler.UpdateExpense)

					// Scheduled-expense routes sit under /expenses/future
					// and must register before the date wildcard below.
					if scheduleHandler != nil {
						er.Route("/future", func(fr chi.Router) {
							fr.Post("/", scheduleHandler.CreateFutureExpense)
							fr.Get("/", scheduleHandler.GetFutureExpenses)
							fr.Get("/due", scheduleHandler.GetDueFutureExpenses)
							fr.Post("/process", scheduleHandler.ProcessFutureExpenses)
						})
					}

					er.Get("/{date}", expenseHandler.GetByDate)
					er.Delete("/{date}/{id}", expenseHandler.DeleteExpense)
				})
			})
		}
	})
}
