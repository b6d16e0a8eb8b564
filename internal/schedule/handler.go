package schedule

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/trackspend/expense-tracker/internal/auth"
	"github.com/trackspend/expense-tracker/internal/transport"
	"github.com/trackspend/expense-tracker/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, userID string, dto CreateFutureExpenseDTO) (*FutureExpense, error)
	ListForUser(ctx context.Context, userID string) ([]*FutureExpense, error)
	ListDue(ctx context.Context, asOf time.Time, userID string) ([]*FutureExpense, error)
}

// ProcessorAPI triggers a processing run outside the periodic schedule.
type ProcessorAPI interface {
	ProcessDueExpenses(ctx context.Context, asOf time.Time) ([]Conversion, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	Processor ProcessorAPI
}

func NewHandler(svc ServiceAPI, proc ProcessorAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Processor:   proc,
	}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

// CreateFutureExpense handles POST /api/expenses/future.
func (h *Handler) CreateFutureExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var dto CreateFutureExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.Service.Create(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, entry)
}

// GetFutureExpenses handles GET /api/expenses/future.
func (h *Handler) GetFutureExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}

// GetDueFutureExpenses handles GET /api/expenses/future/due. It reports
// the caller's entries that a processing run would materialize now,
// without mutating anything.
func (h *Handler) GetDueFutureExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	due, err := h.Service.ListDue(r.Context(), time.Now(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(due),
		"dueExpenses": due,
	})
}

// ProcessFutureExpenses handles POST /api/expenses/future/process. It
// runs a full processing cycle immediately and reports the conversions.
func (h *Handler) ProcessFutureExpenses(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	conversions, err := h.Processor.ProcessDueExpenses(r.Context(), time.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Processing completed",
		"processed":   len(conversions),
		"conversions": conversions,
	})
}
