package expense

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"github.com/trackspend/expense-tracker/internal"
	"github.com/trackspend/expense-tracker/internal/auth"
	"github.com/trackspend/expense-tracker/internal/transport"
	"github.com/trackspend/expense-tracker/pkg/logger"
)

const maxUploadBytes = 10 << 20

type ServiceAPI interface {
	CreateManual(ctx context.Context, userID string, dto CreateExpenseDTO) (*Expense, error)
	CreateReceipt(ctx context.Context, userID string, dto CreateReceiptDTO, fileName, contentType string, data []byte) (*Expense, error)
	ListForUser(ctx context.Context, userID string) ([]*Expense, error)
	ListByDay(ctx context.Context, userID string, day time.Time) ([]*Expense, error)
	ListByRange(ctx context.Context, userID string, start, end time.Time) ([]*Expense, error)
	Update(ctx context.Context, id, userID string, dto UpdateExpenseDTO) (*Expense, error)
	Delete(ctx context.Context, userID, dayHint, id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
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

// CreateExpense handles POST /api/expenses for manual entries.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.CreateManual(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, exp)
}

// UploadBill handles POST /api/expenses/upload. The multipart form
// carries one or more files under billFiles plus the receipt fields;
// each file becomes its own expense record.
func (h *Handler) UploadBill(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["billFiles"]
	if len(files) == 0 {
		h.HandleServiceError(w, internal.NewValidationError("at least one bill file is required", internal.ErrCodeMissingField))
		return
	}

	dto, err := receiptDTOFromForm(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	created := make([]*Expense, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		file.Close()
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		exp, err := h.Service.CreateReceipt(r.Context(), user.ID, dto, header.Filename, contentType, data)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		created = append(created, exp)
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Bills uploaded successfully",
		"expenses": created,
	})
}

// GetExpenses handles GET /api/expenses.
func (h *Handler) GetExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	expenses, err := h.Service.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, expenses)
}

// GetByDate handles GET /api/expenses/{date} where date is YYYY-MM-DD.
func (h *Handler) GetByDate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	day, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		h.HandleServiceError(w, internal.NewValidationError("date must be in YYYY-MM-DD format", internal.ErrCodeInvalidDate))
		return
	}

	expenses, err := h.Service.ListByDay(r.Context(), user.ID, day)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, expenses)
}

// ExportExpenses handles GET /api/expenses/export. Both startDate and
// endDate query parameters are required.
func (h *Handler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	startRaw := r.URL.Query().Get("startDate")
	endRaw := r.URL.Query().Get("endDate")
	if startRaw == "" || endRaw == "" {
		h.HandleServiceError(w, internal.NewValidationError("startDate and endDate are required", internal.ErrCodeMissingField))
		return
	}

	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		h.HandleServiceError(w, internal.NewValidationError("startDate must be in YYYY-MM-DD format", internal.ErrCodeInvalidDate))
		return
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		h.HandleServiceError(w, internal.NewValidationError("endDate must be in YYYY-MM-DD format", internal.ErrCodeInvalidDate))
		return
	}
	if end.Before(start) {
		h.HandleServiceError(w, internal.NewValidationError("endDate must not be before startDate", internal.ErrCodeInvalidDate))
		return
	}

	expenses, err := h.Service.ListByRange(r.Context(), user.ID, start, end)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"startDate": startRaw,
		"endDate":   endRaw,
		"count":     len(expenses),
		"expenses":  expenses,
	})
}

// UpdateExpense handles PUT /api/expenses/update/{id}.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, "expense id is required")
		return
	}

	var dto UpdateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.Update(r.Context(), id, user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

// DeleteExpense handles DELETE /api/expenses/{date}/{id}. The date
// segment is a hint to the owning day partition.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	dayHint := chi.URLParam(r, "date")
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, "expense id is required")
		return
	}

	if err := h.Service.Delete(r.Context(), user.ID, dayHint, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Expense deleted successfully",
	})
}

func receiptDTOFromForm(r *http.Request) (CreateReceiptDTO, error) {
	var dto CreateReceiptDTO

	dto.Supermarket = r.FormValue("supermarket")
	dto.Category = r.FormValue("category")

	rawAmount := r.FormValue("amount")
	if rawAmount == "" {
		return dto, internal.NewValidationError("amount is required", internal.ErrCodeMissingField)
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return dto, internal.NewValidationError("amount must be a number", internal.ErrCodeInvalidAmount)
	}
	dto.Amount = amount

	if rawDate := r.FormValue("date"); rawDate != "" {
		date, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			return dto, internal.NewValidationError("date must be in YYYY-MM-DD format", internal.ErrCodeInvalidDate)
		}
		dto.Date = date
	}

	return dto, nil
}
