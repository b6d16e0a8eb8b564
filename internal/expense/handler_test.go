package expense_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/trackspend/expense-tracker/internal"
	"github.com/trackspend/expense-tracker/internal/auth"
	"github.com/trackspend/expense-tracker/internal/expense"
)

// mockExpenseService records calls and returns canned results.
type mockExpenseService struct {
	createManualFn  func(ctx context.Context, userID string, dto expense.CreateExpenseDTO) (*expense.Expense, error)
	createReceiptFn func(ctx context.Context, userID string, dto expense.CreateReceiptDTO, fileName, contentType string, data []byte) (*expense.Expense, error)
	listForUserFn   func(ctx context.Context, userID string) ([]*expense.Expense, error)
	listByDayFn     func(ctx context.Context, userID string, day time.Time) ([]*expense.Expense, error)
	listByRangeFn   func(ctx context.Context, userID string, start, end time.Time) ([]*expense.Expense, error)
	updateFn        func(ctx context.Context, id, userID string, dto expense.UpdateExpenseDTO) (*expense.Expense, error)
	deleteFn        func(ctx context.Context, userID, dayHint, id string) error
}

func (m *mockExpenseService) CreateManual(ctx context.Context, userID string, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
	return m.createManualFn(ctx, userID, dto)
}

func (m *mockExpenseService) CreateReceipt(ctx context.Context, userID string, dto expense.CreateReceiptDTO, fileName, contentType string, data []byte) (*expense.Expense, error) {
	return m.createReceiptFn(ctx, userID, dto, fileName, contentType, data)
}

func (m *mockExpenseService) ListForUser(ctx context.Context, userID string) ([]*expense.Expense, error) {
	return m.listForUserFn(ctx, userID)
}

func (m *mockExpenseService) ListByDay(ctx context.Context, userID string, day time.Time) ([]*expense.Expense, error) {
	return m.listByDayFn(ctx, userID, day)
}

func (m *mockExpenseService) ListByRange(ctx context.Context, userID string, start, end time.Time) ([]*expense.Expense, error) {
	return m.listByRangeFn(ctx, userID, start, end)
}

func (m *mockExpenseService) Update(ctx context.Context, id, userID string, dto expense.UpdateExpenseDTO) (*expense.Expense, error) {
	return m.updateFn(ctx, id, userID, dto)
}

func (m *mockExpenseService) Delete(ctx context.Context, userID, dayHint, id string) error {
	return m.deleteFn(ctx, userID, dayHint, id)
}

var _ = Describe("Handler", func() {
	var (
		mock     *mockExpenseService
		router   *chi.Mux
		user     *auth.User
		withAuth func(next http.Handler) http.Handler
	)

	BeforeEach(func() {
		mock = &mockExpenseService{}
		user = &auth.User{ID: "user-1", Email: "test@mail.com"}
		withAuth = func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
			})
		}

		handler := expense.NewHandler(mock)
		router = chi.NewRouter()
		router.Group(func(r chi.Router) {
			r.Use(withAuth)
			r.Post("/expenses", handler.CreateExpense)
			r.Get("/expenses", handler.GetExpenses)
			r.Post("/expenses/upload", handler.UploadBill)
			r.Get("/expenses/export", handler.ExportExpenses)
			r.Put("/expenses/update/{id}", handler.UpdateExpense)
			r.Get("/expenses/{date}", handler.GetByDate)
			r.Delete("/expenses/{date}/{id}", handler.DeleteExpense)
		})
	})

	Describe("CreateExpense", func() {
		It("should create an expense for the authenticated user", func() {
			mock.createManualFn = func(ctx context.Context, userID string, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
				Expect(userID).To(Equal("user-1"))
				return &expense.Expense{ID: "exp-1", UserID: userID, Title: dto.Title, Amount: dto.Amount}, nil
			}

			body, _ := json.Marshal(map[string]any{"title": "Groceries", "amount": "540.75"})
			req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(ContainSubstring(`"id":"exp-1"`))
		})

		It("should map a validation error to 400", func() {
			mock.createManualFn = func(ctx context.Context, userID string, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
				return nil, internal.NewValidationError("title is required", internal.ErrCodeMissingField)
			}

			req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader([]byte(`{}`)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("MISSING_FIELD"))
		})

		It("should hide store failure detail behind a generic 503", func() {
			mock.createManualFn = func(ctx context.Context, userID string, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
				return nil, internal.NewStoreError("failed to save expense", nil)
			}

			req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewReader([]byte(`{"title":"x","amount":"1"}`)))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(ContainSubstring("temporary storage problem"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("failed to save expense"))
		})
	})

	Describe("UploadBill", func() {
		It("should create one expense per uploaded file", func() {
			created := 0
			mock.createReceiptFn = func(ctx context.Context, userID string, dto expense.CreateReceiptDTO, fileName, contentType string, data []byte) (*expense.Expense, error) {
				created++
				return &expense.Expense{ID: fileName, UserID: userID, FileName: fileName}, nil
			}

			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			Expect(writer.WriteField("supermarket", "Big Bazaar")).To(Succeed())
			Expect(writer.WriteField("amount", "2300")).To(Succeed())
			for _, name := range []string{"bill1.jpg", "bill2.jpg"} {
				part, err := writer.CreateFormFile("billFiles", name)
				Expect(err).NotTo(HaveOccurred())
				_, err = part.Write([]byte("jpeg-bytes"))
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/expenses/upload", &buf)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(created).To(Equal(2))
		})

		It("should reject an upload without files", func() {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			Expect(writer.WriteField("supermarket", "Big Bazaar")).To(Succeed())
			Expect(writer.WriteField("amount", "2300")).To(Succeed())
			Expect(writer.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/expenses/upload", &buf)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("ExportExpenses", func() {
		It("should require both date parameters", func() {
			req := httptest.NewRequest(http.MethodGet, "/expenses/export?startDate=2026-03-01", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject an inverted range", func() {
			req := httptest.NewRequest(http.MethodGet, "/expenses/export?startDate=2026-03-10&endDate=2026-03-01", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return the range with a count", func() {
			mock.listByRangeFn = func(ctx context.Context, userID string, start, end time.Time) ([]*expense.Expense, error) {
				return []*expense.Expense{{ID: "exp-1", Amount: decimal.NewFromInt(100)}}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/expenses/export?startDate=2026-03-01&endDate=2026-03-10", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"count":1`))
		})
	})

	Describe("GetByDate", func() {
		It("should reject a malformed date segment", func() {
			req := httptest.NewRequest(http.MethodGet, "/expenses/03-05-2026", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should pass the parsed day to the service", func() {
			mock.listByDayFn = func(ctx context.Context, userID string, day time.Time) ([]*expense.Expense, error) {
				Expect(day.Format("2006-01-02")).To(Equal("2026-03-05"))
				return nil, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/expenses/2026-03-05", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("DeleteExpense", func() {
		It("should pass the day hint and id to the service", func() {
			mock.deleteFn = func(ctx context.Context, userID, dayHint, id string) error {
				Expect(userID).To(Equal("user-1"))
				Expect(dayHint).To(Equal("2026-03-05"))
				Expect(id).To(Equal("exp-1"))
				return nil
			}

			req := httptest.NewRequest(http.MethodDelete, "/expenses/2026-03-05/exp-1", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should map not found to 404", func() {
			mock.deleteFn = func(ctx context.Context, userID, dayHint, id string) error {
				return internal.ErrExpenseNotFound
			}

			req := httptest.NewRequest(http.MethodDelete, "/expenses/2026-03-05/missing", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	It("should reject requests without an authenticated user", func() {
		handler := expense.NewHandler(mock)
		bare := chi.NewRouter()
		bare.Get("/expenses", handler.GetExpenses)

		req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
		rec := httptest.NewRecorder()
		bare.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
