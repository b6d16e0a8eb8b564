package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates manual entries from uploaded receipts. It is
// assigned once at creation and never re-inferred from field presence.
type Kind string

const (
	KindManual  Kind = "manual"
	KindReceipt Kind = "receipt"
)

// Expense is a realized ledger entry filed under a calendar day. The
// day of Date decides which partition document the record lives in.
// JSON field names follow the persisted document layout.
type Expense struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Kind     Kind            `json:"kind"`
	Title    string          `json:"title,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category,omitempty"`
	Date     time.Time       `json:"date"`

	// Receipt fields, set only for KindReceipt.
	Supermarket string `json:"supermarket,omitempty"`
	FileURL     string `json:"fileUrl,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	FileType    string `json:"fileType,omitempty"`
	FileSize    int64  `json:"fileSize,omitempty"`
	IsImage     bool   `json:"isImage,omitempty"`
	IsPDF       bool   `json:"isPDF,omitempty"`

	// Provenance for entries materialized from a scheduled expense.
	IsFromFutureExpense     bool   `json:"isFromFutureExpense,omitempty"`
	OriginalFutureExpenseID string `json:"originalFutureExpenseId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *Expense) HasAttachment() bool {
	return e.FileURL != ""
}
