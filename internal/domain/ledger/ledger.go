// Package ledger defines the canonical transaction schema shared by the
// ingestion, aggregation, storage and query layers. Derived fields are pure
// functions of the stored fields; re-deriving from the same stored values
// always produces the same result.
package ledger

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a record by the sign of its amount.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
	TypeInvalid TransactionType = "invalid"
)

// ProviderMarker identifies provider-issued invoice transactions in the
// reference field.
const ProviderMarker = "STRIPE-"

// MonthYearFormat is the derived monthly bucket layout (YYYY-MM).
const MonthYearFormat = "2006-01"

var invoiceNumberPattern = regexp.MustCompile(`STRIPE-(\d+)`)

// Normalized source column names. The raw header is lower-cased with spaces
// replaced by underscores before these keys apply.
const (
	ColTransactionID = "transaction_id"
	ColDate          = "date"
	ColAmount        = "amount"
	ColDescription   = "description"
	ColReference     = "reference"
	ColCategory      = "category"
	ColCurrency      = "currency"
	ColCounterparty  = "counterparty"
	ColProvider      = "provider"
)

// TransactionRecord is one financial ledger entry. Stored fields come from
// the record source; the remaining fields are derived via Derive.
type TransactionRecord struct {
	ID           string              `json:"transaction_id"`
	Date         *time.Time          `json:"date,omitempty"`
	Amount       decimal.NullDecimal `json:"amount"`
	Description  string              `json:"description,omitempty"`
	Reference    string              `json:"reference,omitempty"`
	Category     string              `json:"category,omitempty"`
	Currency     string              `json:"currency,omitempty"`
	Counterparty string              `json:"counterparty,omitempty"`
	Provider     string              `json:"provider,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`

	// Derived fields, never independently settable.
	TransactionType   TransactionType `json:"transaction_type"`
	MonthYear         string          `json:"month_year,omitempty"`
	IsProviderInvoice bool            `json:"is_provider_invoice"`
	InvoiceNumber     string          `json:"invoice_number,omitempty"`
	IsInvalid         bool            `json:"is_invalid"`
}

// Derive recomputes all derived fields from the stored fields. It is
// idempotent and deterministic.
func (t *TransactionRecord) Derive() {
	switch {
	case !t.Amount.Valid || t.Amount.Decimal.IsZero():
		t.TransactionType = TypeInvalid
	case t.Amount.Decimal.IsPositive():
		t.TransactionType = TypeIncome
	default:
		t.TransactionType = TypeExpense
	}

	t.MonthYear = ""
	if t.Date != nil {
		t.MonthYear = t.Date.Format(MonthYearFormat)
	}

	t.IsProviderInvoice = strings.Contains(t.Reference, ProviderMarker)
	t.InvoiceNumber = ""
	if m := invoiceNumberPattern.FindStringSubmatch(t.Reference); m != nil {
		t.InvoiceNumber = m[1]
	}

	t.IsInvalid = !t.Amount.Valid ||
		t.Amount.Decimal.IsZero() ||
		t.Description == "" ||
		t.Category == ""
}

// CategorySummary aggregates one category over the full record set. It is
// recomputed on every refresh and never independently mutated.
type CategorySummary struct {
	Category         string          `json:"category"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
	AvgAmount        decimal.Decimal `json:"avg_amount"`
}
