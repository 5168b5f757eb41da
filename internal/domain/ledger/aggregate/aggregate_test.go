package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
)

func rec(id, date, amt, category, reference, provider string) ledger.TransactionRecord {
	r := ledger.TransactionRecord{
		ID:          id,
		Description: "desc " + id,
		Category:    category,
		Reference:   reference,
		Provider:    provider,
		Currency:    "USD",
	}
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			panic(err)
		}
		r.Date = &d
	}
	if amt != "" {
		r.Amount = decimal.NullDecimal{Decimal: decimal.RequireFromString(amt), Valid: true}
	}
	r.Derive()
	return r
}

func invalidRec(id string) ledger.TransactionRecord {
	r := ledger.TransactionRecord{ID: id, Description: "broken"}
	r.Derive()
	return r
}

func TestSummarize_SignedNet(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "10", "Supplies", "", ""),
		rec("TX2", "2024-01-02", "-5", "Supplies", "", ""),
		rec("TX3", "2024-01-03", "20", "Supplies", "", ""),
	}

	s := Summarize(records, Filter{})
	assert.Equal(t, 3, s.TotalCount)
	assert.True(t, s.TotalAmount.Equal(decimal.RequireFromString("25")),
		"net should be signed: got %s", s.TotalAmount)
	assert.Equal(t, 3, s.Categories["Supplies"])

	require.NotNil(t, s.DateRange)
	assert.Equal(t, "2024-01-01", s.DateRange.Earliest.Format("2006-01-02"))
	assert.Equal(t, "2024-01-03", s.DateRange.Latest.Format("2006-01-02"))
}

func TestSummarize_ExcludesInvalidByDefault(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "10", "Sales", "", ""),
		invalidRec("TX2"),
	}

	clean := Summarize(records, Filter{})
	assert.Equal(t, 1, clean.TotalCount)

	raw := Summarize(records, Filter{IncludeInvalid: true})
	assert.Equal(t, 2, raw.TotalCount)
}

func TestSummarize_Filters(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)

	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-15", "10", "Sales", "", "Stripe"),
		rec("TX2", "2024-02-15", "20", "Sales", "", "Stripe"),
		rec("TX3", "2024-02-20", "30", "Tools", "", "Other"),
		rec("TX4", "", "40", "Sales", "", "Stripe"), // dateless never matches a date filter
	}

	s := Summarize(records, Filter{Category: "Sales", Provider: "Stripe", StartDate: &start, EndDate: &end})
	assert.Equal(t, 1, s.TotalCount)
	assert.True(t, s.TotalAmount.Equal(decimal.RequireFromString("20")))
}

func TestCategorySummaries(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "10", "Supplies", "", ""),
		rec("TX2", "2024-01-02", "-5", "Supplies", "", ""),
		rec("TX3", "2024-01-03", "20", "Supplies", "", ""),
		rec("TX4", "2024-01-04", "100", "Sales", "", ""),
	}

	out := CategorySummaries(records)
	require.Len(t, out, 2)

	// Sorted by name: Sales before Supplies.
	assert.Equal(t, "Sales", out[0].Category)

	supplies := out[1]
	assert.Equal(t, "Supplies", supplies.Category)
	assert.Equal(t, 3, supplies.TransactionCount)
	assert.True(t, supplies.TotalAmount.Equal(decimal.RequireFromString("25")),
		"10 + -5 + 20 must net to 25, got %s", supplies.TotalAmount)
	assert.True(t, supplies.AvgAmount.Equal(decimal.RequireFromString("8.33")),
		"avg rounds to 2 places, got %s", supplies.AvgAmount)
}

func TestCategorySummaries_DecimalAccumulation(t *testing.T) {
	// 0.1 added ten times is exactly 1 on fixed-point decimals.
	records := make([]ledger.TransactionRecord, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, rec("TX"+string(rune('A'+i)), "2024-01-01", "0.1", "Micro", "", ""))
	}

	out := CategorySummaries(records)
	require.Len(t, out, 1)
	assert.True(t, out[0].TotalAmount.Equal(decimal.RequireFromString("1")),
		"got %s", out[0].TotalAmount)
}

func TestMonthlyFlows(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-10", "100", "Sales", "", ""),
		rec("TX2", "2024-01-20", "-30", "Tools", "", ""),
		rec("TX3", "2024-02-05", "50", "Sales", "", ""),
		rec("TX4", "", "999", "Sales", "", ""), // dateless excluded
		invalidRec("TX5"),
	}

	flows := MonthlyFlows(records)
	require.Len(t, flows, 2)

	// Most recent first.
	assert.Equal(t, "2024-02", flows[0].MonthYear)
	assert.Equal(t, "2024-01", flows[1].MonthYear)

	jan := flows[1]
	assert.True(t, jan.Income.Equal(decimal.RequireFromString("100")))
	assert.True(t, jan.Expenses.Equal(decimal.RequireFromString("30")), "expenses reported as absolute value")
	assert.True(t, jan.Net.Equal(decimal.RequireFromString("70")))
	assert.Equal(t, 2, jan.TransactionCount)
}

func TestTopCategories_ExpenseUsesAbsolute(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "-300", "Rent", "", ""),
		rec("TX2", "2024-01-02", "-50", "Tools", "", ""),
		rec("TX3", "2024-01-03", "-40", "Tools", "", ""),
		rec("TX4", "2024-01-04", "500", "Sales", "", ""),
	}

	out := TopCategories(records, ledger.TypeExpense, 5)
	require.Len(t, out, 2)
	assert.Equal(t, "Rent", out[0].Category, "biggest absolute spender first")
	assert.True(t, out[0].TotalAmount.Equal(decimal.RequireFromString("300")))
	assert.Equal(t, "Tools", out[1].Category)
	assert.True(t, out[1].TotalAmount.Equal(decimal.RequireFromString("90")))
}

func TestTopCategories_Limit(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "-10", "A", "", ""),
		rec("TX2", "2024-01-01", "-20", "B", "", ""),
		rec("TX3", "2024-01-01", "-30", "C", "", ""),
	}
	out := TopCategories(records, ledger.TypeExpense, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "C", out[0].Category)
}

func TestProviderSummaries(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "100", "Sales", "STRIPE-1", "Stripe"),
		rec("TX2", "2024-03-01", "200", "Sales", "STRIPE-2", "Stripe"),
		rec("TX3", "2024-02-01", "50", "Sales", "STRIPE-3", ""), // falls into unknown bucket
		rec("TX4", "2024-02-02", "999", "Sales", "", "Stripe"),  // not a provider invoice
	}

	out := ProviderSummaries(records)
	require.Len(t, out, 2)

	stripe := out[0]
	assert.Equal(t, "Stripe", stripe.Provider)
	assert.Equal(t, 2, stripe.InvoiceCount)
	assert.True(t, stripe.TotalRevenue.Equal(decimal.RequireFromString("300")))
	assert.True(t, stripe.AvgInvoice.Equal(decimal.RequireFromString("150")))
	require.NotNil(t, stripe.FirstInvoice)
	assert.Equal(t, "2024-01-01", stripe.FirstInvoice.Format("2006-01-02"))
	assert.Equal(t, "2024-03-01", stripe.LastInvoice.Format("2006-01-02"))

	assert.Equal(t, "unknown", out[1].Provider)
}

func TestComputeStats(t *testing.T) {
	records := []ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "100", "Sales", "", ""),
		rec("TX2", "2024-01-02", "-40", "Tools", "", ""),
		invalidRec("TX3"),
		invalidRec("TX4"),
	}

	s := ComputeStats(records)
	assert.Equal(t, 4, s.TotalRecords)
	assert.Equal(t, 2, s.InvalidCount)
	assert.InDelta(t, 0.5, s.InvalidRatio, 1e-9)
	assert.True(t, s.NetAmount.Equal(decimal.RequireFromString("60")))
	require.True(t, s.MinAmount.Valid)
	assert.True(t, s.MinAmount.Decimal.Equal(decimal.RequireFromString("-40")))
	assert.True(t, s.MaxAmount.Decimal.Equal(decimal.RequireFromString("100")))
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil)
	assert.Equal(t, 0, s.TotalRecords)
	assert.Equal(t, 0.0, s.InvalidRatio)
	assert.False(t, s.MinAmount.Valid)
	assert.Nil(t, s.DateRange)
}
