// Package aggregate computes grouped statistics over normalized records.
// All monetary accumulation runs on fixed-point decimals; rounding to two
// places happens only when values leave this package.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
)

// Filter narrows a summary to matching records. All set filters combine
// with logical AND. The zero value matches every valid record; set
// IncludeInvalid for the raw data-quality view.
type Filter struct {
	Category       string
	Provider       string
	StartDate      *time.Time
	EndDate        *time.Time
	IncludeInvalid bool
}

// DateRange is the inclusive span of dates seen among matching records.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Summary holds filtered aggregate statistics.
type Summary struct {
	TotalCount  int             `json:"total_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Categories  map[string]int  `json:"categories"`
	Providers   map[string]int  `json:"providers"`
	Currencies  map[string]int  `json:"currencies"`
	DateRange   *DateRange      `json:"date_range,omitempty"`
}

// Summarize computes aggregate statistics over records matching the filter.
// TotalAmount is a signed net sum: expense amounts stay negative so the
// result reads as a balance, not a volume.
func Summarize(records []ledger.TransactionRecord, f Filter) Summary {
	s := Summary{
		Categories: make(map[string]int),
		Providers:  make(map[string]int),
		Currencies: make(map[string]int),
	}

	for i := range records {
		t := &records[i]
		if !matches(t, f) {
			continue
		}

		s.TotalCount++
		if t.Amount.Valid {
			s.TotalAmount = s.TotalAmount.Add(t.Amount.Decimal)
		}
		if t.Category != "" {
			s.Categories[t.Category]++
		}
		if t.Provider != "" {
			s.Providers[t.Provider]++
		}
		if t.Currency != "" {
			s.Currencies[t.Currency]++
		}
		if t.Date != nil {
			if s.DateRange == nil {
				s.DateRange = &DateRange{Earliest: *t.Date, Latest: *t.Date}
			} else {
				if t.Date.Before(s.DateRange.Earliest) {
					s.DateRange.Earliest = *t.Date
				}
				if t.Date.After(s.DateRange.Latest) {
					s.DateRange.Latest = *t.Date
				}
			}
		}
	}
	return s
}

func matches(t *ledger.TransactionRecord, f Filter) bool {
	if t.IsInvalid && !f.IncludeInvalid {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Provider != "" && t.Provider != f.Provider {
		return false
	}
	if f.StartDate != nil && (t.Date == nil || t.Date.Before(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && (t.Date == nil || t.Date.After(*f.EndDate)) {
		return false
	}
	return true
}

// CategorySummaries computes per-category totals over all records,
// invalid ones included so the view stays recomputable from the full set.
// Output is sorted by category name for deterministic presentation.
func CategorySummaries(records []ledger.TransactionRecord) []ledger.CategorySummary {
	type acc struct {
		total decimal.Decimal
		count int
	}
	byCat := make(map[string]*acc)
	for i := range records {
		t := &records[i]
		if t.Category == "" {
			continue
		}
		a, ok := byCat[t.Category]
		if !ok {
			a = &acc{}
			byCat[t.Category] = a
		}
		a.count++
		if t.Amount.Valid {
			a.total = a.total.Add(t.Amount.Decimal)
		}
	}

	out := make([]ledger.CategorySummary, 0, len(byCat))
	for cat, a := range byCat {
		out = append(out, ledger.CategorySummary{
			Category:         cat,
			TotalAmount:      a.total.Round(2),
			TransactionCount: a.count,
			AvgAmount:        a.total.DivRound(decimal.NewFromInt(int64(a.count)), 2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// MonthlyFlow is the income/expense split for one YYYY-MM bucket.
type MonthlyFlow struct {
	MonthYear        string          `json:"month_year"`
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"` // absolute value
	Net              decimal.Decimal `json:"net"`
	TransactionCount int             `json:"transaction_count"`
}

// MonthlyFlows buckets valid records by month_year, most recent first.
// Records without a date carry no bucket and are excluded.
func MonthlyFlows(records []ledger.TransactionRecord) []MonthlyFlow {
	byMonth := make(map[string]*MonthlyFlow)
	for i := range records {
		t := &records[i]
		if t.IsInvalid || t.MonthYear == "" || !t.Amount.Valid {
			continue
		}
		m, ok := byMonth[t.MonthYear]
		if !ok {
			m = &MonthlyFlow{MonthYear: t.MonthYear}
			byMonth[t.MonthYear] = m
		}
		m.TransactionCount++
		m.Net = m.Net.Add(t.Amount.Decimal)
		if t.Amount.Decimal.IsPositive() {
			m.Income = m.Income.Add(t.Amount.Decimal)
		} else {
			m.Expenses = m.Expenses.Add(t.Amount.Decimal.Abs())
		}
	}

	out := make([]MonthlyFlow, 0, len(byMonth))
	for _, m := range byMonth {
		m.Income = m.Income.Round(2)
		m.Expenses = m.Expenses.Round(2)
		m.Net = m.Net.Round(2)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthYear > out[j].MonthYear })
	return out
}

// CategoryRanking is one row of a top-categories view.
type CategoryRanking struct {
	Category         string          `json:"category"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TransactionCount int             `json:"transaction_count"`
	AvgAmount        decimal.Decimal `json:"avg_amount"`
}

// TopCategories ranks categories of the given transaction type by volume.
// Expense rankings use absolute sums so the biggest spender sorts first;
// income rankings keep signed sums.
func TopCategories(records []ledger.TransactionRecord, kind ledger.TransactionType, limit int) []CategoryRanking {
	type acc struct {
		total decimal.Decimal
		count int
	}
	byCat := make(map[string]*acc)
	for i := range records {
		t := &records[i]
		if t.IsInvalid || t.Category == "" || t.TransactionType != kind {
			continue
		}
		a, ok := byCat[t.Category]
		if !ok {
			a = &acc{}
			byCat[t.Category] = a
		}
		a.count++
		amt := t.Amount.Decimal
		if kind == ledger.TypeExpense {
			amt = amt.Abs()
		}
		a.total = a.total.Add(amt)
	}

	out := make([]CategoryRanking, 0, len(byCat))
	for cat, a := range byCat {
		out = append(out, CategoryRanking{
			Category:         cat,
			TotalAmount:      a.total.Round(2),
			TransactionCount: a.count,
			AvgAmount:        a.total.DivRound(decimal.NewFromInt(int64(a.count)), 2),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalAmount.Equal(out[j].TotalAmount) {
			return out[i].TotalAmount.GreaterThan(out[j].TotalAmount)
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ProviderSummary aggregates the provider-invoice subset for one provider.
type ProviderSummary struct {
	Provider     string          `json:"provider"`
	InvoiceCount int             `json:"invoice_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AvgInvoice   decimal.Decimal `json:"avg_invoice"`
	FirstInvoice *time.Time      `json:"first_invoice,omitempty"`
	LastInvoice  *time.Time      `json:"last_invoice,omitempty"`
}

// ProviderSummaries computes revenue summaries over provider-invoice
// records, sorted by total revenue descending.
func ProviderSummaries(records []ledger.TransactionRecord) []ProviderSummary {
	byProvider := make(map[string]*ProviderSummary)
	for i := range records {
		t := &records[i]
		if !t.IsProviderInvoice || t.IsInvalid {
			continue
		}
		key := t.Provider
		if key == "" {
			key = "unknown"
		}
		p, ok := byProvider[key]
		if !ok {
			p = &ProviderSummary{Provider: key}
			byProvider[key] = p
		}
		p.InvoiceCount++
		if t.Amount.Valid {
			p.TotalRevenue = p.TotalRevenue.Add(t.Amount.Decimal)
		}
		if t.Date != nil {
			if p.FirstInvoice == nil || t.Date.Before(*p.FirstInvoice) {
				d := *t.Date
				p.FirstInvoice = &d
			}
			if p.LastInvoice == nil || t.Date.After(*p.LastInvoice) {
				d := *t.Date
				p.LastInvoice = &d
			}
		}
	}

	out := make([]ProviderSummary, 0, len(byProvider))
	for _, p := range byProvider {
		p.AvgInvoice = p.TotalRevenue.DivRound(decimal.NewFromInt(int64(p.InvoiceCount)), 2)
		p.TotalRevenue = p.TotalRevenue.Round(2)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalRevenue.Equal(out[j].TotalRevenue) {
			return out[i].TotalRevenue.GreaterThan(out[j].TotalRevenue)
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}

// Stats is the global data-quality view over the full record set,
// invalid records included.
type Stats struct {
	TotalRecords int                 `json:"total_records"`
	InvalidCount int                 `json:"invalid_count"`
	InvalidRatio float64             `json:"invalid_ratio"`
	NetAmount    decimal.Decimal     `json:"net_amount"`
	MinAmount    decimal.NullDecimal `json:"min_amount"`
	MaxAmount    decimal.NullDecimal `json:"max_amount"`
	DateRange    *DateRange          `json:"date_range,omitempty"`
}

// ComputeStats derives global summary statistics across all records.
func ComputeStats(records []ledger.TransactionRecord) Stats {
	s := Stats{TotalRecords: len(records)}
	for i := range records {
		t := &records[i]
		if t.IsInvalid {
			s.InvalidCount++
		}
		if t.Amount.Valid {
			s.NetAmount = s.NetAmount.Add(t.Amount.Decimal)
			if !s.MinAmount.Valid || t.Amount.Decimal.LessThan(s.MinAmount.Decimal) {
				s.MinAmount = t.Amount
			}
			if !s.MaxAmount.Valid || t.Amount.Decimal.GreaterThan(s.MaxAmount.Decimal) {
				s.MaxAmount = t.Amount
			}
		}
		if t.Date != nil {
			if s.DateRange == nil {
				s.DateRange = &DateRange{Earliest: *t.Date, Latest: *t.Date}
			} else {
				if t.Date.Before(s.DateRange.Earliest) {
					s.DateRange.Earliest = *t.Date
				}
				if t.Date.After(s.DateRange.Latest) {
					s.DateRange.Latest = *t.Date
				}
			}
		}
	}
	if s.TotalRecords > 0 {
		s.InvalidRatio = float64(s.InvalidCount) / float64(s.TotalRecords)
	}
	s.NetAmount = s.NetAmount.Round(2)
	return s
}
