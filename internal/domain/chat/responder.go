package chat

import (
	"fmt"
	"strings"

	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/aggregate"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/service"
)

// Responder renders an answer for each intent from the current snapshot's
// aggregates.
type Responder struct {
	svc *service.PipelineService
}

// NewResponder constructs a responder over the pipeline service.
func NewResponder(svc *service.PipelineService) *Responder {
	return &Responder{svc: svc}
}

// Answer classifies the question and renders the matching aggregate view.
func (r *Responder) Answer(question string) (Intent, string) {
	intent := Classify(question)

	var answer string
	switch intent {
	case IntentSummary:
		answer = r.summary()
	case IntentTopCategories:
		kind := ledger.TypeExpense
		if strings.Contains(strings.ToLower(question), "income") {
			kind = ledger.TypeIncome
		}
		answer = r.topCategories(kind)
	case IntentProviderAnalysis:
		answer = r.providers()
	case IntentMonthlyTrend:
		answer = r.monthly()
	case IntentDataQuality:
		answer = r.dataQuality()
	default:
		answer = r.rawCounts()
	}
	return intent, answer
}

func (r *Responder) summary() string {
	stats := r.svc.Stats()
	flows := r.svc.MonthlyFlows()

	var income, expenses string
	if len(flows) > 0 {
		var in, out = flows[0].Income, flows[0].Expenses
		for _, f := range flows[1:] {
			in = in.Add(f.Income)
			out = out.Add(f.Expenses)
		}
		income, expenses = in.StringFixed(2), out.StringFixed(2)
	} else {
		income, expenses = "0.00", "0.00"
	}

	return fmt.Sprintf(
		"Income: %s, Expenses: %s, Net: %s across %d transactions (%d invalid).",
		income, expenses, stats.NetAmount.StringFixed(2),
		stats.TotalRecords, stats.InvalidCount,
	)
}

func (r *Responder) topCategories(kind ledger.TransactionType) string {
	ranked := r.svc.TopCategories(kind, 5)
	if len(ranked) == 0 {
		return fmt.Sprintf("No %s transactions found.", kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %s categories:", kind)
	for i, c := range ranked {
		fmt.Fprintf(&b, " %d. %s %s (%d transactions)",
			i+1, c.Category, c.TotalAmount.StringFixed(2), c.TransactionCount)
	}
	return b.String()
}

func (r *Responder) providers() string {
	summaries := r.svc.ProviderSummaries()
	if len(summaries) == 0 {
		return "No provider invoices found."
	}

	var b strings.Builder
	b.WriteString("Provider revenue:")
	for _, p := range summaries {
		fmt.Fprintf(&b, " %s: %s over %d invoices (avg %s).",
			p.Provider, p.TotalRevenue.StringFixed(2), p.InvoiceCount, p.AvgInvoice.StringFixed(2))
	}
	return b.String()
}

func (r *Responder) monthly() string {
	flows := r.svc.MonthlyFlows()
	if len(flows) == 0 {
		return "No dated transactions found."
	}
	if len(flows) > 6 {
		flows = flows[:6]
	}

	var b strings.Builder
	b.WriteString("Monthly trend:")
	for _, f := range flows {
		fmt.Fprintf(&b, " %s: income %s, expenses %s, net %s.",
			f.MonthYear, f.Income.StringFixed(2), f.Expenses.StringFixed(2), f.Net.StringFixed(2))
	}
	return b.String()
}

func (r *Responder) dataQuality() string {
	stats := r.svc.Stats()
	return fmt.Sprintf("%d of %d records are invalid (%.2f%%).",
		stats.InvalidCount, stats.TotalRecords, stats.InvalidRatio*100)
}

func (r *Responder) rawCounts() string {
	s := r.svc.Summary(aggregate.Filter{IncludeInvalid: true})
	return fmt.Sprintf("The dataset holds %d transactions with a net amount of %s.",
		s.TotalCount, s.TotalAmount.StringFixed(2))
}
