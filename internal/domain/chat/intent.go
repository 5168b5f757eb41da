// Package chat routes natural-language questions about the dataset to the
// aggregate that answers them. Classification is a pure function over the
// normalized question text, so routing stays testable without any model
// call in the path.
package chat

import "strings"

// Intent is the tagged variant a question resolves to.
type Intent string

const (
	IntentSummary          Intent = "summary"
	IntentTopCategories    Intent = "top_categories"
	IntentProviderAnalysis Intent = "provider_analysis"
	IntentMonthlyTrend     Intent = "monthly_trend"
	IntentDataQuality      Intent = "data_quality"
	IntentRawQuery         Intent = "raw_query"
)

// Keyword sets checked in order; first hit wins. Order mirrors how the
// questions overlap: "top expense categories" should rank before the
// generic summary match on "expense".
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentTopCategories, []string{"categories", "category", "top", "biggest", "largest"}},
	{IntentProviderAnalysis, []string{"stripe", "provider", "invoice", "payment"}},
	{IntentMonthlyTrend, []string{"month", "monthly", "trend"}},
	{IntentDataQuality, []string{"invalid", "problems", "issues", "quality"}},
	{IntentSummary, []string{"summary", "total", "revenue", "expenses", "profit", "overview", "balance"}},
}

// Classify maps a question to its intent. Keywords match on whole words so
// "total" never triggers the "top" ranking. Unmatched questions fall
// through to IntentRawQuery.
func Classify(question string) Intent {
	q := " " + normalize(question) + " "
	for _, entry := range intentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(q, " "+kw+" ") {
				return entry.intent
			}
		}
	}
	return IntentRawQuery
}

// normalize lower-cases the question and flattens punctuation to spaces.
func normalize(question string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(question) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
