// Package normalizer converts raw string rows into typed transaction
// records. Per-field parse failures degrade the affected record instead of
// aborting the batch, so a single bad row never hides the rest of the file.
package normalizer

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/source"
)

var (
	ErrInvalidAmount = errors.New("invalid amount format")
	ErrInvalidDate   = errors.New("invalid date format")
)

// Date layouts accepted from the source, tried in order. ISO first since
// that is what the exporter emits.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
}

// Options configures a normalization pass.
type Options struct {
	// Now stamps CreatedAt on every record of the run. Defaults to
	// time.Now. Injectable so tests get deterministic output.
	Now func() time.Time
}

// Result is the outcome of one normalization pass.
type Result struct {
	Records []ledger.TransactionRecord
	// FieldErrors lists recovered per-field failures for data-quality
	// review. They never abort the run.
	FieldErrors []*common.FieldParseError
}

// Normalize maps every raw row to a TransactionRecord in a single
// deterministic pass. Output order matches input order of first appearance,
// and identical input always yields identical records.
func Normalize(rs *source.RowSet, opts Options) *Result {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	createdAt := now().UTC()

	res := &Result{Records: make([]ledger.TransactionRecord, 0, len(rs.Rows))}
	for _, row := range rs.Rows {
		rec := ledger.TransactionRecord{
			ID:           rs.Field(row, ledger.ColTransactionID),
			Description:  rs.Field(row, ledger.ColDescription),
			Reference:    rs.Field(row, ledger.ColReference),
			Category:     rs.Field(row, ledger.ColCategory),
			Currency:     rs.Field(row, ledger.ColCurrency),
			Counterparty: rs.Field(row, ledger.ColCounterparty),
			Provider:     rs.Field(row, ledger.ColProvider),
			CreatedAt:    createdAt,
		}

		if raw := rs.Field(row, ledger.ColDate); raw != "" {
			date, err := ParseDate(raw)
			if err != nil {
				res.FieldErrors = append(res.FieldErrors, &common.FieldParseError{
					Field: ledger.ColDate, Value: raw, Err: err,
				})
			} else {
				rec.Date = &date
			}
		}

		if raw := rs.Field(row, ledger.ColAmount); raw != "" {
			amount, err := ParseAmount(raw)
			if err != nil {
				res.FieldErrors = append(res.FieldErrors, &common.FieldParseError{
					Field: ledger.ColAmount, Value: raw, Err: err,
				})
			} else {
				rec.Amount = decimal.NullDecimal{Decimal: amount, Valid: true}
			}
		}

		rec.Derive()
		res.Records = append(res.Records, rec)
	}
	return res
}

// ParseAmount coerces a raw amount string to a decimal. Currency symbols,
// spaces and thousands separators are stripped; the decimal separator is a
// period.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		if r == ',' || r == '$' || r == '€' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// ParseDate attempts the known source layouts in order.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
