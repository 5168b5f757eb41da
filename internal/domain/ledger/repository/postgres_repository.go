package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
)

// PgxPool is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL.
type PostgresLedgerRepository struct {
	pool PgxPool
}

// NewPostgresLedgerRepository creates a PostgreSQL-backed ledger repository.
func NewPostgresLedgerRepository(pool PgxPool) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{pool: pool}
}

const (
	deleteProviderInvoicesQuery = `DELETE FROM provider_invoices`
	deleteTransactionsQuery     = `DELETE FROM transactions`
	refreshCategorySummaryQuery = `REFRESH MATERIALIZED VIEW category_summary`
)

var transactionColumns = []string{
	"transaction_id", "date", "amount", "description", "reference",
	"category", "currency", "counterparty", "provider",
	"transaction_type", "month_year", "is_provider_invoice",
	"invoice_number", "is_invalid", "created_at",
}

var providerInvoiceColumns = []string{
	"transaction_id", "date", "amount", "reference", "provider",
	"invoice_number", "created_at",
}

// ReplaceAll writes the full record set in one transaction: delete the
// prior run, bulk-copy the new records and the provider-invoice subset,
// then refresh the category summary view.
func (r *PostgresLedgerRepository) ReplaceAll(ctx context.Context, records []ledger.TransactionRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin refresh transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteProviderInvoicesQuery); err != nil {
		return fmt.Errorf("failed to clear provider invoices: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteTransactionsQuery); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"transactions"},
		transactionColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			t := records[i]
			return []any{
				t.ID,
				t.Date,
				amountValue(t),
				nullable(t.Description),
				nullable(t.Reference),
				nullable(t.Category),
				nullable(t.Currency),
				nullable(t.Counterparty),
				nullable(t.Provider),
				string(t.TransactionType),
				nullable(t.MonthYear),
				t.IsProviderInvoice,
				nullable(t.InvoiceNumber),
				t.IsInvalid,
				t.CreatedAt,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert transactions: %w", err)
	}

	invoices := providerInvoiceSubset(records)
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"provider_invoices"},
		providerInvoiceColumns,
		pgx.CopyFromSlice(len(invoices), func(i int) ([]any, error) {
			t := invoices[i]
			return []any{
				t.ID,
				t.Date,
				amountValue(t),
				t.Reference,
				nullable(t.Provider),
				nullable(t.InvoiceNumber),
				t.CreatedAt,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert provider invoices: %w", err)
	}

	if _, err := tx.Exec(ctx, refreshCategorySummaryQuery); err != nil {
		return fmt.Errorf("failed to refresh category summary: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit refresh: %w", err)
	}
	return nil
}

// Health verifies the backing store is reachable.
func (r *PostgresLedgerRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func providerInvoiceSubset(records []ledger.TransactionRecord) []ledger.TransactionRecord {
	var out []ledger.TransactionRecord
	for i := range records {
		if records[i].IsProviderInvoice {
			out = append(out, records[i])
		}
	}
	return out
}

// amountValue renders the amount as text so pgx converts it to NUMERIC
// without loss, or NULL when absent.
func amountValue(t ledger.TransactionRecord) any {
	if !t.Amount.Valid {
		return nil
	}
	return t.Amount.Decimal.String()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
