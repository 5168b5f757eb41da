// Package repository persists the per-run dataset to the downstream store.
// The pipeline exclusively owns writes; the query surface never reads from
// here, it reads the in-memory snapshot.
package repository

import (
	"context"

	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
)

// LedgerRepository replaces the persisted dataset on each pipeline run.
type LedgerRepository interface {
	// ReplaceAll atomically swaps the stored record set: the transactions
	// table, the provider-invoice subset, and the category summary view
	// all reflect the new run or none of it.
	ReplaceAll(ctx context.Context, records []ledger.TransactionRecord) error
}
