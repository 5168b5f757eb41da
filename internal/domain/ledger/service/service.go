// Package service orchestrates the refresh pipeline and serves the query
// surface from the current snapshot.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/aggregate"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/normalizer"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/repository"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/source"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/store"
	"github.com/ivyfin/ivy-ledger/pkg/observability"
)

// RefreshResult describes one completed pipeline run.
type RefreshResult struct {
	RunID        uuid.UUID `json:"run_id"`
	RowsTotal    int       `json:"rows_total"`
	RowsInvalid  int       `json:"rows_invalid"`
	FieldErrors  []string  `json:"field_errors,omitempty"`
	Persisted    bool      `json:"persisted"`
}

// PipelineService runs full-refresh ingestion and exposes read operations
// over the resulting immutable snapshot.
type PipelineService struct {
	store  *store.Store
	repo   repository.LedgerRepository // nil for memory-only runs
	logger *slog.Logger
	opts   normalizer.Options
}

// NewPipelineService creates the service. repo may be nil when no
// downstream store is configured.
func NewPipelineService(st *store.Store, repo repository.LedgerRepository, logger *slog.Logger) *PipelineService {
	return &PipelineService{store: st, repo: repo, logger: logger}
}

// Refresh ingests a complete input file, replacing the prior dataset.
// Structural problems abort the run; per-field problems degrade individual
// records and are reported in the result. The new snapshot is fully built
// and persisted before it becomes visible to readers.
func (s *PipelineService) Refresh(ctx context.Context, r io.Reader) (*RefreshResult, error) {
	runID := uuid.New()

	rows, err := source.ReadRows(r)
	if err != nil {
		observability.RefreshesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("record source: %w", err)
	}

	normalized := normalizer.Normalize(rows, s.opts)

	snap, err := store.NewSnapshot(normalized.Records)
	if err != nil {
		observability.RefreshesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("building snapshot: %w", err)
	}

	result := &RefreshResult{
		RunID:     runID,
		RowsTotal: snap.Size(),
	}
	for i := range normalized.Records {
		if normalized.Records[i].IsInvalid {
			result.RowsInvalid++
		}
	}
	for _, fe := range normalized.FieldErrors {
		result.FieldErrors = append(result.FieldErrors, fe.Error())
	}

	if s.repo != nil {
		if err := s.repo.ReplaceAll(ctx, normalized.Records); err != nil {
			observability.RefreshesTotal.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("persisting refresh: %w", err)
		}
		result.Persisted = true
	}

	// Publish only after the snapshot is complete and persisted.
	s.store.Swap(snap)

	observability.RefreshesTotal.WithLabelValues("succeeded").Inc()
	observability.SnapshotRecords.Set(float64(result.RowsTotal))
	observability.SnapshotInvalidRecords.Set(float64(result.RowsInvalid))

	s.logger.Info("refresh completed",
		"run_id", runID,
		"rows_total", result.RowsTotal,
		"rows_invalid", result.RowsInvalid,
		"field_errors", len(result.FieldErrors),
		"persisted", result.Persisted,
	)
	return result, nil
}

// List returns up to limit records ordered by date descending.
func (s *PipelineService) List(limit int) ([]ledger.TransactionRecord, error) {
	return s.store.Current().List(limit)
}

// GetByID returns a single record by its transaction id.
func (s *PipelineService) GetByID(id string) (ledger.TransactionRecord, error) {
	return s.store.Current().GetByID(id)
}

// Summary computes filtered aggregate statistics over the current snapshot.
// Data-quality issues surface as counts, never as errors.
func (s *PipelineService) Summary(f aggregate.Filter) aggregate.Summary {
	return aggregate.Summarize(s.store.Current().Records(), f)
}

// CategorySummaries returns the per-category view of the current snapshot.
func (s *PipelineService) CategorySummaries() []ledger.CategorySummary {
	return s.store.Current().CategorySummaries()
}

// TopCategories ranks categories of one transaction type by volume.
func (s *PipelineService) TopCategories(kind ledger.TransactionType, limit int) []aggregate.CategoryRanking {
	return aggregate.TopCategories(s.store.Current().Records(), kind, limit)
}

// MonthlyFlows returns the month-bucketed income/expense split.
func (s *PipelineService) MonthlyFlows() []aggregate.MonthlyFlow {
	return aggregate.MonthlyFlows(s.store.Current().Records())
}

// ProviderSummaries returns per-provider revenue summaries.
func (s *PipelineService) ProviderSummaries() []aggregate.ProviderSummary {
	return aggregate.ProviderSummaries(s.store.Current().Records())
}

// Stats returns the global data-quality view.
func (s *PipelineService) Stats() aggregate.Stats {
	return aggregate.ComputeStats(s.store.Current().Records())
}

// Size reports the current snapshot size.
func (s *PipelineService) Size() int {
	return s.store.Current().Size()
}
