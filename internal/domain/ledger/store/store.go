// Package store holds the immutable per-run dataset and the atomic swap
// that publishes it. A refresh builds a complete snapshot before it becomes
// visible, so concurrent readers never observe a partially loaded dataset
// and reads need no locking.
package store

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/aggregate"
)

// Snapshot is one immutable, fully-built dataset. Records keep their input
// order of first appearance; a date-descending view is prepared once at
// build time for the list operation.
type Snapshot struct {
	records    []ledger.TransactionRecord
	byDateDesc []ledger.TransactionRecord
	byID       map[string]int
	categories []ledger.CategorySummary
	builtAt    time.Time
}

// NewSnapshot builds a snapshot from normalized records. Record ids must be
// unique across the dataset.
func NewSnapshot(records []ledger.TransactionRecord) (*Snapshot, error) {
	s := &Snapshot{
		records: records,
		byID:    make(map[string]int, len(records)),
		builtAt: time.Now().UTC(),
	}
	for i := range records {
		id := records[i].ID
		if id == "" {
			return nil, &common.MalformedInputError{Reason: fmt.Sprintf("record %d has no transaction id", i)}
		}
		if _, dup := s.byID[id]; dup {
			return nil, &common.MalformedInputError{Reason: fmt.Sprintf("duplicate transaction id %q", id)}
		}
		s.byID[id] = i
	}

	s.byDateDesc = make([]ledger.TransactionRecord, len(records))
	copy(s.byDateDesc, records)
	sort.SliceStable(s.byDateDesc, func(i, j int) bool {
		a, b := s.byDateDesc[i].Date, s.byDateDesc[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	s.categories = aggregate.CategorySummaries(records)
	return s, nil
}

// List returns up to limit records ordered by date descending; records
// without a date sort last. The limit must be positive.
func (s *Snapshot) List(limit int) ([]ledger.TransactionRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", common.ErrBadRequest)
	}
	if limit > len(s.byDateDesc) {
		limit = len(s.byDateDesc)
	}
	out := make([]ledger.TransactionRecord, limit)
	copy(out, s.byDateDesc[:limit])
	return out, nil
}

// GetByID returns the record with the given id.
func (s *Snapshot) GetByID(id string) (ledger.TransactionRecord, error) {
	i, ok := s.byID[id]
	if !ok {
		return ledger.TransactionRecord{}, fmt.Errorf("transaction %q: %w", id, common.ErrNotFound)
	}
	return s.records[i], nil
}

// Records exposes the full record set in input order. Callers must treat
// the returned slice as read-only.
func (s *Snapshot) Records() []ledger.TransactionRecord { return s.records }

// CategorySummaries returns the per-category view precomputed at build.
func (s *Snapshot) CategorySummaries() []ledger.CategorySummary { return s.categories }

// Size reports the number of records in the snapshot.
func (s *Snapshot) Size() int { return len(s.records) }

// BuiltAt reports when the snapshot was assembled.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Store publishes the current snapshot. Swap is atomic: readers keep the
// previous snapshot until the next one is complete.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding an empty snapshot so reads are valid
// before the first refresh.
func NewStore() *Store {
	s := &Store{}
	empty, _ := NewSnapshot(nil)
	s.current.Store(empty)
	return s
}

// Current returns the published snapshot.
func (s *Store) Current() *Snapshot { return s.current.Load() }

// Swap publishes a fully-built snapshot, replacing the prior dataset.
func (s *Store) Swap(snap *Snapshot) { s.current.Store(snap) }
