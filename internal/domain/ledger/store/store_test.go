package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
)

func rec(id, date, amt string) ledger.TransactionRecord {
	r := ledger.TransactionRecord{ID: id, Description: "d", Category: "c"}
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

func TestNewSnapshot_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewSnapshot([]ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "10"),
		rec("TX1", "2024-01-02", "20"),
	})
	var malformed *common.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError for duplicate id, got %v", err)
	}
}

func TestNewSnapshot_RejectsEmptyID(t *testing.T) {
	_, err := NewSnapshot([]ledger.TransactionRecord{rec("", "2024-01-01", "10")})
	var malformed *common.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError for empty id, got %v", err)
	}
}

func TestSnapshot_ListOrderAndLimit(t *testing.T) {
	snap, err := NewSnapshot([]ledger.TransactionRecord{
		rec("OLD", "2024-01-01", "1"),
		rec("NEW", "2024-03-01", "2"),
		rec("MID", "2024-02-01", "3"),
		rec("NODATE", "", "4"),
	})
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	out, err := snap.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	wantOrder := []string{"NEW", "MID", "OLD", "NODATE"}
	if len(out) != len(wantOrder) {
		t.Fatalf("expected %d records, got %d", len(wantOrder), len(out))
	}
	for i, id := range wantOrder {
		if out[i].ID != id {
			t.Errorf("List[%d] = %s, want %s", i, out[i].ID, id)
		}
	}

	limited, err := snap.List(2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "NEW" {
		t.Errorf("List(2) = %v", limited)
	}
}

func TestSnapshot_ListRejectsNonPositiveLimit(t *testing.T) {
	snap, _ := NewSnapshot(nil)
	for _, limit := range []int{0, -1} {
		if _, err := snap.List(limit); !errors.Is(err, common.ErrBadRequest) {
			t.Errorf("List(%d) expected ErrBadRequest, got %v", limit, err)
		}
	}
}

func TestSnapshot_GetByID(t *testing.T) {
	snap, err := NewSnapshot([]ledger.TransactionRecord{rec("TX1", "2024-01-01", "10")})
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	got, err := snap.GetByID("TX1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != "TX1" {
		t.Errorf("ID = %s", got.ID)
	}

	if _, err := snap.GetByID("NOPE"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_EmptyBeforeFirstRefresh(t *testing.T) {
	s := NewStore()
	if s.Current().Size() != 0 {
		t.Errorf("fresh store should hold an empty snapshot")
	}
	if _, err := s.Current().List(5); err != nil {
		t.Errorf("List on empty snapshot: %v", err)
	}
}

func TestStore_SwapIsVisibleAndAtomic(t *testing.T) {
	s := NewStore()

	first, _ := NewSnapshot([]ledger.TransactionRecord{rec("TX1", "2024-01-01", "10")})
	s.Swap(first)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Current()
				// A snapshot is all-or-nothing: size is either 1 or 2.
				if n := snap.Size(); n != 1 && n != 2 {
					t.Errorf("observed partial snapshot of size %d", n)
					return
				}
			}
		}()
	}

	second, _ := NewSnapshot([]ledger.TransactionRecord{
		rec("TX1", "2024-01-01", "10"),
		rec("TX2", "2024-01-02", "20"),
	})
	s.Swap(second)
	close(stop)
	wg.Wait()

	if s.Current().Size() != 2 {
		t.Errorf("swap not visible, size = %d", s.Current().Size())
	}
}
