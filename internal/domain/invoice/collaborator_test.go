package invoice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
)

type stubRetriever struct {
	calls int
	fn    func(ctx context.Context, attempt int) (string, error)
}

func (s *stubRetriever) Retrieve(ctx context.Context, _ RetrievalRequest) (string, error) {
	s.calls++
	return s.fn(ctx, s.calls)
}

func TestWithRetrieverRetry_SucceedsAfterTransientFailure(t *testing.T) {
	stub := &stubRetriever{fn: func(_ context.Context, attempt int) (string, error) {
		if attempt < 3 {
			return "", errors.New("flaky network")
		}
		return "/tmp/invoice.pdf", nil
	}}

	r := WithRetrieverRetry(stub, 3)
	path, err := r.Retrieve(context.Background(), RetrievalRequest{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if path != "/tmp/invoice.pdf" || stub.calls != 3 {
		t.Errorf("path = %s, calls = %d", path, stub.calls)
	}
}

func TestWithRetrieverRetry_BoundedAttempts(t *testing.T) {
	stub := &stubRetriever{fn: func(_ context.Context, _ int) (string, error) {
		return "", errors.New("always down")
	}}

	r := WithRetrieverRetry(stub, 3)
	_, err := r.Retrieve(context.Background(), RetrievalRequest{})

	var collab *common.CollaboratorError
	if !errors.As(err, &collab) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want exactly 3", stub.calls)
	}
}

func TestWithRetrieverRetry_NotFoundIsFinal(t *testing.T) {
	stub := &stubRetriever{fn: func(_ context.Context, _ int) (string, error) {
		return "", ErrDocumentNotFound
	}}

	r := WithRetrieverRetry(stub, 5)
	_, err := r.Retrieve(context.Background(), RetrievalRequest{})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("not-found must not be retried, calls = %d", stub.calls)
	}
}

func TestWithRetrieverTimeout(t *testing.T) {
	stub := &stubRetriever{fn: func(ctx context.Context, _ int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	r := WithRetrieverTimeout(stub, 10*time.Millisecond)
	_, err := r.Retrieve(context.Background(), RetrievalRequest{})

	var collab *common.CollaboratorError
	if !errors.As(err, &collab) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if collab.Collaborator != "retriever" {
		t.Errorf("Collaborator = %s", collab.Collaborator)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline cause, got %v", err)
	}
}

func TestHTTPRetriever(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/invoices/retrieve" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"file_path":"/data/inv-4821.pdf"}`))
	}))
	defer srv.Close()

	r := NewHTTPRetriever(srv.URL, srv.Client())
	path, err := r.Retrieve(context.Background(), RetrievalRequest{Locator: "acme.com"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if path != "/data/inv-4821.pdf" {
		t.Errorf("path = %s", path)
	}
}

func TestHTTPRetriever_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewHTTPRetriever(srv.URL, srv.Client())
	_, err := r.Retrieve(context.Background(), RetrievalRequest{})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestHTTPExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"invoice_date":"2024-01-15","invoice_amount":"1500.00","invoice_number":"4821","invoice_currency":"USD"}`))
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, srv.Client())
	out, err := e.Extract(context.Background(), "/data/inv-4821.pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.InvoiceNumber != "4821" || out.Currency != "USD" {
		t.Errorf("extracted = %+v", out)
	}
	if out.Date.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("date = %v", out.Date)
	}
	if out.FilePath != "/data/inv-4821.pdf" {
		t.Errorf("file path = %s", out.FilePath)
	}
}

func TestHTTPExtractor_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewHTTPExtractor(srv.URL, srv.Client())
	_, err := e.Extract(context.Background(), "/data/x.pdf")
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}
