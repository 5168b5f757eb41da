// Package invoice defines the external collaborators the pipeline talks to
// for invoice documents: retrieval of a document for a known transaction,
// and extraction of structured fields from a downloaded file. Both are
// fallible remote services; their failures are wrapped, surfaced with
// context, and never retried silently beyond a caller-specified bound.
package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrExtractionFailed = errors.New("extraction failed")
)

// RetrievalRequest identifies the invoice document to fetch and the
// transaction facts the collaborator should match it against.
type RetrievalRequest struct {
	Locator   string // merchant domain or URL
	Date      time.Time
	Amount    decimal.Decimal
	Reference string
}

// ExtractedInvoice holds the structured fields pulled out of a document.
type ExtractedInvoice struct {
	Date          time.Time       `json:"invoice_date"`
	Amount        decimal.Decimal `json:"invoice_amount"`
	InvoiceNumber string          `json:"invoice_number"`
	Currency      string          `json:"invoice_currency"`
	FilePath      string          `json:"invoice_file_path"`
}

// DocumentRetriever locates and downloads a single invoice document,
// returning the local file path, or ErrDocumentNotFound.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, req RetrievalRequest) (string, error)
}

// ContentExtractor turns a downloaded document into structured fields, or
// fails with ErrExtractionFailed.
type ContentExtractor interface {
	Extract(ctx context.Context, filePath string) (*ExtractedInvoice, error)
}

// WithRetrieverTimeout bounds every Retrieve call with the given timeout.
func WithRetrieverTimeout(inner DocumentRetriever, timeout time.Duration) DocumentRetriever {
	return &timeoutRetriever{inner: inner, timeout: timeout}
}

type timeoutRetriever struct {
	inner   DocumentRetriever
	timeout time.Duration
}

func (t *timeoutRetriever) Retrieve(ctx context.Context, req RetrievalRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	path, err := t.inner.Retrieve(ctx, req)
	if err != nil && ctx.Err() != nil {
		return "", &common.CollaboratorError{Collaborator: "retriever", Op: "retrieve", Err: ctx.Err()}
	}
	return path, err
}

// WithExtractorTimeout bounds every Extract call with the given timeout.
func WithExtractorTimeout(inner ContentExtractor, timeout time.Duration) ContentExtractor {
	return &timeoutExtractor{inner: inner, timeout: timeout}
}

type timeoutExtractor struct {
	inner   ContentExtractor
	timeout time.Duration
}

func (t *timeoutExtractor) Extract(ctx context.Context, filePath string) (*ExtractedInvoice, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.inner.Extract(ctx, filePath)
	if err != nil && ctx.Err() != nil {
		return nil, &common.CollaboratorError{Collaborator: "extractor", Op: "extract", Err: ctx.Err()}
	}
	return out, err
}

// WithRetrieverRetry retries transient retrieval failures up to maxAttempts
// total attempts. Not-found is final and never retried.
func WithRetrieverRetry(inner DocumentRetriever, maxAttempts int) DocumentRetriever {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryRetriever{inner: inner, maxAttempts: maxAttempts}
}

type retryRetriever struct {
	inner       DocumentRetriever
	maxAttempts int
}

func (r *retryRetriever) Retrieve(ctx context.Context, req RetrievalRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		path, err := r.inner.Retrieve(ctx, req)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, ErrDocumentNotFound) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", &common.CollaboratorError{Collaborator: "retriever", Op: "retrieve", Err: lastErr}
}
