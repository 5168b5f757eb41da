package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
)

// HTTPRetriever calls a remote document-retrieval agent over HTTP.
type HTTPRetriever struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRetriever creates a retriever against the agent's base URL.
func NewHTTPRetriever(baseURL string, client *http.Client) *HTTPRetriever {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRetriever{baseURL: baseURL, client: client}
}

// Retrieve posts the retrieval request and returns the downloaded file
// path reported by the agent.
func (r *HTTPRetriever) Retrieve(ctx context.Context, req RetrievalRequest) (string, error) {
	body, err := json.Marshal(map[string]any{
		"locator":   req.Locator,
		"date":      req.Date.Format("2006-01-02"),
		"amount":    req.Amount,
		"reference": req.Reference,
	})
	if err != nil {
		return "", fmt.Errorf("encoding retrieval request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/invoices/retrieve", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building retrieval request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", &common.CollaboratorError{Collaborator: "retriever", Op: "retrieve", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrDocumentNotFound
	default:
		return "", &common.CollaboratorError{
			Collaborator: "retriever",
			Op:           "retrieve",
			Err:          fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var out struct {
		FilePath string `json:"file_path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &common.CollaboratorError{Collaborator: "retriever", Op: "decode", Err: err}
	}
	if out.FilePath == "" {
		return "", ErrDocumentNotFound
	}
	return out.FilePath, nil
}

// HTTPExtractor calls a remote content-extraction service over HTTP.
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor creates an extractor against the service's base URL.
func NewHTTPExtractor(baseURL string, client *http.Client) *HTTPExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPExtractor{baseURL: baseURL, client: client}
}

// Extract submits the file path and returns the structured invoice fields.
func (e *HTTPExtractor) Extract(ctx context.Context, filePath string) (*ExtractedInvoice, error) {
	body, err := json.Marshal(map[string]string{"file_path": filePath})
	if err != nil {
		return nil, fmt.Errorf("encoding extraction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/invoices/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &common.CollaboratorError{Collaborator: "extractor", Op: "extract", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrExtractionFailed, resp.StatusCode)
	}

	var raw struct {
		InvoiceDate     string          `json:"invoice_date"`
		InvoiceAmount   decimal.Decimal `json:"invoice_amount"`
		InvoiceNumber   string          `json:"invoice_number"`
		InvoiceCurrency string          `json:"invoice_currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &common.CollaboratorError{Collaborator: "extractor", Op: "decode", Err: err}
	}

	date, err := time.ParseInLocation("2006-01-02", raw.InvoiceDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: bad invoice_date %q", ErrExtractionFailed, raw.InvoiceDate)
	}

	return &ExtractedInvoice{
		Date:          date,
		Amount:        raw.InvoiceAmount,
		InvoiceNumber: raw.InvoiceNumber,
		Currency:      raw.InvoiceCurrency,
		FilePath:      filePath,
	}, nil
}
