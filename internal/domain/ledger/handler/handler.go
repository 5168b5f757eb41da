// Package handler exposes the query surface over HTTP with JSON bodies.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ivyfin/ivy-ledger/internal/domain/common"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/aggregate"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/service"
)

const defaultListLimit = 100

// LedgerHandler serves the read operations plus the refresh trigger.
type LedgerHandler struct {
	svc    *service.PipelineService
	logger *slog.Logger
}

// NewLedgerHandler constructs a new handler.
func NewLedgerHandler(svc *service.PipelineService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

// Register attaches all routes to the mux.
func (h *LedgerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/transactions", h.ListTransactions)
	mux.HandleFunc("GET /v1/transactions/{id}", h.GetTransaction)
	mux.HandleFunc("GET /v1/summary", h.Summary)
	mux.HandleFunc("GET /v1/categories", h.CategorySummaries)
	mux.HandleFunc("GET /v1/categories/top", h.TopCategories)
	mux.HandleFunc("GET /v1/providers", h.ProviderSummaries)
	mux.HandleFunc("GET /v1/months", h.MonthlyFlows)
	mux.HandleFunc("GET /v1/stats", h.Stats)
	mux.HandleFunc("POST /v1/refresh", h.Refresh)
}

// ListTransactions handles GET /v1/transactions?limit=N.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	records, err := h.svc.List(limit)
	if err != nil {
		h.mapError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"transactions": records,
		"count":        len(records),
	})
}

// GetTransaction handles GET /v1/transactions/{id}.
func (h *LedgerHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetByID(r.PathValue("id"))
	if err != nil {
		h.mapError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// Summary handles GET /v1/summary with optional category, provider,
// start_date, end_date and include_invalid query parameters.
func (h *LedgerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := aggregate.Filter{
		Category:       q.Get("category"),
		Provider:       q.Get("provider"),
		IncludeInvalid: q.Get("include_invalid") == "true",
	}

	var err error
	if f.StartDate, err = parseDateParam(q.Get("start_date")); err != nil {
		h.writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	if f.EndDate, err = parseDateParam(q.Get("end_date")); err != nil {
		h.writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	s := h.svc.Summary(f)
	s.TotalAmount = s.TotalAmount.Round(2)
	h.writeJSON(w, http.StatusOK, s)
}

// CategorySummaries handles GET /v1/categories.
func (h *LedgerHandler) CategorySummaries(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"categories": h.svc.CategorySummaries(),
	})
}

// TopCategories handles GET /v1/categories/top?type=expense&limit=N.
func (h *LedgerHandler) TopCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := ledger.TypeExpense
	switch q.Get("type") {
	case "", "expense":
	case "income":
		kind = ledger.TypeIncome
	default:
		h.writeError(w, http.StatusBadRequest, "type must be expense or income")
		return
	}

	limit := 5
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"type":       string(kind),
		"categories": h.svc.TopCategories(kind, limit),
	})
}

// ProviderSummaries handles GET /v1/providers.
func (h *LedgerHandler) ProviderSummaries(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.svc.ProviderSummaries(),
	})
}

// MonthlyFlows handles GET /v1/months.
func (h *LedgerHandler) MonthlyFlows(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"months": h.svc.MonthlyFlows(),
	})
}

// Stats handles GET /v1/stats.
func (h *LedgerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Stats())
}

// Refresh handles POST /v1/refresh with the raw input file as body.
func (h *LedgerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	result, err := h.svc.Refresh(r.Context(), r.Body)
	if err != nil {
		h.mapError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *LedgerHandler) mapError(w http.ResponseWriter, err error) {
	var malformed *common.MalformedInputError
	switch {
	case errors.Is(err, common.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrBadRequest):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &malformed):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *LedgerHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *LedgerHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
