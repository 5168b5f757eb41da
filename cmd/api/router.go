package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/ivyfin/ivy-ledger/pkg/middleware"
	"github.com/ivyfin/ivy-ledger/pkg/observability"
)

const maxRefreshBodyBytes int64 = 32 << 20 // 32 MiB

// SetupRouter configures all routes and returns the HTTP handler.
func SetupRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	deps.LedgerHandler.Register(mux)
	deps.Logger.Info("registered ledger routes", "prefix", "/v1")

	registerChatRoutes(mux, deps)
	registerUtilityRoutes(mux, deps)

	tracer := otel.GetTracerProvider().Tracer("ivy-ledger/api")

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID("X-Request-ID"),
		middleware.Tracing(tracer),
	}
	if deps.Config.Server.RateLimitPerSecond > 0 && deps.Config.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(
			rate.Limit(float64(deps.Config.Server.RateLimitPerSecond)),
			deps.Config.Server.RateLimitBurst,
		)
		mws = append(mws, middleware.RateLimit(limiter))
	}
	mws = append(mws,
		middleware.Recovery(deps.Logger),
		middleware.Logging(deps.Logger),
		observability.Metrics(),
	)

	handler := middleware.Chain(limitBody(mux), mws...)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // narrow to the dashboard origin in prod
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           7200, // cache preflights for 2 hours
	})

	return corsHandler.Handler(handler)
}

// limitBody caps request bodies so a refresh upload cannot exhaust memory.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRefreshBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// registerChatRoutes exposes the question endpoint backed by intent routing.
func registerChatRoutes(mux *http.ServeMux, deps *Dependencies) {
	type chatRequest struct {
		Question string `json:"question"`
	}
	type chatResponse struct {
		Intent string `json:"intent"`
		Answer string `json:"answer"`
	}

	mux.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			http.Error(w, "question is required", http.StatusBadRequest)
			return
		}

		intent, answer := deps.Responder.Answer(req.Question)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(chatResponse{Intent: string(intent), Answer: answer}); err != nil {
			deps.Logger.Error("failed to encode chat response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered chat endpoint", "path", "/v1/chat")
}

// registerUtilityRoutes registers health check, readiness and metrics routes.
func registerUtilityRoutes(mux *http.ServeMux, deps *Dependencies) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.Health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				if _, writeErr := w.Write([]byte("database unhealthy")); writeErr != nil {
					deps.Logger.Error("failed to write health response", slog.Any("error", writeErr))
				}
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			deps.Logger.Error("failed to write health response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health check", "path", "/health")

	mux.HandleFunc("GET /health/details", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status string `json:"status"`
			Detail string `json:"detail,omitempty"`
		}
		result := map[string]status{
			"db":       {Status: "ok"},
			"snapshot": {Status: "ok"},
			"ready":    {Status: "ok"},
		}

		if deps.DB != nil {
			if err := deps.DB.Health(); err != nil {
				result["db"] = status{Status: "fail", Detail: err.Error()}
				result["ready"] = status{Status: "fail", Detail: "db unavailable"}
			}
		} else {
			result["db"] = status{Status: "ok", Detail: "disabled"}
		}

		if deps.PipelineService.Size() == 0 {
			result["snapshot"] = status{Status: "warn", Detail: "no records loaded"}
		}

		w.Header().Set("Content-Type", "application/json")
		for _, v := range result {
			if v.Status == "fail" {
				w.WriteHeader(http.StatusServiceUnavailable)
				if err := json.NewEncoder(w).Encode(result); err != nil {
					deps.Logger.Error("failed to encode health details", slog.Any("error", err))
				}
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			deps.Logger.Error("failed to encode health details", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered health details", "path", "/health/details")

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			deps.Logger.Error("failed to write readiness response", slog.Any("error", err))
		}
	})
	deps.Logger.Info("registered readiness check", "path", "/ready")

	if deps.Config.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
		deps.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
