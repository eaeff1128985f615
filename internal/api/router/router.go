package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chatlens/cadence/internal/analysis"
	httpmiddleware "github.com/chatlens/cadence/internal/http/middleware"
	"github.com/chatlens/cadence/internal/observability/metrics"
	"github.com/chatlens/cadence/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	AnalysisHandler *analysis.Handler
	MetricsHandler  http.Handler
	Metrics         *metrics.AnalysisMetrics

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Health check dependency (optional).
	DB *sql.DB
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(httpmiddleware.HTTPMetrics(cfg.Metrics))
	}
	if cfg.RateLimitPerSecond > 0 && cfg.RateLimitBurst > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	r.Get("/health", healthCheck(cfg.DB))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.AnalysisHandler != nil {
		r.Route("/v1", func(v1 chi.Router) {
			v1.Post("/conversations", cfg.AnalysisHandler.CreateConversation)
			v1.Route("/conversations/{conversationID}", func(conv chi.Router) {
				conv.Post("/messages", cfg.AnalysisHandler.AppendMessages)
				conv.Post("/analyze", cfg.AnalysisHandler.Analyze)
				conv.Get("/metrics", cfg.AnalysisHandler.GetMetrics)
			})
			v1.Get("/jobs/{jobID}", cfg.AnalysisHandler.JobStatus)

			if cfg.AdminAuthSecret != "" {
				v1.Route("/admin", func(admin chi.Router) {
					admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
					admin.Delete("/conversations/{conversationID}", cfg.AnalysisHandler.DeleteConversation)
					admin.Post("/conversations/{conversationID}/reanalyze", cfg.AnalysisHandler.Reanalyze)
				})
			}
		})
	}

	return r
}

func healthCheck(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
