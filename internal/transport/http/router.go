// Package httptransport wires the public HTTP surface: middleware stack,
// health and metrics endpoints, and the issuance routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kcc-issuer/internal/platform/health"
	"kcc-issuer/internal/platform/metrics"
	"kcc-issuer/internal/platform/middleware"
	"kcc-issuer/internal/transport/httputil"
	"kcc-issuer/internal/verification/handler"
)

// RouterConfig collects everything the router mounts.
type RouterConfig struct {
	Handler *handler.Handler
	Health  *health.Handler
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter assembles the full middleware stack and all public endpoints.
// Wallets are browser- and app-hosted, so CORS is wide open on the protocol
// routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if cfg.Metrics != nil {
		r.Use(latency(cfg.Metrics))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{Message: "kcc issuer"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	cfg.Health.Register(r)
	cfg.Handler.Register(r)

	return r
}

// latency records per-route request duration, labeled by the chi route
// pattern rather than the raw path so DIDs and record IDs do not explode
// label cardinality.
func latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			endpoint := chi.RouteContext(r.Context()).RoutePattern()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			m.ObserveEndpointLatency(endpoint, time.Since(start).Seconds())
		})
	}
}
