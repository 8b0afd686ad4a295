// Package api wires the relay's HTTP surface.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/igorsal/routewarden/api/handlers"
	"github.com/igorsal/routewarden/api/middleware"
	"github.com/igorsal/routewarden/internal/config"
	"github.com/igorsal/routewarden/internal/interfaces"
)

// NewRouter builds the relay handler. metricsHandler serves GET /metrics
// and may be nil.
func NewRouter(cfg *config.Config, relay interfaces.RelayService, logger interfaces.Logger, metrics interfaces.MetricsCollector, metricsHandler http.Handler) http.Handler {
	healthHandler := handlers.NewHealthHandler(logger, metrics)
	proxyHandler := handlers.NewProxyHandler(relay, cfg.Relay.MaxBodyBytes, logger, metrics)

	router := mux.NewRouter()

	// Apply global middleware in order
	router.Use(middleware.PanicRecoveryMiddleware(logger))
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/", healthHandler.Info).Methods(http.MethodGet)
	router.HandleFunc("/health", healthHandler.Handle).Methods(http.MethodGet)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	limit := middleware.RateLimitMiddleware(cfg.RateLimit, logger)
	router.Handle("/proxy", limit(http.HandlerFunc(proxyHandler.Handle))).Methods(http.MethodPost)

	// CORS wraps the router so preflight requests are answered before route matching
	return middleware.CORSMiddleware(cfg.CORS)(router)
}
