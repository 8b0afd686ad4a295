package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/igorsal/routewarden/api/middleware"
	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// DefaultMaxBodySize caps the /proxy request body when none is configured
const DefaultMaxBodySize = 10 * 1024 * 1024

type ProxyHandler struct {
	relay        interfaces.RelayService
	validator    *validator.Validate
	maxBodyBytes int64
	logger       interfaces.Logger
	metrics      interfaces.MetricsCollector
}

func NewProxyHandler(relay interfaces.RelayService, maxBodyBytes int64, logger interfaces.Logger, metrics interfaces.MetricsCollector) *ProxyHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodySize
	}
	return &ProxyHandler{
		relay:        relay,
		validator:    validator.New(),
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
		metrics:      metrics,
	}
}

// Handle performs the requested call upstream. Any upstream status is a 200
// from here; 400 means the request was unusable and 500 that the upstream
// could not be reached.
func (h *ProxyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	labels := map[string]string{
		"service":   "relay",
		"operation": "proxy",
	}

	var req models.ProxyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("request body too large").WithCause(err))
			return
		}
		middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		middleware.WriteError(w, r, h.logger, pkgerrors.NewValidationError("validation failed").WithCause(err))
		return
	}

	resp, err := h.relay.Forward(r.Context(), req)

	h.metrics.RecordDuration("relay_request_duration_seconds", time.Since(startTime).Seconds(), labels)
	if err != nil {
		labels["status"] = "error"
		h.metrics.IncrementCounter("relay_requests_total", labels)
		middleware.WriteError(w, r, h.logger, err)
		return
	}

	labels["status"] = "success"
	h.metrics.IncrementCounter("relay_requests_total", labels)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode proxy response", err)
	}
}
