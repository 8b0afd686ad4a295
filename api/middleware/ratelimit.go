package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/igorsal/routewarden/internal/config"
	"github.com/igorsal/routewarden/internal/interfaces"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// RateLimitMiddleware throttles all requests with one token bucket. A
// disabled config passes every request through.
func RateLimitMiddleware(cfg config.RateLimitConfig, logger interfaces.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				WriteError(w, r, logger, pkgerrors.NewRateLimitError("relay"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
