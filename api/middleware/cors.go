package middleware

import (
	"net/http"

	"github.com/igorsal/routewarden/internal/config"
)

const (
	corsAllowedMethods = "GET, POST, PUT, DELETE, PATCH"
	corsAllowedHeaders = "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization"
)

// CORSMiddleware allows the configured origin, or any origin for "*"
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := cfg.AllowedOrigin
			if origin == "" {
				origin = "*"
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
