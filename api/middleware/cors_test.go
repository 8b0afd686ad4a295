package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/igorsal/routewarden/internal/config"
)

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	tests := []struct {
		name       string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard default", "", http.MethodPost, "*", http.StatusAccepted},
		{"configured origin", "https://app.example.com", http.MethodGet, "https://app.example.com", http.StatusAccepted},
		{"preflight short circuits", "*", http.MethodOptions, "*", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CORSMiddleware(config.CORSConfig{AllowedOrigin: tt.origin})(next).
				ServeHTTP(rec, httptest.NewRequest(tt.method, "/proxy", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, PUT, DELETE, PATCH", rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}

func TestRateLimitMiddleware_DisabledPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := RateLimitMiddleware(config.RateLimitConfig{}, nil)(next)

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/proxy", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
