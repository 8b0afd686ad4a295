package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// WriteError writes err in the relay's error shape {error, details, type}
// with the status code the error carries
func WriteError(w http.ResponseWriter, r *http.Request, logger interfaces.Logger, err error) {
	var (
		statusCode int
		errorResp  models.ProxyError
	)

	if appErr, ok := pkgerrors.AsAppError(err); ok {
		statusCode = appErr.StatusCode
		errorResp = models.ProxyError{
			Error:   appErr.Message,
			Details: appErr.Details(),
			Type:    string(appErr.Type),
		}
	} else {
		statusCode = http.StatusInternalServerError
		errorResp = models.ProxyError{
			Error:   "Internal server error",
			Details: err.Error(),
			Type:    string(pkgerrors.ErrorTypeInternal),
		}
	}

	logger.Error("Request error",
		err,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"status_code", statusCode,
		"error_type", errorResp.Type,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		logger.Error("Failed to encode error response", err)
	}
}

// PanicRecoveryMiddleware recovers from panics and converts them to errors
func PanicRecoveryMiddleware(logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovery := recover(); recovery != nil {
					logger.Error("Panic recovered",
						pkgerrors.NewInternalError("panic recovered"),
						"method", r.Method,
						"path", r.URL.Path,
						"remote_addr", r.RemoteAddr,
						"panic", recovery,
					)

					WriteError(w, r, logger, pkgerrors.NewInternalError("Internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
