package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAppError_FindsWrappedError(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := fmt.Errorf("dispatch: %w", NewTransportError("http://localhost:1", cause))

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeTransport, appErr.Type)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.Equal(t, "dial tcp: connection refused", appErr.Details())
	assert.True(t, IsType(err, ErrorTypeTransport))
	assert.False(t, IsType(err, ErrorTypeMalformedBody))
}

func TestAppError_DetailsWithoutCause(t *testing.T) {
	err := NewValidationError("url is required")
	assert.Equal(t, "url is required", err.Details())
	assert.Equal(t, "url is required", err.Error())
}

func TestNewMalformedBodyError(t *testing.T) {
	var v any
	cause := json.Unmarshal([]byte("{"), &v)
	require.Error(t, cause)

	err := NewMalformedBodyError(cause)
	assert.Equal(t, ErrorTypeMalformedBody, err.Type)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Contains(t, err.Error(), "request body is not valid JSON")
}

func TestWithContext(t *testing.T) {
	err := NewPersistenceError("request_history", fmt.Errorf("disk full")).WithContext("user_id", "u1")
	assert.Equal(t, "request_history", err.Context["table"])
	assert.Equal(t, "u1", err.Context["user_id"])
	assert.False(t, IsAppError(fmt.Errorf("plain")))
}
