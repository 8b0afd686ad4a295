package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/pkg/breaker"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
	"github.com/igorsal/routewarden/pkg/logger"
	"github.com/igorsal/routewarden/pkg/metrics"
)

func newTestClient(t *testing.T, baseURL string, failures uint32) (*Client, *metrics.PrometheusCollector) {
	t.Helper()
	m := metrics.NewClientCollector(prometheus.NewRegistry())
	cb := breaker.New("relay", breaker.Settings{ConsecutiveFailures: failures, Timeout: time.Minute}, logger.NewNop(), m)
	return NewClientWithBreaker(baseURL, 5*time.Second, cb, logger.NewNop(), m), m
}

func TestClient_DispatchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/proxy", r.URL.Path)

		var got models.ProxyRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "https://api.example.com/x", got.URL)
		assert.Equal(t, "GET", got.Method)
		assert.Equal(t, "1", got.Params["page"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":404,"statusText":"Not Found","headers":{},"data":{"ok":false},"time":"3 ms","size":"12 bytes"}`))
	}))
	defer server.Close()

	client, m := newTestClient(t, server.URL, 3)
	resp, err := client.Dispatch(context.Background(), models.ProxyRequest{
		URL:    "https://api.example.com/x",
		Method: "GET",
		Params: map[string]string{"page": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "Not Found", resp.StatusText)
	assert.JSONEq(t, `{"ok":false}`, string(resp.Data))
	assert.Equal(t, "3 ms", resp.Time)

	success := map[string]string{"service": "relay", "operation": "proxy", "status": "success"}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Counter("relay_requests_total").With(success)))
}

func TestClient_RelayErrorDetailsSurfaceVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Error sending request","details":"getaddrinfo ENOTFOUND nope.invalid"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 1)

	for i := 0; i < 3; i++ {
		_, err := client.Dispatch(context.Background(), models.ProxyRequest{URL: "https://nope.invalid", Method: "GET"})
		require.Error(t, err)

		appErr, ok := pkgerrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "getaddrinfo ENOTFOUND nope.invalid", appErr.Details())
		assert.Equal(t, pkgerrors.ErrorTypeTransport, appErr.Type)
	}

	assert.Equal(t, "closed", client.circuitBreaker.State())
}

func TestClient_UnstructuredErrorFallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, 5)
	_, err := client.Dispatch(context.Background(), models.ProxyRequest{URL: "https://a.test", Method: "GET"})
	require.Error(t, err)

	appErr, ok := pkgerrors.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details(), "HTTP 502")
}

func TestClient_UnreachableRelayTripsBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, m := newTestClient(t, baseURL, 2)

	for i := 0; i < 2; i++ {
		_, err := client.Dispatch(context.Background(), models.ProxyRequest{URL: "https://a.test", Method: "GET"})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeTransport))
		assert.NotEmpty(t, err.Error())
	}

	_, err := client.Dispatch(context.Background(), models.ProxyRequest{URL: "https://a.test", Method: "GET"})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))

	failed := map[string]string{"service": "relay", "operation": "proxy", "status": "error"}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Counter("relay_requests_total").With(failed)))
}

func TestRelayError(t *testing.T) {
	assert.Nil(t, relayError(500, []byte("oops")))
	assert.Nil(t, relayError(500, []byte(`{"message":"x"}`)))

	appErr := relayError(400, []byte(`{"error":"invalid request","details":"url is required","type":"validation"}`))
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeValidation, appErr.Type)
	assert.Equal(t, "url is required", appErr.Details())
	assert.Equal(t, 400, appErr.StatusCode)
}
