package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/igorsal/routewarden/internal/config"
	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

// RelayService performs the outbound call for POST /proxy. Every upstream
// status code is a successful relay; only transport failures are errors.
type RelayService struct {
	httpClient *http.Client
	logger     interfaces.Logger
	metrics    interfaces.MetricsCollector
}

// NewRelayService creates a relay with its own HTTP client
func NewRelayService(cfg config.RelayConfig, logger interfaces.Logger, metrics interfaces.MetricsCollector) *RelayService {
	return &RelayService{
		httpClient: &http.Client{
			Timeout: cfg.UpstreamTimeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// NewRelayServiceWithClient creates a relay around an existing HTTP client
func NewRelayServiceWithClient(client *http.Client, logger interfaces.Logger, metrics interfaces.MetricsCollector) *RelayService {
	return &RelayService{
		httpClient: client,
		logger:     logger,
		metrics:    metrics,
	}
}

// Forward sends req upstream and normalizes whatever comes back
func (s *RelayService) Forward(ctx context.Context, req models.ProxyRequest) (*models.ProxyResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))

	target, err := MergeQuery(req.URL, req.Params)
	if err != nil {
		return nil, s.transportFailure(method, req.URL, err, 0)
	}

	s.logger.Info("Sending upstream request", "method", method, "url", target)

	body, contentType, err := outboundBody(method, req.Body)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid body").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, s.transportFailure(method, target, err, 0)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, s.transportFailure(method, target, err, time.Since(start))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.transportFailure(method, target, err, time.Since(start))
	}
	elapsed := time.Since(start)

	data := normalizeData(respBody)

	labels := map[string]string{"method": method, "outcome": "ok"}
	s.metrics.IncrementCounter("upstream_requests_total", labels)
	s.metrics.RecordDuration("upstream_request_duration_seconds", elapsed.Seconds(), labels)
	s.metrics.AddCounter("upstream_response_bytes_total", float64(len(data)), map[string]string{"method": method})

	s.logger.Debug("Upstream request completed",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &models.ProxyResponse{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    flattenHeaders(resp.Header),
		Data:       data,
		Time:       FormatMillis(elapsed),
		Size:       fmt.Sprintf("%d bytes", len(data)),
	}, nil
}

func (s *RelayService) transportFailure(method, target string, err error, elapsed time.Duration) error {
	labels := map[string]string{"method": method, "outcome": "transport_error"}
	s.metrics.IncrementCounter("upstream_requests_total", labels)
	if elapsed > 0 {
		s.metrics.RecordDuration("upstream_request_duration_seconds", elapsed.Seconds(), labels)
	}
	s.logger.Error("Proxy error", err, "method", method, "url", target)
	return pkgerrors.NewTransportError(target, err)
}

// FormatMillis renders d rounded to the nearest millisecond, e.g. "12 ms"
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%d ms", d.Round(time.Millisecond).Milliseconds())
}

// MergeQuery appends params to rawURL's query string. The query as typed is
// kept byte for byte: existing keys are neither reordered nor replaced, and a
// pair already present with the same value is not added again, so merging
// twice yields the same URL.
func MergeQuery(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	// ParseQuery reports bad escapes but still returns the pairs it understood
	existing, _ := url.ParseQuery(u.RawQuery)

	extra := url.Values{}
	for k, v := range params {
		if slices.Contains(existing[k], v) {
			continue
		}
		extra.Set(k, v)
	}
	if len(extra) == 0 {
		return rawURL, nil
	}

	if u.RawQuery == "" {
		u.RawQuery = extra.Encode()
	} else {
		u.RawQuery += "&" + extra.Encode()
	}
	return u.String(), nil
}

// outboundBody decides what goes on the wire. A JSON string is sent as raw
// text; any other JSON value is sent encoded as application/json.
func outboundBody(method string, raw json.RawMessage) (io.Reader, string, error) {
	if method == http.MethodGet || method == http.MethodHead {
		return nil, "", nil
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, "", nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, "", err
		}
		return strings.NewReader(text), "", nil
	}

	return bytes.NewReader(trimmed), "application/json", nil
}

// normalizeData returns the body as JSON when it parses as JSON and as a
// JSON string otherwise.
func normalizeData(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && gjson.ValidBytes(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.Bytes()
		}
	}
	return marshalString(string(body))
}

func marshalString(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, values := range h {
		out[strings.ToLower(k)] = strings.Join(values, ", ")
	}
	return out
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
