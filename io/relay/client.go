package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/igorsal/routewarden/internal/config"
	"github.com/igorsal/routewarden/internal/interfaces"
	"github.com/igorsal/routewarden/internal/models"
	"github.com/igorsal/routewarden/pkg/breaker"
	pkgerrors "github.com/igorsal/routewarden/pkg/errors"
)

const proxyPath = "/proxy"

// Client sends prepared requests to a relay's POST /proxy endpoint
type Client struct {
	httpClient     *resty.Client
	logger         interfaces.Logger
	circuitBreaker interfaces.CircuitBreaker
	metrics        interfaces.MetricsCollector
}

var _ interfaces.RelayClient = (*Client)(nil)

// NewClient creates a relay client with circuit breaker and metrics
func NewClient(cfg config.ClientConfig, logger interfaces.Logger, metrics interfaces.MetricsCollector) *Client {
	cb := breaker.New("relay", breaker.Settings(cfg.Breaker), logger, metrics)
	return NewClientWithBreaker(cfg.RelayURL, cfg.RelayTimeout, cb, logger, metrics)
}

// NewClientWithBreaker creates a relay client around an existing breaker
func NewClientWithBreaker(baseURL string, timeout time.Duration, cb interfaces.CircuitBreaker, logger interfaces.Logger, metrics interfaces.MetricsCollector) *Client {
	// No retries: a send is attempted exactly once
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBaseURL(baseURL)

	return &Client{
		httpClient:     client,
		logger:         logger,
		circuitBreaker: cb,
		metrics:        metrics,
	}
}

// Dispatch posts req to the relay. Upstream error statuses come back as a
// normal response; only a relay error body or an unreachable relay is an error.
func (c *Client) Dispatch(ctx context.Context, req models.ProxyRequest) (*models.ProxyResponse, error) {
	startTime := time.Now()
	labels := map[string]string{
		"service":   "relay",
		"operation": "proxy",
	}

	c.logger.Debug("Dispatching request to relay",
		"method", req.Method,
		"url", req.URL,
		"circuit_breaker_state", c.circuitBreaker.State(),
	)

	// Errors the relay reported about the upstream do not count against the breaker
	var relayErr error
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := c.executeDispatch(ctx, req)
		if err != nil && pkgerrors.IsAppError(err) {
			relayErr = err
			return nil, nil
		}
		return resp, err
	})

	duration := time.Since(startTime).Seconds()
	c.metrics.RecordDuration("relay_request_duration_seconds", duration, labels)

	if err == nil && relayErr != nil {
		err = relayErr
	}

	if err != nil {
		labels["status"] = "error"
		c.metrics.IncrementCounter("relay_requests_total", labels)

		if breaker.IsOpen(err) {
			c.logger.Error("Relay circuit breaker open", err, "state", c.circuitBreaker.State())
			return nil, pkgerrors.NewUnavailableError("relay").WithCause(err)
		}
		if !pkgerrors.IsAppError(err) {
			err = pkgerrors.NewTransportError(c.httpClient.BaseURL+proxyPath, err)
		}

		c.logger.Error("Relay dispatch failed", err, "method", req.Method, "url", req.URL)
		return nil, err
	}

	labels["status"] = "success"
	c.metrics.IncrementCounter("relay_requests_total", labels)

	return result.(*models.ProxyResponse), nil
}

func (c *Client) executeDispatch(ctx context.Context, req models.ProxyRequest) (*models.ProxyResponse, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post(proxyPath)
	if err != nil {
		return nil, err
	}

	body := resp.Body()

	if resp.IsError() {
		if appErr := relayError(resp.StatusCode(), body); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("relay responded with HTTP %d", resp.StatusCode())
	}

	var proxyResp models.ProxyResponse
	if err := json.Unmarshal(body, &proxyResp); err != nil {
		return nil, pkgerrors.NewExternalError("relay", "failed to parse response").WithCause(err)
	}
	return &proxyResp, nil
}

// relayError turns a structured relay error body into an AppError whose
// Details is the relay's details message. Bodies without one yield nil.
func relayError(status int, body []byte) *pkgerrors.AppError {
	if !gjson.ValidBytes(body) {
		return nil
	}

	parsed := gjson.ParseBytes(body)
	details := parsed.Get("details")
	message := parsed.Get("error")
	if !details.Exists() && !message.Exists() {
		return nil
	}

	errType := pkgerrors.ErrorType(parsed.Get("type").String())
	if errType == "" {
		errType = pkgerrors.ErrorTypeTransport
	}

	appErr := &pkgerrors.AppError{
		Type:       errType,
		Message:    message.String(),
		StatusCode: status,
	}
	if details.String() != "" {
		appErr.Cause = errors.New(details.String())
	}
	if appErr.Message == "" {
		appErr.Message = fmt.Sprintf("relay responded with HTTP %d", status)
	}
	return appErr
}
