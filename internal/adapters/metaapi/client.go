package metaapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"traderDashboard/internal/ports"
)

const (
	// Base URL template of the MetaApi MetaTrader client API, keyed by region.
	baseURLTemplate = "https://mt-client-api-v1.%s.agiliumtrade.ai"
	defaultRegion   = "new-york"

	// Layout MetaApi expects for time path parameters.
	timeLayout = "2006-01-02T15:04:05.000Z"
)

// Client talks to the MetaApi REST API. It holds no per-account state; use
// Account to get a handle bound to one MetaTrader account.
type Client struct {
	http   *resty.Client
	logger ports.Logger
}

// Config holds configuration specific to the MetaApi client adapter.
type Config struct {
	Token      string        // MetaApi auth token
	Region     string        // MetaApi region, e.g. "new-york", "london"
	BaseURL    string        // Overrides the region URL (tests, private deployments)
	Timeout    time.Duration // Per-request timeout
	MaxRetries int           // Retries on transport errors, 429 and 5xx
	RetryWait  time.Duration // Initial wait between retries
	Logger     ports.Logger
}

// New creates a new MetaApi client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for MetaApi client")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("MetaApi token is required: %w", ports.ErrConfigurationError)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		region := cfg.Region
		if region == "" {
			region = defaultRegion
		}
		baseURL = fmt.Sprintf(baseURLTemplate, region)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryWait := cfg.RetryWait
	if retryWait <= 0 {
		retryWait = 500 * time.Millisecond
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("auth-token", cfg.Token).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(10 * retryWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		})

	cfg.Logger.Info(context.Background(), "MetaApi client configured", map[string]interface{}{"baseURL": baseURL, "maxRetries": cfg.MaxRetries})

	return &Client{http: httpClient, logger: cfg.Logger}, nil
}

// Account returns a data-source handle for the MetaApi account accountID.
func (c *Client) Account(accountID string) *Account {
	return &Account{client: c, id: accountID}
}

// errorBody is the error payload MetaApi returns with non-2xx responses.
type errorBody struct {
	ID      int    `json:"id"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// get performs a GET on path, decoding a 2xx body into result.
func (c *Client) get(ctx context.Context, op, path string, params map[string]string, result interface{}) error {
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(params).
		SetResult(result).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	if resp.IsError() {
		return c.handleStatus(ctx, resp.StatusCode(), apiErr, op)
	}
	return nil
}

// handleError translates transport-level failures into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	fields := map[string]interface{}{"operation": operation}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUpstreamUnavailable, err)
	}
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// handleStatus translates MetaApi HTTP error responses into standardized ports errors.
func (c *Client) handleStatus(ctx context.Context, status int, body errorBody, operation string) error {
	var mapped error
	switch {
	case status == http.StatusBadRequest:
		mapped = ports.ErrInvalidRequest
	case status == http.StatusUnauthorized:
		mapped = ports.ErrAuthenticationFailed
	case status == http.StatusForbidden:
		mapped = ports.ErrPermissionDenied
	case status == http.StatusNotFound:
		mapped = ports.ErrNotFound
	case status == http.StatusConflict:
		// Account is not deployed or not connected to the broker yet
		mapped = ports.ErrAccountNotDeployed
	case status == http.StatusTooManyRequests:
		mapped = ports.ErrRateLimited
	case status >= http.StatusInternalServerError:
		mapped = ports.ErrUpstreamUnavailable
	default:
		mapped = ports.ErrUnknown
	}

	msg := body.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	finalErr := fmt.Errorf("%s failed: %w: status %d: %s", operation, mapped, status, msg)
	c.logger.Error(ctx, finalErr, fmt.Sprintf("%s failed with API error", operation), map[string]interface{}{
		"operation":  operation,
		"status":     status,
		"errorName":  body.Error,
		"apiMessage": body.Message,
	})
	return finalErr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
