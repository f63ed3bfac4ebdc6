// Package apiclient is a thin JSON client for the remote sports-events
// REST API. Every response uses the envelope {success, data, message};
// failures are returned as *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/sportdesk/internal/version"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second; <= 0 disables
	Burst     int           `mapstructure:"burst"`
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithNow overrides the time source used for token expiry checks.
func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client talks to the sports-events API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Client. BaseURL is required.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("apiclient: base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the common response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// call performs one request and returns the raw body once the envelope
// reports success. endpoint is a low-cardinality label for logs/metrics.
func (c *Client) call(ctx context.Context, endpoint, method, path string, body any) (raw []byte, err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(endpoint, time.Since(start).Seconds(), err)
	}()

	if exp, ok := tokenExpiry(c.token); ok && !c.now().Before(exp) {
		return nil, newError(ErrCodeTokenExpired, "API token expired at "+exp.UTC().Format(time.RFC3339), nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, mapTransportError(err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		mapped := mapTransportError(err)
		c.logger.Debug("api request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, mapped
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, newError(ErrCodeNetwork, "read response body", err)
	}

	c.logger.Debug("api request",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return nil, &Error{Code: ErrCodeStatus, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, newError(ErrCodeMalformed, "response is not a JSON envelope", decodeErr)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, &Error{Code: ErrCodeRejected, StatusCode: resp.StatusCode, Message: msg}
	}
	return raw, nil
}

// decode unmarshals raw into out, mapping failures to ErrCodeMalformed.
func decode(endpoint string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return newError(ErrCodeMalformed, "unexpected "+endpoint+" response shape", err)
	}
	return nil
}
