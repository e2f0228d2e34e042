package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"conduit/core"
	"conduit/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps platform response bodies
const maxResponseBytes = 10 * 1024 * 1024

const tracerName = "conduit/platform"

// Options configures a Client.
type Options struct {
	BaseURL        string
	Tokens         *TokenSource
	RequestTimeout time.Duration
	// RateLimit is the outbound requests per second; 0 disables limiting
	RateLimit      float64
	RateBurst      int
	CircuitBreaker core.CircuitBreakerConfig
	// HTTPClient replaces the default transport, mostly for tests
	HTTPClient *http.Client
}

// Client calls the integration platform REST API. It signs every request
// with a platform token, throttles outbound calls and stops calling while
// the platform keeps failing.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  *TokenSource
	limiter *rate.Limiter
	breaker *core.CircuitBreaker
	tracer  trace.Tracer
	logger  *zap.SugaredLogger
}

// NewClient creates a platform client.
func NewClient(opts Options, logger *zap.SugaredLogger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid platform base URL %q", opts.BaseURL)
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("platform token source is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = core.DefaultPlatformTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	breaker, err := core.NewCircuitBreaker(opts.CircuitBreaker, func(from, to core.CircuitBreakerState) {
		metrics.SetCircuitState(string(to))
		logger.Warnw("Platform circuit breaker changed state", "from", from, "to", to)
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		tokens:  opts.Tokens,
		limiter: limiter,
		breaker: breaker,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}, nil
}

// BreakerState reports the circuit breaker state, for health checks.
func (c *Client) BreakerState() core.CircuitBreakerState {
	return c.breaker.State()
}

// errorBody is the error payload the platform sends with non-2xx answers
type errorBody struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request. body, when not nil, is sent as JSON; out, when not
// nil, receives the decoded 2xx response.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "platform."+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("platform.path", path),
	)
	start := time.Now()
	result := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.RecordPlatformRequest(operation, result, time.Since(start).Seconds())
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			result = "rejected"
			return fmt.Errorf("platform rate limit: %w", err)
		}
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			result = "error"
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
	}

	err = c.breaker.Execute(func() error {
		return c.send(ctx, method, c.endpoint(path, query), payload, out, span)
	}, countsAsFailure)
	switch {
	case errors.Is(err, core.ErrCircuitBreakerOpen), errors.Is(err, core.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	if err != nil {
		c.logger.Debugw("Platform request failed", "operation", operation, "path", path, "error", err)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, out any, span trace.Span) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach platform: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read platform response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) *core.PlatformError {
	perr := &core.PlatformError{Status: status}
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && (body.Message != "" || body.Data != nil) {
		perr.Message = body.Message
		perr.Data = body.Data
		return perr
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > core.MaxErrorMessageLength {
		msg = msg[:core.MaxErrorMessageLength]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	perr.Message = msg
	return perr
}

// countsAsFailure trips the breaker on transport errors and on 5xx/429, but
// not on client errors or on the caller giving up.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perr *core.PlatformError
	if errors.As(err, &perr) {
		return perr.Temporary()
	}
	return true
}
