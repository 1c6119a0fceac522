// Package reqclient executes outbound JSON-over-HTTP calls with a per-attempt
// deadline, exponential backoff between attempts and one correlation ID per
// logical call.
package reqclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/events"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/resilience"
)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 5 * time.Second
	// DefaultMaxAttempts is the total number of attempts per logical call.
	DefaultMaxAttempts = 3
	// DefaultBackoffBase is the delay after the first failed attempt.
	DefaultBackoffBase = time.Second

	maxBodyBytes    = 10 << 20
	maxErrorSnippet = 512
	tracerName      = "github.com/CanAISolutions/canai-intent-build-sub000/internal/reqclient"
)

// Config is the explicit construction-time configuration of a Client. Every
// field is optional; zero values take the documented defaults.
type Config struct {
	// BaseURL is joined with relative endpoints. Empty means endpoints must
	// be absolute.
	BaseURL string
	// Timeout bounds each attempt. Default: 5s.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget per call. Default: 3.
	MaxAttempts int
	// BackoffBase is the delay after attempt 0; it doubles per attempt.
	// Default: 1s.
	BackoffBase time.Duration
	// WebhookURLs maps webhook event types to destination URLs. A missing
	// or empty entry disables that event type.
	WebhookURLs map[string]string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	return c
}

// Envelope is one logical request. It is created per call and discarded
// once the call resolves.
type Envelope struct {
	Endpoint      string
	Method        string // default POST
	Payload       any    // JSON-serializable; nil sends no body
	CorrelationID string // default: from ctx, else freshly minted
	Timeout       time.Duration
	MaxAttempts   int
	Header        http.Header // extra request headers
}

// Response is the successful result of a call.
type Response struct {
	StatusCode    int
	Header        http.Header
	Body          []byte
	Attempts      int
	CorrelationID string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout should be zero or
// larger than the per-attempt timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithObserver sets the event sink for attempts and retries.
func WithObserver(o events.Observer) Option {
	return func(c *Client) {
		c.observer = events.OrNop(o)
	}
}

// WithSleep overrides the backoff sleep (for tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithTracerProvider sets the tracer provider used for call spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// Client is the retrying request client. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	cfg      Config
	http     *http.Client
	observer events.Observer
	sleep    func(ctx context.Context, d time.Duration) error
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg.withDefaults(),
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		observer: events.Nop{},
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// WebhookURL returns the destination configured for eventType.
func (c *Client) WebhookURL(eventType string) (string, bool) {
	u := strings.TrimSpace(c.cfg.WebhookURLs[eventType])
	return u, u != ""
}

// Call executes env with retries. It resolves with the first successful
// attempt and otherwise returns the last observed error after MaxAttempts
// attempts. Timeouts, network failures and non-2xx statuses are retried;
// anything else (bad endpoint, unserializable payload, cancelled ctx) is
// returned immediately.
func (c *Client) Call(ctx context.Context, env Envelope) (*Response, error) {
	if strings.TrimSpace(env.Endpoint) == "" {
		return nil, eris.New("reqclient: endpoint is required")
	}
	target, err := c.resolve(env.Endpoint)
	if err != nil {
		return nil, err
	}

	method := env.Method
	if method == "" {
		method = http.MethodPost
	}

	var body []byte
	if env.Payload != nil {
		body, err = json.Marshal(env.Payload)
		if err != nil {
			return nil, eris.Wrap(err, "reqclient: marshal payload")
		}
	}

	corrID := env.CorrelationID
	if corrID == "" {
		_, corrID = correlation.Ensure(ctx)
	}

	timeout := env.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	maxAttempts := env.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = c.cfg.MaxAttempts
	}

	ctx, span := c.tracer.Start(ctx, "reqclient.call", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("canai.correlation_id", corrID),
			attribute.String("http.request.method", method),
			attribute.String("canai.endpoint", env.Endpoint),
		))
	defer span.End()

	attempts := 0
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = maxAttempts
	retryCfg.InitialBackoff = c.cfg.BackoffBase
	retryCfg.Sleep = c.sleep
	retryCfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.observer.OnRetry(events.Retry{
			CorrelationID: corrID,
			Endpoint:      env.Endpoint,
			Attempt:       attempt,
			Delay:         delay,
			Err:           err,
		})
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Response, error) {
		n := attempts
		attempts++
		start := c.now()
		resp, status, err := c.attempt(ctx, method, target, body, corrID, timeout, env.Header)
		c.observer.OnAttempt(events.Attempt{
			CorrelationID: corrID,
			Endpoint:      env.Endpoint,
			Attempt:       n,
			Duration:      c.now().Sub(start),
			StatusCode:    status,
			Err:           err,
		})
		return resp, err
	})
	span.SetAttributes(attribute.Int("canai.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, resilience.Kind(err))
		return nil, eris.Wrapf(err, "reqclient: %s %s failed after %d attempt(s)", method, env.Endpoint, attempts)
	}

	resp.Attempts = attempts
	return resp, nil
}

// attempt performs one HTTP exchange under its own deadline. The deadline's
// timer is released on every return path.
func (c *Client) attempt(ctx context.Context, method, target string, body []byte, corrID string, timeout time.Duration, extra http.Header) (*Response, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, target, reader)
	if err != nil {
		return nil, 0, eris.Wrap(err, "reqclient: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(correlation.HeaderName, corrID)
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	otel.GetTextMapPropagator().Inject(attemptCtx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, classify(ctx, attemptCtx, timeout, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, classify(ctx, attemptCtx, timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &resilience.StatusError{
			StatusCode: resp.StatusCode,
			Body:       snippet(data),
		}
	}

	return &Response{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		Body:          data,
		CorrelationID: corrID,
	}, resp.StatusCode, nil
}

func classify(parent, attemptCtx context.Context, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return eris.Wrap(err, "reqclient: call cancelled")
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &resilience.TimeoutError{Timeout: timeout, Err: err}
	}
	return &resilience.NetworkError{Err: err}
}

func (c *Client) resolve(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", eris.Wrapf(err, "reqclient: parse endpoint %q", endpoint)
	}
	if u.IsAbs() {
		return endpoint, nil
	}
	if c.cfg.BaseURL == "" {
		return "", eris.Errorf("reqclient: relative endpoint %q without base url", endpoint)
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/"), nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet]
	}
	return s
}

// CallJSON executes env and decodes the response body into T.
func CallJSON[T any](ctx context.Context, c *Client, env Envelope) (T, *Response, error) {
	var out T
	resp, err := c.Call(ctx, env)
	if err != nil {
		return out, nil, err
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, resp, eris.Errorf("reqclient: empty response body from %s", env.Endpoint)
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, resp, eris.Wrapf(err, "reqclient: decode response from %s", env.Endpoint)
	}
	return out, resp, nil
}
