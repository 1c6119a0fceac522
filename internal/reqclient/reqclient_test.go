package reqclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/events"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/resilience"
)

type validation struct {
	Valid      bool   `json:"valid"`
	Feedback   string `json:"feedback"`
	TrustScore int    `json:"trustScore"`
}

// sleepRecorder captures backoff delays without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newTestClient(baseURL string, opts ...Option) (*Client, *sleepRecorder) {
	sr := &sleepRecorder{}
	opts = append([]Option{WithSleep(sr.sleep)}, opts...)
	return New(Config{BaseURL: baseURL}, opts...), sr
}

func TestCall_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/validate-input", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "corr-1", r.Header.Get(correlation.HeaderName))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "retail", body["businessType"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid":true,"feedback":"looks good","trustScore":88}`))
	}))
	defer srv.Close()

	client, sr := newTestClient(srv.URL)
	got, resp, err := CallJSON[validation](context.Background(), client, Envelope{
		Endpoint:      "/v1/validate-input",
		Payload:       map[string]string{"businessType": "retail"},
		CorrelationID: "corr-1",
	})

	require.NoError(t, err)
	assert.Equal(t, validation{Valid: true, Feedback: "looks good", TrustScore: 88}, got)
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, "corr-1", resp.CorrelationID)
	assert.Empty(t, sr.Delays())
}

func TestCall_FailOnceThenSucceed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"valid":true,"feedback":"remote","trustScore":70}`))
	}))
	defer srv.Close()

	rec := &events.Recorder{}
	client, sr := newTestClient(srv.URL, WithObserver(rec))
	got, resp, err := CallJSON[validation](context.Background(), client, Envelope{Endpoint: "/v1/validate-input"})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "remote", got.Feedback)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, sr.Delays())

	attempts := rec.Attempts()
	require.Len(t, attempts, 2)
	assert.Equal(t, http.StatusServiceUnavailable, attempts[0].StatusCode)
	assert.Error(t, attempts[0].Err)
	assert.NoError(t, attempts[1].Err)
	require.Len(t, rec.Retries(), 1)
	assert.Equal(t, 0, rec.Retries()[0].Attempt)
}

func TestCall_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	client, sr := newTestClient(srv.URL)
	_, err := client.Call(context.Background(), Envelope{Endpoint: "/v1/generate-sparks", MaxAttempts: 3})

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sr.Delays())

	var se *resilience.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Contains(t, err.Error(), "3 attempt(s)")
}

func TestCall_SameCorrelationIDAcrossRetries(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get(correlation.HeaderName))
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	ctx := correlation.NewContext(context.Background(), "from-ctx")
	_, err := client.Call(ctx, Envelope{Endpoint: "/v1/spark-split"})
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	for _, id := range seen {
		assert.Equal(t, "from-ctx", id)
	}
}

func TestCall_MintsCorrelationID(t *testing.T) {
	t.Parallel()

	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get(correlation.HeaderName))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	resp, err := client.Call(context.Background(), Envelope{Endpoint: "/v1/log"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CorrelationID)
	assert.Equal(t, resp.CorrelationID, got.Load())
}

func TestCall_TimeoutAbortsAttempt(t *testing.T) {
	t.Parallel()

	var aborted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			aborted.Add(1)
		case <-time.After(5 * time.Second):
			w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	client, sr := newTestClient(srv.URL)
	start := time.Now()
	_, err := client.Call(context.Background(), Envelope{
		Endpoint:    "/v1/spark-split",
		Timeout:     50 * time.Millisecond,
		MaxAttempts: 2,
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	var te *resilience.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Len(t, sr.Delays(), 2)
	assert.Eventually(t, func() bool { return aborted.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestCall_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &events.Recorder{}
	client, _ := newTestClient(url, WithObserver(rec))
	_, err := client.Call(context.Background(), Envelope{Endpoint: "/v1/validate-input"})

	require.Error(t, err)
	var ne *resilience.NetworkError
	assert.True(t, errors.As(err, &ne))
	assert.Len(t, rec.Attempts(), 3)
}

// ctxCapture records the context of every outgoing request.
type ctxCapture struct {
	mu   sync.Mutex
	ctxs []context.Context
	next http.RoundTripper
}

func (c *ctxCapture) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.ctxs = append(c.ctxs, r.Context())
	c.mu.Unlock()
	return c.next.RoundTrip(r)
}

func TestCall_AttemptDeadlineReleasedOnCompletion(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	capture := &ctxCapture{next: http.DefaultTransport}
	client, _ := newTestClient(srv.URL, WithHTTPClient(&http.Client{Transport: capture}))
	_, err := client.Call(context.Background(), Envelope{Endpoint: "/v1/validate-input", Timeout: time.Hour})
	require.NoError(t, err)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	require.Len(t, capture.ctxs, 2)
	for i, ctx := range capture.ctxs {
		// Cancelled by the attempt itself, long before its one-hour deadline.
		assert.ErrorIs(t, ctx.Err(), context.Canceled, "attempt %d", i)
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.True(t, time.Until(deadline) > 50*time.Minute)
	}
}

func TestCall_EmptyEndpoint(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient("http://example.invalid")
	_, err := client.Call(context.Background(), Envelope{Endpoint: "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")
}

func TestCall_RelativeEndpointWithoutBaseURL(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient("")
	_, err := client.Call(context.Background(), Envelope{Endpoint: "/v1/validate-input"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without base url")
}

func TestCall_UnserializablePayloadNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	_, err := client.Call(context.Background(), Envelope{Endpoint: "/x", Payload: map[string]any{"ch": make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal payload")
	assert.Equal(t, int32(0), calls.Load())
}

func TestCall_CancelledContextStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	_, err := client.Call(ctx, Envelope{Endpoint: "/v1/validate-input"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_AbsoluteEndpointAndExtraHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hooks/abc", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client, _ := newTestClient("http://unused.invalid")
	resp, err := client.Call(context.Background(), Envelope{
		Endpoint: srv.URL + "/hooks/abc",
		Header:   http.Header{"apikey": []string{"secret"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCallJSON_DecodeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	_, resp, err := CallJSON[validation](context.Background(), client, Envelope{Endpoint: "/v1/validate-input"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	require.NotNil(t, resp)
	assert.Equal(t, 1, resp.Attempts)
}

func TestCallJSON_EmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	_, _, err := CallJSON[validation](context.Background(), client, Envelope{Endpoint: "/v1/validate-input"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response body")
}

func TestCall_Span(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	client, _ := newTestClient(srv.URL, WithTracerProvider(tp))

	_, err := client.Call(context.Background(), Envelope{Endpoint: "/v1/validate-input", CorrelationID: "trace-me", MaxAttempts: 2})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "reqclient.call", spans[0].Name())
	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "trace-me", attrs["canai.correlation_id"])
	assert.Equal(t, int64(2), attrs["canai.attempts"])
}

func TestWebhookURL(t *testing.T) {
	t.Parallel()

	client := New(Config{WebhookURLs: map[string]string{"validation": "https://hook.example/v", "error": "  "}})
	u, ok := client.WebhookURL("validation")
	assert.True(t, ok)
	assert.Equal(t, "https://hook.example/v", u)

	_, ok = client.WebhookURL("error")
	assert.False(t, ok)
	_, ok = client.WebhookURL("purchase")
	assert.False(t, ok)
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := New(Config{}).Config()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultBackoffBase, cfg.BackoffBase)
}
