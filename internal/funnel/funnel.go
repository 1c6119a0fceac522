// Package funnel implements the integration call sites of the funnel: each
// operation calls its remote endpoint through the retrying client and, once
// retries are exhausted, answers with locally computed fallback content.
// Operations never fail; the Result says which path produced the value.
package funnel

import (
	"context"
	"time"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/correlation"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/events"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/reqclient"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/resilience"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/sessionlog"
)

// Operation names.
const (
	OpValidateInput       = "validate-input"
	OpDetectContradiction = "detect-contradiction"
	OpGenerateTooltip     = "generate-tooltip"
	OpGenerateSparks      = "generate-sparks"
	OpRegenerateSpark     = "regenerate-spark"
	OpSparkSplit          = "spark-split"
)

// Operations lists every operation in funnel order.
var Operations = []string{
	OpValidateInput, OpDetectContradiction, OpGenerateTooltip,
	OpGenerateSparks, OpRegenerateSpark, OpSparkSplit,
}

// Endpoint returns the remote path for op.
func Endpoint(op string) string {
	return "/v1/" + op
}

// FallbackNotice is the soft notice shown alongside fallback content.
const FallbackNotice = "Using cached data due to a connection issue."

// DefaultSparkSplitTimeout is the per-attempt budget of the spark-split call.
const DefaultSparkSplitTimeout = 500 * time.Millisecond

// Result carries an operation's value and where it came from.
type Result[T any] struct {
	Value         T      `json:"data"`
	Fallback      bool   `json:"fallback"`
	Notice        string `json:"notice,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// Service runs funnel operations. It holds no per-call state and is safe
// for concurrent use.
type Service struct {
	client            *reqclient.Client
	logs              *sessionlog.Logger
	observer          events.Observer
	sparkSplitTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets the sink for fallback events.
func WithObserver(o events.Observer) Option {
	return func(s *Service) {
		s.observer = events.OrNop(o)
	}
}

// WithSparkSplitTimeout overrides the spark-split per-attempt budget.
func WithSparkSplitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sparkSplitTimeout = d
		}
	}
}

// New creates a Service. A nil logger disables the logging side channel.
func New(client *reqclient.Client, logs *sessionlog.Logger, opts ...Option) *Service {
	if logs == nil {
		logs = sessionlog.New(nil, nil)
	}
	s := &Service{
		client:            client,
		logs:              logs,
		observer:          events.Nop{},
		sparkSplitTimeout: DefaultSparkSplitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// callSite describes one operation for call.
type callSite[Req, Resp any] struct {
	op      string
	timeout time.Duration
	// fallback computes the local substitute from the request.
	fallback func(Req) Resp
	// normalize completes a remote value using the fallback for gaps.
	normalize func(remote, local Resp) Resp
	// record logs a successful remote value.
	record func(ctx context.Context, corrID string, req Req, value Resp)
}

func call[Req, Resp any](ctx context.Context, s *Service, site callSite[Req, Resp], req Req) Result[Resp] {
	ctx, corrID := correlation.Ensure(ctx)

	remote, _, err := reqclient.CallJSON[Resp](ctx, s.client, reqclient.Envelope{
		Endpoint:      Endpoint(site.op),
		Payload:       req,
		CorrelationID: corrID,
		Timeout:       site.timeout,
	})
	local := site.fallback(req)

	if err != nil {
		s.observer.OnFallback(events.Fallback{
			CorrelationID: corrID,
			Operation:     site.op,
			Err:           err,
		})
		s.logs.LogError(ctx, corrID, sessionlog.ErrorEntry{
			Operation: site.op,
			Kind:      resilience.Kind(err),
			Message:   err.Error(),
			Fallback:  true,
		})
		return Result[Resp]{
			Value:         local,
			Fallback:      true,
			Notice:        FallbackNotice,
			CorrelationID: corrID,
		}
	}

	value := site.normalize(remote, local)
	if site.record != nil {
		site.record(ctx, corrID, req, value)
	}
	return Result[Resp]{Value: value, CorrelationID: corrID}
}
