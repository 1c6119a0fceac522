// Package webhook delivers funnel events to externally configured webhook
// URLs (automation flows, CRMs). Delivery is best-effort: callers never see
// a webhook failure on the request path.
package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/events"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/reqclient"
)

// EventType identifies the kind of webhook event.
type EventType string

const (
	EventSessionStart   EventType = "session_start"
	EventFunnelStep     EventType = "funnel_step"
	EventValidation     EventType = "validation"
	EventSparkGenerated EventType = "spark_generated"
	EventSparkSplit     EventType = "spark_split"
	EventPurchase       EventType = "purchase"
	EventFeedback       EventType = "feedback"
	EventError          EventType = "error"
)

// EventTypes lists every known event type.
var EventTypes = []EventType{
	EventSessionStart, EventFunnelStep, EventValidation, EventSparkGenerated,
	EventSparkSplit, EventPurchase, EventFeedback, EventError,
}

// Event is the JSON envelope POSTed to a webhook URL.
type Event struct {
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	EventType     EventType `json:"event_type"`
	Data          any       `json:"data"`
}

// Config configures a Dispatcher.
type Config struct {
	RatePerSec float64
	Burst      int
	Source     string
}

// Dispatcher sends webhook events through the retrying client, throttled by
// a shared token bucket.
type Dispatcher struct {
	client   *reqclient.Client
	limiter  *rate.Limiter
	source   string
	observer events.Observer
	now      func() time.Time
	wg       sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver sets the sink for failed asynchronous sends.
func WithObserver(o events.Observer) Option {
	return func(d *Dispatcher) {
		d.observer = events.OrNop(o)
	}
}

// WithClock overrides the envelope timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a Dispatcher. Destination URLs come from the client's
// WebhookURLs.
func New(client *reqclient.Client, cfg Config, opts ...Option) *Dispatcher {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.Burst < 1 {
		cfg.Burst = 20
	}
	if cfg.Source == "" {
		cfg.Source = "canai-api"
	}
	d := &Dispatcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		source:   cfg.Source,
		observer: events.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enabled reports whether eventType has a destination configured.
func (d *Dispatcher) Enabled(eventType EventType) bool {
	_, ok := d.client.WebhookURL(string(eventType))
	return ok
}

// Dispatch sends one event and waits for the outcome. It returns false with
// a nil error when no URL is configured for eventType.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType EventType, correlationID string, data any) (bool, error) {
	url, ok := d.client.WebhookURL(string(eventType))
	if !ok {
		return false, nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return false, eris.Wrapf(err, "webhook: wait for %s", eventType)
	}

	ev := Event{
		CorrelationID: correlationID,
		Timestamp:     d.now().UTC(),
		Source:        d.source,
		EventType:     eventType,
		Data:          data,
	}
	if _, err := d.client.Call(ctx, reqclient.Envelope{
		Endpoint:      url,
		Payload:       ev,
		CorrelationID: correlationID,
	}); err != nil {
		return false, eris.Wrapf(err, "webhook: send %s", eventType)
	}
	return true, nil
}

// Go sends the event on a tracked goroutine. The send outlives ctx
// cancellation but keeps its values; failures are reported to the observer
// and logged, never returned.
func (d *Dispatcher) Go(ctx context.Context, eventType EventType, correlationID string, data any) {
	if !d.Enabled(eventType) {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.Dispatch(ctx, eventType, correlationID, data); err != nil {
			zap.L().Warn("webhook: delivery failed",
				zap.String("event_type", string(eventType)),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
			d.observer.OnLogFailure(events.LogFailure{
				CorrelationID: correlationID,
				Channel:       "webhook",
				Target:        string(eventType),
				Err:           err,
			})
		}
	}()
}

// Wait blocks until every send started by Go has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "webhook: drain")
	}
}
