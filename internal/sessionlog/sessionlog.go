// Package sessionlog is the best-effort logging side channel of the funnel:
// every entry is appended to the record store and mirrored to a webhook.
// Writes run in the background and never fail the caller.
package sessionlog

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/events"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/store"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/webhook"
)

const defaultWriteTimeout = 10 * time.Second

// SessionEntry is one user interaction in the funnel UI.
type SessionEntry struct {
	Interaction string         `json:"interaction"` // page_view, quiz_answer, session_start, purchase, feedback, ...
	Stage       string         `json:"stage,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// PromptEntry records one completed integration call.
type PromptEntry struct {
	Operation string `json:"operation"`
	Input     any    `json:"input,omitempty"`
	Output    any    `json:"output,omitempty"`
	Fallback  bool   `json:"fallback"`
}

// ErrorEntry records an integration failure that was recovered by fallback.
type ErrorEntry struct {
	Operation string `json:"operation"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Fallback  bool   `json:"fallback"`
}

// SparkEntry records generated or regenerated sparks.
type SparkEntry struct {
	Operation string `json:"operation"`
	Request   any    `json:"request,omitempty"`
	Sparks    any    `json:"sparks"`
	Fallback  bool   `json:"fallback"`
}

// ComparisonEntry records a SparkSplit comparison.
type ComparisonEntry struct {
	Request  any  `json:"request,omitempty"`
	Result   any  `json:"result"`
	Fallback bool `json:"fallback"`
}

// Logger writes entries to a store.Recorder and a webhook.Dispatcher. It is
// safe for concurrent use.
type Logger struct {
	store        store.Recorder
	hooks        *webhook.Dispatcher
	observer     events.Observer
	writeTimeout time.Duration
	wg           sync.WaitGroup
}

// Option configures a Logger.
type Option func(*Logger)

// WithObserver sets the sink for swallowed write failures.
func WithObserver(o events.Observer) Option {
	return func(l *Logger) {
		l.observer = events.OrNop(o)
	}
}

// WithWriteTimeout bounds each background store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(l *Logger) {
		l.writeTimeout = d
	}
}

// New creates a Logger. A nil recorder discards records; a nil dispatcher
// sends no webhooks.
func New(rec store.Recorder, hooks *webhook.Dispatcher, opts ...Option) *Logger {
	if rec == nil {
		rec = store.NoopStore{}
	}
	l := &Logger{
		store:        rec,
		hooks:        hooks,
		observer:     events.Nop{},
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogSession records a UI interaction.
func (l *Logger) LogSession(ctx context.Context, correlationID string, e SessionEntry) {
	l.write(ctx, correlationID, store.TableSessions, sessionEvent(e.Interaction), e)
}

// LogPrompt records a completed integration call.
func (l *Logger) LogPrompt(ctx context.Context, correlationID string, e PromptEntry) {
	l.write(ctx, correlationID, store.TablePrompts, promptEvent(e.Operation), e)
}

// LogError records a recovered integration failure.
func (l *Logger) LogError(ctx context.Context, correlationID string, e ErrorEntry) {
	l.write(ctx, correlationID, store.TableErrors, webhook.EventError, e)
}

// LogSpark records generated sparks.
func (l *Logger) LogSpark(ctx context.Context, correlationID string, e SparkEntry) {
	l.write(ctx, correlationID, store.TableSparks, webhook.EventSparkGenerated, e)
}

// LogComparison records a SparkSplit comparison.
func (l *Logger) LogComparison(ctx context.Context, correlationID string, e ComparisonEntry) {
	l.write(ctx, correlationID, store.TableComparisons, webhook.EventSparkSplit, e)
}

// Close waits for pending writes and webhook sends, up to ctx.
func (l *Logger) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "sessionlog: drain")
	}
	if l.hooks != nil {
		return l.hooks.Wait(ctx)
	}
	return nil
}

func (l *Logger) write(ctx context.Context, correlationID string, table store.Table, event webhook.EventType, payload any) {
	ctx = context.WithoutCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		writeCtx, cancel := context.WithTimeout(ctx, l.writeTimeout)
		defer cancel()

		rec, err := store.NewRecord(correlationID, payload)
		if err == nil {
			err = l.store.Insert(writeCtx, table, rec)
		}
		if err != nil {
			zap.L().Warn("sessionlog: store write failed",
				zap.String("table", string(table)),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
			l.observer.OnLogFailure(events.LogFailure{
				CorrelationID: correlationID,
				Channel:       "store",
				Target:        string(table),
				Err:           err,
			})
		}
	}()

	if l.hooks != nil {
		l.hooks.Go(ctx, event, correlationID, payload)
	}
}

func sessionEvent(interaction string) webhook.EventType {
	switch interaction {
	case "session_start":
		return webhook.EventSessionStart
	case "purchase":
		return webhook.EventPurchase
	case "feedback":
		return webhook.EventFeedback
	default:
		return webhook.EventFunnelStep
	}
}

func promptEvent(operation string) webhook.EventType {
	switch operation {
	case "validate-input", "detect-contradiction":
		return webhook.EventValidation
	default:
		return webhook.EventFunnelStep
	}
}
