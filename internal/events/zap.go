package events

import (
	"go.uber.org/zap"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/resilience"
)

// ZapObserver writes events to a zap logger.
type ZapObserver struct {
	log *zap.Logger
}

// NewZapObserver returns an observer logging to log, or to zap.L() if nil.
func NewZapObserver(log *zap.Logger) *ZapObserver {
	if log == nil {
		log = zap.L()
	}
	return &ZapObserver{log: log}
}

func (z *ZapObserver) OnAttempt(e Attempt) {
	fields := []zap.Field{
		zap.String("correlation_id", e.CorrelationID),
		zap.String("endpoint", e.Endpoint),
		zap.Int("attempt", e.Attempt),
		zap.Duration("duration", e.Duration),
		zap.Int("status", e.StatusCode),
	}
	if e.Err != nil {
		z.log.Debug("integration attempt failed",
			append(fields, zap.String("kind", resilience.Kind(e.Err)), zap.Error(e.Err))...)
		return
	}
	z.log.Debug("integration attempt succeeded", fields...)
}

func (z *ZapObserver) OnRetry(e Retry) {
	z.log.Warn("retrying integration call",
		zap.String("correlation_id", e.CorrelationID),
		zap.String("endpoint", e.Endpoint),
		zap.Int("attempt", e.Attempt),
		zap.Duration("backoff", e.Delay),
		zap.Error(e.Err),
	)
}

func (z *ZapObserver) OnFallback(e Fallback) {
	z.log.Warn("using fallback content",
		zap.String("correlation_id", e.CorrelationID),
		zap.String("operation", e.Operation),
		zap.Error(e.Err),
	)
}

func (z *ZapObserver) OnLogFailure(e LogFailure) {
	z.log.Warn("best-effort log write failed",
		zap.String("correlation_id", e.CorrelationID),
		zap.String("channel", e.Channel),
		zap.String("target", e.Target),
		zap.Error(e.Err),
	)
}
