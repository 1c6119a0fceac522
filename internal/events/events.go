// Package events defines the structured event sink that replaces ad hoc
// console logging in the integration layer.
package events

import (
	"sync"
	"time"
)

// Attempt describes one finished attempt of a logical call.
type Attempt struct {
	CorrelationID string
	Endpoint      string
	Attempt       int // 0-based
	Duration      time.Duration
	StatusCode    int
	Err           error
}

// Retry describes a scheduled retry after a failed attempt.
type Retry struct {
	CorrelationID string
	Endpoint      string
	Attempt       int // the 0-based attempt that failed
	Delay         time.Duration
	Err           error
}

// Fallback describes a call site that substituted locally computed content.
type Fallback struct {
	CorrelationID string
	Operation     string
	Err           error
}

// LogFailure describes a best-effort logging write that failed and was
// swallowed.
type LogFailure struct {
	CorrelationID string
	Channel       string // "store" or "webhook"
	Target        string // table name or event type
	Err           error
}

// Observer receives integration events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	OnAttempt(Attempt)
	OnRetry(Retry)
	OnFallback(Fallback)
	OnLogFailure(LogFailure)
}

// Nop ignores all events.
type Nop struct{}

func (Nop) OnAttempt(Attempt)       {}
func (Nop) OnRetry(Retry)           {}
func (Nop) OnFallback(Fallback)     {}
func (Nop) OnLogFailure(LogFailure) {}

// Multi fans events out to several observers in order.
type Multi []Observer

func (m Multi) OnAttempt(e Attempt) {
	for _, o := range m {
		o.OnAttempt(e)
	}
}

func (m Multi) OnRetry(e Retry) {
	for _, o := range m {
		o.OnRetry(e)
	}
}

func (m Multi) OnFallback(e Fallback) {
	for _, o := range m {
		o.OnFallback(e)
	}
}

func (m Multi) OnLogFailure(e LogFailure) {
	for _, o := range m {
		o.OnLogFailure(e)
	}
}

// OrNop returns o, or Nop if o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}

// Recorder keeps every event in memory. Tests assert on it.
type Recorder struct {
	mu          sync.Mutex
	attempts    []Attempt
	retries     []Retry
	fallbacks   []Fallback
	logFailures []LogFailure
}

func (r *Recorder) OnAttempt(e Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, e)
}

func (r *Recorder) OnRetry(e Retry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries = append(r.retries, e)
}

func (r *Recorder) OnFallback(e Fallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, e)
}

func (r *Recorder) OnLogFailure(e LogFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logFailures = append(r.logFailures, e)
}

// Attempts returns a copy of the recorded attempts.
func (r *Recorder) Attempts() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Attempt(nil), r.attempts...)
}

// Retries returns a copy of the recorded retries.
func (r *Recorder) Retries() []Retry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Retry(nil), r.retries...)
}

// Fallbacks returns a copy of the recorded fallbacks.
func (r *Recorder) Fallbacks() []Fallback {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Fallback(nil), r.fallbacks...)
}

// LogFailures returns a copy of the recorded log failures.
func (r *Recorder) LogFailures() []LogFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogFailure(nil), r.logFailures...)
}
