// Package correlation mints and propagates the IDs that tie one logical
// funnel action to every outbound call and log line it produces.
package correlation

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// HeaderName is the HTTP header that carries the correlation ID.
const HeaderName = "X-Correlation-ID"

// suffixBytes is the amount of randomness appended to the timestamp prefix.
const suffixBytes = 6

// Generator produces correlation IDs of the form "<millis base36>-<hex>".
// It holds no mutable state and is safe for concurrent use.
type Generator struct {
	now    func() time.Time
	random func() [suffixBytes]byte
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithRandom overrides the random suffix source (for tests).
func WithRandom(random func() [suffixBytes]byte) Option {
	return func(g *Generator) {
		g.random = random
	}
}

// NewGenerator creates a Generator with the wall clock and uuid randomness.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:    time.Now,
		random: randomSuffix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a new correlation ID. It never fails.
func (g *Generator) Generate() string {
	suffix := g.random()
	return strconv.FormatInt(g.now().UnixMilli(), 36) + "-" + hex.EncodeToString(suffix[:])
}

var defaultGenerator = NewGenerator()

// New returns a correlation ID from the default generator.
func New() string {
	return defaultGenerator.Generate()
}

// randomSuffix takes the leading (fully random) bytes of a v4 UUID. If the
// system entropy source fails it degrades to math/rand rather than failing.
func randomSuffix() [suffixBytes]byte {
	var out [suffixBytes]byte
	id, err := uuid.NewRandom()
	if err != nil {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], rand.Uint64())
		copy(out[:], buf[:])
		return out
	}
	copy(out[:], id[:suffixBytes])
	return out
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation ID stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Ensure returns ctx and its correlation ID, minting and attaching a new
// one when ctx has none.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	id := New()
	return NewContext(ctx, id), id
}
