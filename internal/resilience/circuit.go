package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a request outright.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

var nopLogger = zerolog.Nop()

// State is the breaker position.
type State int

const (
	// Closed passes traffic through while counting failures.
	Closed State = iota
	// Open short-circuits every call until the cool-off elapses.
	Open
	// HalfOpen lets a single probe decide between Closed and Open.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker trips when the failure ratio over a minimum sample of requests
// crosses a threshold. It guards the payment gateway so a dead upstream
// fails checkouts fast instead of holding the request for full timeouts.
type Breaker struct {
	mu        sync.Mutex
	state     State
	fail      int
	ok        int
	minSample int
	threshold float64
	openedAt  time.Time
	coolOff   time.Duration
	target    string
	logger    *zerolog.Logger
}

// NewBreaker builds a breaker that opens once at least minSample outcomes
// are recorded and the failure ratio reaches threshold. It stays open for
// coolOff before sampling the dependency again.
func NewBreaker(minSample int, threshold float64, coolOff time.Duration) *Breaker {
	if minSample <= 0 {
		minSample = 1
	}
	if threshold <= 0 {
		threshold = 0.5
	} else if threshold > 1 {
		threshold = 1
	}
	if coolOff <= 0 {
		coolOff = 30 * time.Second
	}
	return &Breaker{minSample: minSample, threshold: threshold, coolOff: coolOff}
}

// WithTarget labels the breaker's telemetry with the dependency name.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.publishStateLocked()
	return b
}

// WithLogger sets the logger for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

// Allow reports whether a call may proceed. An open breaker admits exactly
// one probe after the cool-off, switching to half-open.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) < b.coolOff {
		return false
	}
	b.transitionLocked(ctx, HalfOpen)
	return true
}

// Report feeds a call outcome into the state machine.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	if success {
		b.ok++
	} else {
		b.fail++
	}
	total := b.fail + b.ok
	if total < b.minSample {
		return
	}
	if float64(b.fail)/float64(total) >= b.threshold {
		b.transitionLocked(ctx, Open)
		return
	}
	if total > b.minSample*2 {
		// decay so old outcomes stop dominating the ratio
		b.ok = (b.ok + 1) / 2
		b.fail = (b.fail + 1) / 2
	}
}

// Backoff computes the exponential delay for a retry attempt, with jitterPct
// (0.2 == ±20%) of randomisation.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		b.publishStateLocked()
		return
	}
	b.state = next
	b.fail, b.ok = 0, 0
	switch next {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.publishStateLocked()

	label := b.label()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := b.transitionLogger(ctx).Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) publishStateLocked() {
	if BreakerState == nil {
		return
	}
	var v float64
	switch b.state {
	case Closed:
		v = 0
	case Open:
		v = 1
	case HalfOpen:
		v = 2
	default:
		v = -1
	}
	BreakerState.WithLabelValues(b.label()).Set(v)
}

func (b *Breaker) label() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

func (b *Breaker) transitionLogger(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil {
		logger := ctxLogger.With().Logger()
		return &logger
	}
	if b.logger != nil {
		return b.logger
	}
	return &nopLogger
}
