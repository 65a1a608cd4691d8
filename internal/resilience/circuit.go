package resilience

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all calls and tracks failures.
	Closed State = iota
	// Open rejects calls until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
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
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. Zero values fall back to defaults.
type BreakerConfig struct {
	// Target names the guarded dependency in metrics and logs.
	Target string
	// MinRequests is the number of outcomes observed before the ratio is evaluated.
	MinRequests int
	// FailureRatio opens the breaker once reached.
	FailureRatio float64
	// OpenFor is the cool-off period before a half-open probe.
	OpenFor time.Duration
	Logger  zerolog.Logger
	// Now is used for cool-off bookkeeping.
	Now func() time.Time
}

// Breaker implements a failure-ratio circuit breaker.
type Breaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	state     State
	failures  int
	successes int
	probing   bool
	openedAt  time.Time
}

// NewBreaker constructs a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 5
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.5
	}
	cfg.FailureRatio = math.Min(cfg.FailureRatio, 1)
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	cfg.Target = strings.TrimSpace(cfg.Target)
	if cfg.Target == "" {
		cfg.Target = "default"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg, state: Closed}
	b.recordState()
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. After the cool-off an open breaker
// admits exactly one probe and moves to half-open.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.transition(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an admitted call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.cfg.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.cfg.FailureRatio {
		b.transition(ctx, Open)
		return
	}
	if total > b.cfg.MinRequests*2 {
		// halve the window so old outcomes fade
		b.successes = int(math.Ceil(float64(b.successes) / 2))
		b.failures = int(math.Ceil(float64(b.failures) / 2))
	}
}

func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures, b.successes = 0, 0
	switch next {
	case Open:
		b.openedAt = b.cfg.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.recordState()
	if breakerTransitions != nil {
		breakerTransitions.WithLabelValues(b.cfg.Target, prev.String(), next.String()).Inc()
	}

	logger := b.cfg.Logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		logger = *ctxLogger
	}
	evt := logger.Warn()
	if next == Closed {
		evt = logger.Info()
	}
	evt = evt.Str("target", b.cfg.Target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) recordState() {
	if breakerState != nil {
		breakerState.WithLabelValues(b.cfg.Target).Set(float64(b.state))
	}
}
