package dedupe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ons/pkg/platform/circuit"
)

const defaultTrialInterval = 5 * time.Second

// Fallback prefers a shared primary (Redis) and degrades to a local set while
// the primary keeps failing. Keys are always written to the local set too, so a
// flapping primary loses as little as possible.
//
// While the breaker is open the primary is skipped, except for one trial call
// per trial interval; the trials' outcomes close the breaker again.
type Fallback struct {
	primary Deduper
	local   Deduper
	breaker *circuit.Breaker
	logger  *slog.Logger

	trialInterval time.Duration
	mu            sync.Mutex
	lastTrial     time.Time
	now           func() time.Time
}

type FallbackOption func(*Fallback)

// WithTrialInterval sets how often an open breaker lets one call through to the primary.
func WithTrialInterval(d time.Duration) FallbackOption {
	return func(f *Fallback) {
		if d >= 0 {
			f.trialInterval = d
		}
	}
}

func NewFallback(primary, local Deduper, breaker *circuit.Breaker, logger *slog.Logger, opts ...FallbackOption) *Fallback {
	if breaker == nil {
		breaker = circuit.New("dedupe")
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fallback{
		primary:       primary,
		local:         local,
		breaker:       breaker,
		logger:        logger,
		trialInterval: defaultTrialInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fallback) Seen(ctx context.Context, key string) (bool, error) {
	if seen, _ := f.local.Seen(ctx, key); seen {
		return true, nil
	}
	if !f.usePrimary() {
		return false, nil
	}
	seen, err := f.primary.Seen(ctx, key)
	if err != nil {
		f.recordFailure(ctx, err)
		return false, nil
	}
	f.recordSuccess(ctx)
	return seen, nil
}

func (f *Fallback) Mark(ctx context.Context, key string) error {
	_ = f.local.Mark(ctx, key)
	if !f.usePrimary() {
		return nil
	}
	if err := f.primary.Mark(ctx, key); err != nil {
		f.recordFailure(ctx, err)
		return nil
	}
	f.recordSuccess(ctx)
	return nil
}

// Degraded reports whether the breaker currently routes around the primary.
func (f *Fallback) Degraded() bool {
	return f.breaker.IsOpen()
}

// usePrimary reports whether this call may go to the primary: always while
// the breaker is closed, once per trial interval while it is open.
func (f *Fallback) usePrimary() bool {
	if !f.breaker.IsOpen() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	if now.Sub(f.lastTrial) < f.trialInterval {
		return false
	}
	f.lastTrial = now
	return true
}

func (f *Fallback) recordFailure(ctx context.Context, err error) {
	if _, change := f.breaker.RecordFailure(); change.Opened {
		f.mu.Lock()
		f.lastTrial = f.now()
		f.mu.Unlock()
		f.logger.WarnContext(ctx, "dedupe primary unavailable, using local set", "breaker", f.breaker.Name(), "error", err)
	}
}

func (f *Fallback) recordSuccess(ctx context.Context) {
	if _, change := f.breaker.RecordSuccess(); change.Closed {
		f.logger.InfoContext(ctx, "dedupe primary recovered", "breaker", f.breaker.Name())
	}
}
