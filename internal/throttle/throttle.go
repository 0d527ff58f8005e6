// Package throttle limits login attempts per client address.
package throttle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyAttempts is reported when a client exhausted its window.
var ErrTooManyAttempts = errors.New("too many attempts")

// Config bounds attempts per client address.
type Config struct {
	// Limit is the max attempts allowed in one window.
	Limit int
	// Window is how long a window lasts from the first attempt.
	Window time.Duration
}

// DefaultConfig allows 10 attempts per minute.
func DefaultConfig() Config {
	return Config{Limit: 10, Window: time.Minute}
}

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetIn is the time left until the window resets.
	ResetIn time.Duration
}

// Err returns ErrTooManyAttempts for a rejected attempt.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return ErrTooManyAttempts
}

// Limiter counts an attempt and decides in one atomic step.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter keeps per-process windows. Instances do not share counts.
type MemoryLimiter struct {
	cfg     Config
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

// Option customises a MemoryLimiter.
type Option func(*MemoryLimiter)

// WithClock overrides the limiter's time source.
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

// NewMemoryLimiter uses DefaultConfig when cfg has no limit or window.
func NewMemoryLimiter(cfg Config, opts ...Option) *MemoryLimiter {
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		cfg = DefaultConfig()
	}
	l := &MemoryLimiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.cfg.Window)) {
		w = &window{start: now}
		l.windows[key] = w
	}

	d := Decision{
		Limit:   l.cfg.Limit,
		ResetIn: w.start.Add(l.cfg.Window).Sub(now),
	}
	if w.count >= l.cfg.Limit {
		return d, nil
	}
	w.count++
	d.Allowed = true
	d.Remaining = l.cfg.Limit - w.count
	return d, nil
}

// Cleanup drops windows that have elapsed.
func (l *MemoryLimiter) Cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.cfg.Window)) {
			delete(l.windows, key)
		}
	}
}

// StartCleanup runs Cleanup every window until ctx is done.
func (l *MemoryLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.Window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

var _ Limiter = (*MemoryLimiter)(nil)
