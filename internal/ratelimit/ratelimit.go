// Package ratelimit tracks per-agent request counts in a fixed hourly
// window. The window opens on the first request an agent makes and
// resets once it elapses; counting is monotonic within a window.
package ratelimit

import (
	"context"
	"time"
)

// DefaultWindow is the counting window used by the gateway.
const DefaultWindow = time.Hour

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed bool      `json:"allowed"`
	Current int64     `json:"current"`
	Limit   int64     `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// WindowStore holds per-agent window counters. Take observes one
// request attempt: it advances the counter only when the attempt is
// within the ceiling, so a denied attempt never consumes allowance.
type WindowStore interface {
	Take(ctx context.Context, agentID string, ceiling int64, window time.Duration, now time.Time) (Result, error)
}

// Limiter checks request attempts against a windowed ceiling.
type Limiter struct {
	store  WindowStore
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the counting window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter backed by the given store.
func New(store WindowStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Check records one attempt by the agent against the given hourly
// ceiling and reports whether it is allowed.
func (l *Limiter) Check(ctx context.Context, agentID string, ceiling int64) (Result, error) {
	return l.store.Take(ctx, agentID, ceiling, l.window, l.now())
}
