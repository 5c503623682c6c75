package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	startAt time.Time
}

// MemoryStore keeps window counters in process memory. Counters are
// created lazily on first request and reset when the window elapses;
// nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryStore creates an empty in-memory window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Take implements WindowStore.
func (s *MemoryStore) Take(_ context.Context, agentID string, ceiling int64, windowDur time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[agentID]
	if w == nil || now.Sub(w.startAt) >= windowDur {
		w = &window{startAt: now}
		s.windows[agentID] = w
	}

	resetAt := w.startAt.Add(windowDur)
	if w.count >= ceiling {
		return Result{Allowed: false, Current: w.count, Limit: ceiling, ResetAt: resetAt}, nil
	}

	w.count++
	return Result{Allowed: true, Current: w.count, Limit: ceiling, ResetAt: resetAt}, nil
}
