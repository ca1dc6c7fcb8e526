package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by actor and operation.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type window struct {
	hits    int
	expires time.Time
}

// Memory keeps its windows in process memory, so it only bounds requests seen by this instance.
type Memory struct {
	lock    sync.Mutex
	windows map[string]window
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		windows: make(map[string]window),
		now:     now,
	}
}

func (m *Memory) Allow(_ context.Context, key string, limit int, period time.Duration) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.now()
	m.purge(now)

	w, ok := m.windows[key]
	if !ok {
		w = window{expires: now.Add(period)}
	}
	if w.hits >= limit {
		return false, nil
	}
	w.hits++
	m.windows[key] = w
	return true, nil
}

func (m *Memory) purge(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.expires) {
			delete(m.windows, key)
		}
	}
}
