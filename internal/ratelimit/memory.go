package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key and forgets keys idle for
// longer than ttl.
type MemoryLimiter struct {
	rps   rate.Limit
	burst int
	ttl   time.Duration

	mu     sync.Mutex
	m      map[string]*memEntry
	stopCh chan struct{}
	once   sync.Once
}

func NewMemoryLimiter(rps float64, burst int, ttl, cleanupEvery time.Duration) *MemoryLimiter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if cleanupEvery <= 0 {
		cleanupEvery = time.Minute
	}
	ml := &MemoryLimiter{
		rps:    rate.Limit(rps),
		burst:  burst,
		ttl:    ttl,
		m:      make(map[string]*memEntry),
		stopCh: make(chan struct{}),
	}
	go ml.gcLoop(cleanupEvery)
	return ml
}

func (m *MemoryLimiter) gcLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.sweep(time.Now())
		case <-m.stopCh:
			return
		}
	}
}

func (m *MemoryLimiter) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.m {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.m, k)
		}
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := time.Now()

	m.mu.Lock()
	e := m.m[key]
	if e == nil {
		e = &memEntry{lim: rate.NewLimiter(m.rps, m.burst)}
		m.m[key] = e
	}
	e.lastSeen = now
	m.mu.Unlock()

	r := e.lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, RetryAfterSeconds: 1}, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfterSeconds: int(math.Ceil(d.Seconds()))}, nil
	}
	return Decision{Allowed: true, Remaining: int(e.lim.TokensAt(now))}, nil
}

func (m *MemoryLimiter) Close() error {
	m.once.Do(func() { close(m.stopCh) })
	return nil
}
