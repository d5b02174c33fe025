package ratelimiter

import (
	"sync"
	"time"
)

// Limiter is a token bucket refilled at a fixed rate. Unlike the
// blocking variant used for RPC throttling, guess and purchase paths
// only ever TryAcquire: abuse is rejected, never queued.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	burst      float64
	refillRate float64 // tokens per second
	last       time.Time
	now        func() time.Time
}

// New creates a limiter allowing perMinute operations with the given
// burst.
func New(perMinute, burst int, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		tokens:     float64(burst),
		burst:      float64(burst),
		refillRate: float64(perMinute) / 60.0,
		last:       now(),
		now:        now,
	}
}

// TryAcquire takes one token if available.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := l.now()
	elapsed := t.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * l.refillRate
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.last = t
	}
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Pool keys limiters by player id.
type Pool struct {
	mu        sync.Mutex
	limiters  map[string]*Limiter
	perMinute int
	burst     int
	now       func() time.Time
}

func NewPool(perMinute, burst int, now func() time.Time) *Pool {
	return &Pool{
		limiters:  make(map[string]*Limiter),
		perMinute: perMinute,
		burst:     burst,
		now:       now,
	}
}

// Allow reports whether the player may perform one more operation.
func (p *Pool) Allow(playerID string) bool {
	p.mu.Lock()
	l, ok := p.limiters[playerID]
	if !ok {
		l = New(p.perMinute, p.burst, p.now)
		p.limiters[playerID] = l
	}
	p.mu.Unlock()
	return l.TryAcquire()
}
