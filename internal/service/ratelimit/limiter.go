// Package ratelimit keeps one token bucket per client key.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleTTL = 10 * time.Minute

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out per-key buckets of the same shape. A nil *Limiter, or
// one built with a non-positive burst, allows everything.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time
}

// New builds buckets that refill perSec tokens a second up to burst.
func New(perSec, burst float64) *Limiter {
	return &Limiter{
		limit:   rate.Limit(perSec),
		burst:   int(math.Ceil(burst)),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Allow takes a token for key. When none is left it reports how long until
// the next one.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.burst <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= idleTTL {
		l.sweepLocked(now, idleTTL)
		l.lastSweep = now
	}
	e, ok := l.entries[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	r := e.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Sweep drops buckets idle for longer than idle and returns how many went.
func (l *Limiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now(), idle)
}

func (l *Limiter) sweepLocked(now time.Time, idle time.Duration) int {
	n := 0
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > idle {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
