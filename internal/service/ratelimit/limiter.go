package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often idle buckets are looked for.
const sweepEvery = time.Minute

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a set of token buckets keyed by upstream endpoint or client.
// Buckets that refilled completely are dropped, a fresh bucket behaves the same.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket), now: time.Now} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	_, ok := l.reserve(key, capacity, refillPerSec)
	return ok
}

// Wait blocks until a token for key is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string, capacity, refillPerSec float64) error {
	for {
		wait, ok := l.reserve(key, capacity, refillPerSec)
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve consumes a token when one is available, otherwise it reports how
// long until the next token.
func (l *Limiter) reserve(key string, capacity, refillPerSec float64) (time.Duration, bool) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}
	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return 0, true
	}
	if b.refillRate <= 0 {
		return time.Second, false
	}
	return time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second)), false
}

// sweep drops buckets that would be full at now. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	l.lastSweep = now
	for k, b := range l.m {
		if b.refillRate <= 0 {
			continue
		}
		if b.tokens+now.Sub(b.last).Seconds()*b.refillRate >= b.capacity {
			delete(l.m, k)
		}
	}
}
