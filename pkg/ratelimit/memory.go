package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepEvery = 1024

// InMemoryRateLimiter keeps one token bucket per key: a burst of requests, refilled evenly over
// the window. Counts are local to the process.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.bucketFor(key, now)

	r.calls++
	if r.calls%sweepEvery == 0 {
		r.sweep(now)
	}

	return !b.limiter.AllowN(now, 1), nil
}

func (r *InMemoryRateLimiter) bucketFor(key string, now time.Time) *bucket {
	b, ok := r.buckets[key]
	if !ok {
		refill := r.window / time.Duration(max(r.requests, 1))
		b = &bucket{limiter: rate.NewLimiter(rate.Every(refill), r.requests)}
		r.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// sweep drops buckets idle for two windows; they would be full again anyway.
func (r *InMemoryRateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-2 * r.window)
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}
