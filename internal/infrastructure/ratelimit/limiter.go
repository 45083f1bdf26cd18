package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a per-key token bucket: each key gets an independent bucket of
// capacity tokens refilled at refillRate tokens per second, initialized full
// on first use. Exhausting one key never affects another.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter

	capacity   int
	refillRate float64
}

func NewLimiter(capacity int, refillRate float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}
	return &Limiter{
		buckets:    make(map[string]*rate.Limiter),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Allow consumes one token from the key's bucket when available.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// RetryAfter reports the wait until the key's next token becomes available.
// Zero means a request would be admitted now.
func (l *Limiter) RetryAfter(key string) time.Duration {
	reservation := l.bucket(key).Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	if delay < 0 {
		return 0
	}
	return delay
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(l.refillRate), l.capacity)
		l.buckets[key] = bucket
	}
	return bucket
}
