package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Result reports a single admission decision.
type Result struct {
	OK         bool
	RetryAfter int // seconds until the next token becomes available
}

// Limiter decides whether a request keyed by client identity may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter is an in-process token bucket limiter keyed per client.
// Each key gets burst tokens replenished evenly over window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   int
	rate    float64 // tokens per second
	window  time.Duration
	done    chan struct{}
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewMemoryLimiter creates a limiter allowing burst requests per window for
// each key.
func NewMemoryLimiter(burst int, window time.Duration) *MemoryLimiter {
	if burst < 1 {
		burst = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &MemoryLimiter{
		buckets: make(map[string]*bucket),
		burst:   burst,
		rate:    float64(burst) / window.Seconds(),
		window:  window,
		done:    make(chan struct{}),
	}
	// Periodically evict stale entries to prevent memory growth.
	go rl.cleanup()
	return rl
}

// Allow consumes one token from the bucket for key. When the bucket is
// empty the result carries the seconds until a token refills.
func (rl *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastTime).Seconds()
	b.tokens += elapsed * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		wait := (1 - b.tokens) / rl.rate
		return Result{OK: false, RetryAfter: int(math.Ceil(wait))}, nil
	}
	b.tokens--
	return Result{OK: true}, nil
}

// Close stops the background eviction goroutine.
func (rl *MemoryLimiter) Close() {
	close(rl.done)
}

func (rl *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-2 * rl.window)
			for key, b := range rl.buckets {
				if b.lastTime.Before(cutoff) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
