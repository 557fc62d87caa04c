package governance

import (
	"sync"
	"time"
)

// minSweepInterval bounds how often idle buckets are scanned for eviction.
const minSweepInterval = time.Second

// RateLimiterConfig defines per-caller submission limits.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// Enabled reports whether the configuration limits anything.
func (c RateLimiterConfig) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// RateLimiter implements token bucket rate limiting keyed by caller identity.
// Buckets are created lazily on first use and evicted once they have been idle
// long enough to refill completely, so the map only holds callers that still
// carry state.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	config    RateLimiterConfig
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a rate limiter. A non-positive burst defaults to
// the rate rounded up, with a minimum of one.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, time.Now)
}

func newRateLimiter(cfg RateLimiterConfig, now func() time.Time) *RateLimiter {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = max(1, int(cfg.RequestsPerSecond+0.999))
	}

	var idleAfter time.Duration
	if cfg.Enabled() {
		idleAfter = time.Duration(float64(cfg.BurstSize) / cfg.RequestsPerSecond * float64(time.Second))
	}

	return &RateLimiter{
		buckets:   make(map[string]*tokenBucket),
		config:    cfg,
		idleAfter: idleAfter,
		lastSweep: now(),
		now:       now,
	}
}

// Allow checks if a submission from key should be allowed.
// Returns true if allowed, false if the caller exhausted its bucket.
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.config.Enabled() {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweepLocked(now)

	bucket, exists := rl.buckets[key]
	if !exists {
		bucket = newTokenBucket(rl.config, now)
		rl.buckets[key] = bucket
	}
	return bucket.take(now)
}

// sweepLocked drops buckets that would be full again by now. A full bucket is
// indistinguishable from a fresh one, so eviction never grants extra tokens.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < max(rl.idleAfter, minSweepInterval) {
		return
	}
	rl.lastSweep = now

	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastRefill) >= rl.idleAfter {
			delete(rl.buckets, key)
		}
	}
}

// tokenBucket implements a token bucket algorithm for rate limiting.
// Callers serialise access through the owning RateLimiter.
type tokenBucket struct {
	rate       float64   // tokens per second
	capacity   float64   // maximum burst size
	tokens     float64   // current available tokens
	lastRefill time.Time // last time tokens were refilled
}

func newTokenBucket(cfg RateLimiterConfig, now time.Time) *tokenBucket {
	return &tokenBucket{
		rate:       cfg.RequestsPerSecond,
		capacity:   float64(cfg.BurstSize),
		tokens:     float64(cfg.BurstSize), // Start with full bucket
		lastRefill: now,
	}
}

// take attempts to consume one token from the bucket.
func (tb *tokenBucket) take(now time.Time) bool {
	tb.refill(now)

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}

	return false
}

// refill adds tokens to the bucket based on elapsed time.
func (tb *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.rate)
	tb.lastRefill = now
}
