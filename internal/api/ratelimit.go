package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Per-client token buckets guarding the CPU-bound analysis routes.
//
// A single fit or search request can hold a core for seconds (IPF sweeps,
// beam levels over dozens of candidate models), so the per-IP budget on
// the protected group is deliberately tight. Stdlib only.
//
// Buckets refill continuously at the configured rate. Stale buckets are
// swept inline during request handling rather than by a background
// goroutine: the limiter owns no lifecycle and needs no shutdown hook.

// bucketIdleTTL is how long an IP may stay silent before its bucket is
// reclaimed.
const bucketIdleTTL = 10 * time.Minute

type bucket struct {
	tokens  float64
	updated time.Time
}

// RateLimiter holds the per-IP buckets.
type RateLimiter struct {
	ratePerSec float64
	burst      float64

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows ratePerMin requests per minute per IP with a burst
// capacity of burst requests.
func NewRateLimiter(ratePerMin, burst int) *RateLimiter {
	return &RateLimiter{
		ratePerSec: float64(ratePerMin) / 60.0,
		burst:      float64(burst),
		buckets:    make(map[string]*bucket),
		lastSweep:  time.Now(),
	}
}

// take debits one token for ip, reporting how long the client should wait
// when its bucket is empty.
func (rl *RateLimiter) take(ip string) (bool, time.Duration) {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > bucketIdleTTL {
		for addr, b := range rl.buckets {
			if now.Sub(b.updated) > bucketIdleTTL {
				delete(rl.buckets, addr)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.burst, updated: now}
		rl.buckets[ip] = b
	}

	b.tokens += now.Sub(b.updated).Seconds() * rl.ratePerSec
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.updated = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / rl.ratePerSec * float64(time.Second))
	return false, wait
}

// Middleware enforces the limit and answers HTTP 429 with a Retry-After
// hint when a client is over budget.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.take(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"retryAfter": retryAfter.String(),
				"hint":       "Fit and search requests are CPU-bound; batch your models",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
