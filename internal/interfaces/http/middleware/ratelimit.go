package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// bucketIdleTimeout is how long an unused client bucket survives before the
// lazy sweep drops it.
const bucketIdleTimeout = 5 * time.Minute

// tokenBucket is the refill state for one client key.
type tokenBucket struct {
	tokens   float64
	lastFill time.Time
}

// RateLimiter is an in-memory token-bucket limiter keyed by client.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	rps       float64
	burst     float64
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows a sustained rps per client with a burst of the same
// size.  rps <= 0 disables limiting.
func NewRateLimiter(rps int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		rps:     float64(rps),
		burst:   float64(rps),
		now:     time.Now,
	}
}

// Allow consumes one token for key, reporting whether the request may
// proceed and how many whole tokens remain.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	if rl.rps <= 0 {
		return true, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: rl.burst, lastFill: now}
		rl.buckets[key] = b
	}
	b.tokens += now.Sub(b.lastFill).Seconds() * rl.rps
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastFill = now

	if b.tokens < 1 {
		return false, 0
	}
	b.tokens--
	return true, int(b.tokens)
}

// sweep drops buckets idle past the timeout.  Runs at most once per timeout
// window so the hot path stays cheap.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < bucketIdleTimeout {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		if now.Sub(b.lastFill) > bucketIdleTimeout {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit rejects clients that exceed the limiter's budget with 429 and
// standard rate-limit headers.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, remaining := rl.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "COMMON_005",
				"message": "rate limit exceeded",
			})
			return
		}
		if rl.rps > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(int(rl.rps)))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		c.Next()
	}
}
