package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimiter tracks request times per client over a rolling window.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow records a request for the client and reports whether it stays
// within the limit. The client's stale entries are pruned on every call.
func (rl *rateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := rl.clients[client][:0]
	for _, t := range rl.clients[client] {
		if now.Sub(t) < rl.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.clients[client] = recent
		return false
	}
	rl.clients[client] = append(recent, now)
	return true
}

// sweep drops clients whose requests all fell out of the window, so idle
// clients do not accumulate in the map.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for client, times := range rl.clients {
		if len(times) == 0 || now.Sub(times[len(times)-1]) >= rl.window {
			delete(rl.clients, client)
		}
	}
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		rl.sweep()
	}
}

// RateLimit caps the requests a single client IP may issue per window.
// Imports and pipeline runs are cheap to request and expensive to serve, so
// the cap applies to the whole API group. A non-positive limit disables the
// middleware.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	rl := newRateLimiter(limit, window)
	go rl.sweepLoop()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.allow(ip) {
			log.Printf("[RateLimit] Throttling %s (over %d requests per %v)", ip, limit, window)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "rate limit exceeded, slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
