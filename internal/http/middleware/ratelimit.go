package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter holds one token bucket per client. Clients are identified
// by API key when present, client IP otherwise.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients:  map[string]*rate.Limiter{},
		lastSeen: map[string]time.Time{},
		rate:     rate.Limit(rps),
		burst:    burst,
		cleanup:  time.Minute,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) getLimiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lastSeen[client] = time.Now()
	limiter, ok := rl.clients[client]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.clients[client] = limiter
	}
	return limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-3 * rl.cleanup)
		for client, seen := range rl.lastSeen {
			if seen.Before(cutoff) {
				delete(rl.lastSeen, client)
				delete(rl.clients, client)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.GetHeader("Authorization")
		if client == "" {
			client = c.ClientIP()
		}
		if !rl.getLimiter(client).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Rate limit exceeded",
				},
			})
			return
		}
		c.Next()
	}
}
