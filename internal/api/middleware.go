// internal/api/middleware.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter implements fixed-window rate limiting per client key.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.RWMutex
}

type visitor struct {
	limit     int
	remaining int
	reset     time.Time
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, v := range rl.visitors {
			if now.After(v.reset) {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow checks whether the keyed client may make another request.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[key]

	if !exists || now.After(v.reset) {
		rl.visitors[key] = &visitor{
			limit:     limit,
			remaining: limit - 1,
			reset:     now.Add(window),
		}
		return true
	}

	if v.remaining <= 0 {
		return false
	}

	v.remaining--
	return true
}

func (rl *RateLimiter) headers(key string, limit int, window time.Duration) (int, int, int64) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	v, exists := rl.visitors[key]
	if !exists {
		return limit, limit, time.Now().Add(window).Unix()
	}

	remaining := v.remaining
	if remaining < 0 {
		remaining = 0
	}

	return limit, remaining, v.reset.Unix()
}

var rateLimiter = NewRateLimiter()

// RateLimitMiddleware enforces a request budget per window for the key
// derived from the request.
func RateLimitMiddleware(limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		if !rateLimiter.Allow(key, limit, window) {
			lim, remaining, reset := rateLimiter.headers(key, limit, window)

			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lim))
			c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":   false,
				"error":     "Rate limit exceeded",
				"code":      ErrorRateLimitExceeded,
				"timestamp": time.Now().Format(time.RFC3339),
			})
			c.Abort()
			return
		}

		lim, remaining, reset := rateLimiter.headers(key, limit, window)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lim))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", reset))

		c.Next()
	}
}

// RateLimitByIP limits by client IP.
func RateLimitByIP(limit int, window time.Duration) gin.HandlerFunc {
	return RateLimitMiddleware(limit, window, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// ConversationRateLimit bounds the turn rate. Each turn triggers several
// model calls, so the budget is tighter than the general one.
func ConversationRateLimit() gin.HandlerFunc {
	return RateLimitByIP(30, time.Minute)
}

// TranscriptionRateLimit bounds speech-to-text uploads.
func TranscriptionRateLimit() gin.HandlerFunc {
	return RateLimitByIP(20, time.Minute)
}

// DefaultRateLimit applies general rate limiting for most endpoints.
func DefaultRateLimit() gin.HandlerFunc {
	return RateLimitByIP(100, time.Minute)
}

// RequestTimeout bounds handler execution by shrinking the request
// context. Handlers pass that context to every outbound call, so the
// deadline cuts stalled backend requests short.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LLMTimeout is the budget for handlers that call model backends.
func LLMTimeout() gin.HandlerFunc {
	return RequestTimeout(30 * time.Second)
}
