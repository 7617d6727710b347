package authkit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SignInRateLimiterConfig holds the per-client sign-in throttle settings.
type SignInRateLimiterConfig struct {
	RatePerMinute   float64
	Burst           int
	CleanupInterval time.Duration
	IdleEviction    time.Duration
}

// DefaultSignInRateLimiterConfig allows 10 sign-in attempts per minute per IP.
func DefaultSignInRateLimiterConfig() SignInRateLimiterConfig {
	return SignInRateLimiterConfig{
		RatePerMinute:   10,
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
		IdleEviction:    15 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// SignInRateLimiter throttles sign-in attempts per client IP. Sign-in is
// the only route doing outbound provider calls, so it gets its own budget.
type SignInRateLimiter struct {
	config   SignInRateLimiterConfig
	mutex    sync.Mutex
	limiters map[string]*clientLimiter
	stopCh   chan struct{}
}

// NewSignInRateLimiter starts a limiter with a background eviction loop.
func NewSignInRateLimiter(config SignInRateLimiterConfig) *SignInRateLimiter {
	limiter := &SignInRateLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}
	go limiter.cleanupLoop()
	return limiter
}

// Stop halts the background eviction goroutine.
func (limiter *SignInRateLimiter) Stop() {
	close(limiter.stopCh)
}

// Middleware rejects clients over budget with 429.
func (limiter *SignInRateLimiter) Middleware() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		if !limiter.allow(contextGin.ClientIP()) {
			contextGin.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		contextGin.Next()
	}
}

func (limiter *SignInRateLimiter) allow(clientIP string) bool {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	entry, ok := limiter.limiters[clientIP]
	if !ok {
		entry = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(limiter.config.RatePerMinute/60.0), limiter.config.Burst),
		}
		limiter.limiters[clientIP] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (limiter *SignInRateLimiter) cleanupLoop() {
	interval := limiter.config.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-limiter.stopCh:
			return
		case <-ticker.C:
			limiter.evictIdle()
		}
	}
}

func (limiter *SignInRateLimiter) evictIdle() {
	cutoff := time.Now().Add(-limiter.config.IdleEviction)
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	for clientIP, entry := range limiter.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(limiter.limiters, clientIP)
		}
	}
}
