package middleware

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/changheecho2/banju/internal/config"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTimeout   = 30 * time.Minute
)

// Limits is a pair of token buckets. The soft bucket can be bypassed by
// a captcha-verified client; the hard bucket cannot.
type Limits struct {
	SoftRate, SoftBurst int
	HardRate, HardBurst int
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware keeps per-route token buckets. Hard buckets are
// keyed on client IP only; soft buckets also on the fingerprint headers.
type RateLimiterMiddleware struct {
	mu       sync.Mutex
	clients  map[string]*bucket
	defaults Limits
	routes   map[string]Limits
}

// NewRateLimiterMiddleware creates a limiter with config defaults. Routes
// maps a gin route path to stricter or looser limits. Idle clients are
// swept until ctx is done.
func NewRateLimiterMiddleware(ctx context.Context, cfg *config.Config, routes map[string]Limits) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*bucket),
		defaults: Limits{
			SoftRate:  cfg.RateLimitSoftRefillRate,
			SoftBurst: cfg.RateLimitSoftBucketSize,
			HardRate:  cfg.RateLimitHardRefillRate,
			HardBurst: cfg.RateLimitHardBucketSize,
		},
		routes: routes,
	}
	go rm.sweepLoop(ctx)
	return rm
}

func (rm *RateLimiterMiddleware) limiterFor(key string, r, burst int) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	b, ok := rm.clients[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(r), burst)}
		rm.clients[key] = b
	}
	b.lastSeen = time.Now()
	return b.lim
}

func (rm *RateLimiterMiddleware) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := rm.sweep(now.Add(-limiterIdleTimeout)); n > 0 {
				log.Printf("DEBUG: rate limiter sweep removed %d idle clients", n)
			}
		}
	}
}

// sweep drops clients not seen since cutoff.
func (rm *RateLimiterMiddleware) sweep(cutoff time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	removed := 0
	for key, b := range rm.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rm.clients, key)
			removed++
		}
	}
	return removed
}

// Limit creates the Gin middleware handler. It must run after CaptchaMiddleware.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		limits, ok := rm.routes[route]
		if !ok {
			limits = rm.defaults
		}
		ip := c.ClientIP()
		hard := rm.limiterFor("hard|"+ip+"|"+route, limits.HardRate, limits.HardBurst)
		if !hard.Allow() {
			log.Printf("WARN: hard rate limit exceeded for %s on %s", ip, route)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		if c.GetBool(ContextKeyIsHumanVerified) {
			c.Next()
			return
		}
		softKey := "soft|" + ip + "|" + c.GetHeader("X-BFP") + "|" + c.GetHeader("X-SPA") + "|" + route
		if !rm.limiterFor(softKey, limits.SoftRate, limits.SoftBurst).Allow() {
			log.Printf("DEBUG: soft rate limit exceeded for %s, captcha required", softKey)
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
			return
		}

		c.Next()
	}
}
