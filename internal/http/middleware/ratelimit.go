package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows Requests per Window from one client IP. A zero
// Requests disables limiting.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

var DefaultRateLimit = RateLimitConfig{Requests: 100, Window: 15 * time.Minute}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP. Buckets idle for longer
// than a window are dropped.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	swept    time.Time
}

func newIPLimiter(cfg RateLimitConfig, now func() time.Time) *ipLimiter {
	return &ipLimiter{
		visitors: map[string]*visitor{},
		every:    rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:    cfg.Requests,
		idle:     cfg.Window,
		now:      now,
	}
}

func (l *ipLimiter) allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.swept) > l.idle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, k)
			}
		}
		l.swept = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit rejects clients that exceed cfg with 429 and a Retry-After header.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimit(cfg, time.Now)
}

func rateLimit(cfg RateLimitConfig, now func() time.Time) gin.HandlerFunc {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := newIPLimiter(cfg, now)
	limit := strconv.Itoa(cfg.Requests)
	return func(c *gin.Context) {
		ok, wait := l.allow(c.ClientIP())
		c.Header("RateLimit-Limit", limit)
		if !ok {
			secs := int(wait.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests from this IP, please try again later",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
