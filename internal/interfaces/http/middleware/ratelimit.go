package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/FamilyScope/pkg/errors"
	"github.com/turtacn/FamilyScope/pkg/types/common"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per key.
	RequestsPerSecond float64
	// Burst is the number of requests a key may make at once.
	Burst int
	// KeyFunc extracts the limiter key.  Defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// SkipPaths bypass limiting.
	SkipPaths []string
	// IdleTTL is how long an unused key's bucket is kept.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the limits used when none are configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		IdleTTL:           5 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a keyed token-bucket limiter whose rate can be changed while
// the server runs.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewLimiter creates a Limiter.  A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int, idleTTL time.Duration) *Limiter {
	l := &Limiter{visitors: make(map[string]*visitor), idleTTL: idleTTL, now: time.Now}
	l.SetRate(rps, burst)
	return l
}

// SetRate changes the limits of every existing and future key.
func (l *Limiter) SetRate(rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rps <= 0 {
		l.limit = rate.Inf
	} else {
		l.limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	l.burst = burst
	for _, v := range l.visitors {
		v.limiter.SetLimit(l.limit)
		v.limiter.SetBurst(l.burst)
	}
}

// Allow reports whether key may proceed, the remaining whole tokens and,
// when refused, how long until a token is available.
func (l *Limiter) Allow(key string) (bool, int, time.Duration) {
	l.mu.Lock()
	now := l.now()
	l.evict(now)
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	if v.limiter.Limit() == rate.Inf {
		return true, l.burst, 0
	}
	if v.limiter.AllowN(now, 1) {
		return true, int(math.Max(0, math.Floor(v.limiter.TokensAt(now)))), 0
	}
	r := v.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, 0, wait
}

// Burst returns the current burst size.
func (l *Limiter) Burst() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burst
}

// evict drops idle keys; callers hold l.mu.
func (l *Limiter) evict(now time.Time) {
	if l.idleTTL <= 0 {
		return
	}
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, k)
		}
	}
}

// RateLimit rejects requests over the limit with 429 and the standard error
// envelope.  Allowed responses carry X-RateLimit-Limit and
// X-RateLimit-Remaining.
func RateLimit(l *Limiter, config RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		ok, remaining, wait := l.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Burst()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if ok {
			c.Next()
			return
		}

		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		code := errors.ErrCodeTooManyRequests
		c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{Error: common.ErrorDetail{
			Code:    code.String(),
			Message: errors.DefaultMessageForCode(code),
		}})
	}
}

//Personal.AI order the ending
