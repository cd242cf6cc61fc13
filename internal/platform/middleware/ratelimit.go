package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL drops limiters for clients not seen for this long.
	IdleTTL time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		IdleTTL:           10 * time.Minute,
	}
}

// LoginRateLimitConfig is the stricter limit applied to credential endpoints.
func LoginRateLimitConfig(rps float64, burst int) RateLimitConfig {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 10
	}
	return RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst, IdleTTL: 30 * time.Minute}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client key.
type limiterStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   RateLimitConfig
	lastGC   time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		visitors: make(map[string]*visitor),
		config:   cfg,
		lastGC:   time.Now(),
	}
}

func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.IdleTTL > 0 && now.Sub(s.lastGC) > s.config.IdleTTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.config.IdleTTL {
				delete(s.visitors, k)
			}
		}
		s.lastGC = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit limits requests per client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			limiter := store.get(c.RealIP(), now)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)

			res := limiter.ReserveN(now, 1)
			if !res.OK() {
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			remaining := int(limiter.TokensAt(now))
			if remaining < 0 {
				remaining = 0
			}
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			return next(c)
		}
	}
}
