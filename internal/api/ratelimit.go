package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterSet holds one token bucket per client key. Buckets idle for longer
// than idle are dropped; by then they have refilled, so a fresh bucket is
// equivalent.
type limiterSet struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(interval time.Duration, burst int) *limiterSet {
	idle := time.Duration(burst) * interval
	if idle < 10*time.Minute {
		idle = 10 * time.Minute
	}
	return &limiterSet{
		limiters: make(map[string]*clientLimiter),
		every:    rate.Every(interval),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweep(now)
	}

	c, ok := s.limiters[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(s.every, s.burst)}
		s.limiters[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (s *limiterSet) sweep(now time.Time) {
	for key, c := range s.limiters {
		if now.Sub(c.lastSeen) >= s.idle {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimit limits requests per actor, or per client IP when the request is
// not yet authenticated. perMinute <= 0 disables limiting.
func RateLimit(perMinute, burst int, logger *zap.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	set := newLimiterSet(time.Minute/time.Duration(perMinute), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !set.allow(key) {
				if logger != nil {
					logger.Warn("rate limit exceeded", zap.String("client", key))
				}
				WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if a, ok := ActorFromContext(r.Context()); ok {
		return "actor:" + a.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
