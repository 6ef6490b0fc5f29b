package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter limits requests per client IP. Idle clients expire from the cache.
type RateLimiter struct {
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with burst per IP
func NewRateLimiter(requestsPerSecond float64, burst int, idle time.Duration) *RateLimiter {
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &RateLimiter{
		limiters: cache.New(idle, idle),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether ip may make a request now
func (rl *RateLimiter) Allow(ip string) bool {
	if v, ok := rl.limiters.Get(ip); ok {
		// Touch to push expiry out
		rl.limiters.SetDefault(ip, v)
		return v.(*rate.Limiter).Allow()
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	// Another request may have raced us here; keep the one that won
	if err := rl.limiters.Add(ip, l, cache.DefaultExpiration); err != nil {
		if v, ok := rl.limiters.Get(ip); ok {
			return v.(*rate.Limiter).Allow()
		}
	}
	return l.Allow()
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
