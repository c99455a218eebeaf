package middleware

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/betonova/readymix-crm/internal/http/response"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// RateLimiter throttles per client IP over a fixed window, backed by redis
// so the limit holds across replicas. Fails open on redis errors.
type RateLimiter struct {
	rdb      *redis.Client
	requests int
	window   time.Duration
}

func NewRateLimiter(rdb *redis.Client, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, requests: requests, window: window}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if ip == "" || rl.allow(r, ip) {
				next.ServeHTTP(w, r)
				return
			}
			response.RateLimit(w, "Too many requests. Try again later.")
		})
	}
}

func (rl *RateLimiter) allow(r *http.Request, ip string) bool {
	// Hash the key for privacy
	key := fmt.Sprintf("ratelimit:%x", sha256.Sum256([]byte(ip)))

	ctx := r.Context()
	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		logger.WarnContext(ctx, "Rate limiter unavailable, allowing request", "error", err)
		return true
	}
	if count == 1 {
		if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
			logger.WarnContext(ctx, "Failed to set rate limit expiry", "error", err)
		}
	}
	return count <= int64(rl.requests)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
