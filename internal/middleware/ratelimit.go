package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket refilled across a fixed window.
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*bucket
	rate        int           // requests per window
	window      time.Duration // time window
	now         func() time.Time
	cleanupTick *time.Ticker
	stop        chan struct{}
	stopOnce    sync.Once
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
}

// NewRateLimiter allows rate requests per window for each client.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:     make(map[string]*bucket),
		rate:        rate,
		window:      window,
		now:         time.Now,
		cleanupTick: time.NewTicker(5 * time.Minute),
		stop:        make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// cleanup drops clients idle for more than an hour.
func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.mu.Lock()
			now := rl.now()
			for key, b := range rl.clients {
				if now.Sub(b.lastUpdate) > time.Hour {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTick.Stop()
		close(rl.stop)
	})
}

// Allow reports whether a request from key may proceed and consumes a token.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.clients[key]
	if !exists {
		b = &bucket{tokens: rl.rate, lastUpdate: now}
		rl.clients[key] = b
	}

	elapsed := now.Sub(b.lastUpdate)
	if elapsed >= rl.window {
		b.tokens = rl.rate
		b.lastUpdate = now
	} else if refill := int(float64(rl.rate) * elapsed.Seconds() / rl.window.Seconds()); refill > 0 {
		b.tokens = min(b.tokens+refill, rl.rate)
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Rate returns the number of requests allowed per window.
func (rl *RateLimiter) Rate() int {
	return rl.rate
}

// GetClientKey identifies the client, preferring the first proxy hop.
func GetClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}

// RateLimitMiddleware rejects requests over the limit with 429.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	limit := strconv.Itoa(limiter.Rate())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(GetClientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Limit", limit)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
