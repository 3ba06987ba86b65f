package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each sliding window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request; defaults to the
	// client IP.
	KeyFunc func(*http.Request) string
}

// window tracks request counts across two adjacent intervals so the limit
// slides smoothly instead of resetting on a boundary.
type window struct {
	prevCount float64
	currCount float64
	currStart time.Time
}

type rateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	windows map[string]*window
}

// allow reports whether the request identified by key fits in the limit, and
// returns the remaining budget and reset time for response headers.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok {
		w = &window{currStart: now}
		rl.windows[key] = w
	}

	if elapsed := now.Sub(w.currStart); elapsed >= rl.cfg.Window {
		if elapsed >= 2*rl.cfg.Window {
			w.prevCount = 0
		} else {
			w.prevCount = w.currCount
		}
		w.currCount = 0
		w.currStart = now.Truncate(rl.cfg.Window)
	}

	// Weight the previous window by its overlap with the sliding window.
	overlap := 1.0 - now.Sub(w.currStart).Seconds()/rl.cfg.Window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	effective := w.prevCount*overlap + w.currCount
	resetAt = w.currStart.Add(rl.cfg.Window)

	if effective >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}

	w.currCount++
	remaining = int(float64(rl.cfg.Max) - effective - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

func (rl *rateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if now.Sub(w.currStart) >= 2*rl.cfg.Window {
			delete(rl.windows, key)
		}
	}
}

// RateLimit returns a middleware enforcing a per-key sliding window limit.
// Exceeding it yields 429 with a JSON body; every response carries
// X-RateLimit-* headers. A background goroutine evicts stale entries until
// ctx is cancelled.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	rl := &rateLimiter{cfg: cfg, windows: make(map[string]*window)}

	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.cleanup(now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, allowed := rl.allow(cfg.KeyFunc(r), time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := time.Until(resetAt)
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP, checking X-Forwarded-For first, then
// X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
