package httpmiddleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client fixed window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window.
	Max int
	// Window is the duration of each window.
	Window time.Duration
	// KeyFunc extracts the limiter key from a request. Nil means client IP.
	KeyFunc func(*http.Request) string
	// Now is the clock, nil means time.Now. Injectable for tests.
	Now func() time.Time
}

type window struct {
	start time.Time
	count int
}

// RateLimit returns a middleware enforcing a per-key fixed window limit.
// Exceeding the limit answers 429 with a JSON body and a Retry-After header.
// Stale entries are evicted lazily whenever a window rolls over.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var (
		mu      sync.Mutex
		windows = make(map[string]*window)
		sweepAt = cfg.Now().Add(cfg.Window)
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyFunc(r)
			now := cfg.Now()

			mu.Lock()
			if now.After(sweepAt) {
				for k, win := range windows {
					if now.Sub(win.start) >= cfg.Window {
						delete(windows, k)
					}
				}
				sweepAt = now.Add(cfg.Window)
			}

			win, ok := windows[key]
			if !ok || now.Sub(win.start) >= cfg.Window {
				win = &window{start: now}
				windows[key] = win
			}
			win.count++
			count := win.count
			resetAt := win.start.Add(cfg.Window)
			mu.Unlock()

			remaining := cfg.Max - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if count > cfg.Max {
				retryAfter := int(resetAt.Sub(now).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
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

// clientIP extracts the client address, preferring proxy headers.
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
