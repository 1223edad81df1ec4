package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
)

// sweepThreshold bounds the number of tracked keys before stale ones are dropped.
const sweepThreshold = 10000

// RateLimiter is a sliding-window limiter keyed by client IP.
type RateLimiter struct {
	max     int
	window  time.Duration
	maxKeys int
	now     func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		maxKeys:  sweepThreshold,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.requests) > l.maxKeys {
		l.sweepLocked(cutoff)
	}
	kept := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.requests[key] = kept
		return false
	}
	l.requests[key] = append(kept, now)
	return true
}

// sweepLocked drops keys with no hits inside the window. l.mu must be held.
func (l *RateLimiter) sweepLocked(cutoff time.Time) {
	for k, ts := range l.requests {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.requests, k)
		}
	}
}

// Limit rejects requests over the limit with 429.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			httpx.JSONError(w, http.StatusTooManyRequests, "Too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then the remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
