// Package ratelimit implements per-IP token bucket limiting for the
// auto-login surface. The store is per-process; in a multi-instance
// deployment each instance enforces its own allowance.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
)

// visitor tracks a rate limiter per client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store manages per-IP rate limiters with automatic cleanup of stale entries.
type Store struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	ttl      time.Duration
	nowFunc  func() time.Time // injectable clock for testing
}

// NewStore creates a store with the given rate parameters and TTL. It starts
// a background cleanup goroutine that runs every ttl interval.
func NewStore(rps float64, burst int, ttl time.Duration) *Store {
	s := &Store{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		nowFunc:  time.Now,
	}
	go s.cleanupLoop()
	return s
}

// Allow reports whether the given IP may proceed, consuming one token.
func (s *Store) Allow(ip string) bool {
	return s.getVisitor(ip).Allow()
}

// getVisitor returns (or creates) a rate limiter for the given IP and
// updates lastSeen.
func (s *Store) getVisitor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(s.rps, s.burst)
		s.visitors[ip] = &visitor{limiter: limiter, lastSeen: s.nowFunc()}
		return limiter
	}
	v.lastSeen = s.nowFunc()
	return v.limiter
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for range ticker.C {
		s.cleanup()
	}
}

// cleanup evicts all visitors whose lastSeen is older than the TTL.
func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for ip, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.ttl {
			delete(s.visitors, ip)
		}
	}
}

// len returns the number of tracked visitors (used in tests).
func (s *Store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// Middleware returns echo middleware enforcing the store's allowance,
// responding 429 when a client exceeds it.
func Middleware(store *Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := clientIP(c.Request())
			if !store.Allow(ip) {
				httpErr := apperrors.MapErrorToHTTP(apperrors.ErrRateLimited)
				return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
			}
			return next(c)
		}
	}
}

// clientIP extracts the client address, trusting RemoteAddr over forwarded
// headers since the service sits behind its own proxy configuration.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
