package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
)

// RateLimitInfo contains current rate limit state for a given key.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// TokenBucketLimiter keeps one rate.Limiter per key.
type TokenBucketLimiter struct {
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a limiter. A positive cleanupInterval starts
// a goroutine that evicts idle buckets; call Stop to end it.
func NewTokenBucketLimiter(rps float64, burst int, cleanupInterval time.Duration) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &TokenBucketLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		idleAfter: cleanupInterval,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop(cleanupInterval)
	} else {
		close(l.done)
	}
	return l
}

// Allow takes one token from key's bucket.
func (l *TokenBucketLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	allowed := b.lim.AllowN(now, 1)
	tokens := b.lim.TokensAt(now)

	info := RateLimitInfo{Limit: l.burst, ResetAt: now}
	if tokens > 0 {
		info.Remaining = int(tokens)
	}
	if tokens < 1 && l.limit > 0 {
		info.ResetAt = now.Add(time.Duration((1 - tokens) / float64(l.limit) * float64(time.Second)))
	}
	return allowed, info
}

// Stop ends the cleanup goroutine and waits for it. Safe to call twice.
func (l *TokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// BucketCount returns the number of tracked keys.
func (l *TokenBucketLimiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *TokenBucketLimiter) cleanupLoop(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *TokenBucketLimiter) evictIdle() {
	threshold := l.now().Add(-l.idleAfter)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(threshold) {
			delete(l.buckets, key)
		}
	}
}

// RateLimitMiddleware rejects clients that exceed the limiter with 429.
type RateLimitMiddleware struct {
	limiter   *TokenBucketLimiter
	skipPaths map[string]bool
}

func NewRateLimitMiddleware(limiter *TokenBucketLimiter, skipPaths ...string) *RateLimitMiddleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &RateLimitMiddleware{limiter: limiter, skipPaths: skip}
}

// Handler keys buckets by client IP. Run it after chi's RealIP middleware.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		allowed, info := m.limiter.Allow(clientIP(r))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(time.Until(info.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		rejected := errors.RateLimit("rate limit exceeded, please retry later")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(errors.HTTPStatusForCode(rejected.Code))
		_ = json.NewEncoder(w).Encode(common.NewErrorResponse(rejected.Code.String(), rejected.Message))
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

//Personal.AI order the ending
