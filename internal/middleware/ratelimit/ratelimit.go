// Package ratelimit throttles clients with a fixed one-minute window.
package ratelimit

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"
)

const (
	window    = time.Minute
	staleTime = 10 * time.Minute
)

type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*quota
	now      func() time.Time
	limit    int
	methods  []string
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type quota struct {
	start    time.Time
	lastSeen time.Time
	used     int
}

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods limits throttling to these HTTP methods; empty means all.
	Methods []string
}

// DefaultConfig throttles writes only.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}
}

// NewLimiter starts a sweeper for idle clients; call Stop to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		windows:  make(map[string]*quota),
		now:      time.Now,
		limit:    config.RequestsPerMinute,
		methods:  config.Methods,
		interval: config.CleanupInterval,
		stop:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Decision is the outcome of one request against a client's quota.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Take counts one request for key.
func (rl *Limiter) Take(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	q, ok := rl.windows[key]
	if !ok || now.Sub(q.start) >= window {
		q = &quota{start: now}
		rl.windows[key] = q
	}
	q.used++
	q.lastSeen = now

	return Decision{
		Allowed:   q.used <= rl.limit,
		Limit:     rl.limit,
		Remaining: max(rl.limit-q.used, 0),
		Reset:     q.start.Add(window),
	}
}

func (rl *Limiter) Allow(key string) bool {
	return rl.Take(key).Allowed
}

func (rl *Limiter) sweep() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.dropIdle()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) dropIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-staleTime)
	for key, q := range rl.windows {
		if q.lastSeen.Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware advertises the quota on limited methods and rejects requests
// over it through onLimit, or with a plain 429 when onLimit is nil.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(rl.methods) > 0 && !slices.Contains(rl.methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			d := rl.Take(extractIP(r))
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			wait := math.Ceil(d.Reset.Sub(rl.now()).Seconds())
			h.Set("Retry-After", strconv.Itoa(max(int(wait), 1)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
