package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientEntry pairs a limiter with its last use so idle clients expire.
type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// throttle enforces a per-client token bucket keyed by remote IP.
// A non-positive rate disables throttling.
type throttle struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientEntry
}

func newThrottle(rps float64, burst int) *throttle {
	if burst < 1 {
		burst = 1
	}
	return &throttle{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientEntry),
	}
}

func (t *throttle) middleware(next http.Handler) http.Handler {
	if t.rps <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !t.allow(ip) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *throttle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.clients[ip]
	if !ok {
		entry = &clientEntry{
			limiter:  rate.NewLimiter(t.rps, t.burst),
			lastSeen: time.Now(),
		}
		t.clients[ip] = entry
		t.evictIdleLocked()
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// evictIdleLocked drops clients idle for over an hour. Called on new-client
// insert so the map stays bounded without a background goroutine.
func (t *throttle) evictIdleLocked() {
	cutoff := time.Now().Add(-time.Hour)
	for ip, entry := range t.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(t.clients, ip)
		}
	}
}
