package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"filedrop/internal/metrics"

	"golang.org/x/time/rate"
)

// ClientLimiter hands every client its own token bucket, so one noisy client
// cannot use up the budget of everyone else. Buckets idle for longer than
// idle are dropped.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewClientLimiter(limit rate.Limit, burst int, idle time.Duration) *ClientLimiter {
	return &ClientLimiter{
		limit:   limit,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// Allow reports whether client may make another request now.
func (l *ClientLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		for key, b := range l.clients {
			if now.Sub(b.lastSeen) >= l.idle {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *ClientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// clientKey is the host part of the remote address; the port changes with
// every connection.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects POSTs beyond the client's budget with 429. Other methods
// pass through so the forms still render.
func RateLimit(limiter *ClientLimiter, m *metrics.Metrics, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !limiter.Allow(clientKey(r)) {
			m.RateLimitedLogins.Inc()
			http.Error(w, "Too many attempts, try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
