package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vardo/vardo-web/internal/httpmw"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// reported is set on the first denial and reset when the visitor is
	// evicted, so OnFirstDenied fires once per offence
	reported bool
}

// IPLimiter is a token bucket per client IP with idle eviction.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int
	atCapacity  bool
	now         func() time.Time

	onDenied      func(ip string)
	onFirstDenied func(ip string)
	onCapacity    func()
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket size: WithRate(10, 30) allows a
// burst of 30 then 10 requests per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL sets how long an idle visitor is remembered.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithMaxVisitors caps tracked visitors. New IPs are rejected while the
// cap is reached; 0 disables the cap.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

// WithOnDenied runs on every rejection.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onDenied = fn }
}

// WithOnFirstDenied runs on the first rejection of a visitor.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onFirstDenied = fn }
}

// WithOnCapacity runs when the visitor cap is first hit, and again only
// after eviction has freed room.
func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.onCapacity = fn }
}

// WithIPClock replaces time.Now for refill and idle accounting.
func WithIPClock(now func() time.Time) Option {
	return func(l *IPLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewIPLimiter starts the eviction loop, which stops with ctx.
func NewIPLimiter(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: 100000,
		now:         time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.evictLoop(ctx)
	return l
}

func (l *IPLimiter) allow(ip string) bool {
	var firstDenial, capacityHit bool

	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			capacityHit = !l.atCapacity
			l.atCapacity = true
			l.mu.Unlock()
			if capacityHit && l.onCapacity != nil {
				l.onCapacity()
			}
			if l.onDenied != nil {
				l.onDenied(ip)
			}
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	allowed := v.limiter.AllowN(v.lastSeen, 1)
	if !allowed && !v.reported {
		v.reported = true
		firstDenial = true
	}
	l.mu.Unlock()

	// hooks run outside the lock; they may log or touch metrics
	if !allowed {
		if firstDenial && l.onFirstDenied != nil {
			l.onFirstDenied(ip)
		}
		if l.onDenied != nil {
			l.onDenied(ip)
		}
	}
	return allowed
}

// minEvictInterval bounds how often the eviction loop wakes.
const minEvictInterval = 10 * time.Millisecond

func (l *IPLimiter) evictInterval() time.Duration {
	return max(l.ttl/2, minEvictInterval)
}

func (l *IPLimiter) evictLoop(ctx context.Context) {
	t := time.NewTicker(l.evictInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.evictIdle()
		}
	}
}

func (l *IPLimiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
			n++
		}
	}
	if l.maxVisitors <= 0 || len(l.visitors) < l.maxVisitors {
		l.atCapacity = false
	}
	return n
}

// Visitors is the number of IPs currently tracked.
func (l *IPLimiter) Visitors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware rejects requests over the per-IP budget with 429.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(httpmw.ClientIPFromContext(r.Context())) {
			writeDenied(w, "30")
			return
		}
		next.ServeHTTP(w, r)
	})
}
