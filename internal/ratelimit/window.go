package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultMaxRequests = 5
	DefaultWindow      = time.Minute
)

// ErrInvalidLimit is returned when a limiter is built with a non-positive
// request budget or window.
var ErrInvalidLimit = errors.New("ratelimit: maxRequests and window must be positive")

// Keyed is what the HTTP guard needs from a limiter.
type Keyed interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Window is an in-memory sliding-window limiter. Each key keeps the times
// of its admitted events in a ring bounded by maxRequests; entries outside
// the window are dropped when the key is next checked.
type Window struct {
	mu      sync.Mutex
	keys    map[string]*ring
	max     int
	window  time.Duration
	now     func() time.Time
	onAdmit func(key string)
}

type WindowOption func(*Window)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) WindowOption {
	return func(w *Window) {
		if now != nil {
			w.now = now
		}
	}
}

func New(maxRequests int, window time.Duration, opts ...WindowOption) (*Window, error) {
	if maxRequests <= 0 || window <= 0 {
		return nil, ErrInvalidLimit
	}
	w := &Window{
		keys:   make(map[string]*ring),
		max:    maxRequests,
		window: window,
		now:    time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// NewDefault allows 5 events per key per minute.
func NewDefault(opts ...WindowOption) *Window {
	w, _ := New(DefaultMaxRequests, DefaultWindow, opts...)
	return w
}

func (w *Window) MaxRequests() int { return w.max }

func (w *Window) Window() time.Duration { return w.window }

// IsAllowed records an event for key and reports whether it fits in the
// window. A rejected event is not recorded.
func (w *Window) IsAllowed(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	r, ok := w.keys[key]
	if !ok {
		r = newRing(w.max)
		w.keys[key] = r
	}
	r.pruneBefore(now, w.window)
	if r.len() >= w.max {
		return false
	}
	r.push(now)
	return true
}

// Allow is IsAllowed for callers that go through Keyed. It never fails.
func (w *Window) Allow(_ context.Context, key string) (bool, error) {
	return w.IsAllowed(key), nil
}

// Clear forgets key; its next check starts a fresh window.
func (w *Window) Clear(key string) {
	w.mu.Lock()
	delete(w.keys, key)
	w.mu.Unlock()
}

func (w *Window) ClearAll() {
	w.mu.Lock()
	w.keys = make(map[string]*ring)
	w.mu.Unlock()
}

// Len is the number of keys currently tracked.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.keys)
}

// Sweep drops keys whose events have all left the window and returns how
// many were dropped. A swept key behaves exactly like one never seen, so
// calling Sweep never changes an admission decision; it only bounds memory.
func (w *Window) Sweep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	n := 0
	for k, r := range w.keys {
		r.pruneBefore(now, w.window)
		if r.len() == 0 {
			delete(w.keys, k)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (w *Window) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(dropped int)) {
	if interval <= 0 {
		interval = w.window
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := w.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}

// ring is a fixed-capacity FIFO of timestamps in arrival order.
type ring struct {
	buf   []time.Time
	head  int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]time.Time, capacity)}
}

func (r *ring) len() int { return r.count }

// push assumes the caller checked there is room.
func (r *ring) push(t time.Time) {
	r.buf[(r.head+r.count)%len(r.buf)] = t
	r.count++
}

// pruneBefore drops entries with now-t >= window. Entries are
// chronological, so once one is inside the window the rest are too.
func (r *ring) pruneBefore(now time.Time, window time.Duration) {
	for r.count > 0 {
		if now.Sub(r.buf[r.head]) < window {
			return
		}
		r.buf[r.head] = time.Time{}
		r.head = (r.head + 1) % len(r.buf)
		r.count--
	}
}
