package watch

import (
	"sync"
	"time"

	"github.com/mj1618/desktop-ax/internal/platform"
	"golang.org/x/time/rate"
)

type limitKey struct {
	kind platform.Notification
	id   platform.ElementID
}

// Limiter caps how often a high-frequency notification is reported for one
// element. Dragging a window posts AXWindowMoved for every frame. Other kinds
// pass through untouched.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	limiters map[limitKey]*rate.Limiter
	dropped  int
}

// NewLimiter allows perSecond events per (kind, element) with the given burst.
// perSecond <= 0 disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[limitKey]*rate.Limiter),
	}
}

// Throttled reports whether kind is subject to limiting.
func Throttled(kind platform.Notification) bool {
	return kind == platform.WindowMoved || kind == platform.WindowResized
}

// Allow reports whether an event may be emitted now. A nil Limiter allows
// everything.
func (l *Limiter) Allow(kind platform.Notification, id platform.ElementID) bool {
	if l == nil || l.limit <= 0 || !Throttled(kind) {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := limitKey{kind: kind, id: id}
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	if lim.AllowN(l.now(), 1) {
		return true
	}
	l.dropped++
	return false
}

// Forget drops the state kept for an element, e.g. after it was destroyed.
func (l *Limiter) Forget(id platform.ElementID) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.limiters {
		if key.id == id {
			delete(l.limiters, key)
		}
	}
}

// Dropped returns how many events Allow rejected.
func (l *Limiter) Dropped() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
