package watch

import (
	"sync"

	"github.com/mj1618/desktop-ax/internal/model"
)

// Buffer holds the most recent events of a session between polls. When full,
// the oldest event is discarded.
type Buffer struct {
	mu      sync.Mutex
	events  []model.Event
	size    int
	dropped int
}

// NewBuffer returns a buffer holding at most size events.
func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{size: size}
}

// Push appends ev, evicting the oldest event if the buffer is full.
func (b *Buffer) Push(ev model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == b.size {
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
		b.dropped++
	}
	b.events = append(b.events, ev)
}

// Drain removes and returns up to max events, oldest first. max <= 0 drains
// everything.
func (b *Buffer) Drain(max int) []model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.events)
	if max > 0 && max < n {
		n = max
	}
	out := make([]model.Event, n)
	copy(out, b.events[:n])
	b.events = append(b.events[:0], b.events[n:]...)
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Dropped returns how many events were evicted unread.
func (b *Buffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
