package ax

import "sync"

// windowCache memoizes an application's window list until dropped.
// There is no partial invalidation: drop discards everything and the next
// read queries the platform again.
type windowCache struct {
	mu      sync.Mutex
	windows []Element
	loaded  bool
}

// get returns the cached windows, calling load to populate them on a miss.
// A failed load leaves the cache empty. Callers get their own copy.
func (c *windowCache) get(load func() ([]Element, error)) ([]Element, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		windows, err := load()
		if err != nil {
			return nil, err
		}
		c.windows = windows
		c.loaded = true
	}

	out := make([]Element, len(c.windows))
	copy(out, c.windows)
	return out, nil
}

// drop discards the cached windows. Elements already handed out stay valid.
func (c *windowCache) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows = nil
	c.loaded = false
}
