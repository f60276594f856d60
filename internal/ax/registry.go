package ax

import (
	"sort"
	"sync"

	"github.com/mj1618/desktop-ax/internal/platform"
)

// Handler is called when a notification fires for an observed element. It runs
// on whatever goroutine delivers platform notifications.
type Handler func(Element)

// notificationKey identifies one registration.
type notificationKey struct {
	kind platform.Notification
	id   platform.ElementID
}

// handlerEntry is the registry's sole long-lived reference to a handler and
// everything it captured.
type handlerEntry struct {
	handler Handler
	running []uint64 // goroutines currently inside handler
}

// release drops the closure so captured state is collectable as soon as the
// entry leaves the registry.
func (e *handlerEntry) release() { e.handler = nil }

// busyElsewhere reports whether the handler is running on a goroutine other
// than g.
func (e *handlerEntry) busyElsewhere(g uint64) bool {
	for _, id := range e.running {
		if id != g {
			return true
		}
	}
	return false
}

// registry maps (notification, element) to at most one handler.
//
// An entry leaves the map under mu, but is only released once no other
// goroutine is inside its handler. A handler removing itself does not wait.
type registry struct {
	mu      sync.Mutex
	idle    *sync.Cond // signalled on mu whenever a handler call returns
	entries map[notificationKey]*handlerEntry
	perKind map[platform.Notification]int

	beforeInvoke func() // test hook, runs between lookup and the handler call
}

func newRegistry() *registry {
	r := &registry{
		entries: make(map[notificationKey]*handlerEntry),
		perKind: make(map[platform.Notification]int),
	}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// register stores h. An entry already stored for the same key is removed and
// returned; the caller must retire it.
func (r *registry) register(kind platform.Notification, id platform.ElementID, h Handler) *handlerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := notificationKey{kind: kind, id: id}
	old, ok := r.entries[key]
	r.entries[key] = &handlerEntry{handler: h}
	if !ok {
		r.perKind[kind]++
	}
	return old
}

// unregister removes the entry for the key, if any, and returns it together
// with how many handlers remain for kind. The caller must retire the entry.
func (r *registry) unregister(kind platform.Notification, id platform.ElementID) (*handlerEntry, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := notificationKey{kind: kind, id: id}
	entry, ok := r.entries[key]
	if !ok {
		return nil, r.perKind[kind]
	}
	delete(r.entries, key)

	r.perKind[kind]--
	remaining := r.perKind[kind]
	if remaining == 0 {
		delete(r.perKind, kind)
	}
	return entry, remaining
}

// retire waits until no other goroutine is running the handler of a removed
// entry, then releases it. It must not be called with a lock the handler may
// need. A nil entry is a no-op.
func (r *registry) retire(e *handlerEntry) {
	if e == nil {
		return
	}
	g := goroutineID()
	r.mu.Lock()
	for e.busyElsewhere(g) {
		r.idle.Wait()
	}
	e.release()
	r.mu.Unlock()
}

// lookup returns the handler currently stored for the key.
func (r *registry) lookup(kind platform.Notification, id platform.ElementID) Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[notificationKey{kind: kind, id: id}]; ok {
		return entry.handler
	}
	return nil
}

// enter finds the entry for (kind, id), falling back to the application
// root's entry, and marks it running on goroutine g.
func (r *registry) enter(kind platform.Notification, id, root platform.ElementID, g uint64) (*handlerEntry, Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[notificationKey{kind: kind, id: id}]
	if !ok && id != root {
		entry, ok = r.entries[notificationKey{kind: kind, id: root}]
	}
	if !ok || entry.handler == nil {
		return nil, nil
	}
	entry.running = append(entry.running, g)
	return entry, entry.handler
}

func (r *registry) leave(entry *handlerEntry, g uint64) {
	r.mu.Lock()
	for i, id := range entry.running {
		if id == g {
			entry.running = append(entry.running[:i], entry.running[i+1:]...)
			break
		}
	}
	r.idle.Broadcast()
	r.mu.Unlock()
}

// dispatch invokes the handler registered for (kind, id). When the element has
// no handler of its own, a handler registered on the application root for the
// same kind receives it instead. The handler runs without the registry lock
// held, so it may observe or unobserve freely. Returns whether a handler ran.
func (r *registry) dispatch(kind platform.Notification, id platform.ElementID, app *Application) bool {
	g := goroutineID()
	entry, h := r.enter(kind, id, app.root.id, g)
	if entry == nil {
		return false
	}
	defer r.leave(entry, g)

	if r.beforeInvoke != nil {
		r.beforeInvoke()
	}
	h(Element{id: id, app: app})
	return true
}

func (r *registry) count(kind platform.Notification) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.perKind[kind]
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// keys returns every registered key, ordered by kind then element.
func (r *registry) keys() []notificationKey {
	r.mu.Lock()
	keys := make([]notificationKey, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].id < keys[j].id
	})
	return keys
}
