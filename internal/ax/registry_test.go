package ax

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/mj1618/desktop-ax/internal/platform"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := newRegistry()
	called := 0
	if old := r.register(platform.WindowMoved, 7, func(Element) { called++ }); old != nil {
		t.Error("first register should not report a replacement")
	}
	h := r.lookup(platform.WindowMoved, 7)
	if h == nil {
		t.Fatal("lookup returned nil after register")
	}
	h(Element{})
	if called != 1 {
		t.Errorf("called = %d, want 1", called)
	}
	if r.lookup(platform.WindowResized, 7) != nil {
		t.Error("lookup for another kind should miss")
	}
	if r.lookup(platform.WindowMoved, 8) != nil {
		t.Error("lookup for another element should miss")
	}
}

func TestRegistry_ReplaceReturnsOldEntry(t *testing.T) {
	r := newRegistry()
	r.register(platform.WindowMoved, 7, func(Element) {})
	first := r.entries[notificationKey{kind: platform.WindowMoved, id: 7}]

	old := r.register(platform.WindowMoved, 7, func(Element) {})
	if old != first {
		t.Fatal("second register should return the replaced entry")
	}
	r.retire(old)
	if old.handler != nil {
		t.Error("retired entry still holds its handler")
	}
	if got := r.count(platform.WindowMoved); got != 1 {
		t.Errorf("count = %d, want 1 after replace", got)
	}
	r.retire(nil)
}

func TestRegistry_UnregisterCounts(t *testing.T) {
	r := newRegistry()
	r.register(platform.WindowMoved, 1, func(Element) {})
	r.register(platform.WindowMoved, 2, func(Element) {})
	r.register(platform.WindowResized, 1, func(Element) {})

	entry, remaining := r.unregister(platform.WindowMoved, 1)
	if entry == nil || remaining != 1 {
		t.Errorf("unregister = (%v, %d), want (entry, 1)", entry, remaining)
	}
	r.retire(entry)
	if entry.handler != nil {
		t.Error("unregistered entry still holds its handler")
	}

	entry, remaining = r.unregister(platform.WindowMoved, 1)
	if entry != nil || remaining != 1 {
		t.Errorf("second unregister = (%v, %d), want (nil, 1)", entry, remaining)
	}

	entry, remaining = r.unregister(platform.WindowMoved, 2)
	if entry == nil || remaining != 0 {
		t.Errorf("last unregister = (%v, %d), want (entry, 0)", entry, remaining)
	}
	if _, ok := r.perKind[platform.WindowMoved]; ok {
		t.Error("perKind should drop kinds with no handlers")
	}
	if got := r.len(); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
}

func TestRegistry_KeysSorted(t *testing.T) {
	r := newRegistry()
	r.register(platform.WindowResized, 3, func(Element) {})
	r.register(platform.WindowMoved, 9, func(Element) {})
	r.register(platform.WindowMoved, 2, func(Element) {})

	keys := r.keys()
	want := []notificationKey{
		{kind: platform.WindowMoved, id: 2},
		{kind: platform.WindowMoved, id: 9},
		{kind: platform.WindowResized, id: 3},
	}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %+v, want %+v", i, keys[i], want[i])
		}
	}
}

func TestRegistry_DispatchFallsBackToRoot(t *testing.T) {
	app := &Application{pid: 1}
	app.root = Element{id: 1, app: app}
	r := newRegistry()

	var got []platform.ElementID
	r.register(platform.WindowCreated, 1, func(el Element) { got = append(got, el.ID()) })
	r.register(platform.WindowMoved, 5, func(el Element) { got = append(got, el.ID()) })

	if !r.dispatch(platform.WindowCreated, 4, app) {
		t.Error("root handler should receive events from its windows")
	}
	if r.dispatch(platform.WindowMoved, 6, app) {
		t.Error("element handler must not receive events for other elements")
	}
	if !r.dispatch(platform.WindowMoved, 5, app) {
		t.Error("element handler should receive its own events")
	}
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Errorf("handlers saw %v, want [4 5]", got)
	}
}

func TestRegistry_RetireWaitsForRunningHandler(t *testing.T) {
	app := &Application{pid: 1}
	app.root = Element{id: 1, app: app}
	r := newRegistry()

	entered := make(chan struct{})
	proceed := make(chan struct{})
	r.beforeInvoke = func() {
		close(entered)
		<-proceed
	}
	var ran atomic.Bool
	r.register(platform.WindowMoved, 5, func(Element) { ran.Store(true) })

	go r.dispatch(platform.WindowMoved, 5, app)
	<-entered

	// The handler was looked up but has not been called yet.
	retired := make(chan struct{})
	go func() {
		entry, _ := r.unregister(platform.WindowMoved, 5)
		r.retire(entry)
		close(retired)
	}()

	select {
	case <-retired:
		t.Fatal("retire returned while the handler call was still pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(proceed)
	select {
	case <-retired:
	case <-time.After(time.Second):
		t.Fatal("retire did not return after the handler finished")
	}
	if !ran.Load() {
		t.Error("handler should have completed before retire returned")
	}
}

func TestRegistry_RetireFromOwnHandler(t *testing.T) {
	app := &Application{pid: 1}
	app.root = Element{id: 1, app: app}
	r := newRegistry()

	r.register(platform.WindowMoved, 5, func(Element) {
		entry, _ := r.unregister(platform.WindowMoved, 5)
		r.retire(entry)
	})

	done := make(chan bool)
	go func() { done <- r.dispatch(platform.WindowMoved, 5, app) }()
	select {
	case ran := <-done:
		if !ran {
			t.Error("handler should have run")
		}
	case <-time.After(time.Second):
		t.Fatal("a handler removing itself deadlocked")
	}
	if r.len() != 0 {
		t.Error("handler should have removed itself")
	}
}

func TestGoroutineID(t *testing.T) {
	here := goroutineID()
	if here == 0 {
		t.Fatal("goroutineID returned 0")
	}
	other := make(chan uint64)
	go func() { other <- goroutineID() }()
	if id := <-other; id == here || id == 0 {
		t.Errorf("goroutine ids: here %d, other %d", here, id)
	}
}
