//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>
#include <stdint.h>
#include <stdlib.h>

extern void axNotification(int pid, CFTypeRef element, CFTypeRef notification);

static void ax_observer_callback(AXObserverRef observer, AXUIElementRef element, CFStringRef notification, void *refcon) {
	axNotification((int)(intptr_t)refcon, element, notification);
}

static AXError ax_observer_create(pid_t pid, CFTypeRef *out) {
	AXObserverRef obs = NULL;
	AXError err = AXObserverCreate(pid, ax_observer_callback, &obs);
	*out = obs;
	return err;
}

static AXError ax_observer_add(CFTypeRef obs, CFTypeRef el, const char *name, int pid) {
	CFStringRef n = CFStringCreateWithCString(kCFAllocatorDefault, name, kCFStringEncodingUTF8);
	AXError err = AXObserverAddNotification((AXObserverRef)obs, (AXUIElementRef)el, n, (void *)(intptr_t)pid);
	CFRelease(n);
	return err;
}

static AXError ax_observer_remove(CFTypeRef obs, CFTypeRef el, const char *name) {
	CFStringRef n = CFStringCreateWithCString(kCFAllocatorDefault, name, kCFStringEncodingUTF8);
	AXError err = AXObserverRemoveNotification((AXObserverRef)obs, (AXUIElementRef)el, n);
	CFRelease(n);
	return err;
}

static void ax_observer_schedule(CFTypeRef obs, CFTypeRef loop) {
	CFRunLoopAddSource((CFRunLoopRef)loop, AXObserverGetRunLoopSource((AXObserverRef)obs), kCFRunLoopDefaultMode);
	CFRunLoopWakeUp((CFRunLoopRef)loop);
}

static void ax_observer_unschedule(CFTypeRef obs, CFTypeRef loop) {
	CFRunLoopRemoveSource((CFRunLoopRef)loop, AXObserverGetRunLoopSource((AXObserverRef)obs), kCFRunLoopDefaultMode);
}

static CFTypeRef ax_current_run_loop(void) {
	return CFRunLoopGetCurrent();
}

static void ax_keepalive(void *info) {}

// ax_run_loop runs the calling thread's run loop forever. The empty source
// keeps CFRunLoopRun from returning while no observer is scheduled.
static void ax_run_loop(void) {
	CFRunLoopSourceContext ctx = {0};
	ctx.perform = ax_keepalive;
	CFRunLoopSourceRef src = CFRunLoopSourceCreate(kCFAllocatorDefault, 0, &ctx);
	CFRunLoopAddSource(CFRunLoopGetCurrent(), src, kCFRunLoopDefaultMode);
	CFRunLoopRun();
}
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"unsafe"

	"github.com/mj1618/desktop-ax/internal/platform"
)

// deliveryBuffer bounds how far the run loop thread may run ahead of event
// delivery before it blocks.
const deliveryBuffer = 1024

type subscription struct {
	pid  int
	root platform.ElementID
	kind platform.Notification
	fn   platform.EventFunc
}

// appObserver is the AXObserver of one process. Each notification kind is
// added to the root once, however many subscriptions share it.
type appObserver struct {
	ref   C.CFTypeRef
	kinds map[platform.Notification]int
}

// observers owns every AXObserver of the process. Observers are scheduled on
// one run loop thread; callbacks are queued and delivered from a separate
// goroutine so handlers may call back into the backend.
type observers struct {
	b      *Backend
	loop   C.CFTypeRef
	events chan platform.Event

	mu     sync.Mutex // guards everything below; never held across delivery
	apps   map[int]*appObserver
	subs   map[platform.SubscriptionID]*subscription
	nextID platform.SubscriptionID
}

func newObservers(b *Backend) *observers {
	o := &observers{
		b:      b,
		events: make(chan platform.Event, deliveryBuffer),
		apps:   make(map[int]*appObserver),
		subs:   make(map[platform.SubscriptionID]*subscription),
	}
	ready := make(chan C.CFTypeRef)
	go func() {
		runtime.LockOSThread()
		ready <- C.ax_current_run_loop()
		C.ax_run_loop()
	}()
	o.loop = <-ready
	go o.deliver()
	return o
}

// deliver hands queued events to every matching subscription in
// subscription order, then forgets elements reported destroyed.
func (o *observers) deliver() {
	for ev := range o.events {
		o.mu.Lock()
		var ids []platform.SubscriptionID
		for id, s := range o.subs {
			if s.pid == ev.PID && s.kind == ev.Kind {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		fns := make([]platform.EventFunc, 0, len(ids))
		for _, id := range ids {
			fns = append(fns, o.subs[id].fn)
		}
		o.mu.Unlock()

		if len(fns) == 0 {
			o.b.log.Trace().Int("pid", ev.PID).Str("kind", string(ev.Kind)).Msg("no subscription for notification")
		}
		for _, fn := range fns {
			fn(ev)
		}
		if ev.Kind == platform.UIElementDestroyed {
			o.b.drop(ev.Element)
		}
	}
}

func (b *Backend) Subscribe(root platform.ElementID, kind platform.Notification, fn platform.EventFunc) (platform.SubscriptionID, error) {
	ref, pid, err := b.acquire(root)
	if err != nil {
		return 0, err
	}
	defer release(ref)
	return b.obs.subscribe(root, ref, pid, kind, fn)
}

func (o *observers) subscribe(root platform.ElementID, ref C.CFTypeRef, pid int, kind platform.Notification, fn platform.EventFunc) (platform.SubscriptionID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	app, ok := o.apps[pid]
	if !ok {
		var obs C.CFTypeRef
		if err := axErr("create observer", int(C.ax_observer_create(C.pid_t(pid), &obs))); err != nil {
			return 0, err
		}
		C.ax_observer_schedule(obs, o.loop)
		app = &appObserver{ref: obs, kinds: make(map[platform.Notification]int)}
		o.apps[pid] = app
	}

	if app.kinds[kind] == 0 {
		name := C.CString(string(kind))
		code := int(C.ax_observer_add(app.ref, ref, name, C.int(pid)))
		C.free(unsafe.Pointer(name))
		if code != axNotificationAlreadyRegistered {
			if err := axErr("observe "+string(kind), code); err != nil {
				o.release(pid, app)
				return 0, err
			}
		}
	}
	app.kinds[kind]++

	o.nextID++
	id := o.nextID
	o.subs[id] = &subscription{pid: pid, root: root, kind: kind, fn: fn}
	o.b.log.Debug().Int("pid", pid).Str("kind", string(kind)).Uint64("subscription", uint64(id)).Msg("subscribed")
	return id, nil
}

func (b *Backend) Unsubscribe(id platform.SubscriptionID) error {
	return b.obs.unsubscribe(id)
}

func (o *observers) unsubscribe(id platform.SubscriptionID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.subs[id]
	if !ok {
		return nil
	}
	delete(o.subs, id)
	app := o.apps[s.pid]
	if app == nil {
		return nil
	}
	app.kinds[s.kind]--
	if app.kinds[s.kind] > 0 {
		return nil
	}
	delete(app.kinds, s.kind)

	var err error
	ref, _, gone := o.b.acquire(s.root)
	if gone != nil {
		err = gone
	} else {
		name := C.CString(string(s.kind))
		code := int(C.ax_observer_remove(app.ref, ref, name))
		C.free(unsafe.Pointer(name))
		release(ref)
		if code != axNotificationNotRegistered {
			err = axErr("unobserve "+string(s.kind), code)
		}
	}
	o.release(s.pid, app)
	if err != nil && !errors.Is(err, platform.ErrElementGone) {
		return fmt.Errorf("pid %d: %w", s.pid, err)
	}
	return err
}

// release destroys the observer of pid once nothing is added to it.
// o.mu must be held.
func (o *observers) release(pid int, app *appObserver) {
	if len(app.kinds) > 0 {
		return
	}
	C.ax_observer_unschedule(app.ref, o.loop)
	C.CFRelease(app.ref)
	delete(o.apps, pid)
}
