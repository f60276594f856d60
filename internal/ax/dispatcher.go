package ax

import (
	"errors"
	"sync"

	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/rs/zerolog"
)

// dispatcher keeps one platform subscription per notification kind for an
// application and routes deliveries into the registry.
//
// A kind is subscribed exactly while the registry holds at least one handler
// for it: the subscription is created with the first handler and torn down
// with the last.
type dispatcher struct {
	app *Application
	reg *registry
	log zerolog.Logger

	mu         sync.Mutex // guards subscribed and orders registry mutation with it
	subscribed map[platform.Notification]platform.SubscriptionID

	deliverMu sync.Mutex // serializes handler invocations for the application
}

func newDispatcher(app *Application, reg *registry, log zerolog.Logger) *dispatcher {
	return &dispatcher{
		app:        app,
		reg:        reg,
		log:        log,
		subscribed: make(map[platform.Notification]platform.SubscriptionID),
	}
}

// observe makes sure the platform subscription for kind exists and stores h.
// Nothing is stored if the element or application is already gone.
//
// A replaced handler is released before observe returns.
func (d *dispatcher) observe(kind platform.Notification, el Element, h Handler) error {
	old, err := d.store(kind, el, h)
	d.reg.retire(old)
	return err
}

func (d *dispatcher) store(kind platform.Notification, el Element, h Handler) (*handlerEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Probe the root too; an existing subscription outlives the process.
	if _, err := d.app.ax.Attribute(el.id, platform.AttrRole); IsGone(err) {
		return nil, &ElementError{Op: "observe " + string(kind), ID: el.id, Err: err}
	}

	root := d.app.root.id
	if _, ok := d.subscribed[kind]; !ok {
		id, err := d.app.ax.Subscribe(root, kind, d.deliver)
		if err != nil {
			return nil, &ElementError{Op: "subscribe " + string(kind), ID: root, Err: err}
		}
		d.subscribed[kind] = id
		d.log.Debug().Str("kind", string(kind)).Uint64("subscription", uint64(id)).Msg("subscribed")
	}

	old := d.reg.register(kind, el.id, h)
	if old != nil {
		d.log.Debug().Str("kind", string(kind)).Uint64("element", uint64(el.id)).Msg("handler replaced")
	}
	return old, nil
}

// unobserve removes the handler for (kind, el) and drops the platform
// subscription when it was the last one for kind. Absent entries are a no-op.
// When the handler is running on another goroutine, unobserve waits for that
// call to return.
func (d *dispatcher) unobserve(kind platform.Notification, el Element) error {
	d.mu.Lock()
	removed, remaining := d.reg.unregister(kind, el.id)
	var err error
	if _, ok := d.subscribed[kind]; removed != nil && remaining == 0 && ok {
		err = d.teardown(kind)
	}
	d.mu.Unlock()

	d.reg.retire(removed)
	return err
}

// teardown removes the platform subscription for kind. d.mu must be held.
func (d *dispatcher) teardown(kind platform.Notification) error {
	id := d.subscribed[kind]
	delete(d.subscribed, kind)

	root := d.app.root.id
	if err := d.app.ax.Unsubscribe(id); err != nil {
		if IsGone(err) {
			d.log.Debug().Str("kind", string(kind)).Err(err).Msg("unsubscribe on gone application")
			return nil
		}
		return &ElementError{Op: "unsubscribe " + string(kind), ID: root, Err: err}
	}
	d.log.Debug().Str("kind", string(kind)).Msg("unsubscribed")
	return nil
}

// close unregisters every handler and tears down every subscription.
func (d *dispatcher) close() error {
	d.mu.Lock()
	var removed []*handlerEntry
	for _, key := range d.reg.keys() {
		entry, _ := d.reg.unregister(key.kind, key.id)
		removed = append(removed, entry)
	}

	var errs []error
	for kind := range d.subscribed {
		if err := d.teardown(kind); err != nil {
			errs = append(errs, err)
		}
	}
	d.mu.Unlock()

	for _, entry := range removed {
		d.reg.retire(entry)
	}
	return errors.Join(errs...)
}

// deliver is the single decoding boundary for platform events: it resolves an
// event to (kind, element) and hands it to the registry.
func (d *dispatcher) deliver(ev platform.Event) {
	if ev.PID != 0 && ev.PID != d.app.pid {
		d.log.Trace().Int("event_pid", ev.PID).Str("kind", string(ev.Kind)).Msg("dropped event for other process")
		return
	}
	if ev.Element == 0 {
		d.log.Trace().Str("kind", string(ev.Kind)).Msg("dropped event without element")
		return
	}

	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	if !d.reg.dispatch(ev.Kind, ev.Element, d.app) {
		d.log.Trace().Str("kind", string(ev.Kind)).Uint64("element", uint64(ev.Element)).Msg("no handler")
	}
}

func (d *dispatcher) isSubscribed(kind platform.Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.subscribed[kind]
	return ok
}
