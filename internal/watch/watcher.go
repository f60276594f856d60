// Package watch turns accessibility notifications into a stream of events.
// A Watcher observes every application root and window it is given, keeps
// the window listings current as windows come and go, and hands each event to
// a Sink: a JSON line writer for the CLI, a Buffer for MCP sessions.
package watch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/rs/zerolog"
)

// Sink receives every event a Watcher produces, one call at a time.
type Sink func(model.Event)

// Options configures a Watcher.
type Options struct {
	// Session is copied into every event.
	Session string
	// Limiter throttles high-frequency kinds. Nil disables throttling.
	Limiter *Limiter
	Log     zerolog.Logger
	Now     func() time.Time
}

// tracked is the per-application state of a Watcher.
type tracked struct {
	app     *ax.Application
	windows map[platform.ElementID]ax.Element // windows with handlers attached
	last    []model.Window                    // listing the next diff is taken against
}

// Watcher streams notifications for a fixed set of applications.
//
// Window creation and destruction are always observed so that new windows get
// handlers and destroyed ones release theirs; they are only reported when
// they are part of the requested kinds.
type Watcher struct {
	sink Sink
	opts Options

	setMu   sync.Mutex // serializes SetNotifications and Stop
	mu      sync.Mutex
	kinds   map[platform.Notification]bool
	apps    []*tracked
	events  int
	started bool
	stopped bool

	starting bool     // Start holds w.mu; detachWindow defers to orphans
	orphans  []orphan // windows whose handlers Start removes after unlocking
}

type orphan struct {
	t  *tracked
	el ax.Element
}

// New returns a Watcher for apps reporting the given kinds. Nothing is
// observed until Start.
func New(apps []*ax.Application, kinds []platform.Notification, sink Sink, opts Options) *Watcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &Watcher{sink: sink, opts: opts, kinds: kindSet(kinds)}
	for _, app := range apps {
		w.apps = append(w.apps, &tracked{app: app, windows: make(map[platform.ElementID]ax.Element)})
	}
	return w
}

func kindSet(kinds []platform.Notification) map[platform.Notification]bool {
	set := make(map[platform.Notification]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

// Start attaches handlers to every application and emits one snapshot event
// per application. Applications that quit in the meantime are reported as
// error events and skipped.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}
	w.started = true
	w.starting = true

	err := w.attachAll()
	w.starting = false
	orphans := w.orphans
	w.orphans = nil
	w.mu.Unlock()

	// A handler attached above may already be running and waiting for w.mu,
	// so Unobserve only once it is released.
	for _, o := range orphans {
		w.unobserveWindow(o.t, o.el)
	}
	return err
}

// attachAll attaches every application. w.mu must be held.
func (w *Watcher) attachAll() error {
	for _, t := range w.apps {
		err := w.attachApp(t)
		if err == nil {
			t.last, err = ListWindows(t.app, false)
		}
		if ax.IsGone(err) {
			w.opts.Log.Info().Int("pid", t.app.PID()).Err(err).Msg("application went away before watch started")
			w.emit(model.Event{Type: model.EventError, App: t.app.Name(), PID: t.app.PID(), Error: err.Error()})
			continue
		}
		if err != nil {
			return fmt.Errorf("watch %s: %w", t.app, err)
		}
		w.emit(model.Event{Type: model.EventSnapshot, App: t.app.Name(), PID: t.app.PID(), Windows: t.last})
	}
	return nil
}

// Stop removes every handler and platform subscription. Events already in
// flight are discarded.
func (w *Watcher) Stop() error {
	w.setMu.Lock()
	defer w.setMu.Unlock()

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	apps := w.apps
	w.mu.Unlock()

	var errs []error
	for _, t := range apps {
		if err := t.app.Close(); err != nil && !ax.IsGone(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Events returns how many notification events were emitted.
func (w *Watcher) Events() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

// Kinds returns the reported notification kinds.
func (w *Watcher) Kinds() []platform.Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []platform.Notification
	for _, k := range platform.AllNotifications {
		if w.kinds[k] {
			out = append(out, k)
		}
	}
	return out
}

// SetNotifications changes the reported kinds while running: handlers for
// dropped kinds are removed, handlers for new kinds are attached.
//
// The handlers are changed without w.mu held: Unobserve waits for a running
// handler, and every handler takes w.mu.
func (w *Watcher) SetNotifications(kinds []platform.Notification) error {
	w.setMu.Lock()
	defer w.setMu.Unlock()

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	oldRoot, oldWin := w.observed(false), w.observed(true)
	w.kinds = kindSet(kinds)
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	newRoot, newWin := w.observed(false), w.observed(true)
	windows := make([][]ax.Element, len(w.apps))
	for i, t := range w.apps {
		for _, el := range t.windows {
			windows[i] = append(windows[i], el)
		}
	}
	apps := w.apps
	w.mu.Unlock()

	var errs []error
	collect := func(err error) {
		if err != nil && !ax.IsGone(err) {
			errs = append(errs, err)
		}
	}
	for i, t := range apps {
		root := t.app.Element()
		for _, k := range subtract(oldRoot, newRoot) {
			collect(t.app.Unobserve(k, root))
		}
		for _, k := range subtract(newRoot, oldRoot) {
			collect(w.observe(t, k, root))
		}
		for _, el := range windows[i] {
			for _, k := range subtract(oldWin, newWin) {
				collect(t.app.Unobserve(k, el))
			}
			for _, k := range subtract(newWin, oldWin) {
				collect(w.observe(t, k, el))
			}
		}
	}
	w.opts.Log.Debug().Int("kinds", len(kinds)).Msg("notification set changed")
	return errors.Join(errs...)
}

// observed returns the kinds attached to application roots (window false) or
// to windows (window true), in a stable order. w.mu must be held.
func (w *Watcher) observed(window bool) []platform.Notification {
	var out []platform.Notification
	for _, k := range platform.AllNotifications {
		if k.WindowScoped() != window {
			continue
		}
		if w.kinds[k] || k == platform.WindowCreated || k == platform.UIElementDestroyed {
			out = append(out, k)
		}
	}
	return out
}

func subtract(a, b []platform.Notification) []platform.Notification {
	var out []platform.Notification
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			out = append(out, x)
		}
	}
	return out
}

// observe attaches the handler for kind on el. Kinds the application does not
// support are logged and skipped.
func (w *Watcher) observe(t *tracked, kind platform.Notification, el ax.Element) error {
	err := t.app.Observe(kind, el, w.handler(t, kind))
	if errors.Is(err, ax.ErrNotificationUnsupported) {
		w.opts.Log.Warn().Int("pid", t.app.PID()).Str("kind", string(kind)).Msg("notification not supported")
		return nil
	}
	return err
}

// attachApp observes the application root and every current window.
// w.mu must be held.
func (w *Watcher) attachApp(t *tracked) error {
	root := t.app.Element()
	for _, kind := range w.observed(false) {
		if err := w.observe(t, kind, root); err != nil {
			return err
		}
	}
	windows, err := t.app.Windows()
	if err != nil {
		return err
	}
	for _, el := range windows {
		w.attachWindow(t, el)
	}
	return nil
}

// attachWindow observes one window. A window that is already gone is skipped.
// w.mu must be held.
func (w *Watcher) attachWindow(t *tracked, el ax.Element) {
	if _, ok := t.windows[el.ID()]; ok {
		return
	}
	for _, kind := range w.observed(true) {
		if err := w.observe(t, kind, el); err != nil {
			if !ax.IsGone(err) {
				w.opts.Log.Warn().Int("pid", t.app.PID()).Uint64("element", uint64(el.ID())).Str("kind", string(kind)).Err(err).Msg("observe window")
			}
			w.detachWindow(t, el)
			return
		}
	}
	t.windows[el.ID()] = el
}

// detachWindow removes every handler attached to a window. While Start runs,
// the handlers are only queued for removal. w.mu must be held.
func (w *Watcher) detachWindow(t *tracked, el ax.Element) {
	delete(t.windows, el.ID())
	w.opts.Limiter.Forget(el.ID())
	if w.starting {
		w.orphans = append(w.orphans, orphan{t: t, el: el})
		return
	}
	w.unobserveWindow(t, el)
}

// unobserveWindow removes the handlers of every window-scoped kind from el.
// It reads no Watcher state, so w.mu need not be held.
func (w *Watcher) unobserveWindow(t *tracked, el ax.Element) {
	for _, kind := range platform.AllNotifications {
		if !kind.WindowScoped() {
			continue
		}
		if err := t.app.Unobserve(kind, el); err != nil {
			w.opts.Log.Debug().Uint64("element", uint64(el.ID())).Err(err).Msg("unobserve window")
		}
	}
}

func (w *Watcher) handler(t *tracked, kind platform.Notification) ax.Handler {
	return func(el ax.Element) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.stopped {
			return
		}

		if w.kinds[kind] && w.opts.Limiter.Allow(kind, el.ID()) {
			w.emit(w.notification(t, kind, el))
		}

		switch kind {
		case platform.WindowCreated:
			w.refresh(t)
		case platform.UIElementDestroyed:
			w.detachWindow(t, el)
			w.refresh(t)
		}
	}
}

// notification builds the event for one delivery. w.mu must be held.
func (w *Watcher) notification(t *tracked, kind platform.Notification, el ax.Element) model.Event {
	ev := model.Event{
		Type:    model.EventNotification,
		App:     t.app.Name(),
		PID:     t.app.PID(),
		Kind:    string(kind),
		Element: uint64(el.ID()),
	}
	if el != t.app.Element() && kind != platform.UIElementDestroyed {
		focused, _ := t.app.FocusedWindow()
		if info, err := WindowInfo(t.app, el, focused); err == nil {
			ev.Window = &info
		}
	}
	return ev
}

// refresh re-reads the window list, attaches handlers to new windows and
// emits the differences from the previous listing. w.mu must be held.
func (w *Watcher) refresh(t *tracked) {
	t.app.DropWindowsCache()
	windows, err := t.app.Windows()
	if err == nil {
		for _, el := range windows {
			w.attachWindow(t, el)
		}
	}
	listing, err := ListWindows(t.app, false)
	if err != nil {
		w.opts.Log.Debug().Int("pid", t.app.PID()).Err(err).Msg("refresh windows")
		if !ax.IsGone(err) {
			w.emit(model.Event{Type: model.EventError, App: t.app.Name(), PID: t.app.PID(), Error: err.Error()})
		}
		return
	}
	changes := model.DiffWindows(t.last, listing)
	t.last = listing
	if len(changes) > 0 {
		w.emit(model.Event{Type: model.EventWindows, App: t.app.Name(), PID: t.app.PID(), Changes: changes})
	}
}

// emit stamps ev and hands it to the sink. w.mu must be held.
func (w *Watcher) emit(ev model.Event) {
	ev.TS = w.opts.Now().Unix()
	ev.Session = w.opts.Session
	if ev.Type == model.EventNotification {
		w.events++
	}
	w.sink(ev)
}
