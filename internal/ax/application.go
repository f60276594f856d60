package ax

import (
	"errors"
	"fmt"

	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/rs/zerolog"
)

// Application is the accessibility view of one running process. It owns the
// process's window cache and notification registrations.
type Application struct {
	root     Element
	pid      int
	name     string
	bundleID string
	floating bool

	ax    platform.Accessibility
	procs platform.Processes
	log   zerolog.Logger

	windows  windowCache
	registry *registry
	dispatch *dispatcher
}

func newApplication(proc platform.Process, rootID platform.ElementID, ax platform.Accessibility, procs platform.Processes, floating bool, log zerolog.Logger) *Application {
	a := &Application{
		pid:      proc.PID,
		name:     proc.Name,
		bundleID: proc.BundleID,
		floating: floating,
		ax:       ax,
		procs:    procs,
		log:      log.With().Int("pid", proc.PID).Str("app", proc.Name).Logger(),
		registry: newRegistry(),
	}
	a.root = Element{id: rootID, app: a}
	a.dispatch = newDispatcher(a, a.registry, a.log)
	return a
}

// PID returns the process id.
func (a *Application) PID() int { return a.pid }

// Name returns the localized application name.
func (a *Application) Name() string { return a.name }

// BundleID returns the bundle identifier, empty when the process has none.
func (a *Application) BundleID() string { return a.bundleID }

// Element returns the application root element.
func (a *Application) Element() Element { return a.root }

func (a *Application) String() string { return fmt.Sprintf("%s (pid %d)", a.name, a.pid) }

// ObservedCount returns how many handlers are registered.
func (a *Application) ObservedCount() int { return a.registry.len() }

// Floating reports the floating flag taken from the process record when the
// Application was built. It is not refreshed from live accessibility state;
// the window manager's own application list is the authority for it.
func (a *Application) Floating() bool { return a.floating }

// Owns reports whether el was produced by this application.
func (a *Application) Owns(el Element) bool { return el.app == a }

// Observe registers h for kind notifications on el, which must be the
// application root or one of its windows. A handler already registered for
// the same kind and element is replaced and released.
//
// The registry holds h, and everything it captured, until Unobserve is called
// for the same kind and element.
func (a *Application) Observe(kind platform.Notification, el Element, h Handler) error {
	if !a.Owns(el) {
		return &ElementError{Op: "observe " + string(kind), ID: el.id, Err: ErrElementNotOwned}
	}
	if h == nil {
		return &ElementError{Op: "observe " + string(kind), ID: el.id, Err: ErrNilHandler}
	}
	return a.dispatch.observe(kind, el, h)
}

// Unobserve removes the handler for kind on el and releases it before
// returning. Unobserving something that is not registered does nothing.
func (a *Application) Unobserve(kind platform.Notification, el Element) error {
	if !a.Owns(el) {
		return &ElementError{Op: "unobserve " + string(kind), ID: el.id, Err: ErrElementNotOwned}
	}
	return a.dispatch.unobserve(kind, el)
}

// Observing reports whether a handler is registered for kind on el.
func (a *Application) Observing(kind platform.Notification, el Element) bool {
	return a.Owns(el) && a.registry.lookup(kind, el.id) != nil
}

// Close unregisters every handler and tears down all platform subscriptions.
func (a *Application) Close() error {
	return a.dispatch.close()
}

// Windows returns the application's windows in platform order. The list is
// cached until DropWindowsCache is called.
func (a *Application) Windows() ([]Element, error) {
	return a.windows.get(a.loadWindows)
}

func (a *Application) loadWindows() ([]Element, error) {
	v, err := a.root.Attribute(platform.AttrWindows)
	if err != nil {
		if errors.Is(err, ErrAttributeUnavailable) {
			return []Element{}, nil
		}
		return nil, err
	}
	ids, ok := v.([]platform.ElementID)
	if !ok {
		return nil, &ElementError{Op: "windows", ID: a.root.id, Err: fmt.Errorf("%w: got %T", ErrAttributeUnavailable, v)}
	}
	windows := make([]Element, 0, len(ids))
	for _, id := range ids {
		windows = append(windows, Element{id: id, app: a})
	}
	return windows, nil
}

// Window returns the window with the given ID, or the first window when id
// is 0.
func (a *Application) Window(id platform.ElementID) (Element, error) {
	windows, err := a.Windows()
	if err != nil {
		return Element{}, err
	}
	for _, w := range windows {
		if id == 0 || w.id == id {
			return w, nil
		}
	}
	if id == 0 {
		return Element{}, fmt.Errorf("%w: %s has no windows", ErrWindowNotFound, a)
	}
	return Element{}, fmt.Errorf("%w: %s has no window %d", ErrWindowNotFound, a, id)
}

// VisibleWindows filters the cached window list down to windows that are
// neither minimized nor part of a hidden application. The filter runs on
// every call; only the underlying list is cached.
func (a *Application) VisibleWindows() ([]Element, error) {
	windows, err := a.Windows()
	if err != nil {
		return nil, err
	}
	hidden, err := a.IsHidden()
	if err != nil && !errors.Is(err, ErrAttributeUnavailable) {
		return nil, err
	}
	if hidden {
		return []Element{}, nil
	}

	visible := make([]Element, 0, len(windows))
	for _, w := range windows {
		minimized, err := w.IsMinimized()
		switch {
		case IsGone(err):
			continue
		case err != nil && !errors.Is(err, ErrAttributeUnavailable):
			return nil, err
		case minimized:
			continue
		}
		visible = append(visible, w)
	}
	return visible, nil
}

// DropWindowsCache forgets the cached windows so the next Windows call
// reflects the current state of the application.
func (a *Application) DropWindowsCache() { a.windows.drop() }

// FocusedWindow returns the application's focused window.
func (a *Application) FocusedWindow() (Element, error) {
	return a.root.ElementAttribute(platform.AttrFocusedWindow)
}

// Title returns the application's accessibility title, falling back to the
// process name when the application does not expose one.
func (a *Application) Title() (string, error) {
	title, err := a.root.Title()
	if errors.Is(err, ErrAttributeUnavailable) || (err == nil && title == "") {
		return a.name, nil
	}
	return title, err
}

// IsHidden reports the AXHidden state of the application.
func (a *Application) IsHidden() (bool, error) {
	return a.root.BoolAttribute(platform.AttrHidden)
}

// Hide hides every window of the application.
func (a *Application) Hide() error { return a.root.SetAttribute(platform.AttrHidden, true) }

// Unhide shows the application's windows again.
func (a *Application) Unhide() error { return a.root.SetAttribute(platform.AttrHidden, false) }

// Kill asks the process to terminate. Nothing happens if it already exited.
func (a *Application) Kill() { a.terminate(false) }

// Kill9 force-kills the process. Nothing happens if it already exited.
func (a *Application) Kill9() { a.terminate(true) }

func (a *Application) terminate(force bool) {
	if a.procs == nil {
		return
	}
	err := a.procs.Terminate(a.pid, force)
	switch {
	case err == nil:
		a.log.Debug().Bool("force", force).Msg("terminated")
	case errors.Is(err, ErrProcessGone):
		a.log.Debug().Bool("force", force).Msg("terminate: already gone")
	default:
		a.log.Warn().Bool("force", force).Err(err).Msg("terminate failed")
	}
}
