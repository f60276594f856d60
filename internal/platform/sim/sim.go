// Package sim is an in-memory accessibility backend. It scripts applications,
// windows and attributes, delivers notifications on demand and records every
// subscription and signal, so the accessibility core can be exercised without
// a desktop.
package sim

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mj1618/desktop-ax/internal/platform"
)

type subscription struct {
	root platform.ElementID
	kind platform.Notification
	fn   platform.EventFunc
}

type process struct {
	platform.Process
	root    platform.ElementID // 0 for processes without UI
	windows []platform.ElementID
}

type node struct {
	id       platform.ElementID
	pid      int
	alive    bool
	attrs    map[string]any
	settable map[string]bool
	actions  map[string]bool
}

// Signal records a Terminate call.
type Signal struct {
	PID   int
	Force bool
}

// Backend implements platform.Accessibility and platform.Processes.
// It is safe for concurrent use. Events are delivered synchronously on the
// goroutine that calls Post or Deliver.
type Backend struct {
	mu       sync.Mutex
	nextID   platform.ElementID
	nextSub  platform.SubscriptionID
	procs    []*process
	elements map[platform.ElementID]*node
	subs     map[platform.SubscriptionID]*subscription

	subscribeErr error
	subscribes   int
	unsubscribes int
	signals      []Signal
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		elements: make(map[platform.ElementID]*node),
		subs:     make(map[platform.SubscriptionID]*subscription),
	}
}

// Provider wraps the backend as a platform.Provider.
func (b *Backend) Provider() *platform.Provider {
	return &platform.Provider{Accessibility: b, Processes: b}
}

func (b *Backend) newNode(pid int) *node {
	b.nextID++
	n := &node{
		id:       b.nextID,
		pid:      pid,
		alive:    true,
		attrs:    make(map[string]any),
		settable: make(map[string]bool),
		actions:  make(map[string]bool),
	}
	b.elements[n.id] = n
	return n
}

func (b *Backend) process(pid int) *process {
	for _, p := range b.procs {
		if p.PID == pid {
			return p
		}
	}
	return nil
}

// AddApp adds a running process with a UI and returns its root element.
func (b *Backend) AddApp(pid int, name, bundleID string) platform.ElementID {
	b.mu.Lock()
	defer b.mu.Unlock()

	root := b.newNode(pid)
	root.attrs[platform.AttrRole] = platform.RoleApplication
	root.attrs[platform.AttrTitle] = name
	root.attrs[platform.AttrHidden] = false
	root.settable[platform.AttrHidden] = true

	b.procs = append(b.procs, &process{
		Process: platform.Process{PID: pid, Name: name, BundleID: bundleID},
		root:    root.id,
	})
	return root.id
}

// AddBackgroundProcess adds a running process that has no accessible UI.
func (b *Backend) AddBackgroundProcess(pid int, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.procs = append(b.procs, &process{Process: platform.Process{PID: pid, Name: name}})
}

// SetFloating sets the floating flag reported in the process record.
func (b *Backend) SetFloating(pid int, floating bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.process(pid); p != nil {
		p.Floating = floating
	}
}

// AddWindow adds a window to the application and returns its element. The
// first window becomes the focused window.
func (b *Backend) AddWindow(pid int, title string) platform.ElementID {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.process(pid)
	if p == nil || p.root == 0 {
		panic(fmt.Sprintf("sim: no application with pid %d", pid))
	}
	w := b.newNode(pid)
	w.attrs[platform.AttrRole] = platform.RoleWindow
	w.attrs[platform.AttrSubrole] = "AXStandardWindow"
	w.attrs[platform.AttrTitle] = title
	w.attrs[platform.AttrMinimized] = false
	w.attrs[platform.AttrMain] = len(p.windows) == 0
	w.attrs[platform.AttrPosition] = platform.Point{}
	w.attrs[platform.AttrSize] = platform.Size{Width: 800, Height: 600}
	for _, name := range []string{platform.AttrMinimized, platform.AttrMain, platform.AttrPosition, platform.AttrSize} {
		w.settable[name] = true
	}
	w.actions[platform.ActionRaise] = true

	p.windows = append(p.windows, w.id)
	if len(p.windows) == 1 {
		b.elements[p.root].attrs[platform.AttrFocusedWindow] = w.id
	}
	return w.id
}

// DestroyWindow removes a window. Its ID stays known to Post so a destroyed
// notification can still be delivered for it.
func (b *Backend) DestroyWindow(id platform.ElementID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.elements[id]
	if !ok {
		return
	}
	n.alive = false
	if p := b.process(n.pid); p != nil {
		p.windows = removeID(p.windows, id)
		root := b.elements[p.root]
		if root.attrs[platform.AttrFocusedWindow] == id {
			delete(root.attrs, platform.AttrFocusedWindow)
			if len(p.windows) > 0 {
				root.attrs[platform.AttrFocusedWindow] = p.windows[0]
			}
		}
	}
}

// Quit makes the process exit: it leaves the process list and every element it
// owned is gone. Its subscriptions stop delivering but stay registered until
// unsubscribed.
func (b *Backend) Quit(pid int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quit(pid)
}

func (b *Backend) quit(pid int) bool {
	for i, p := range b.procs {
		if p.PID != pid {
			continue
		}
		for _, n := range b.elements {
			if n.pid == pid {
				n.alive = false
			}
		}
		b.procs = append(b.procs[:i], b.procs[i+1:]...)
		return true
	}
	return false
}

// Set writes an attribute directly, bypassing settability checks.
func (b *Backend) Set(id platform.ElementID, name string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.elements[id]; ok {
		n.attrs[name] = value
	}
}

// Get reads an attribute directly, ignoring liveness.
func (b *Backend) Get(id platform.ElementID, name string) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.elements[id]; ok {
		return n.attrs[name]
	}
	return nil
}

// SetSubscribeError makes every following Subscribe call fail with err.
// Pass nil to restore normal behavior.
func (b *Backend) SetSubscribeError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribeErr = err
}

// Subscribed reports whether the application root has a subscription for kind.
func (b *Backend) Subscribed(root platform.ElementID, kind platform.Notification) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.root == root && sub.kind == kind {
			return true
		}
	}
	return false
}

// Subscriptions returns the number of active subscriptions.
func (b *Backend) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Calls returns how many Subscribe and Unsubscribe calls succeeded.
func (b *Backend) Calls() (subscribes, unsubscribes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribes, b.unsubscribes
}

// Signals returns the Terminate calls that reached a live process.
func (b *Backend) Signals() []Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Signal(nil), b.signals...)
}

// Post delivers a kind notification originating from element id to the
// subscriptions of the application that owns it. It reports whether any
// subscription received the event.
func (b *Backend) Post(id platform.ElementID, kind platform.Notification) bool {
	b.mu.Lock()
	n, ok := b.elements[id]
	b.mu.Unlock()
	if !ok {
		return false
	}
	return b.Deliver(n.pid, platform.Event{PID: n.pid, Kind: kind, Element: id})
}

// Deliver hands ev, unchanged, to every subscription for ev.Kind on the
// application with the given pid, in subscription order.
func (b *Backend) Deliver(pid int, ev platform.Event) bool {
	b.mu.Lock()
	var ids []platform.SubscriptionID
	if p := b.process(pid); p != nil {
		for id, sub := range b.subs {
			if sub.root == p.root && sub.kind == ev.Kind {
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]platform.EventFunc, len(ids))
	for i, id := range ids {
		fns[i] = b.subs[id].fn
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
	return len(fns) > 0
}

// live returns the node for id if it still exists. b.mu must be held.
func (b *Backend) live(id platform.ElementID) (*node, error) {
	n, ok := b.elements[id]
	if !ok || !n.alive {
		return nil, platform.ErrElementGone
	}
	return n, nil
}

func (b *Backend) ApplicationElement(pid int) (platform.ElementID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.process(pid)
	if p == nil {
		return 0, platform.ErrProcessGone
	}
	if p.root == 0 {
		return 0, platform.ErrNoUI
	}
	return p.root, nil
}

func (b *Backend) Attribute(id platform.ElementID, name string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.live(id)
	if err != nil {
		return nil, err
	}
	if name == platform.AttrWindows {
		p := b.process(n.pid)
		if p == nil || p.root != id {
			return nil, platform.ErrAttributeUnavailable
		}
		return append([]platform.ElementID{}, p.windows...), nil
	}
	v, ok := n.attrs[name]
	if !ok {
		return nil, platform.ErrAttributeUnavailable
	}
	return v, nil
}

func (b *Backend) SetAttribute(id platform.ElementID, name string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.live(id)
	if err != nil {
		return err
	}
	if !n.settable[name] {
		return platform.ErrAttributeNotSettable
	}
	n.attrs[name] = value
	return nil
}

func (b *Backend) PerformAction(id platform.ElementID, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.live(id)
	if err != nil {
		return err
	}
	if !n.actions[name] {
		return platform.ErrActionUnavailable
	}
	if name == platform.ActionRaise {
		if p := b.process(n.pid); p != nil {
			b.elements[p.root].attrs[platform.AttrFocusedWindow] = id
		}
	}
	return nil
}

func (b *Backend) Subscribe(root platform.ElementID, kind platform.Notification, fn platform.EventFunc) (platform.SubscriptionID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribeErr != nil {
		return 0, b.subscribeErr
	}
	n, err := b.live(root)
	if err != nil {
		return 0, err
	}
	if p := b.process(n.pid); p == nil || p.root != root {
		return 0, fmt.Errorf("sim: element %d is not an application root", root)
	}
	if !strings.HasPrefix(string(kind), "AX") {
		return 0, platform.ErrNotificationUnsupported
	}
	b.nextSub++
	b.subs[b.nextSub] = &subscription{root: root, kind: kind, fn: fn}
	b.subscribes++
	return b.nextSub, nil
}

func (b *Backend) Unsubscribe(id platform.SubscriptionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return nil
	}
	delete(b.subs, id)
	if _, err := b.live(sub.root); err != nil {
		return err
	}
	b.unsubscribes++
	return nil
}

func (b *Backend) RunningProcesses() ([]platform.Process, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]platform.Process, len(b.procs))
	for i, p := range b.procs {
		out[i] = p.Process
	}
	return out, nil
}

func (b *Backend) Terminate(pid int, force bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.quit(pid) {
		return platform.ErrProcessGone
	}
	b.signals = append(b.signals, Signal{PID: pid, Force: force})
	return nil
}

func removeID(ids []platform.ElementID, id platform.ElementID) []platform.ElementID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
