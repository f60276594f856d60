package watch

import (
	"sync"
	"testing"
	"time"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/mj1618/desktop-ax/internal/platform/sim"
)

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) sink(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) take() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type fixture struct {
	b      *sim.Backend
	app    *ax.Application
	w1, w2 platform.ElementID
	rec    *recorder
	w      *Watcher
}

func newFixture(t *testing.T, kinds []platform.Notification, opts Options) *fixture {
	t.Helper()
	b := sim.New()
	b.AddApp(300, "Preview", "com.apple.Preview")
	w1 := b.AddWindow(300, "W1")
	w2 := b.AddWindow(300, "W2")

	app, err := ax.NewWorkspace(b.Provider()).ApplicationByPID(300)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Unix(1700000000, 0) }
	}
	rec := &recorder{}
	w := New([]*ax.Application{app}, kinds, rec.sink, opts)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return &fixture{b: b, app: app, w1: w1, w2: w2, rec: rec, w: w}
}

func TestWatcher_Snapshot(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved}, Options{Session: "s1"})

	events := f.rec.take()
	if len(events) != 1 {
		t.Fatalf("got %d events, want one snapshot", len(events))
	}
	snap := events[0]
	if snap.Type != model.EventSnapshot || snap.App != "Preview" || snap.PID != 300 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Session != "s1" || snap.TS != 1700000000 {
		t.Errorf("snapshot not stamped: session=%q ts=%d", snap.Session, snap.TS)
	}
	if len(snap.Windows) != 2 || snap.Windows[0].Title != "W1" || !snap.Windows[0].Focused {
		t.Errorf("snapshot windows = %+v", snap.Windows)
	}
}

func TestWatcher_ReportsObservedWindow(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved}, Options{})
	f.rec.take()

	f.b.Set(f.w1, platform.AttrPosition, platform.Point{X: 40, Y: 50})
	f.b.Post(f.w1, platform.WindowMoved)
	f.b.Post(f.w2, platform.WindowResized)

	events := f.rec.take()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	ev := events[0]
	if ev.Type != model.EventNotification || ev.Kind != string(platform.WindowMoved) || ev.Element != uint64(f.w1) {
		t.Errorf("event = %+v", ev)
	}
	if ev.Window == nil || ev.Window.Title != "W1" || ev.Window.Bounds != [4]int{40, 50, 800, 600} {
		t.Errorf("event window = %+v", ev.Window)
	}
	if f.w.Events() != 1 {
		t.Errorf("Events() = %d, want 1", f.w.Events())
	}
}

func TestWatcher_TracksCreatedAndDestroyedWindows(t *testing.T) {
	kinds := []platform.Notification{platform.WindowMoved, platform.UIElementDestroyed}
	f := newFixture(t, kinds, Options{})
	f.rec.take()

	w3 := f.b.AddWindow(300, "W3")
	f.b.Post(w3, platform.WindowCreated)

	events := f.rec.take()
	if len(events) != 1 {
		t.Fatalf("created: got %d events, want only the window diff: %+v", len(events), events)
	}
	if events[0].Type != model.EventWindows || len(events[0].Changes) != 1 || events[0].Changes[0].Type != model.ChangeAdded {
		t.Errorf("created diff = %+v", events[0])
	}

	f.b.Post(w3, platform.WindowMoved)
	if events := f.rec.take(); len(events) != 1 || events[0].Element != uint64(w3) {
		t.Errorf("new window not observed: %+v", events)
	}

	f.b.DestroyWindow(f.w1)
	f.b.Post(f.w1, platform.UIElementDestroyed)
	events = f.rec.take()
	if len(events) != 2 {
		t.Fatalf("destroyed: got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Kind != string(platform.UIElementDestroyed) || events[0].Window != nil {
		t.Errorf("destroyed event = %+v", events[0])
	}
	// Focus moves to W2 when W1 goes away, so the diff also reports W2 changed.
	var removed, changed int
	for _, c := range events[1].Changes {
		switch {
		case c.Type == model.ChangeRemoved && c.Title == "W1":
			removed++
		case c.Type == model.ChangeChanged && c.ID == uint64(f.w2) && c.Changes["focused"][1] == "true":
			changed++
		}
	}
	if events[1].Type != model.EventWindows || removed != 1 || changed != 1 {
		t.Errorf("destroyed diff = %+v", events[1])
	}

	f.b.Post(f.w1, platform.WindowMoved)
	if events := f.rec.take(); len(events) != 0 {
		t.Errorf("destroyed window still reported: %+v", events)
	}
}

func TestWatcher_ReleasesHandlersOfDestroyedWindows(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved, platform.TitleChanged}, Options{})
	before := f.app.ObservedCount()

	f.b.DestroyWindow(f.w2)
	f.b.Post(f.w2, platform.UIElementDestroyed)

	// Three window kinds (moved, title, destroyed) were attached to W2.
	if got := f.app.ObservedCount(); got != before-3 {
		t.Errorf("ObservedCount = %d, want %d", got, before-3)
	}
}

func TestWatcher_RateLimit(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved, platform.TitleChanged}, Options{Limiter: NewLimiter(1, 1)})
	f.w.opts.Limiter.now = func() time.Time { return time.Unix(0, 0) }
	f.rec.take()

	for i := 0; i < 5; i++ {
		f.b.Post(f.w1, platform.WindowMoved)
		f.b.Post(f.w1, platform.TitleChanged)
	}
	moved, titles := 0, 0
	for _, ev := range f.rec.take() {
		switch ev.Kind {
		case string(platform.WindowMoved):
			moved++
		case string(platform.TitleChanged):
			titles++
		}
	}
	if moved != 1 || titles != 5 {
		t.Errorf("moved=%d titles=%d, want 1 and 5", moved, titles)
	}
}

func TestWatcher_SetNotifications(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved}, Options{})
	root := f.app.Element().ID()
	f.rec.take()

	if err := f.w.SetNotifications([]platform.Notification{platform.TitleChanged, platform.ApplicationHidden}); err != nil {
		t.Fatal(err)
	}
	if f.b.Subscribed(root, platform.WindowMoved) {
		t.Error("moved subscription kept after it was dropped")
	}
	if !f.b.Subscribed(root, platform.TitleChanged) || !f.b.Subscribed(root, platform.ApplicationHidden) {
		t.Error("new kinds not subscribed")
	}
	if !f.b.Subscribed(root, platform.WindowCreated) || !f.b.Subscribed(root, platform.UIElementDestroyed) {
		t.Error("window tracking kinds must stay subscribed")
	}

	f.b.Post(f.w1, platform.WindowMoved)
	f.b.Post(f.w2, platform.TitleChanged)
	f.b.Post(root, platform.ApplicationHidden)
	events := f.rec.take()
	if len(events) != 2 || events[0].Kind != string(platform.TitleChanged) || events[1].Kind != string(platform.ApplicationHidden) {
		t.Errorf("events = %+v", events)
	}
	if events[1].Window != nil {
		t.Error("application events carry no window")
	}

	kinds := f.w.Kinds()
	if len(kinds) != 2 || kinds[0] != platform.TitleChanged || kinds[1] != platform.ApplicationHidden {
		t.Errorf("Kinds() = %v", kinds)
	}
}

func TestWatcher_SetNotificationsDuringDelivery(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved}, Options{})

	stop := make(chan struct{})
	posted := make(chan struct{})
	go func() {
		defer close(posted)
		for {
			select {
			case <-stop:
				return
			default:
				f.b.Post(f.w1, platform.WindowMoved)
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		sets := [][]platform.Notification{{platform.TitleChanged}, {platform.WindowMoved}}
		for i := 0; i < 50; i++ {
			if err := f.w.SetNotifications(sets[i%2]); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("SetNotifications deadlocked with a running handler")
	}
	close(stop)
	<-posted

	if !f.b.Subscribed(f.app.Element().ID(), platform.WindowMoved) {
		t.Error("moved should be subscribed after the last change")
	}
}

func TestWatcher_Stop(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved}, Options{})
	f.rec.take()

	if err := f.w.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := f.w.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
	if f.b.Subscriptions() != 0 || f.app.ObservedCount() != 0 {
		t.Errorf("left %d subscriptions and %d handlers", f.b.Subscriptions(), f.app.ObservedCount())
	}
	f.b.Post(f.w1, platform.WindowMoved)
	if events := f.rec.take(); len(events) != 0 {
		t.Errorf("events after stop: %+v", events)
	}
}

func TestWatcher_ApplicationQuits(t *testing.T) {
	f := newFixture(t, []platform.Notification{platform.WindowMoved}, Options{})
	f.b.Quit(300)
	if err := f.w.Stop(); err != nil {
		t.Errorf("Stop after quit: %v", err)
	}
}

func TestWatcher_StartSkipsGoneApplication(t *testing.T) {
	b := sim.New()
	b.AddApp(1, "Gone", "")
	b.AddApp(2, "Here", "")
	ws := ax.NewWorkspace(b.Provider())
	apps, err := ws.RunningApplications()
	if err != nil {
		t.Fatal(err)
	}
	b.Quit(1)

	rec := &recorder{}
	w := New(apps, []platform.Notification{platform.WindowMoved}, rec.sink, Options{})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	events := rec.take()
	if len(events) != 2 || events[0].Type != model.EventError || events[1].Type != model.EventSnapshot {
		t.Errorf("events = %+v", events)
	}
	if err := w.Start(); err == nil {
		t.Error("second Start should fail")
	}
}

func TestListWindows_Visible(t *testing.T) {
	b := sim.New()
	b.AddApp(1, "A", "")
	w1 := b.AddWindow(1, "one")
	b.AddWindow(1, "two")
	b.Set(w1, platform.AttrMinimized, true)
	app, err := ax.NewWorkspace(b.Provider()).ApplicationByPID(1)
	if err != nil {
		t.Fatal(err)
	}

	all, err := ListWindows(app, false)
	if err != nil {
		t.Fatal(err)
	}
	visible, err := ListWindows(app, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || !all[0].Minimized || len(visible) != 1 || visible[0].Title != "two" {
		t.Errorf("all=%+v visible=%+v", all, visible)
	}

	info := AppInfo(app)
	if info.Name != "A" || info.Title != "A" || info.Windows != 2 || info.Hidden {
		t.Errorf("AppInfo = %+v", info)
	}
}
