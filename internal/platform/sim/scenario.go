package sim

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mj1618/desktop-ax/internal/platform"
	"gopkg.in/yaml.v3"
)

// Scenario describes a simulated desktop and a script of events to replay.
type Scenario struct {
	Apps   []AppSpec   `yaml:"apps"`
	Events []EventSpec `yaml:"events,omitempty"`
}

// AppSpec describes one simulated process.
type AppSpec struct {
	PID      int          `yaml:"pid"`
	Name     string       `yaml:"name"`
	BundleID string       `yaml:"bundle_id,omitempty"`
	Floating bool         `yaml:"floating,omitempty"`
	Headless bool         `yaml:"headless,omitempty"`
	Hidden   bool         `yaml:"hidden,omitempty"`
	Windows  []WindowSpec `yaml:"windows,omitempty"`
}

// WindowSpec describes one simulated window.
type WindowSpec struct {
	Title     string  `yaml:"title"`
	Frame     *[4]int `yaml:"frame,omitempty"`
	Minimized bool    `yaml:"minimized,omitempty"`
}

// EventSpec is one scripted notification. Created and destroyed events add or
// remove the window before the notification is posted; a frame is applied
// before moved or resized events.
type EventSpec struct {
	After  time.Duration `yaml:"after,omitempty"`
	App    string        `yaml:"app"`
	Window string        `yaml:"window,omitempty"`
	Kind   string        `yaml:"kind"`
	Frame  *[4]int       `yaml:"frame,omitempty"`
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	pids := make(map[int]bool)
	for _, app := range s.Apps {
		if app.PID <= 0 {
			return nil, fmt.Errorf("scenario app %q: pid must be positive", app.Name)
		}
		if pids[app.PID] {
			return nil, fmt.Errorf("scenario app %q: duplicate pid %d", app.Name, app.PID)
		}
		pids[app.PID] = true
		if app.Headless && len(app.Windows) > 0 {
			return nil, fmt.Errorf("scenario app %q: headless apps cannot have windows", app.Name)
		}
	}
	for i, ev := range s.Events {
		if _, err := platform.ParseNotification(ev.Kind); err != nil {
			return nil, fmt.Errorf("scenario event %d: %w", i, err)
		}
	}
	return &s, nil
}

// Build creates a backend populated with the scenario's applications.
func (s *Scenario) Build() *Backend {
	b := New()
	for _, app := range s.Apps {
		if app.Headless {
			b.AddBackgroundProcess(app.PID, app.Name)
			continue
		}
		root := b.AddApp(app.PID, app.Name, app.BundleID)
		b.SetFloating(app.PID, app.Floating)
		if app.Hidden {
			b.Set(root, platform.AttrHidden, true)
		}
		for _, w := range app.Windows {
			b.addWindowSpec(app.PID, w)
		}
	}
	return b
}

func (b *Backend) addWindowSpec(pid int, w WindowSpec) platform.ElementID {
	id := b.AddWindow(pid, w.Title)
	if w.Minimized {
		b.Set(id, platform.AttrMinimized, true)
	}
	if w.Frame != nil {
		b.setFrame(id, *w.Frame)
	}
	return id
}

func (b *Backend) setFrame(id platform.ElementID, f [4]int) {
	b.Set(id, platform.AttrPosition, platform.Point{X: float64(f[0]), Y: float64(f[1])})
	b.Set(id, platform.AttrSize, platform.Size{Width: float64(f[2]), Height: float64(f[3])})
}

// Play posts the scripted events in order, waiting each event's After delay
// first. It stops early when ctx is done.
func (b *Backend) Play(ctx context.Context, events []EventSpec) error {
	for i, ev := range events {
		if ev.After > 0 {
			t := time.NewTimer(ev.After)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		if err := b.apply(ev); err != nil {
			return fmt.Errorf("scenario event %d: %w", i, err)
		}
	}
	return nil
}

func (b *Backend) apply(ev EventSpec) error {
	kind, err := platform.ParseNotification(ev.Kind)
	if err != nil {
		return err
	}
	pid, ok := b.pidByName(ev.App)
	if !ok {
		return fmt.Errorf("no application %q", ev.App)
	}
	root, err := b.ApplicationElement(pid)
	if err != nil {
		return fmt.Errorf("application %q: %w", ev.App, err)
	}

	var target platform.ElementID
	switch {
	case kind == platform.WindowCreated:
		target = b.addWindowSpec(pid, WindowSpec{Title: ev.Window, Frame: ev.Frame})
	case ev.Window == "":
		target = root
	default:
		id, ok := b.windowByTitle(pid, ev.Window)
		if !ok {
			return fmt.Errorf("no window %q in %q", ev.Window, ev.App)
		}
		target = id
	}

	switch kind {
	case platform.UIElementDestroyed:
		b.DestroyWindow(target)
	case platform.WindowMoved, platform.WindowResized:
		if ev.Frame != nil {
			b.setFrame(target, *ev.Frame)
		}
	case platform.WindowMiniaturized, platform.WindowDeminiaturized:
		b.Set(target, platform.AttrMinimized, kind == platform.WindowMiniaturized)
	case platform.ApplicationHidden, platform.ApplicationShown:
		b.Set(target, platform.AttrHidden, kind == platform.ApplicationHidden)
	}
	b.Post(target, kind)
	return nil
}

func (b *Backend) pidByName(name string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.procs {
		if strings.EqualFold(p.Name, name) {
			return p.PID, true
		}
	}
	return 0, false
}

func (b *Backend) windowByTitle(pid int, title string) (platform.ElementID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.process(pid)
	if p == nil {
		return 0, false
	}
	for _, id := range p.windows {
		if t, _ := b.elements[id].attrs[platform.AttrTitle].(string); t == title {
			return id, true
		}
	}
	return 0, false
}
