package ax

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/rs/zerolog"
)

// Workspace builds Applications from the processes the OS reports.
type Workspace struct {
	ax       platform.Accessibility
	procs    platform.Processes
	log      zerolog.Logger
	floating func(platform.Process) bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger handed to every Application.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Workspace) { w.log = log }
}

// WithFloating marks processes as floating when fn returns true, in addition
// to whatever the process record already says. The decision is made once, when
// the Application is built.
func WithFloating(fn func(platform.Process) bool) Option {
	return func(w *Workspace) { w.floating = fn }
}

// NewWorkspace returns a Workspace backed by the provider's accessibility and
// process layers.
func NewWorkspace(p *platform.Provider, opts ...Option) *Workspace {
	w := &Workspace{
		ax:    p.Accessibility,
		procs: p.Processes,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ApplicationFromProcess builds the Application for proc. It returns nil when
// the process has no UI accessibility can observe, which is common for
// background processes and not an error.
func (w *Workspace) ApplicationFromProcess(proc platform.Process) *Application {
	root, err := w.ax.ApplicationElement(proc.PID)
	if err != nil {
		if !errors.Is(err, platform.ErrNoUI) {
			w.log.Debug().Int("pid", proc.PID).Str("app", proc.Name).Err(err).Msg("no application element")
		}
		return nil
	}
	floating := proc.Floating
	if w.floating != nil && w.floating(proc) {
		floating = true
	}
	return newApplication(proc, root, w.ax, w.procs, floating, w.log)
}

// RunningApplications returns an Application for every running process that
// has an observable UI, in the order the OS lists them.
func (w *Workspace) RunningApplications() ([]*Application, error) {
	procs, err := w.procs.RunningProcesses()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	apps := make([]*Application, 0, len(procs))
	for _, proc := range procs {
		if app := w.ApplicationFromProcess(proc); app != nil {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

// ApplicationByPID returns the Application for a running process.
func (w *Workspace) ApplicationByPID(pid int) (*Application, error) {
	procs, err := w.procs.RunningProcesses()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	for _, proc := range procs {
		if proc.PID != pid {
			continue
		}
		if app := w.ApplicationFromProcess(proc); app != nil {
			return app, nil
		}
		return nil, fmt.Errorf("%w: pid %d has no accessible UI", ErrApplicationNotFound, pid)
	}
	return nil, fmt.Errorf("%w: no process with pid %d", ErrApplicationNotFound, pid)
}

// FindApplication returns the running application whose name or bundle ID
// matches name, ignoring case. When nothing matches, the error suggests the
// closest names.
func (w *Workspace) FindApplication(name string) (*Application, error) {
	apps, err := w.RunningApplications()
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if strings.EqualFold(app.name, name) || (app.bundleID != "" && strings.EqualFold(app.bundleID, name)) {
			return app, nil
		}
	}
	if hints := Suggest(name, apps, 3); len(hints) > 0 {
		return nil, fmt.Errorf("%w: %q (did you mean %s?)", ErrApplicationNotFound, name, strings.Join(hints, ", "))
	}
	return nil, fmt.Errorf("%w: %q", ErrApplicationNotFound, name)
}

// Select returns the application with the given pid when pid is set, the
// application matching name when name is set, and every running application
// otherwise. Each call builds fresh Applications.
func (w *Workspace) Select(pid int, name string) ([]*Application, error) {
	switch {
	case pid != 0 && name != "":
		return nil, errors.New("select an application by pid or by name, not both")
	case pid != 0:
		app, err := w.ApplicationByPID(pid)
		if err != nil {
			return nil, err
		}
		return []*Application{app}, nil
	case name != "":
		app, err := w.FindApplication(name)
		if err != nil {
			return nil, err
		}
		return []*Application{app}, nil
	}
	return w.RunningApplications()
}

// Suggest returns up to limit application names closest to name by edit
// distance. Names further than half their length away are left out.
func Suggest(name string, apps []*Application, limit int) []string {
	type candidate struct {
		name string
		dist int
	}
	needle := strings.ToLower(name)
	var cands []candidate
	seen := make(map[string]bool)
	for _, app := range apps {
		if seen[app.name] {
			continue
		}
		seen[app.name] = true
		d := levenshtein.ComputeDistance(needle, strings.ToLower(app.name))
		if d > (len(app.name)+1)/2 {
			continue
		}
		cands = append(cands, candidate{name: app.name, dist: d})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = fmt.Sprintf("%q", c.name)
	}
	return out
}
