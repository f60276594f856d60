package watch

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/rs/zerolog"
)

// ErrUnknownSession is returned for session IDs that were never started or
// are already stopped.
var ErrUnknownSession = errors.New("unknown watch session")

// Session is a Watcher whose events are buffered until polled.
type Session struct {
	ID      string
	Started time.Time

	watcher *Watcher
	buf     *Buffer
	limiter *Limiter
	follows bool // kinds track ManagerConfig.Kinds
}

// Info summarizes a running session.
type Info struct {
	ID       string   `yaml:"id"       json:"id"`
	Started  string   `yaml:"started"  json:"started"`
	Apps     []string `yaml:"apps"     json:"apps"`
	Kinds    []string `yaml:"kinds"    json:"kinds"`
	Handlers int      `yaml:"handlers" json:"handlers"`
	Buffered int      `yaml:"buffered" json:"buffered"`
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Kinds is the notification set of sessions started without one.
	Kinds  []platform.Notification
	Buffer int
	Rate   float64
	Burst  int
	Log    zerolog.Logger
}

// Manager owns the watch sessions of an MCP server.
type Manager struct {
	mu       sync.Mutex
	cfg      ManagerConfig
	sessions map[string]*Session
}

// NewManager returns an empty Manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{cfg: cfg, sessions: make(map[string]*Session)}
}

// Start begins watching apps for kinds and returns the new session. With no
// kinds the session follows the configured set, including later changes to
// it. The session takes over the applications: they must not be shared with
// another session, and stopping the session closes them.
func (m *Manager) Start(apps []*ax.Application, kinds []platform.Notification) (*Session, error) {
	if len(apps) == 0 {
		return nil, errors.New("no applications to watch")
	}
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	s := &Session{
		ID:      uuid.NewString(),
		Started: time.Now(),
		buf:     NewBuffer(cfg.Buffer),
		limiter: NewLimiter(cfg.Rate, cfg.Burst),
		follows: len(kinds) == 0,
	}
	if s.follows {
		kinds = cfg.Kinds
	}
	log := cfg.Log.With().Str("session", s.ID).Logger()
	s.watcher = New(apps, kinds, s.buf.Push, Options{Session: s.ID, Limiter: s.limiter, Log: log})
	if err := s.watcher.Start(); err != nil {
		_ = s.watcher.Stop()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	log.Info().Int("apps", len(apps)).Msg("watch session started")
	return s, nil
}

func (m *Manager) get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q is not a session id", ErrUnknownSession, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s, nil
}

// Poll returns up to max buffered events of a session, oldest first, and how
// many events were evicted unread since the session started.
func (m *Manager) Poll(id string, max int) ([]model.Event, int, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, 0, err
	}
	return s.buf.Drain(max), s.buf.Dropped(), nil
}

// Stop ends a session and returns its done event, followed by any events that
// were still buffered.
func (m *Manager) Stop(id string) ([]model.Event, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return s.stop()
}

func (s *Session) stop() ([]model.Event, error) {
	err := s.watcher.Stop()
	events := s.buf.Drain(0)
	done := model.Event{
		Type:    model.EventDone,
		TS:      time.Now().Unix(),
		Session: s.ID,
		Events:  s.watcher.Events(),
		Dropped: s.buf.Dropped() + s.limiter.Dropped(),
		Elapsed: fmt.Sprintf("%.1fs", time.Since(s.Started).Seconds()),
	}
	return append(events, done), err
}

// List describes the running sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Started.Before(sessions[j].Started) })
	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		info := Info{ID: s.ID, Started: s.Started.Format(time.RFC3339), Buffered: s.buf.Len()}
		for _, t := range s.watcher.apps {
			info.Apps = append(info.Apps, t.app.Name())
			info.Handlers += t.app.ObservedCount()
		}
		for _, k := range s.watcher.Kinds() {
			info.Kinds = append(info.Kinds, string(k))
		}
		out = append(out, info)
	}
	return out
}

// Reconfigure applies new limits to sessions started from now on and the new
// notification set to every running session that follows it.
func (m *Manager) Reconfigure(cfg ManagerConfig) error {
	m.mu.Lock()
	cfg.Log = m.cfg.Log
	m.cfg = cfg
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.follows {
			sessions = append(sessions, s)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.watcher.SetNotifications(cfg.Kinds); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if _, err := s.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
