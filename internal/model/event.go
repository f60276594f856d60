package model

// EventType tags each line of a watch stream.
type EventType string

const (
	EventSnapshot     EventType = "snapshot" // initial window listing
	EventNotification EventType = "event"    // one accessibility notification
	EventWindows      EventType = "windows"  // window list changed
	EventError        EventType = "error"
	EventDone         EventType = "done"
)

// Event is one record of a watch stream.
type Event struct {
	Type    EventType      `yaml:"type"              json:"type"`
	TS      int64          `yaml:"ts"                json:"ts"`
	Session string         `yaml:"session,omitempty" json:"session,omitempty"`
	App     string         `yaml:"app,omitempty"     json:"app,omitempty"`
	PID     int            `yaml:"pid,omitempty"     json:"pid,omitempty"`
	Kind    string         `yaml:"kind,omitempty"    json:"kind,omitempty"`
	Element uint64         `yaml:"el,omitempty"      json:"el,omitempty"`
	Window  *Window        `yaml:"window,omitempty"  json:"window,omitempty"`
	Windows []Window       `yaml:"windows,omitempty" json:"windows,omitempty"`
	Changes []WindowChange `yaml:"changes,omitempty" json:"changes,omitempty"`
	Error   string         `yaml:"error,omitempty"   json:"error,omitempty"`

	// Set on done events.
	Events  int    `yaml:"events,omitempty"  json:"events,omitempty"`
	Dropped int    `yaml:"dropped,omitempty" json:"dropped,omitempty"`
	Elapsed string `yaml:"elapsed,omitempty" json:"elapsed,omitempty"`
}
