package platform

// ElementID is an opaque identity token for a live accessibility object.
// Backends hand out the same ID for the same underlying object for as long as
// it stays reachable. After the object is destroyed the ID means nothing; only
// a notification tells you that happened.
type ElementID uint64

// EventFunc receives notifications from a backend subscription.
type EventFunc func(Event)

// SubscriptionID identifies one Subscribe call.
type SubscriptionID uint64

// Event is one raw notification delivered by a backend.
type Event struct {
	PID     int          // Process that owns the element (0 = unknown)
	Kind    Notification // Notification name
	Element ElementID    // Element the notification originated from
}

// Accessibility is the primitive accessibility layer of the OS.
// Every call is synchronous and may fail with ErrElementGone.
type Accessibility interface {
	// ApplicationElement returns the root element of the process's UI.
	// Returns ErrNoUI when the process has nothing accessibility can observe.
	ApplicationElement(pid int) (ElementID, error)

	Attribute(id ElementID, name string) (any, error)
	SetAttribute(id ElementID, name string, value any) error
	PerformAction(id ElementID, name string) error

	// Subscribe registers fn for every kind notification raised anywhere
	// under the application root. Each call creates an independent
	// subscription, so several observers of one application coexist.
	Subscribe(root ElementID, kind Notification, fn EventFunc) (SubscriptionID, error)
	// Unsubscribe removes one subscription. Removing an absent one is not an
	// error; ErrElementGone reports that the application already went away.
	Unsubscribe(id SubscriptionID) error
}

// Processes enumerates and signals running processes.
type Processes interface {
	RunningProcesses() ([]Process, error)

	// Terminate asks the process to quit (SIGTERM), or kills it outright
	// (SIGKILL) when force is set. Returns ErrProcessGone if it already exited.
	Terminate(pid int, force bool) error
}

// Process is one running process as reported by the OS.
type Process struct {
	PID      int    `yaml:"pid"                 json:"pid"`
	Name     string `yaml:"name"                json:"name"`
	BundleID string `yaml:"bundle_id,omitempty" json:"bundle_id,omitempty"`

	// Floating comes from the process record, not from live accessibility
	// state. Whoever builds the record decides it.
	Floating bool `yaml:"floating,omitempty" json:"floating,omitempty"`
}
