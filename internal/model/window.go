package model

// App describes a running application that has an accessible UI.
type App struct {
	Name     string `yaml:"name"                json:"name"`
	PID      int    `yaml:"pid"                 json:"pid"`
	BundleID string `yaml:"bundle_id,omitempty" json:"bundle_id,omitempty"`
	Title    string `yaml:"title,omitempty"     json:"title,omitempty"`
	Hidden   bool   `yaml:"hidden,omitempty"    json:"hidden,omitempty"`
	Floating bool   `yaml:"floating,omitempty"  json:"floating,omitempty"`
	Windows  int    `yaml:"windows"             json:"windows"`
}

// Window represents an application window.
type Window struct {
	App       string `yaml:"app"                 json:"app"`
	PID       int    `yaml:"pid"                 json:"pid"`
	Title     string `yaml:"title"               json:"title"`
	ID        uint64 `yaml:"id"                  json:"id"`
	Kind      string `yaml:"kind,omitempty"      json:"kind,omitempty"`
	Bounds    [4]int `yaml:"bounds,flow"         json:"bounds"`
	Focused   bool   `yaml:"focused,omitempty"   json:"focused,omitempty"`
	Minimized bool   `yaml:"minimized,omitempty" json:"minimized,omitempty"`
}
