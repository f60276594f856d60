package platform

import (
	"fmt"
	"strings"
)

// Notification names an accessibility notification.
type Notification string

const (
	WindowCreated          Notification = "AXWindowCreated"
	WindowMoved            Notification = "AXWindowMoved"
	WindowResized          Notification = "AXWindowResized"
	WindowMiniaturized     Notification = "AXWindowMiniaturized"
	WindowDeminiaturized   Notification = "AXWindowDeminiaturized"
	FocusedWindowChanged   Notification = "AXFocusedWindowChanged"
	MainWindowChanged      Notification = "AXMainWindowChanged"
	TitleChanged           Notification = "AXTitleChanged"
	UIElementDestroyed     Notification = "AXUIElementDestroyed"
	ApplicationActivated   Notification = "AXApplicationActivated"
	ApplicationDeactivated Notification = "AXApplicationDeactivated"
	ApplicationHidden      Notification = "AXApplicationHidden"
	ApplicationShown       Notification = "AXApplicationShown"
)

// notificationAliases maps short flag values to notification names.
var notificationAliases = map[string]Notification{
	"created":     WindowCreated,
	"moved":       WindowMoved,
	"resized":     WindowResized,
	"minimized":   WindowMiniaturized,
	"deminimized": WindowDeminiaturized,
	"focused":     FocusedWindowChanged,
	"main":        MainWindowChanged,
	"title":       TitleChanged,
	"destroyed":   UIElementDestroyed,
	"activated":   ApplicationActivated,
	"deactivated": ApplicationDeactivated,
	"hidden":      ApplicationHidden,
	"shown":       ApplicationShown,
}

// AllNotifications lists every notification known to this package, in a stable order.
var AllNotifications = []Notification{
	WindowCreated,
	WindowMoved,
	WindowResized,
	WindowMiniaturized,
	WindowDeminiaturized,
	FocusedWindowChanged,
	MainWindowChanged,
	TitleChanged,
	UIElementDestroyed,
	ApplicationActivated,
	ApplicationDeactivated,
	ApplicationHidden,
	ApplicationShown,
}

// Short returns the alias of n, or n itself if it has none.
func (n Notification) Short() string {
	for alias, full := range notificationAliases {
		if full == n {
			return alias
		}
	}
	return string(n)
}

// WindowScoped reports whether n is posted by a window rather than by the
// application element. Window-scoped kinds are observed per window.
func (n Notification) WindowScoped() bool {
	switch n {
	case WindowMoved, WindowResized, WindowMiniaturized, WindowDeminiaturized, TitleChanged, UIElementDestroyed:
		return true
	}
	return false
}

// ParseNotification accepts a full AX notification name or one of its aliases.
func ParseNotification(s string) (Notification, error) {
	s = strings.TrimSpace(s)
	if n, ok := notificationAliases[strings.ToLower(s)]; ok {
		return n, nil
	}
	for _, n := range AllNotifications {
		if strings.EqualFold(string(n), s) {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown notification: %q (expected e.g. moved, resized, created, destroyed, focused)", s)
}

// ParseNotifications parses a list of names, dropping duplicates and empty entries.
func ParseNotifications(names []string) ([]Notification, error) {
	seen := make(map[Notification]bool)
	var out []Notification
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		n, err := ParseNotification(name)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// Attribute names understood by the backends.
const (
	AttrRole          = "AXRole"
	AttrSubrole       = "AXSubrole"
	AttrTitle         = "AXTitle"
	AttrWindows       = "AXWindows"
	AttrFocusedWindow = "AXFocusedWindow"
	AttrMainWindow    = "AXMainWindow"
	AttrHidden        = "AXHidden"
	AttrMinimized     = "AXMinimized"
	AttrMain          = "AXMain"
	AttrFocused       = "AXFocused"
	AttrPosition      = "AXPosition"
	AttrSize          = "AXSize"
)

// Action names understood by the backends.
const (
	ActionRaise = "AXRaise"
	ActionPress = "AXPress"
)

// Roles reported by AttrRole.
const (
	RoleApplication = "AXApplication"
	RoleWindow      = "AXWindow"
)

// Point is a screen position as reported by AttrPosition.
type Point struct {
	X, Y float64
}

// Size is a width/height pair as reported by AttrSize.
type Size struct {
	Width, Height float64
}

// Bounds represents a screen rectangle.
type Bounds struct {
	X, Y, Width, Height int
}
