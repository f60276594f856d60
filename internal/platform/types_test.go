package platform

import "testing"

func TestParseNotification_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Notification
	}{
		{"moved", WindowMoved},
		{"Moved", WindowMoved},
		{"resized", WindowResized},
		{"created", WindowCreated},
		{"destroyed", UIElementDestroyed},
		{"focused", FocusedWindowChanged},
		{"AXWindowMoved", WindowMoved},
		{"axwindowmoved", WindowMoved},
		{" AXTitleChanged ", TitleChanged},
	}
	for _, tt := range tests {
		got, err := ParseNotification(tt.input)
		if err != nil {
			t.Errorf("ParseNotification(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseNotification(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseNotification_Invalid(t *testing.T) {
	for _, s := range []string{"", "jumped", "AXWindowJumped"} {
		if _, err := ParseNotification(s); err == nil {
			t.Errorf("ParseNotification(%q) should fail", s)
		}
	}
}

func TestParseNotifications_DedupesAndSkipsEmpty(t *testing.T) {
	got, err := ParseNotifications([]string{"moved", "", "AXWindowMoved", "resized"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != WindowMoved || got[1] != WindowResized {
		t.Errorf("got %v, want [AXWindowMoved AXWindowResized]", got)
	}
}

func TestParseNotifications_Invalid(t *testing.T) {
	if _, err := ParseNotifications([]string{"moved", "nope"}); err == nil {
		t.Error("expected error for unknown notification")
	}
}

func TestNotificationShort(t *testing.T) {
	if got := WindowMoved.Short(); got != "moved" {
		t.Errorf("WindowMoved.Short() = %q, want %q", got, "moved")
	}
	if got := Notification("AXCustom").Short(); got != "AXCustom" {
		t.Errorf("unknown Short() = %q, want passthrough", got)
	}
}

func TestAllNotifications_HaveAliases(t *testing.T) {
	for _, n := range AllNotifications {
		if n.Short() == string(n) {
			t.Errorf("%s has no alias", n)
		}
	}
}

func TestNotificationWindowScoped(t *testing.T) {
	window := map[Notification]bool{
		WindowMoved:          true,
		WindowResized:        true,
		WindowMiniaturized:   true,
		WindowDeminiaturized: true,
		TitleChanged:         true,
		UIElementDestroyed:   true,
	}
	for _, n := range AllNotifications {
		if got := n.WindowScoped(); got != window[n] {
			t.Errorf("%s.WindowScoped() = %v, want %v", n, got, window[n])
		}
	}
}
