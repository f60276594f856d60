package model

import "testing"

func TestDiffWindows_NoChanges(t *testing.T) {
	windows := []Window{
		{ID: 1, App: "Safari", Title: "GitHub", Bounds: [4]int{10, 20, 100, 30}},
	}
	changes := DiffWindows(windows, windows)
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %d", len(changes))
	}
}

func TestDiffWindows_Added(t *testing.T) {
	prev := []Window{{ID: 1, Title: "W1"}}
	curr := []Window{{ID: 1, Title: "W1"}, {ID: 2, Title: "W2"}}

	changes := DiffWindows(prev, curr)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Type != ChangeAdded {
		t.Errorf("expected added, got %s", changes[0].Type)
	}
	if changes[0].Window == nil || changes[0].Window.Title != "W2" {
		t.Errorf("expected W2, got %+v", changes[0].Window)
	}
}

func TestDiffWindows_Removed(t *testing.T) {
	prev := []Window{{ID: 1, Title: "W1"}, {ID: 2, Title: "Loading..."}}
	curr := []Window{{ID: 1, Title: "W1"}}

	changes := DiffWindows(prev, curr)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Type != ChangeRemoved || changes[0].ID != 2 || changes[0].Title != "Loading..." {
		t.Errorf("unexpected change: %+v", changes[0])
	}
}

func TestDiffWindows_Changed(t *testing.T) {
	prev := []Window{{ID: 1, Title: "Untitled", Bounds: [4]int{0, 0, 800, 600}}}
	curr := []Window{{ID: 1, Title: "Report.txt", Bounds: [4]int{0, 0, 800, 600}, Minimized: true}}

	changes := DiffWindows(prev, curr)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.Type != ChangeChanged {
		t.Errorf("expected changed, got %s", c.Type)
	}
	if c.Changes["title"] != [2]string{"Untitled", "Report.txt"} {
		t.Errorf("title diff = %v", c.Changes["title"])
	}
	if c.Changes["minimized"][1] != "true" {
		t.Errorf("minimized diff = %v", c.Changes["minimized"])
	}
	if _, ok := c.Changes["bounds"]; ok {
		t.Error("unchanged bounds reported")
	}
}

func TestDiffWindows_Empty(t *testing.T) {
	if changes := DiffWindows(nil, nil); len(changes) != 0 {
		t.Errorf("expected no changes for nil inputs, got %d", len(changes))
	}
}

func TestDiffWindows_AllNewAllRemoved(t *testing.T) {
	windows := []Window{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	for _, c := range DiffWindows(nil, windows) {
		if c.Type != ChangeAdded {
			t.Errorf("expected added, got %s", c.Type)
		}
	}
	removed := DiffWindows(windows, nil)
	if len(removed) != 2 || removed[0].ID != 1 || removed[1].ID != 2 {
		t.Errorf("removed = %+v, want ids 1 and 2 in order", removed)
	}
}

func TestDiffWindow_Bounds(t *testing.T) {
	prev := Window{ID: 1, Bounds: [4]int{10, 20, 100, 30}}
	curr := Window{ID: 1, Bounds: [4]int{10, 20, 200, 30}}
	diffs := diffWindow(prev, curr)
	if diffs == nil || diffs["bounds"] != [2]string{"[10 20 100 30]", "[10 20 200 30]"} {
		t.Errorf("bounds diff = %v", diffs)
	}
}

func TestDiffWindow_Focus(t *testing.T) {
	diffs := diffWindow(Window{ID: 1}, Window{ID: 1, Focused: true})
	if diffs == nil || diffs["focused"][1] != "true" {
		t.Errorf("expected focused diff, got %v", diffs)
	}
}

func TestDiffWindow_Kind(t *testing.T) {
	diffs := diffWindow(Window{ID: 1, Kind: "standard"}, Window{ID: 1, Kind: "fullscreen"})
	if diffs == nil || diffs["kind"] != [2]string{"standard", "fullscreen"} {
		t.Errorf("expected kind diff, got %v", diffs)
	}
}
