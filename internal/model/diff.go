package model

import "fmt"

// ChangeType represents the kind of window change detected.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeChanged ChangeType = "changed"
)

// WindowChange represents a single change between two window listings.
type WindowChange struct {
	Type    ChangeType           `yaml:"type"              json:"type"`
	ID      uint64               `yaml:"id"                json:"id"`
	Window  *Window              `yaml:"window,omitempty"  json:"window,omitempty"`  // For added: the full window
	Title   string               `yaml:"title,omitempty"   json:"title,omitempty"`   // For removed: last known title
	Changes map[string][2]string `yaml:"changes,omitempty" json:"changes,omitempty"` // For changed: field diffs
}

// DiffWindows compares two window lists and returns the changes. Windows are
// matched by ID. Added and changed windows follow curr's order, removed
// windows follow prev's.
func DiffWindows(prev, curr []Window) []WindowChange {
	prevMap := make(map[uint64]Window, len(prev))
	for _, w := range prev {
		prevMap[w.ID] = w
	}
	currMap := make(map[uint64]Window, len(curr))
	for _, w := range curr {
		currMap[w.ID] = w
	}

	var changes []WindowChange
	for _, w := range curr {
		old, existed := prevMap[w.ID]
		if !existed {
			wCopy := w
			changes = append(changes, WindowChange{Type: ChangeAdded, ID: w.ID, Window: &wCopy})
			continue
		}
		if diffs := diffWindow(old, w); diffs != nil {
			changes = append(changes, WindowChange{Type: ChangeChanged, ID: w.ID, Changes: diffs})
		}
	}
	for _, w := range prev {
		if _, exists := currMap[w.ID]; !exists {
			changes = append(changes, WindowChange{Type: ChangeRemoved, ID: w.ID, Title: w.Title})
		}
	}
	return changes
}

// diffWindow compares two windows and returns changed fields.
func diffWindow(prev, curr Window) map[string][2]string {
	diffs := make(map[string][2]string)

	if prev.Title != curr.Title {
		diffs["title"] = [2]string{prev.Title, curr.Title}
	}
	if prev.Bounds != curr.Bounds {
		diffs["bounds"] = [2]string{fmt.Sprint(prev.Bounds), fmt.Sprint(curr.Bounds)}
	}
	if prev.Focused != curr.Focused {
		diffs["focused"] = [2]string{fmt.Sprint(prev.Focused), fmt.Sprint(curr.Focused)}
	}
	if prev.Kind != curr.Kind {
		diffs["kind"] = [2]string{prev.Kind, curr.Kind}
	}
	if prev.Minimized != curr.Minimized {
		diffs["minimized"] = [2]string{fmt.Sprint(prev.Minimized), fmt.Sprint(curr.Minimized)}
	}

	if len(diffs) == 0 {
		return nil
	}
	return diffs
}
