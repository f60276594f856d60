package model

import "strings"

// KindMap maps macOS window AXSubrole values to compact window kinds.
var KindMap = map[string]string{
	"AXStandardWindow":       "standard",
	"AXDialog":               "dialog",
	"AXSystemDialog":         "dialog",
	"AXFloatingWindow":       "floating",
	"AXSystemFloatingWindow": "floating",
	"AXFullScreenWindow":     "fullscreen",
	"AXUnknown":              "other",
}

// MetaKinds maps meta-kind names to the concrete kinds they expand to.
// "normal" covers the windows a window manager usually arranges.
var MetaKinds = map[string][]string{
	"normal": {"standard", "dialog"},
}

// ExpandKinds expands any meta-kinds in the given list to their concrete kinds.
// Non-meta kinds are passed through unchanged, lowercased. Duplicates are removed.
func ExpandKinds(kinds []string) []string {
	seen := make(map[string]bool, len(kinds))
	var expanded []string
	for _, k := range kinds {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if concrete, ok := MetaKinds[k]; ok {
			for _, c := range concrete {
				if !seen[c] {
					seen[c] = true
					expanded = append(expanded, c)
				}
			}
		} else if !seen[k] {
			seen[k] = true
			expanded = append(expanded, k)
		}
	}
	return expanded
}

// MapSubrole converts a raw window subrole to a compact kind.
func MapSubrole(subrole string) string {
	if short, ok := KindMap[subrole]; ok {
		return short
	}
	return "other"
}
