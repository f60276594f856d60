//go:build darwin

package darwin

import (
	"sort"

	"github.com/mj1618/desktop-ax/internal/platform"
)

// orphaned returns, in ascending order, the elements whose owning pid is not
// a key of running.
func orphaned(owners map[platform.ElementID]int, running map[int]int) []platform.ElementID {
	var ids []platform.ElementID
	for id, pid := range owners {
		if _, ok := running[pid]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
