//go:build darwin

package darwin

import (
	"reflect"
	"testing"

	"github.com/mj1618/desktop-ax/internal/platform"
)

func TestOrphaned(t *testing.T) {
	owners := map[platform.ElementID]int{1: 100, 2: 100, 3: 200, 4: 300, 5: 0}
	tests := []struct {
		name    string
		running map[int]int
		want    []platform.ElementID
	}{
		{"all running", map[int]int{0: 0, 100: 0, 200: 1, 300: 0}, nil},
		{"one exited", map[int]int{0: 0, 100: 0, 300: 2}, []platform.ElementID{3}},
		{"nothing running", map[int]int{}, []platform.ElementID{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orphaned(owners, tt.running); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("orphaned = %v, want %v", got, tt.want)
			}
		})
	}
}
