//go:build darwin && cgo

package darwin

import (
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/rs/zerolog"
)

func init() {
	platform.NewProviderFunc = func(log zerolog.Logger) (*platform.Provider, error) {
		if err := CheckAccessibilityPermission(); err != nil {
			return nil, err
		}
		b := shared(log)
		return &platform.Provider{Accessibility: b, Processes: b}, nil
	}
	platform.RequestPermissionsFunc = RequestPermissions
}
