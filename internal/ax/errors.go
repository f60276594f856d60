package ax

import (
	"errors"
	"fmt"

	"github.com/mj1618/desktop-ax/internal/platform"
)

// Errors surfaced by the package. The platform ones are re-exported so callers
// only need to import ax.
var (
	ErrElementGone             = platform.ErrElementGone
	ErrAttributeUnavailable    = platform.ErrAttributeUnavailable
	ErrAttributeNotSettable    = platform.ErrAttributeNotSettable
	ErrActionUnavailable       = platform.ErrActionUnavailable
	ErrNotificationUnsupported = platform.ErrNotificationUnsupported
	ErrProcessGone             = platform.ErrProcessGone

	// ErrElementNotOwned means an element from one Application was passed to another.
	ErrElementNotOwned = errors.New("element not owned by application")
	// ErrNilHandler is returned when Observe is called without a handler.
	ErrNilHandler = errors.New("nil notification handler")
	// ErrApplicationNotFound is returned by name and PID lookups.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrWindowNotFound is returned by Application.Window.
	ErrWindowNotFound = errors.New("window not found")
)

// ElementError records a failed operation on one element.
type ElementError struct {
	Op  string
	ID  platform.ElementID
	Err error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s (element %d): %v", e.Op, e.ID, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// IsGone reports whether err means the element or its process went away.
func IsGone(err error) bool {
	return errors.Is(err, ErrElementGone) || errors.Is(err, ErrProcessGone)
}
