//go:build darwin

package darwin

import (
	"fmt"

	"github.com/mj1618/desktop-ax/internal/platform"
)

// AXError codes from HIServices/AXError.h.
const (
	axSuccess                         = 0
	axFailure                         = -25200
	axIllegalArgument                 = -25201
	axInvalidUIElement                = -25202
	axInvalidUIElementObserver        = -25203
	axCannotComplete                  = -25204
	axAttributeUnsupported            = -25205
	axActionUnsupported               = -25206
	axNotificationUnsupported         = -25207
	axNotImplemented                  = -25208
	axNotificationAlreadyRegistered   = -25209
	axNotificationNotRegistered       = -25210
	axAPIDisabled                     = -25211
	axNoValue                         = -25212
	axParameterizedAttributeUnsupport = -25213
)

// AXError is a failed accessibility call. Err is the platform error it maps
// to, or nil when the code has no portable meaning.
type AXError struct {
	Op   string
	Code int
	Err  error
}

func (e *AXError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (AXError %d)", e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("%s: AXError %d", e.Op, e.Code)
}

func (e *AXError) Unwrap() error { return e.Err }

// axErr converts the result of an accessibility call. It returns nil for
// success.
func axErr(op string, code int) error {
	if code == axSuccess {
		return nil
	}
	return &AXError{Op: op, Code: code, Err: sentinel(code)}
}

func sentinel(code int) error {
	switch code {
	case axInvalidUIElement, axInvalidUIElementObserver:
		return platform.ErrElementGone
	case axAttributeUnsupported, axNoValue, axParameterizedAttributeUnsupport:
		return platform.ErrAttributeUnavailable
	case axActionUnsupported:
		return platform.ErrActionUnavailable
	case axNotificationUnsupported, axNotImplemented:
		return platform.ErrNotificationUnsupported
	case axAPIDisabled:
		return platform.ErrPermissionDenied
	}
	return nil
}
