package platform

import "errors"

var (
	ErrElementGone             = errors.New("element no longer exists")
	ErrAttributeUnavailable    = errors.New("attribute unavailable")
	ErrAttributeNotSettable    = errors.New("attribute not settable")
	ErrActionUnavailable       = errors.New("action unavailable")
	ErrNotificationUnsupported = errors.New("notification unsupported")
	ErrProcessGone             = errors.New("process no longer running")
	ErrNoUI                    = errors.New("process has no accessible UI")
	ErrPermissionDenied        = errors.New("accessibility permission required")
)
