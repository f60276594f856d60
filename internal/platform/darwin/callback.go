//go:build darwin && cgo

package darwin

/*
#include <CoreFoundation/CoreFoundation.h>
*/
import "C"

import "github.com/mj1618/desktop-ax/internal/platform"

// axNotification runs on the run loop thread for every AXObserver callback.
// It only interns the element and queues the event.
//
//export axNotification
func axNotification(pid C.int, element C.CFTypeRef, notification C.CFTypeRef) {
	b := sharedBackend
	if b == nil || element == 0 {
		return
	}
	b.obs.events <- platform.Event{
		PID:     int(pid),
		Kind:    platform.Notification(cfString(notification)),
		Element: b.intern(element, false),
	}
}
