//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation
#include <ApplicationServices/ApplicationServices.h>

static int is_trusted() {
    return AXIsProcessTrusted();
}

static int prompt_trusted() {
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *values[] = { kCFBooleanTrue };
    CFDictionaryRef opts = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
        &kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    int trusted = AXIsProcessTrustedWithOptions(opts);
    CFRelease(opts);
    return trusted;
}
*/
import "C"
import (
	"fmt"

	"github.com/mj1618/desktop-ax/internal/platform"
)

// CheckAccessibilityPermission checks if the process has macOS accessibility permission.
// Returns an error with instructions if permission is not granted.
func CheckAccessibilityPermission() error {
	if C.is_trusted() == 0 {
		return fmt.Errorf("%w\n\n"+
			"Grant permission at: System Settings > Privacy & Security > Accessibility\n"+
			"Add your terminal app (e.g. Terminal.app, iTerm2, or the IDE running this command).\n"+
			"Then restart the terminal and try again.", platform.ErrPermissionDenied)
	}
	return nil
}

// RequestPermissions shows the system accessibility prompt if the process is
// not trusted yet. It does not wait for the user to answer.
func RequestPermissions() {
	C.prompt_trusted()
}
