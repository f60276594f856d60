//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework Foundation
#import <AppKit/AppKit.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
	int pid;
	char *name;
	char *bundleID;
	int policy;
} ax_process;

static char *ax_strdup(NSString *s) {
	return strdup(s != nil ? s.UTF8String : "");
}

static int ax_running_processes(ax_process **out) {
	@autoreleasepool {
		NSArray<NSRunningApplication *> *apps = [[NSWorkspace sharedWorkspace] runningApplications];
		int n = (int)apps.count;
		ax_process *procs = calloc(n > 0 ? n : 1, sizeof(ax_process));
		for (int i = 0; i < n; i++) {
			NSRunningApplication *app = apps[i];
			procs[i].pid = app.processIdentifier;
			procs[i].name = ax_strdup(app.localizedName);
			procs[i].bundleID = ax_strdup(app.bundleIdentifier);
			procs[i].policy = (int)app.activationPolicy;
		}
		*out = procs;
		return n;
	}
}

static void ax_free_processes(ax_process *procs, int n) {
	for (int i = 0; i < n; i++) {
		free(procs[i].name);
		free(procs[i].bundleID);
	}
	free(procs);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/mj1618/desktop-ax/internal/platform"
	"golang.org/x/sys/unix"
)

// NSApplicationActivationPolicy values.
const (
	policyRegular    = 0
	policyAccessory  = 1
	policyProhibited = 2
)

// RunningProcesses lists the processes NSWorkspace knows about. Accessory
// applications, which have no Dock icon and usually float above others, are
// marked floating. The activation policies are remembered so that
// ApplicationElement can turn away processes that never have a UI, and the
// handles of processes that exited are dropped.
func (b *Backend) RunningProcesses() ([]platform.Process, error) {
	var cProcs *C.ax_process
	n := int(C.ax_running_processes(&cProcs))
	defer C.ax_free_processes(cProcs, C.int(n))

	out := make([]platform.Process, 0, n)
	policies := make(map[int]int, n)
	for _, cp := range unsafe.Slice(cProcs, n) {
		pid := int(cp.pid)
		if pid <= 0 {
			continue
		}
		policies[pid] = int(cp.policy)
		out = append(out, platform.Process{
			PID:      pid,
			Name:     C.GoString(cp.name),
			BundleID: C.GoString(cp.bundleID),
			Floating: int(cp.policy) == policyAccessory,
		})
	}

	b.mu.Lock()
	b.policies = policies
	b.mu.Unlock()
	b.prune(policies)
	return out, nil
}

// Terminate signals pid with SIGTERM, or SIGKILL when force is set.
func (b *Backend) Terminate(pid int, force bool) error {
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("pid %d: %w", pid, platform.ErrProcessGone)
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	b.log.Debug().Int("pid", pid).Bool("force", force).Msg("signalled process")
	return nil
}
