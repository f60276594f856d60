//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>
#include <stdlib.h>

enum {
	AXV_OTHER,
	AXV_STRING,
	AXV_BOOL,
	AXV_NUMBER,
	AXV_POINT,
	AXV_SIZE,
	AXV_ELEMENT,
	AXV_ARRAY,
};

static CFStringRef ax_cfstring(const char *s) {
	return CFStringCreateWithCString(kCFAllocatorDefault, s, kCFStringEncodingUTF8);
}

// ax_copy_cstring returns a malloc'd UTF-8 copy of s, or NULL.
static char *ax_copy_cstring(CFTypeRef s) {
	CFIndex len = CFStringGetLength((CFStringRef)s);
	CFIndex max = CFStringGetMaximumSizeForEncoding(len, kCFStringEncodingUTF8) + 1;
	char *buf = malloc(max);
	if (buf == NULL) {
		return NULL;
	}
	if (!CFStringGetCString((CFStringRef)s, buf, max, kCFStringEncodingUTF8)) {
		free(buf);
		return NULL;
	}
	return buf;
}

static AXError ax_copy_attribute(CFTypeRef el, const char *name, CFTypeRef *out) {
	CFStringRef attr = ax_cfstring(name);
	AXError err = AXUIElementCopyAttributeValue((AXUIElementRef)el, attr, out);
	CFRelease(attr);
	return err;
}

static AXError ax_is_settable(CFTypeRef el, const char *name, int *settable) {
	CFStringRef attr = ax_cfstring(name);
	Boolean b = false;
	AXError err = AXUIElementIsAttributeSettable((AXUIElementRef)el, attr, &b);
	CFRelease(attr);
	*settable = b ? 1 : 0;
	return err;
}

static AXError ax_set_attribute(CFTypeRef el, const char *name, CFTypeRef value) {
	CFStringRef attr = ax_cfstring(name);
	AXError err = AXUIElementSetAttributeValue((AXUIElementRef)el, attr, value);
	CFRelease(attr);
	return err;
}

static AXError ax_perform_action(CFTypeRef el, const char *name) {
	CFStringRef action = ax_cfstring(name);
	AXError err = AXUIElementPerformAction((AXUIElementRef)el, action);
	CFRelease(action);
	return err;
}

static int ax_value_kind(CFTypeRef v) {
	CFTypeID t = CFGetTypeID(v);
	if (t == CFStringGetTypeID()) return AXV_STRING;
	if (t == CFBooleanGetTypeID()) return AXV_BOOL;
	if (t == CFNumberGetTypeID()) return AXV_NUMBER;
	if (t == AXUIElementGetTypeID()) return AXV_ELEMENT;
	if (t == CFArrayGetTypeID()) return AXV_ARRAY;
	if (t == AXValueGetTypeID()) {
		switch (AXValueGetType((AXValueRef)v)) {
		case kAXValueCGPointType:
			return AXV_POINT;
		case kAXValueCGSizeType:
			return AXV_SIZE;
		default:
			return AXV_OTHER;
		}
	}
	return AXV_OTHER;
}

static int ax_bool_value(CFTypeRef v) {
	return CFBooleanGetValue((CFBooleanRef)v) ? 1 : 0;
}

static double ax_number_value(CFTypeRef v) {
	double d = 0;
	CFNumberGetValue((CFNumberRef)v, kCFNumberDoubleType, &d);
	return d;
}

static void ax_pair_value(CFTypeRef v, int kind, double *a, double *b) {
	if (kind == AXV_POINT) {
		CGPoint p = CGPointZero;
		AXValueGetValue((AXValueRef)v, kAXValueCGPointType, &p);
		*a = p.x;
		*b = p.y;
	} else {
		CGSize s = CGSizeZero;
		AXValueGetValue((AXValueRef)v, kAXValueCGSizeType, &s);
		*a = s.width;
		*b = s.height;
	}
}

static CFIndex ax_array_len(CFTypeRef v) {
	return CFArrayGetCount((CFArrayRef)v);
}

static CFTypeRef ax_array_at(CFTypeRef v, CFIndex i) {
	return CFArrayGetValueAtIndex((CFArrayRef)v, i);
}

static CFTypeRef ax_new_bool(int b) {
	return CFRetain(b ? kCFBooleanTrue : kCFBooleanFalse);
}

static CFTypeRef ax_new_string(const char *s) {
	return ax_cfstring(s);
}

static CFTypeRef ax_new_number(double d) {
	return CFNumberCreate(kCFAllocatorDefault, kCFNumberDoubleType, &d);
}

static CFTypeRef ax_new_point(double x, double y) {
	CGPoint p = CGPointMake(x, y);
	return AXValueCreate(kAXValueCGPointType, &p);
}

static CFTypeRef ax_new_size(double w, double h) {
	CGSize s = CGSizeMake(w, h);
	return AXValueCreate(kAXValueCGSizeType, &s);
}

static pid_t ax_element_pid(CFTypeRef el) {
	pid_t pid = 0;
	AXUIElementGetPid((AXUIElementRef)el, &pid);
	return pid;
}

static CFTypeRef ax_create_application(pid_t pid) {
	return AXUIElementCreateApplication(pid);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/rs/zerolog"
)

// handle is one interned AXUIElementRef. The backend holds a retain on ref
// until the element is dropped.
type handle struct {
	ref C.CFTypeRef
	pid int
}

// Backend implements platform.Accessibility and platform.Processes on macOS.
//
// AXUIElementRefs are not stable pointers: every copy of an attribute returns
// a fresh ref for the same object. The backend interns refs by CFHash and
// CFEqual so one object always gets the same ElementID.
type Backend struct {
	log zerolog.Logger

	mu       sync.Mutex
	handles  map[platform.ElementID]*handle
	byHash   map[uint64][]platform.ElementID
	nextID   platform.ElementID
	policies map[int]int // activation policy per pid, from RunningProcesses

	obs *observers
}

var (
	sharedOnce    sync.Once
	sharedBackend *Backend
)

// shared returns the process-wide Backend. The observer callback has no way to
// carry a Go pointer, so there is exactly one.
func shared(log zerolog.Logger) *Backend {
	sharedOnce.Do(func() {
		b := &Backend{
			log:      log,
			handles:  make(map[platform.ElementID]*handle),
			byHash:   make(map[uint64][]platform.ElementID),
			policies: make(map[int]int),
		}
		b.obs = newObservers(b)
		sharedBackend = b
	})
	return sharedBackend
}

// intern returns the ElementID for ref. owned reports whether the caller
// holds a retain on ref that intern takes over.
func (b *Backend) intern(ref C.CFTypeRef, owned bool) platform.ElementID {
	hash := uint64(C.CFHash(ref))

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.byHash[hash] {
		if C.CFEqual(b.handles[id].ref, ref) != 0 {
			if owned {
				C.CFRelease(ref)
			}
			return id
		}
	}
	if !owned {
		C.CFRetain(ref)
	}
	b.nextID++
	id := b.nextID
	b.handles[id] = &handle{ref: ref, pid: int(C.ax_element_pid(ref))}
	b.byHash[hash] = append(b.byHash[hash], id)
	return id
}

// acquire returns the ref for id with an extra retain the caller must
// release, so a concurrent drop cannot free it mid-call.
func (b *Backend) acquire(id platform.ElementID) (C.CFTypeRef, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.handles[id]
	if !ok {
		return 0, 0, platform.ErrElementGone
	}
	C.CFRetain(h.ref)
	return h.ref, h.pid, nil
}

func release(ref C.CFTypeRef) { C.CFRelease(ref) }

// drop forgets id and releases its ref. Later calls with id fail with
// ErrElementGone.
func (b *Backend) drop(id platform.ElementID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked(id)
}

// forget drops id when err says the element no longer exists and returns err.
func (b *Backend) forget(id platform.ElementID, err error) error {
	if errors.Is(err, platform.ErrElementGone) {
		b.drop(id)
	}
	return err
}

// prune drops the handles of every process not in running.
func (b *Backend) prune(running map[int]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	owners := make(map[platform.ElementID]int, len(b.handles))
	for id, h := range b.handles {
		owners[id] = h.pid
	}
	ids := orphaned(owners, running)
	for _, id := range ids {
		b.dropLocked(id)
	}
	if len(ids) > 0 {
		b.log.Debug().Int("handles", len(ids)).Msg("dropped handles of exited processes")
	}
}

func (b *Backend) dropLocked(id platform.ElementID) {
	h, ok := b.handles[id]
	if !ok {
		return
	}
	hash := uint64(C.CFHash(h.ref))
	ids := b.byHash[hash]
	for i, x := range ids {
		if x == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(b.byHash, hash)
	} else {
		b.byHash[hash] = ids
	}
	delete(b.handles, id)
	C.CFRelease(h.ref)
}

func (b *Backend) ApplicationElement(pid int) (platform.ElementID, error) {
	b.mu.Lock()
	policy, known := b.policies[pid]
	b.mu.Unlock()
	if known && policy == policyProhibited {
		return 0, fmt.Errorf("pid %d: %w", pid, platform.ErrNoUI)
	}

	ref := C.ax_create_application(C.pid_t(pid))
	if ref == 0 {
		return 0, fmt.Errorf("pid %d: %w", pid, platform.ErrNoUI)
	}
	// Every pid yields an application element; only a readable role means
	// there is a UI behind it.
	var role C.CFTypeRef
	name := C.CString(platform.AttrRole)
	code := int(C.ax_copy_attribute(ref, name, &role))
	C.free(unsafe.Pointer(name))
	if role != 0 {
		C.CFRelease(role)
	}
	if err := axErr("application element", code); err != nil {
		release(ref)
		if code == axAPIDisabled {
			return 0, err
		}
		return 0, fmt.Errorf("pid %d: %w: %v", pid, platform.ErrNoUI, err)
	}
	return b.intern(ref, true), nil
}

func (b *Backend) Attribute(id platform.ElementID, name string) (any, error) {
	ref, _, err := b.acquire(id)
	if err != nil {
		return nil, err
	}
	defer release(ref)

	var value C.CFTypeRef
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	if err := axErr("read "+name, int(C.ax_copy_attribute(ref, cname, &value))); err != nil {
		return nil, b.forget(id, err)
	}
	if value == 0 {
		return nil, platform.ErrAttributeUnavailable
	}
	defer C.CFRelease(value)
	return b.decode(value, name)
}

// decode converts a CF value into the Go types the platform package uses.
// value stays owned by the caller.
func (b *Backend) decode(value C.CFTypeRef, name string) (any, error) {
	switch kind := C.ax_value_kind(value); kind {
	case C.AXV_STRING:
		return cfString(value), nil
	case C.AXV_BOOL:
		return C.ax_bool_value(value) != 0, nil
	case C.AXV_NUMBER:
		return float64(C.ax_number_value(value)), nil
	case C.AXV_POINT, C.AXV_SIZE:
		var x, y C.double
		C.ax_pair_value(value, kind, &x, &y)
		if kind == C.AXV_POINT {
			return platform.Point{X: float64(x), Y: float64(y)}, nil
		}
		return platform.Size{Width: float64(x), Height: float64(y)}, nil
	case C.AXV_ELEMENT:
		return b.intern(value, false), nil
	case C.AXV_ARRAY:
		n := int(C.ax_array_len(value))
		if n == 0 {
			return []platform.ElementID{}, nil
		}
		first := C.ax_array_at(value, 0)
		switch C.ax_value_kind(first) {
		case C.AXV_ELEMENT:
			ids := make([]platform.ElementID, 0, n)
			for i := 0; i < n; i++ {
				item := C.ax_array_at(value, C.CFIndex(i))
				if C.ax_value_kind(item) == C.AXV_ELEMENT {
					ids = append(ids, b.intern(item, false))
				}
			}
			return ids, nil
		case C.AXV_STRING:
			strs := make([]string, 0, n)
			for i := 0; i < n; i++ {
				item := C.ax_array_at(value, C.CFIndex(i))
				if C.ax_value_kind(item) == C.AXV_STRING {
					strs = append(strs, cfString(item))
				}
			}
			return strs, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has an unsupported value type", platform.ErrAttributeUnavailable, name)
}

func cfString(v C.CFTypeRef) string {
	cs := C.ax_copy_cstring(v)
	if cs == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs)
}

// encode converts a Go value into a CF value the caller must release.
func (b *Backend) encode(value any) (C.CFTypeRef, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return C.ax_new_bool(1), nil
		}
		return C.ax_new_bool(0), nil
	case string:
		cs := C.CString(v)
		defer C.free(unsafe.Pointer(cs))
		return C.ax_new_string(cs), nil
	case float64:
		return C.ax_new_number(C.double(v)), nil
	case int:
		return C.ax_new_number(C.double(v)), nil
	case platform.Point:
		return C.ax_new_point(C.double(v.X), C.double(v.Y)), nil
	case platform.Size:
		return C.ax_new_size(C.double(v.Width), C.double(v.Height)), nil
	case platform.ElementID:
		ref, _, err := b.acquire(v)
		if err != nil {
			return 0, err
		}
		return ref, nil
	}
	return 0, fmt.Errorf("cannot encode %T as an accessibility value", value)
}

func (b *Backend) SetAttribute(id platform.ElementID, name string, value any) error {
	ref, _, err := b.acquire(id)
	if err != nil {
		return err
	}
	defer release(ref)

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var settable C.int
	if err := axErr("check "+name, int(C.ax_is_settable(ref, cname, &settable))); err != nil {
		return b.forget(id, err)
	}
	if settable == 0 {
		return platform.ErrAttributeNotSettable
	}

	cf, err := b.encode(value)
	if err != nil {
		return err
	}
	defer C.CFRelease(cf)
	return b.forget(id, axErr("set "+name, int(C.ax_set_attribute(ref, cname, cf))))
}

func (b *Backend) PerformAction(id platform.ElementID, name string) error {
	ref, _, err := b.acquire(id)
	if err != nil {
		return err
	}
	defer release(ref)

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return b.forget(id, axErr(name, int(C.ax_perform_action(ref, cname))))
}
