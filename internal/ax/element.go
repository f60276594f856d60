package ax

import (
	"fmt"

	"github.com/mj1618/desktop-ax/internal/platform"
)

// Element is a handle to one accessibility object: an application root or a
// window. It holds no state beyond its identity and owning Application, so it
// is cheap to copy and re-create.
//
// Identity is ID, not the struct value: the same window reached through two
// Application values yields Elements that differ under == but are Equal. Use
// ID as a map key.
type Element struct {
	id  platform.ElementID
	app *Application
}

// ID returns the identity token of the element.
func (e Element) ID() platform.ElementID { return e.id }

// Application returns the application the element belongs to.
func (e Element) Application() *Application { return e.app }

// IsZero reports whether e is the zero Element.
func (e Element) IsZero() bool { return e.app == nil && e.id == 0 }

// Equal reports whether e and o refer to the same object.
func (e Element) Equal(o Element) bool { return e.id == o.id }

func (e Element) String() string {
	if e.app == nil {
		return fmt.Sprintf("element(%d)", e.id)
	}
	return fmt.Sprintf("element(%d pid=%d)", e.id, e.app.pid)
}

// Attribute reads a named attribute.
func (e Element) Attribute(name string) (any, error) {
	if e.app == nil {
		return nil, &ElementError{Op: "attribute " + name, ID: e.id, Err: ErrElementGone}
	}
	v, err := e.app.ax.Attribute(e.id, name)
	if err != nil {
		return nil, &ElementError{Op: "attribute " + name, ID: e.id, Err: err}
	}
	return v, nil
}

// SetAttribute writes a named attribute.
func (e Element) SetAttribute(name string, value any) error {
	if e.app == nil {
		return &ElementError{Op: "set " + name, ID: e.id, Err: ErrElementGone}
	}
	if err := e.app.ax.SetAttribute(e.id, name, value); err != nil {
		return &ElementError{Op: "set " + name, ID: e.id, Err: err}
	}
	return nil
}

// PerformAction invokes a named action such as AXRaise.
func (e Element) PerformAction(name string) error {
	if e.app == nil {
		return &ElementError{Op: "action " + name, ID: e.id, Err: ErrElementGone}
	}
	if err := e.app.ax.PerformAction(e.id, name); err != nil {
		return &ElementError{Op: "action " + name, ID: e.id, Err: err}
	}
	return nil
}

// StringAttribute reads an attribute that must hold a string.
func (e Element) StringAttribute(name string) (string, error) {
	v, err := e.Attribute(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &ElementError{Op: "attribute " + name, ID: e.id, Err: fmt.Errorf("%w: got %T, want string", ErrAttributeUnavailable, v)}
	}
	return s, nil
}

// BoolAttribute reads an attribute that must hold a bool.
func (e Element) BoolAttribute(name string) (bool, error) {
	v, err := e.Attribute(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ElementError{Op: "attribute " + name, ID: e.id, Err: fmt.Errorf("%w: got %T, want bool", ErrAttributeUnavailable, v)}
	}
	return b, nil
}

// ElementAttribute reads an attribute that refers to another element of the
// same application, such as AXFocusedWindow.
func (e Element) ElementAttribute(name string) (Element, error) {
	v, err := e.Attribute(name)
	if err != nil {
		return Element{}, err
	}
	id, ok := v.(platform.ElementID)
	if !ok {
		return Element{}, &ElementError{Op: "attribute " + name, ID: e.id, Err: fmt.Errorf("%w: got %T, want element", ErrAttributeUnavailable, v)}
	}
	return Element{id: id, app: e.app}, nil
}

// Title returns the AXTitle of the element.
func (e Element) Title() (string, error) { return e.StringAttribute(platform.AttrTitle) }

// Role returns the AXRole, e.g. AXApplication or AXWindow.
func (e Element) Role() (string, error) { return e.StringAttribute(platform.AttrRole) }

// Subrole returns the AXSubrole, which decides the window kind.
func (e Element) Subrole() (string, error) { return e.StringAttribute(platform.AttrSubrole) }

// IsMinimized reports the AXMinimized state of a window.
func (e Element) IsMinimized() (bool, error) { return e.BoolAttribute(platform.AttrMinimized) }

// Frame returns the window's position and size.
func (e Element) Frame() (platform.Bounds, error) {
	pv, err := e.Attribute(platform.AttrPosition)
	if err != nil {
		return platform.Bounds{}, err
	}
	sv, err := e.Attribute(platform.AttrSize)
	if err != nil {
		return platform.Bounds{}, err
	}
	p, ok := pv.(platform.Point)
	if !ok {
		return platform.Bounds{}, &ElementError{Op: "frame", ID: e.id, Err: fmt.Errorf("%w: position is %T", ErrAttributeUnavailable, pv)}
	}
	s, ok := sv.(platform.Size)
	if !ok {
		return platform.Bounds{}, &ElementError{Op: "frame", ID: e.id, Err: fmt.Errorf("%w: size is %T", ErrAttributeUnavailable, sv)}
	}
	return platform.Bounds{X: int(p.X), Y: int(p.Y), Width: int(s.Width), Height: int(s.Height)}, nil
}

// Raise brings the window to the front of its application.
func (e Element) Raise() error { return e.PerformAction(platform.ActionRaise) }

// Focus makes the window its application's main window.
func (e Element) Focus() error { return e.SetAttribute(platform.AttrMain, true) }

// Move sets the window's top-left corner.
func (e Element) Move(x, y int) error {
	return e.SetAttribute(platform.AttrPosition, platform.Point{X: float64(x), Y: float64(y)})
}

// Resize sets the window's size.
func (e Element) Resize(width, height int) error {
	return e.SetAttribute(platform.AttrSize, platform.Size{Width: float64(width), Height: float64(height)})
}

// SetMinimized minimizes or restores the window.
func (e Element) SetMinimized(minimized bool) error {
	return e.SetAttribute(platform.AttrMinimized, minimized)
}
