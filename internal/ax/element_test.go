package ax

import (
	"errors"
	"strings"
	"testing"

	"github.com/mj1618/desktop-ax/internal/platform"
)

func TestElement_Attributes(t *testing.T) {
	b, _, w1, _ := newTestApp(t)

	if title, err := w1.Title(); err != nil || title != "W1" {
		t.Errorf("Title() = %q, %v", title, err)
	}
	if role, err := w1.Role(); err != nil || role != platform.RoleWindow {
		t.Errorf("Role() = %q, %v", role, err)
	}
	if subrole, err := w1.Subrole(); err != nil || subrole != "AXStandardWindow" {
		t.Errorf("Subrole() = %q, %v", subrole, err)
	}

	b.Set(w1.ID(), platform.AttrPosition, platform.Point{X: 10, Y: 20})
	b.Set(w1.ID(), platform.AttrSize, platform.Size{Width: 300, Height: 200})
	frame, err := w1.Frame()
	if err != nil {
		t.Fatal(err)
	}
	want := platform.Bounds{X: 10, Y: 20, Width: 300, Height: 200}
	if frame != want {
		t.Errorf("Frame() = %+v, want %+v", frame, want)
	}
}

func TestElement_Geometry(t *testing.T) {
	b, app, w1, w2 := newTestApp(t)

	if err := w1.Move(40, 50); err != nil {
		t.Fatal(err)
	}
	if err := w1.Resize(1024, 768); err != nil {
		t.Fatal(err)
	}
	if frame, _ := w1.Frame(); frame != (platform.Bounds{X: 40, Y: 50, Width: 1024, Height: 768}) {
		t.Errorf("Frame() after move and resize = %+v", frame)
	}

	if err := w2.SetMinimized(true); err != nil {
		t.Fatal(err)
	}
	if minimized, _ := w2.IsMinimized(); !minimized {
		t.Error("SetMinimized(true) did not minimize")
	}
	if err := w2.Focus(); err != nil {
		t.Fatal(err)
	}
	if b.Get(w2.ID(), platform.AttrMain) != true {
		t.Error("Focus did not set AXMain")
	}

	if err := app.Element().Move(0, 0); !errors.Is(err, ErrAttributeNotSettable) {
		t.Errorf("moving the application root: expected ErrAttributeNotSettable, got %v", err)
	}
}

func TestElement_Errors(t *testing.T) {
	b, _, w1, w2 := newTestApp(t)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "missing attribute",
			call: func() error { _, err := w1.Attribute("AXDescription"); return err },
			want: ErrAttributeUnavailable,
		},
		{
			name: "read-only attribute",
			call: func() error { return w1.SetAttribute(platform.AttrTitle, "x") },
			want: ErrAttributeNotSettable,
		},
		{
			name: "unsupported action",
			call: func() error { return w1.PerformAction(platform.ActionPress) },
			want: ErrActionUnavailable,
		},
		{
			name: "wrong type",
			call: func() error { _, err := w1.BoolAttribute(platform.AttrTitle); return err },
			want: ErrAttributeUnavailable,
		},
		{
			name: "zero element",
			call: func() error { _, err := Element{}.Title(); return err },
			want: ErrElementGone,
		},
		{
			name: "destroyed window",
			call: func() error {
				b.DestroyWindow(w2.ID())
				_, err := w2.Title()
				return err
			},
			want: ErrElementGone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var elErr *ElementError
			if !errors.As(err, &elErr) {
				t.Errorf("expected *ElementError, got %T", err)
			}
		})
	}
}

func TestElement_Identity(t *testing.T) {
	b, app, w1, w2 := newTestApp(t)

	if w1 == w2 || w1.Equal(w2) {
		t.Error("distinct windows compare equal")
	}
	if w1.Application() != app || !app.Owns(w1) {
		t.Error("window does not belong to its application")
	}
	if app.Element().IsZero() || !(Element{}).IsZero() {
		t.Error("IsZero misreports")
	}
	if !strings.Contains(w1.String(), "pid=100") {
		t.Errorf("String() = %q", w1.String())
	}

	again := NewWorkspace(b.Provider()).ApplicationFromProcess(platform.Process{PID: testPID, Name: "Safari"})
	windows, err := again.Windows()
	if err != nil {
		t.Fatal(err)
	}
	if !windows[0].Equal(w1) || windows[0].ID() != w1.ID() {
		t.Error("the same window through another Application should be Equal")
	}
	if windows[0] == w1 {
		t.Error("Elements of different Application values should differ under ==")
	}
}

func TestElementError_Message(t *testing.T) {
	err := &ElementError{Op: "observe AXWindowMoved", ID: 42, Err: ErrElementGone}
	if got := err.Error(); !strings.Contains(got, "observe AXWindowMoved") || !strings.Contains(got, "42") {
		t.Errorf("Error() = %q", got)
	}
	if !IsGone(err) || !IsGone(ErrProcessGone) || IsGone(ErrAttributeUnavailable) {
		t.Error("IsGone misclassifies errors")
	}
}
