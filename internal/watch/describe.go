package watch

import (
	"errors"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/model"
)

// AppInfo summarizes an application. Attributes the application does not
// expose are left at their zero value.
func AppInfo(app *ax.Application) model.App {
	info := model.App{
		Name:     app.Name(),
		PID:      app.PID(),
		BundleID: app.BundleID(),
		Floating: app.Floating(),
	}
	info.Title, _ = app.Title()
	info.Hidden, _ = app.IsHidden()
	if windows, err := app.Windows(); err == nil {
		info.Windows = len(windows)
	}
	return info
}

// WindowInfo describes one window of app. focused is compared against el to
// set the Focused flag; pass the zero Element to skip it.
func WindowInfo(app *ax.Application, el, focused ax.Element) (model.Window, error) {
	title, err := el.Title()
	if err != nil && !isMissing(err) {
		return model.Window{}, err
	}
	w := model.Window{
		App:     app.Name(),
		PID:     app.PID(),
		Title:   title,
		ID:      uint64(el.ID()),
		Focused: !focused.IsZero() && focused == el,
	}
	if frame, err := el.Frame(); err == nil {
		w.Bounds = [4]int{frame.X, frame.Y, frame.Width, frame.Height}
	} else if !isMissing(err) {
		return model.Window{}, err
	}
	if subrole, err := el.Subrole(); err == nil {
		w.Kind = model.MapSubrole(subrole)
	} else if !isMissing(err) {
		return model.Window{}, err
	}
	if minimized, err := el.IsMinimized(); err == nil {
		w.Minimized = minimized
	} else if !isMissing(err) {
		return model.Window{}, err
	}
	return w, nil
}

// ListWindows describes the windows of app in platform order, skipping windows
// that disappear while being read. With visibleOnly, minimized windows and the
// windows of a hidden application are left out.
func ListWindows(app *ax.Application, visibleOnly bool) ([]model.Window, error) {
	var (
		windows []ax.Element
		err     error
	)
	if visibleOnly {
		windows, err = app.VisibleWindows()
	} else {
		windows, err = app.Windows()
	}
	if err != nil {
		return nil, err
	}
	focused, _ := app.FocusedWindow()

	out := make([]model.Window, 0, len(windows))
	for _, el := range windows {
		w, err := WindowInfo(app, el, focused)
		if ax.IsGone(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func isMissing(err error) bool {
	return errors.Is(err, ax.ErrAttributeUnavailable)
}

// FilterKinds keeps the windows whose kind is one of kinds, after meta-kinds
// such as "normal" are expanded. An empty kinds list keeps everything.
func FilterKinds(windows []model.Window, kinds []string) []model.Window {
	want := model.ExpandKinds(kinds)
	if len(want) == 0 {
		return windows
	}
	out := make([]model.Window, 0, len(windows))
	for _, w := range windows {
		for _, k := range want {
			if w.Kind == k {
				out = append(out, w)
				break
			}
		}
	}
	return out
}
