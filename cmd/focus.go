package cmd

import (
	"fmt"
	"strings"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/spf13/cobra"
)

// FocusResult is the output of a successful focus.
type FocusResult struct {
	OK       bool   `yaml:"ok"                 json:"ok"`
	Action   string `yaml:"action"             json:"action"`
	App      string `yaml:"app"                json:"app"`
	PID      int    `yaml:"pid"                json:"pid"`
	Window   string `yaml:"window,omitempty"   json:"window,omitempty"`
	WindowID uint64 `yaml:"window_id"          json:"window_id"`
	Unhidden bool   `yaml:"unhidden,omitempty" json:"unhidden,omitempty"`
}

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Bring a window to the foreground",
	Long: `Focus a window: unhide its application if needed, raise the window and make
it the main window. The window is picked by --window-id, by --window title
substring, or defaults to the application's first window.`,
	RunE: runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
	addAppFlags(focusCmd, "owning the window")
	focusCmd.Flags().String("window", "", "Focus window by title substring")
	focusCmd.Flags().Uint64("window-id", 0, "Focus window by ID from the windows command")
}

func runFocus(cmd *cobra.Command, args []string) error {
	app, err := requireApp(cmd)
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("window")
	id, _ := cmd.Flags().GetUint64("window-id")

	win, err := pickWindow(app, title, platform.ElementID(id))
	if err != nil {
		return err
	}

	res := FocusResult{OK: true, Action: "focus", App: app.Name(), PID: app.PID(), WindowID: uint64(win.ID())}
	res.Window, _ = win.Title()
	if hidden, err := app.IsHidden(); err == nil && hidden {
		if err := app.Unhide(); err != nil {
			return fmt.Errorf("unhide %s: %w", app, err)
		}
		res.Unhidden = true
	}
	if err := win.Raise(); err != nil {
		return fmt.Errorf("raise %s: %w", win, err)
	}
	if err := win.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", win, err)
	}
	return output.Fprint(cmd.OutOrStdout(), res)
}

// pickWindow selects a window by ID, else by case-insensitive title substring,
// else the first window.
func pickWindow(app *ax.Application, title string, id platform.ElementID) (ax.Element, error) {
	if id != 0 || title == "" {
		return app.Window(id)
	}
	windows, err := app.Windows()
	if err != nil {
		return ax.Element{}, err
	}
	needle := strings.ToLower(title)
	for _, w := range windows {
		t, err := w.Title()
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(t), needle) {
			return w, nil
		}
	}
	return ax.Element{}, fmt.Errorf("%w: %s has no window titled %q", ax.ErrWindowNotFound, app, title)
}
