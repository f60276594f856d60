package cmd

import (
	"fmt"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/spf13/cobra"
)

// ControlResult is the output of the application control commands.
type ControlResult struct {
	OK     bool   `yaml:"ok"               json:"ok"`
	Action string `yaml:"action"           json:"action"`
	App    string `yaml:"app"              json:"app"`
	PID    int    `yaml:"pid"              json:"pid"`
	Window uint64 `yaml:"window,omitempty" json:"window,omitempty"`
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide an application",
	RunE: controlRunner("hide", func(cmd *cobra.Command, app *ax.Application, res *ControlResult) error {
		return app.Hide()
	}),
}

var unhideCmd = &cobra.Command{
	Use:   "unhide",
	Short: "Show a hidden application",
	RunE: controlRunner("unhide", func(cmd *cobra.Command, app *ax.Application, res *ControlResult) error {
		return app.Unhide()
	}),
}

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Terminate an application",
	Long:  "Ask an application to quit (SIGTERM), or kill it outright with --force (SIGKILL).",
	RunE: controlRunner("kill", func(cmd *cobra.Command, app *ax.Application, res *ControlResult) error {
		if force, _ := cmd.Flags().GetBool("force"); force {
			res.Action = "kill9"
			app.Kill9()
			return nil
		}
		app.Kill()
		return nil
	}),
}

var raiseCmd = &cobra.Command{
	Use:   "raise",
	Short: "Bring a window to the front",
	Long:  "Raise a window of an application: the one given by --window-id, or its first window.",
	RunE: controlRunner("raise", func(cmd *cobra.Command, app *ax.Application, res *ControlResult) error {
		id, _ := cmd.Flags().GetUint64("window-id")
		win, err := app.Window(platform.ElementID(id))
		if err != nil {
			return err
		}
		res.Window = uint64(win.ID())
		return win.Raise()
	}),
}

func init() {
	for _, c := range []*cobra.Command{hideCmd, unhideCmd, killCmd, raiseCmd} {
		rootCmd.AddCommand(c)
		addAppFlags(c, "to act on")
	}
	killCmd.Flags().Bool("force", false, "Send SIGKILL instead of SIGTERM")
	raiseCmd.Flags().Uint64("window-id", 0, "Window ID from the windows command (default: first window)")
}

func controlRunner(action string, fn func(*cobra.Command, *ax.Application, *ControlResult) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := requireApp(cmd)
		if err != nil {
			return err
		}
		res := &ControlResult{OK: true, Action: action, App: app.Name(), PID: app.PID()}
		if err := fn(cmd, app, res); err != nil {
			return fmt.Errorf("%s %s: %w", action, app, err)
		}
		logger.Info().Str("action", res.Action).Int("pid", app.PID()).Msg("app control")
		return output.Fprint(cmd.OutOrStdout(), res)
	}
}
