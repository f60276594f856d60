package cmd

import (
	"fmt"

	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/mj1618/desktop-ax/internal/watch"
	"github.com/spf13/cobra"
)

// FrameResult is the output of a successful set-frame command.
type FrameResult struct {
	OK     bool         `yaml:"ok"     json:"ok"`
	Action string       `yaml:"action" json:"action"`
	Window model.Window `yaml:"window" json:"window"`
}

var setFrameCmd = &cobra.Command{
	Use:   "set-frame",
	Short: "Move, resize, minimize or restore a window",
	Long: `Set a window's position and size through the accessibility API.

Only the given values change: --x/--y move the window, --width/--height
resize it. --minimize and --restore toggle its minimized state. The window is
picked by --window-id, by --window title substring, or defaults to the
application's first window.

Examples:
  desktop-ax set-frame --app Safari --x 0 --y 25
  desktop-ax set-frame --app Notes --window "Groceries" --width 600 --height 400
  desktop-ax set-frame --pid 4242 --window-id 17 --minimize`,
	RunE: runSetFrame,
}

func init() {
	rootCmd.AddCommand(setFrameCmd)
	addAppFlags(setFrameCmd, "owning the window")
	setFrameCmd.Flags().String("window", "", "Pick window by title substring")
	setFrameCmd.Flags().Uint64("window-id", 0, "Pick window by ID from the windows command")
	setFrameCmd.Flags().Int("x", 0, "New left edge")
	setFrameCmd.Flags().Int("y", 0, "New top edge")
	setFrameCmd.Flags().Int("width", 0, "New width")
	setFrameCmd.Flags().Int("height", 0, "New height")
	setFrameCmd.Flags().Bool("minimize", false, "Minimize the window")
	setFrameCmd.Flags().Bool("restore", false, "Restore a minimized window")
	setFrameCmd.MarkFlagsMutuallyExclusive("minimize", "restore")
}

func runSetFrame(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	move := flags.Changed("x") || flags.Changed("y")
	resize := flags.Changed("width") || flags.Changed("height")
	minimize, _ := flags.GetBool("minimize")
	restore, _ := flags.GetBool("restore")
	if !move && !resize && !minimize && !restore {
		return fmt.Errorf("nothing to change: give --x/--y, --width/--height, --minimize or --restore")
	}

	app, err := requireApp(cmd)
	if err != nil {
		return err
	}
	title, _ := flags.GetString("window")
	id, _ := flags.GetUint64("window-id")
	win, err := pickWindow(app, title, platform.ElementID(id))
	if err != nil {
		return err
	}

	// A minimized window ignores geometry changes, so restore first.
	if restore {
		if err := win.SetMinimized(false); err != nil {
			return fmt.Errorf("restore %s: %w", win, err)
		}
	}
	if move || resize {
		frame, err := win.Frame()
		if err != nil {
			return fmt.Errorf("read frame of %s: %w", win, err)
		}
		if move {
			x, y := frame.X, frame.Y
			if flags.Changed("x") {
				x, _ = flags.GetInt("x")
			}
			if flags.Changed("y") {
				y, _ = flags.GetInt("y")
			}
			if err := win.Move(x, y); err != nil {
				return fmt.Errorf("move %s: %w", win, err)
			}
		}
		if resize {
			width, height := frame.Width, frame.Height
			if flags.Changed("width") {
				width, _ = flags.GetInt("width")
			}
			if flags.Changed("height") {
				height, _ = flags.GetInt("height")
			}
			if width <= 0 || height <= 0 {
				return fmt.Errorf("invalid size %dx%d", width, height)
			}
			if err := win.Resize(width, height); err != nil {
				return fmt.Errorf("resize %s: %w", win, err)
			}
		}
	}
	if minimize {
		if err := win.SetMinimized(true); err != nil {
			return fmt.Errorf("minimize %s: %w", win, err)
		}
	}

	focused, _ := app.FocusedWindow()
	info, err := watch.WindowInfo(app, win, focused)
	if err != nil {
		return err
	}
	logger.Info().Uint64("window", info.ID).Ints("bounds", info.Bounds[:]).Msg("set frame")
	return output.Fprint(cmd.OutOrStdout(), FrameResult{OK: true, Action: "set-frame", Window: info})
}
