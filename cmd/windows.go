package cmd

import (
	"fmt"
	"strings"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/watch"
	"github.com/spf13/cobra"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List windows",
	Long: `List the windows of one application, or of every application when neither
--app nor --pid is given, with title, ID, kind, bounds and focus/minimized state.`,
	RunE: runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
	addAppFlags(windowsCmd, "whose windows to list")
	windowsCmd.Flags().Bool("visible", false, "Leave out minimized windows and windows of hidden applications")
	windowsCmd.Flags().String("kind", "", "Comma-separated window kinds: standard, dialog, floating, fullscreen, other, normal")
}

func runWindows(cmd *cobra.Command, args []string) error {
	apps, err := selectApps(cmd)
	if err != nil {
		return err
	}
	visible, _ := cmd.Flags().GetBool("visible")
	kind, _ := cmd.Flags().GetString("kind")

	windows := []model.Window{}
	for _, app := range apps {
		list, err := watch.ListWindows(app, visible)
		if ax.IsGone(err) {
			logger.Debug().Int("pid", app.PID()).Msg("application went away while listing")
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", app, err)
		}
		windows = append(windows, list...)
	}
	return output.Fprint(cmd.OutOrStdout(), watch.FilterKinds(windows, strings.Split(kind, ",")))
}
