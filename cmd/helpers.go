package cmd

import (
	"fmt"
	"strings"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/spf13/cobra"
)

// addAppFlags adds the --pid and --app flags that pick applications.
func addAppFlags(cmd *cobra.Command, help string) {
	cmd.Flags().Int("pid", 0, "Process ID of the application "+help)
	cmd.Flags().String("app", "", "Name or bundle ID of the application "+help)
}

// selectApps returns the applications picked by --pid/--app, or every running
// application when neither is set.
func selectApps(cmd *cobra.Command) ([]*ax.Application, error) {
	pid, _ := cmd.Flags().GetInt("pid")
	name, _ := cmd.Flags().GetString("app")
	return workspace().Select(pid, name)
}

// requireApp returns the one application picked by --pid/--app.
func requireApp(cmd *cobra.Command) (*ax.Application, error) {
	if err := requireScope(cmd); err != nil {
		return nil, err
	}
	apps, err := selectApps(cmd)
	if err != nil {
		return nil, err
	}
	return apps[0], nil
}

func requireScope(cmd *cobra.Command) error {
	pid, _ := cmd.Flags().GetInt("pid")
	name, _ := cmd.Flags().GetString("app")
	if pid == 0 && name == "" {
		return fmt.Errorf("--app or --pid is required")
	}
	return nil
}

// parseKinds splits a comma-separated --notifications value.
func parseKinds(s string) ([]platform.Notification, error) {
	kinds, err := platform.ParseNotifications(strings.Split(s, ","))
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no notifications given")
	}
	return kinds, nil
}
