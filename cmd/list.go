package cmd

import (
	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/watch"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List running applications",
	Long:  "List running applications that have an accessible UI, with their name, PID, bundle ID, hidden state and window count.",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("floating", false, "Only list floating applications")
}

func runList(cmd *cobra.Command, args []string) error {
	apps, err := workspace().RunningApplications()
	if err != nil {
		return err
	}
	floatingOnly, _ := cmd.Flags().GetBool("floating")

	entries := []model.App{}
	for _, app := range apps {
		if floatingOnly && !app.Floating() {
			continue
		}
		entries = append(entries, watch.AppInfo(app))
	}
	return output.Fprint(cmd.OutOrStdout(), entries)
}
