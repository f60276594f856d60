package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/mj1618/desktop-ax/internal/watch"
	"github.com/spf13/cobra"
)

// WaitResult is the output of a wait command.
type WaitResult struct {
	OK       bool          `yaml:"ok"                  json:"ok"`
	Action   string        `yaml:"action"              json:"action"`
	Elapsed  string        `yaml:"elapsed"             json:"elapsed"`
	Match    string        `yaml:"match"               json:"match"`
	TimedOut bool          `yaml:"timed_out,omitempty" json:"timed_out,omitempty"`
	App      string        `yaml:"app,omitempty"       json:"app,omitempty"`
	PID      int           `yaml:"pid,omitempty"       json:"pid,omitempty"`
	Window   *model.Window `yaml:"window,omitempty"    json:"window,omitempty"`
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for an accessibility notification",
	Long: `Block until an application raises a notification, e.g. a window is created or
changes title, or the timeout is reached. With --window only notifications
about a window whose title contains the text count.

Examples:
  desktop-ax wait --app Safari --for created
  desktop-ax wait --app Mail --for title --window "Inbox" --timeout 60`,
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	addAppFlags(waitCmd, "to wait on (default: every application)")
	waitCmd.Flags().String("for", "", "Notification to wait for, e.g. created, title, moved, hidden")
	waitCmd.Flags().String("window", "", "Only count notifications about a window whose title contains this text")
	waitCmd.Flags().Int("timeout", 30, "Max seconds to wait")
}

func runWait(cmd *cobra.Command, args []string) error {
	forStr, _ := cmd.Flags().GetString("for")
	if forStr == "" {
		return fmt.Errorf("--for is required (e.g. created, title, moved)")
	}
	kind, err := platform.ParseNotification(forStr)
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("window")
	timeoutSec, _ := cmd.Flags().GetInt("timeout")

	apps, err := selectApps(cmd)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		return fmt.Errorf("no applications to wait on")
	}

	matched := make(chan model.Event, 1)
	w := watch.New(apps, []platform.Notification{kind}, func(ev model.Event) {
		if ev.Type != model.EventNotification || !windowMatches(ev, title) {
			return
		}
		select {
		case matched <- ev:
		default:
		}
	}, watch.Options{Log: logger})

	start := time.Now()
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			logger.Debug().Err(err).Msg("stop waiting")
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if simBackend != nil {
		b, events := simBackend, scenario.Events
		go func() {
			if err := b.Play(ctx, events); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("scenario playback")
			}
		}()
	}

	desc := describeWait(kind, title)
	select {
	case ev := <-matched:
		return output.Fprint(cmd.OutOrStdout(), WaitResult{
			OK:      true,
			Action:  "wait",
			Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
			Match:   desc,
			App:     ev.App,
			PID:     ev.PID,
			Window:  ev.Window,
		})
	case <-ctx.Done():
		// Print the result, then return an error for non-zero exit code
		_ = output.Fprint(cmd.OutOrStdout(), WaitResult{
			OK:       false,
			Action:   "wait",
			Elapsed:  fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
			Match:    desc,
			TimedOut: true,
		})
		return fmt.Errorf("timed out waiting for %s", desc)
	}
}

func windowMatches(ev model.Event, title string) bool {
	if title == "" {
		return true
	}
	return ev.Window != nil && strings.Contains(strings.ToLower(ev.Window.Title), strings.ToLower(title))
}

// describeWait returns a human-readable description of what was waited for.
func describeWait(kind platform.Notification, title string) string {
	if title == "" {
		return kind.Short()
	}
	return fmt.Sprintf("%s window=%q", kind.Short(), title)
}
