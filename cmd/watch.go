package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mj1618/desktop-ax/internal/config"
	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/mj1618/desktop-ax/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream accessibility notifications as JSONL",
	Long: `Observe accessibility notifications on every application root and window and
emit one JSON object per line to stdout.

Line types:
  snapshot  the windows of an application when watching starts
  event     one notification (kind, element, and the window it concerns)
  windows   windows appeared, disappeared or changed after a create/destroy
  error     an application could not be read
  done      totals, when watching stops

Output is always JSONL regardless of the --format flag. Without
--notifications the configured set is used, and edits to the config file
apply while watching.

Use Ctrl+C or --duration to stop watching.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addAppFlags(watchCmd, "to watch (default: every application)")
	watchCmd.Flags().String("notifications", "", "Comma-separated kinds, e.g. \"moved,resized,title\" (default from config)")
	watchCmd.Flags().Float64("rate", -1, "Max moved/resized events per second per window (0 = unlimited; default from config)")
	watchCmd.Flags().Int("duration", 0, "Max seconds to watch (0 = until Ctrl+C)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	apps, err := selectApps(cmd)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		return fmt.Errorf("no applications to watch")
	}

	kinds, err := cfg.Notifications()
	if err != nil {
		return err
	}
	explicit := cmd.Flags().Changed("notifications")
	if explicit {
		s, _ := cmd.Flags().GetString("notifications")
		if kinds, err = parseKinds(s); err != nil {
			return err
		}
	}
	rate := cfg.Watch.Rate
	if r, _ := cmd.Flags().GetFloat64("rate"); r >= 0 {
		rate = r
	}
	durationSec, _ := cmd.Flags().GetInt("duration")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if durationSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(durationSec)*time.Second)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := output.NewLineWriter(cmd.OutOrStdout())
	limiter := watch.NewLimiter(rate, cfg.Watch.Burst)
	w := watch.New(apps, kinds, func(ev model.Event) {
		if err := lines.Write(ev); err != nil {
			logger.Error().Err(err).Msg("write event")
		}
	}, watch.Options{Limiter: limiter, Log: logger})

	start := time.Now()
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return err
	}
	logger.Info().Int("apps", len(apps)).Int("kinds", len(kinds)).Msg("watching")

	if !explicit && cfg.File != "" {
		followConfig(ctx, w)
	}
	if simBackend != nil {
		// A simulated desktop has nothing more to report once its script ends.
		b, events := simBackend, scenario.Events
		go func() {
			defer cancel()
			if err := b.Play(ctx, events); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("scenario playback")
			}
		}()
	}

	<-ctx.Done()
	stopErr := w.Stop()
	if err := lines.Write(model.Event{
		Type:    model.EventDone,
		TS:      time.Now().Unix(),
		Events:  w.Events(),
		Dropped: limiter.Dropped(),
		Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
	}); err != nil {
		return err
	}
	return stopErr
}

// followConfig applies notification set changes from the config file to w
// until ctx is done.
func followConfig(ctx context.Context, w *watch.Watcher) {
	updates, err := config.NewWatcher(cfg.File, cfg, logger).Watch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("config changes will not apply while watching")
		return
	}
	go func() {
		for c := range updates {
			kinds, err := c.Notifications()
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring reloaded config")
				continue
			}
			if err := w.SetNotifications(kinds); err != nil {
				logger.Warn().Err(err).Msg("apply reloaded notifications")
				continue
			}
			logger.Info().Strs("notifications", shortNames(kinds)).Msg("notifications reloaded")
		}
	}()
}

func shortNames(kinds []platform.Notification) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.Short()
	}
	return out
}
