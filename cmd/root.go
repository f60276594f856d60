package cmd

import (
	"fmt"
	"os"

	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/config"
	"github.com/mj1618/desktop-ax/internal/logging"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/mj1618/desktop-ax/internal/platform/sim"
	"github.com/mj1618/desktop-ax/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "desktop-ax",
	Short: "Observe and control desktop applications through accessibility",
	Long: `A CLI tool that lists running applications and their windows, hides, raises
and terminates them, and streams accessibility notifications (windows moving,
resizing, appearing, closing, changing title) as they happen.`,
	SilenceUsage: true,
}

// Set up by the root command before any subcommand runs.
var (
	cfg      *config.Config
	logger   = zerolog.Nop()
	provider *platform.Provider

	// Non-nil when running against --simulate.
	simBackend *sim.Backend
	scenario   *sim.Scenario
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "", "Output format: yaml, json (default from config, else yaml)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: <user config dir>/desktop-ax/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error, off")
	rootCmd.PersistentFlags().String("simulate", "", "Run against a simulated desktop described by a scenario YAML file")
	rootCmd.PersistentPreRunE = setup
}

// setup loads configuration, applies global flags on top of it and builds the
// platform provider.
func setup(cmd *cobra.Command, args []string) error {
	flags := rootCmd.PersistentFlags()

	path, _ := flags.GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		c.Log.Level = level
	}
	if format, _ := flags.GetString("format"); format != "" {
		c.Output.Format = format
	}
	if pretty, _ := flags.GetBool("pretty"); pretty {
		c.Output.Pretty = true
	}
	cfg = c
	logger = logging.New(c.Log.Level, cmd.ErrOrStderr())

	format, err := output.ParseFormat(c.Output.Format)
	if err != nil {
		return err
	}
	output.OutputFormat = format
	output.PrettyOutput = c.Output.Pretty

	simBackend, scenario = nil, nil
	if file, _ := flags.GetString("simulate"); file != "" {
		scenario, err = sim.LoadScenario(file)
		if err != nil {
			return err
		}
		simBackend = scenario.Build()
		provider = simBackend.Provider()
		logger.Info().Str("scenario", file).Msg("using simulated desktop")
		return nil
	}

	if platform.RequestPermissionsFunc != nil {
		platform.RequestPermissionsFunc()
	}
	provider, err = platform.NewProvider(logger)
	return err
}

// workspace returns a Workspace over the configured provider.
func workspace() *ax.Workspace {
	return ax.NewWorkspace(provider, ax.WithLogger(logger))
}
