package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mj1618/desktop-ax/internal/config"
	"github.com/mj1618/desktop-ax/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing desktop-ax tools",
	Long: `Start a Model Context Protocol (MCP) server. AI agents can list applications
and windows, hide, raise or terminate applications, and run watch sessions
whose events they poll.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  desktop-ax serve
  desktop-ax serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "", "Transport: stdio, streamable-http (default from config, else stdio)")
	serveCmd.Flags().Int("port", 0, "HTTP port for streamable-http transport (default from config, else 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	serveCfg := cfg.Serve
	if transport, _ := cmd.Flags().GetString("transport"); transport != "" {
		serveCfg.Transport = transport
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		serveCfg.Port = port
	}

	srv, err := server.New(workspace(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn().Err(err).Msg("close watch sessions")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.File != "" {
		reloadServer(ctx, srv)
	}
	if simBackend != nil {
		b, events := simBackend, scenario.Events
		go func() {
			if err := b.Play(ctx, events); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("scenario playback")
			}
		}()
	}
	return srv.Serve(ctx, serveCfg)
}

// reloadServer hands config file changes to srv until ctx is done.
func reloadServer(ctx context.Context, srv *server.Server) {
	updates, err := config.NewWatcher(cfg.File, cfg, logger).Watch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("config changes will not apply while serving")
		return
	}
	go func() {
		for c := range updates {
			if err := srv.Apply(c); err != nil {
				logger.Warn().Err(err).Msg("apply reloaded config")
				continue
			}
			logger.Info().Msg("config reloaded")
		}
	}()
}
