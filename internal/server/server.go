// Package server exposes desktop-ax over the Model Context Protocol: listing
// applications and windows, controlling applications, and watch sessions
// whose events an agent polls.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/config"
	"github.com/mj1618/desktop-ax/internal/version"
	"github.com/mj1618/desktop-ax/internal/watch"
	"github.com/rs/zerolog"
)

// Server wraps the MCP server with the workspace and the watch sessions.
type Server struct {
	ws       *ax.Workspace
	sessions *watch.Manager
	log      zerolog.Logger
	mcp      *mcpserver.MCPServer
}

// New creates an MCP server with every desktop-ax tool registered.
func New(ws *ax.Workspace, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	mcfg, err := managerConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ws:       ws,
		sessions: watch.NewManager(mcfg),
		log:      log,
	}
	s.mcp = mcpserver.NewMCPServer(
		"desktop-ax",
		version.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	return s, nil
}

func managerConfig(cfg *config.Config, log zerolog.Logger) (watch.ManagerConfig, error) {
	kinds, err := cfg.Notifications()
	if err != nil {
		return watch.ManagerConfig{}, err
	}
	return watch.ManagerConfig{
		Kinds:  kinds,
		Buffer: cfg.Watch.Buffer,
		Rate:   cfg.Watch.Rate,
		Burst:  cfg.Watch.Burst,
		Log:    log,
	}, nil
}

// Apply switches to a reloaded configuration. Running sessions started
// without explicit notifications pick up the new set.
func (s *Server) Apply(cfg *config.Config) error {
	mcfg, err := managerConfig(cfg, s.log)
	if err != nil {
		return err
	}
	return s.sessions.Reconfigure(mcfg)
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// Serve runs the server on the configured transport until ctx is done or the
// client disconnects.
func (s *Server) Serve(ctx context.Context, cfg config.ServeConfig) error {
	s.log.Info().Str("transport", cfg.Transport).Int("port", cfg.Port).Msg("mcp server starting")
	switch cfg.Transport {
	case "stdio":
		stdio := mcpserver.NewStdioServer(s.mcp)
		stdio.SetErrorLogger(log.New(s.log, "", 0))
		return stdio.Listen(ctx, os.Stdin, os.Stdout)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		errc := make(chan error, 1)
		go func() { errc <- httpServer.Start(fmt.Sprintf(":%d", cfg.Port)) }()
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			if err := httpServer.Shutdown(context.Background()); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

// Close stops every watch session.
func (s *Server) Close() error {
	return s.sessions.Close()
}
