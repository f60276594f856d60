package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mj1618/desktop-ax/internal/ax"
	"github.com/mj1618/desktop-ax/internal/model"
	"github.com/mj1618/desktop-ax/internal/output"
	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/mj1618/desktop-ax/internal/watch"
)

func (s *Server) registerTools() {
	// list_apps
	s.mcp.AddTool(
		mcp.NewTool("list_apps",
			mcp.WithDescription("List running applications that have an accessible UI, with their PID, bundle ID, hidden state and window count"),
		),
		s.handleListApps,
	)

	// list_windows
	s.mcp.AddTool(
		mcp.NewTool("list_windows",
			mcp.WithDescription("List the windows of one application, or of every application when neither app nor pid is given"),
			mcp.WithString("app", mcp.Description("Application name or bundle ID (e.g. 'Safari')")),
			mcp.WithNumber("pid", mcp.Description("Process ID")),
			mcp.WithBoolean("visible", mcp.Description("Leave out minimized windows and windows of hidden applications")),
			mcp.WithString("kind", mcp.Description("Comma-separated window kinds to keep: standard, dialog, floating, fullscreen, other, or normal (standard and dialog)")),
		),
		s.handleListWindows,
	)

	// app_control
	s.mcp.AddTool(
		mcp.NewTool("app_control",
			mcp.WithDescription("Hide, unhide or terminate an application, or raise one of its windows"),
			mcp.WithString("action", mcp.Description("One of: hide, unhide, kill, kill9, raise"), mcp.Required()),
			mcp.WithString("app", mcp.Description("Application name or bundle ID")),
			mcp.WithNumber("pid", mcp.Description("Process ID")),
			mcp.WithNumber("window-id", mcp.Description("Window ID from list_windows (raise only; default: first window)")),
		),
		s.handleAppControl,
	)

	// watch_start
	s.mcp.AddTool(
		mcp.NewTool("watch_start",
			mcp.WithDescription("Start observing accessibility notifications. Returns a session ID for watch_poll and watch_stop. The first events of a session are one snapshot per application."),
			mcp.WithString("app", mcp.Description("Application name or bundle ID (default: every application)")),
			mcp.WithNumber("pid", mcp.Description("Process ID")),
			mcp.WithString("notifications", mcp.Description("Comma-separated kinds, as AX names or aliases: created, destroyed, moved, resized, minimized, deminimized, title, focused, main, activated, deactivated, hidden, shown. Default: the configured set")),
		),
		s.handleWatchStart,
	)

	// watch_poll
	s.mcp.AddTool(
		mcp.NewTool("watch_poll",
			mcp.WithDescription("Return the events buffered by a watch session since the last poll, oldest first"),
			mcp.WithString("session", mcp.Description("Session ID from watch_start"), mcp.Required()),
			mcp.WithNumber("max", mcp.Description("Max events to return (0 = all)")),
		),
		s.handleWatchPoll,
	)

	// watch_stop
	s.mcp.AddTool(
		mcp.NewTool("watch_stop",
			mcp.WithDescription("Stop a watch session. Returns the events still buffered followed by a done event with totals."),
			mcp.WithString("session", mcp.Description("Session ID from watch_start"), mcp.Required()),
		),
		s.handleWatchStop,
	)

	// watch_list
	s.mcp.AddTool(
		mcp.NewTool("watch_list",
			mcp.WithDescription("List running watch sessions"),
		),
		s.handleWatchList,
	)
}

// textResult serializes v to YAML for an MCP response.
func textResult(v interface{}) (*mcp.CallToolResult, error) {
	text, err := output.YAML(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// selectApps resolves the app and pid arguments.
func (s *Server) selectApps(params map[string]interface{}) ([]*ax.Application, error) {
	return s.ws.Select(IntParam(params, "pid", 0), StringParam(params, "app", ""))
}

func (s *Server) handleListApps(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, err := s.ws.RunningApplications()
	if err != nil {
		return errorResult(err)
	}
	infos := make([]model.App, 0, len(apps))
	for _, app := range apps {
		infos = append(infos, watch.AppInfo(app))
	}
	return textResult(infos)
}

func (s *Server) handleListWindows(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	apps, err := s.selectApps(params)
	if err != nil {
		return errorResult(err)
	}
	visible := BoolParam(params, "visible", false)

	windows := []model.Window{}
	for _, app := range apps {
		list, err := watch.ListWindows(app, visible)
		if ax.IsGone(err) {
			continue
		}
		if err != nil {
			return errorResult(fmt.Errorf("%s: %w", app, err))
		}
		windows = append(windows, list...)
	}
	return textResult(watch.FilterKinds(windows, ListParam(params, "kind")))
}

// controlResult is the response of app_control.
type controlResult struct {
	OK     bool   `yaml:"ok"`
	Action string `yaml:"action"`
	App    string `yaml:"app"`
	PID    int    `yaml:"pid"`
	Window uint64 `yaml:"window,omitempty"`
}

func (s *Server) handleAppControl(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	action := StringParam(params, "action", "")
	if IntParam(params, "pid", 0) == 0 && StringParam(params, "app", "") == "" {
		return errorResult(fmt.Errorf("app or pid is required"))
	}
	apps, err := s.selectApps(params)
	if err != nil {
		return errorResult(err)
	}
	app := apps[0]
	result := controlResult{OK: true, Action: action, App: app.Name(), PID: app.PID()}

	switch action {
	case "hide":
		err = app.Hide()
	case "unhide":
		err = app.Unhide()
	case "kill":
		app.Kill()
	case "kill9":
		app.Kill9()
	case "raise":
		var win ax.Element
		win, err = app.Window(platform.ElementID(IntParam(params, "window-id", 0)))
		if err == nil {
			result.Window = uint64(win.ID())
			err = win.Raise()
		}
	default:
		err = fmt.Errorf("unknown action %q (use hide, unhide, kill, kill9 or raise)", action)
	}
	if err != nil {
		return errorResult(err)
	}
	s.log.Info().Str("action", action).Int("pid", app.PID()).Msg("app control")
	return textResult(result)
}

// sessionResult is the response of watch_start.
type sessionResult struct {
	Session string   `yaml:"session"`
	Apps    []string `yaml:"apps"`
	Kinds   []string `yaml:"kinds"`
}

func (s *Server) handleWatchStart(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	kinds, err := platform.ParseNotifications(ListParam(params, "notifications"))
	if err != nil {
		return errorResult(err)
	}
	apps, err := s.selectApps(params)
	if err != nil {
		return errorResult(err)
	}
	sess, err := s.sessions.Start(apps, kinds)
	if err != nil {
		return errorResult(err)
	}
	for _, info := range s.sessions.List() {
		if info.ID == sess.ID {
			return textResult(sessionResult{Session: info.ID, Apps: info.Apps, Kinds: info.Kinds})
		}
	}
	return textResult(sessionResult{Session: sess.ID})
}

// pollResult is the response of watch_poll and watch_stop.
type pollResult struct {
	Session string        `yaml:"session"`
	Dropped int           `yaml:"dropped,omitempty"`
	Events  []model.Event `yaml:"events"`
}

func (s *Server) handleWatchPoll(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	id := StringParam(params, "session", "")
	events, dropped, err := s.sessions.Poll(id, IntParam(params, "max", 0))
	if err != nil {
		return errorResult(err)
	}
	return textResult(pollResult{Session: id, Dropped: dropped, Events: events})
}

func (s *Server) handleWatchStop(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := StringParam(request.GetArguments(), "session", "")
	events, err := s.sessions.Stop(id)
	if events == nil && err != nil {
		return errorResult(err)
	}
	if err != nil {
		s.log.Warn().Str("session", id).Err(err).Msg("watch session stopped with errors")
	}
	return textResult(pollResult{Session: id, Events: events})
}

func (s *Server) handleWatchList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(s.sessions.List())
}
