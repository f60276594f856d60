package cmd

import (
	"encoding/json"
	"testing"

	"github.com/mj1618/desktop-ax/internal/model"
)

func TestListCommand_Flags(t *testing.T) {
	tests := []struct {
		cmd      string
		name     string
		flagType string
	}{
		{"list", "floating", "bool"},
		{"windows", "pid", "int"},
		{"windows", "app", "string"},
		{"windows", "visible", "bool"},
		{"watch", "notifications", "string"},
		{"watch", "rate", "float64"},
		{"watch", "duration", "int"},
		{"wait", "for", "string"},
		{"wait", "timeout", "int"},
		{"kill", "force", "bool"},
		{"raise", "window-id", "uint64"},
		{"focus", "window", "string"},
		{"set-frame", "width", "int"},
		{"set-frame", "minimize", "bool"},
		{"serve", "transport", "string"},
		{"serve", "port", "int"},
	}

	for _, tt := range tests {
		c, _, err := rootCmd.Find([]string{tt.cmd})
		if err != nil || c.Name() != tt.cmd {
			t.Errorf("command %q not found", tt.cmd)
			continue
		}
		f := c.Flags().Lookup(tt.name)
		if f == nil {
			t.Errorf("%s: expected flag %q not found", tt.cmd, tt.name)
			continue
		}
		if f.Value.Type() != tt.flagType {
			t.Errorf("%s: flag %q: expected type %q, got %q", tt.cmd, tt.name, tt.flagType, f.Value.Type())
		}
	}
}

func TestListCommand_IsRegistered(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "list" {
			return
		}
	}
	t.Error("list command not registered on root")
}

func TestListCommand_Run(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"all", []string{"list"}, []string{"Safari", "Notes"}},
		{"floating", []string{"list", "--floating"}, []string{"Notes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, desktop, append(tt.args, "--format", "json")...)
			if err != nil {
				t.Fatal(err)
			}
			var apps []model.App
			if err := json.Unmarshal([]byte(out), &apps); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if len(apps) != len(tt.want) {
				t.Fatalf("got %d apps, want %d: %+v", len(apps), len(tt.want), apps)
			}
			for i, name := range tt.want {
				if apps[i].Name != name {
					t.Errorf("apps[%d] = %q, want %q", i, apps[i].Name, name)
				}
			}
		})
	}
}
