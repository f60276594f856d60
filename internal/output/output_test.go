package output

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/mj1618/desktop-ax/internal/model"
	"gopkg.in/yaml.v3"
)

func sampleWindows() []model.Window {
	return []model.Window{
		{App: "Safari", PID: 1234, Title: "GitHub", ID: 7, Bounds: [4]int{10, 20, 100, 30}, Focused: true},
	}
}

func capture(t *testing.T, fn func(w io.Writer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestWriteYAML(t *testing.T) {
	output := capture(t, func(w io.Writer) error { return writeYAML(w, sampleWindows()) })

	// YAML output should be multi-line
	if strings.Count(output, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", output)
	}
	if !strings.Contains(output, "bounds: [10, 20, 100, 30]") {
		t.Errorf("bounds should be a flow sequence, got:\n%s", output)
	}

	var decoded []model.Window
	if err := yaml.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Title != "GitHub" || decoded[0].ID != 7 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteJSON_Compact(t *testing.T) {
	output := capture(t, func(w io.Writer) error { return writeJSON(w, sampleWindows(), false) })

	// Compact output should be a single line (plus newline from Encode)
	if strings.Count(output, "\n") > 1 {
		t.Errorf("compact output should be single line, got:\n%s", output)
	}
	var decoded []model.Window
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded[0].App != "Safari" {
		t.Errorf("app: got %q, want %q", decoded[0].App, "Safari")
	}
}

func TestWriteJSON_Pretty(t *testing.T) {
	output := capture(t, func(w io.Writer) error { return writeJSON(w, sampleWindows(), true) })
	if !strings.Contains(output, "\n  {") {
		t.Errorf("pretty output should be indented, got:\n%s", output)
	}
}

func TestFprint_FollowsFormat(t *testing.T) {
	defer func(f Format, p bool) { OutputFormat, PrettyOutput = f, p }(OutputFormat, PrettyOutput)

	tests := []struct {
		format Format
		pretty bool
		prefix string
	}{
		{FormatYAML, false, "- app: Safari"},
		{FormatJSON, false, `[{"app":"Safari"`},
		{FormatJSON, true, "[\n  {"},
	}
	for _, tt := range tests {
		OutputFormat, PrettyOutput = tt.format, tt.pretty
		var buf bytes.Buffer
		if err := Fprint(&buf, sampleWindows()); err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(buf.String(), tt.prefix) {
			t.Errorf("%s (pretty=%v): got %q, want prefix %q", tt.format, tt.pretty, buf.String(), tt.prefix)
		}
	}

	OutputFormat = "xml"
	if err := Fprint(&bytes.Buffer{}, 1); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "json"} {
		if f, err := ParseFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseFormat("agent"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSON_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(model.Event{Type: model.EventNotification, TS: 123, Kind: "AXWindowMoved"})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"app", "pid", "window", "changes", "error"} {
		if _, ok := m[key]; ok {
			t.Errorf("empty %s should be omitted", key)
		}
	}
	for _, key := range []string{"type", "ts", "kind"} {
		if _, ok := m[key]; !ok {
			t.Errorf("%s should be present", key)
		}
	}
}

func TestLineWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := lw.Write(model.Event{Type: model.EventNotification, TS: int64(i)}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		var ev model.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Errorf("line %q is not JSON: %v", line, err)
		}
	}
}
