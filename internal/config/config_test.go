package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	snap := c.Snapshot()
	if snap.WebPort != DefaultWebPort || snap.FrameRate != DefaultFrameRate || snap.Locale != DefaultLocale {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.MetricsEnabled {
		t.Error("metrics disabled by default")
	}
	if snap.HasEventLog() {
		t.Error("event log enabled by default")
	}

	// The written file loads back cleanly.
	if err := New(path).Load(); err != nil {
		t.Errorf("reloading default config: %v", err)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "config.json",
			content: `{
  "system": {"port": 9090},
  "audio": {"input": "hw:1"},
  "meter": {"frame_rate": 60},
  "ui": {"locale": "pt-BR"},
  "log": {"level": "debug", "event_log_path": "/tmp/micmeter.jsonl"},
  "metrics": {"enabled": false}
}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `system:
  port: 9090
audio:
  input: hw:1
meter:
  frame_rate: 60
ui:
  locale: pt-BR
log:
  level: debug
  event_log_path: /tmp/micmeter.jsonl
metrics:
  enabled: false
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(writeFile(t, tt.file, tt.content))
			if err := c.Load(); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			want := Snapshot{
				WebPort:        9090,
				AudioInput:     "hw:1",
				FrameRate:      60,
				Locale:         "pt-BR",
				Title:          DefaultTitle,
				LogLevel:       "debug",
				EventLogPath:   "/tmp/micmeter.jsonl",
				MetricsEnabled: false,
			}
			if got := c.Snapshot(); got != want {
				t.Errorf("Snapshot() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"port", `{"system": {"port": 70000}}`, "port"},
		{"frame rate", `{"meter": {"frame_rate": 1000}}`, "frame_rate"},
		{"level", `{"log": {"level": "verbose"}}`, "level"},
		{"locale", `{"ui": {"locale": "not a locale"}}`, "locale"},
		{"title", `{"ui": {"title": "bad\ntitle"}}`, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(writeFile(t, "config.json", tt.content)).Load()
			if err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	err := New(writeFile(t, "config.json", `{"system":`)).Load()
	if err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestSetAudioInputPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	c := New(path)
	if err := c.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := c.SetAudioInput("default:CARD=USB"); err != nil {
		t.Fatalf("SetAudioInput() error = %v", err)
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got := reloaded.AudioInput(); got != "default:CARD=USB" {
		t.Errorf("AudioInput() = %q after reload", got)
	}
}
