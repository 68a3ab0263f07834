package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points every lookup at empty temp dirs and clears overrides.
func isolate(t *testing.T) (xdg, home string) {
	t.Helper()
	xdg, home = t.TempDir(), t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", home)
	t.Setenv(EnvStateDir, "")
	t.Setenv(EnvStorage, "")
	t.Setenv(EnvLogMode, "")
	return xdg, home
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	configDir := filepath.Join(dir, "codepulse")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Storage.Backend != BackendFile {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.MaxBytes != 1<<20 {
		t.Errorf("Storage.MaxBytes = %d", cfg.Storage.MaxBytes)
	}
	if cfg.Storage.RetentionDays != 365 {
		t.Errorf("Storage.RetentionDays = %d", cfg.Storage.RetentionDays)
	}
	if cfg.Pomodoro.Work != 25 || cfg.Pomodoro.Short != 5 || cfg.Pomodoro.Long != 15 {
		t.Errorf("Pomodoro = %+v", cfg.Pomodoro)
	}
	if !cfg.Export.Compress {
		t.Error("Export.Compress should default to true")
	}
}

func TestLoad_NoConfig(t *testing.T) {
	_, home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
	want := filepath.Join(home, ".local", "state", "codepulse")
	if cfg.StateDir != want {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, want)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	xdg, _ := isolate(t)
	path := writeConfig(t, xdg, `state_dir = "/data/pulse"
display_name = "Ada"

[storage]
backend = "SQLite"
retention_days = 90

[goals]
daily_lines = 50

[export]
compress = false
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if cfg.StateDir != "/data/pulse" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q", cfg.DisplayName)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.RetentionDays != 90 {
		t.Errorf("Storage.RetentionDays = %d", cfg.Storage.RetentionDays)
	}
	if cfg.Storage.MaxBytes != 1<<20 {
		t.Errorf("Storage.MaxBytes = %d, want default kept", cfg.Storage.MaxBytes)
	}
	if cfg.Goals.DailyLines != 50 {
		t.Errorf("Goals.DailyLines = %d", cfg.Goals.DailyLines)
	}
	if cfg.Goals.ReminderHour != 20 {
		t.Errorf("Goals.ReminderHour = %d, want default kept", cfg.Goals.ReminderHour)
	}
	if cfg.Export.Compress {
		t.Error("Export.Compress should be false")
	}
	if got := cfg.StatePath(); got != "/data/pulse/stats.db" {
		t.Errorf("StatePath = %q", got)
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	xdg, home := isolate(t)
	writeConfig(t, xdg, `state_dir = "~/pulse-state"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := filepath.Join(home, "pulse-state")
	if cfg.StateDir != want {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, want)
	}
	if cfg.StatePath() != filepath.Join(want, "stats.json") {
		t.Errorf("StatePath = %q", cfg.StatePath())
	}
}

func TestLoad_XDGPriority(t *testing.T) {
	xdg, home := isolate(t)
	writeConfig(t, xdg, `state_dir = "/from-xdg"`)
	writeConfig(t, filepath.Join(home, ".config"), `state_dir = "/from-home"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StateDir != "/from-xdg" {
		t.Errorf("StateDir = %q, want /from-xdg (XDG should take priority)", cfg.StateDir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	xdg, _ := isolate(t)
	writeConfig(t, xdg, "state_dir = \"/from-file\"\n[log]\nmode = \"dev\"\n")
	t.Setenv(EnvStateDir, "/from-env")
	t.Setenv(EnvStorage, "sqlite")
	t.Setenv(EnvLogMode, "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StateDir != "/from-env" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Log.Mode != "prod" {
		t.Errorf("Log.Mode = %q", cfg.Log.Mode)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"broken toml", `state_dir = [broken`, "parse config"},
		{"unknown backend", "[storage]\nbackend = \"redis\"\n", "unknown storage backend"},
		{"reminder hour", "[goals]\nreminder_hour = 24\n", "reminder_hour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xdg, _ := isolate(t)
			writeConfig(t, xdg, tt.content)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	os.WriteFile(path, []byte("[pomodoro]\nwork = 50\n"), 0o644)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Pomodoro.Work != 50 || cfg.Pomodoro.Short != 5 {
		t.Errorf("Pomodoro = %+v", cfg.Pomodoro)
	}
}
