package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the codepulse config directory path.
// Uses $XDG_CONFIG_HOME/codepulse if set, otherwise ~/.config/codepulse.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codepulse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "codepulse")
}

// WriteDefault writes a default config.toml keeping state in stateDir.
// It returns the config file path and "created", or "exists" when a
// config.toml is already present (the file is left alone).
func WriteDefault(stateDir string) (string, string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, "exists", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create config dir: %w", err)
	}

	d := DefaultConfig()
	if stateDir == "" {
		stateDir = d.StateDir
	}

	content := fmt.Sprintf(`state_dir = %q
display_name = ""

[storage]
backend = %q
max_bytes = %d
retention_days = %d

[goals]
daily_lines = %d
reminder_hour = %d

[pomodoro]
work = %d
short = %d
long = %d
tick_persist_seconds = %d

[export]
compress = %t

[log]
mode = %q
`, CompressHome(stateDir),
		d.Storage.Backend, d.Storage.MaxBytes, d.Storage.RetentionDays,
		d.Goals.DailyLines, d.Goals.ReminderHour,
		d.Pomodoro.Work, d.Pomodoro.Short, d.Pomodoro.Long, d.Pomodoro.TickPersistSeconds,
		d.Export.Compress,
		d.Log.Mode)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("write config: %w", err)
	}

	return path, "created", nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
