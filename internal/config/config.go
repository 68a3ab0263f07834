package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Environment overrides, applied after the config file.
const (
	EnvStateDir = "CODEPULSE_STATE_DIR"
	EnvStorage  = "CODEPULSE_STORAGE"
	EnvLogMode  = "CODEPULSE_LOG_MODE"
)

// Config holds all codepulse configuration.
type Config struct {
	StateDir    string `toml:"state_dir"`
	DisplayName string `toml:"display_name"`

	Storage  StorageConfig  `toml:"storage"`
	Goals    GoalsConfig    `toml:"goals"`
	Pomodoro PomodoroConfig `toml:"pomodoro"`
	Export   ExportConfig   `toml:"export"`
	Log      LogConfig      `toml:"log"`

	// Path is the file the config was read from; empty when defaults apply.
	Path string `toml:"-"`
}

type StorageConfig struct {
	Backend       string `toml:"backend"`
	MaxBytes      int    `toml:"max_bytes"`
	RetentionDays int    `toml:"retention_days"`
}

type GoalsConfig struct {
	DailyLines   int `toml:"daily_lines"`
	ReminderHour int `toml:"reminder_hour"`
}

// PomodoroConfig durations are minutes.
type PomodoroConfig struct {
	Work               int `toml:"work"`
	Short              int `toml:"short"`
	Long               int `toml:"long"`
	TickPersistSeconds int `toml:"tick_persist_seconds"`
}

type ExportConfig struct {
	Compress bool `toml:"compress"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StateDir: "~/.local/state/codepulse",
		Storage: StorageConfig{
			Backend:       BackendFile,
			MaxBytes:      1 << 20,
			RetentionDays: 365,
		},
		Goals: GoalsConfig{
			DailyLines:   200,
			ReminderHour: 20,
		},
		Pomodoro: PomodoroConfig{
			Work:               25,
			Short:              5,
			Long:               15,
			TickPersistSeconds: 60,
		},
		Export: ExportConfig{
			Compress: true,
		},
		Log: LogConfig{
			Mode: "dev",
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return finish(DefaultConfig())
}

// LoadFile reads config from path. Keys missing from the file keep their
// defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path
	return finish(cfg)
}

// finish applies .env and environment overrides, expands ~ and validates.
func finish(cfg Config) (Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	if v := os.Getenv(EnvStateDir); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(EnvLogMode); v != "" {
		cfg.Log.Mode = v
	}

	cfg.StateDir = expandHome(cfg.StateDir)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	switch cfg.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return cfg, fmt.Errorf("unknown storage backend %q (want %s or %s)", cfg.Storage.Backend, BackendFile, BackendSQLite)
	}
	if cfg.Goals.ReminderHour < 0 || cfg.Goals.ReminderHour > 23 {
		return cfg, fmt.Errorf("goals.reminder_hour must be 0-23, got %d", cfg.Goals.ReminderHour)
	}
	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "codepulse", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "codepulse", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// StatePath returns the state file for the configured backend.
func (c Config) StatePath() string {
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(c.StateDir, "stats.db")
	}
	return filepath.Join(c.StateDir, "stats.json")
}

// SpoolOffsetsPath records how far `pulse watch` has read each spool file.
func (c Config) SpoolOffsetsPath() string {
	return filepath.Join(c.StateDir, "spool-offsets.json")
}

// ExportDir is where exports land when no path is given.
func (c Config) ExportDir() string {
	return filepath.Join(c.StateDir, "exports")
}
