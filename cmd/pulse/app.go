package main

import (
	"context"
	"fmt"

	"github.com/suykerbuyk/codepulse/internal/config"
	"github.com/suykerbuyk/codepulse/internal/engine"
	"github.com/suykerbuyk/codepulse/internal/logger"
	"github.com/suykerbuyk/codepulse/internal/store"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	verbose    bool
}

func (g *globals) loadConfig() (config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load()
}

// app is one loaded engine with the config and store behind it.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	engine  *engine.Engine
	closeDB func() error
}

// openStore picks the configured backend. The returned close func is a
// no-op for the file store.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func() error, error) {
	if cfg.Storage.Backend == config.BackendSQLite {
		db, err := store.OpenSQLite(ctx, cfg.StatePath())
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return store.NewFileStore(cfg.StatePath()), func() error { return nil }, nil
}

func openApp(ctx context.Context, g *globals) (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode, g.verbose)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	st, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := store.NewPersister(st, store.EncodeOptions{
		MaxBytes:      cfg.Storage.MaxBytes,
		RetentionDays: cfg.Storage.RetentionDays,
	}, store.DefaultBreakerSettings, log)

	e, err := engine.New(engine.Options{
		Persister: p,
		Goals: engine.Goals{
			DailyLines:   cfg.Goals.DailyLines,
			ReminderHour: cfg.Goals.ReminderHour,
		},
		Timer: engine.TimerDefaults{
			Work:         cfg.Pomodoro.Work,
			ShortBreak:   cfg.Pomodoro.Short,
			LongBreak:    cfg.Pomodoro.Long,
			PersistEvery: cfg.Pomodoro.TickPersistSeconds,
		},
		Log: log,
	})
	if err != nil {
		closeDB()
		return nil, err
	}
	if err := e.Load(ctx); err != nil {
		closeDB()
		return nil, err
	}
	e.Outbox().MarkReady()

	if name := cfg.DisplayName; name != "" && e.Snapshot().Name != name {
		if err := e.Rename(ctx, name); err != nil {
			log.Warn("display name rejected", "name", name, "error", err)
		}
	}

	log.Debug("app ready", "state", cfg.StatePath(), "backend", cfg.Storage.Backend)
	return &app{cfg: cfg, log: log, engine: e, closeDB: closeDB}, nil
}

// close stops the timer, saves and releases the store. Use a fresh
// context: the command context may already be cancelled.
func (a *app) close() error {
	err := a.engine.Close(context.Background())
	if cerr := a.closeDB(); err == nil {
		err = cerr
	}
	a.log.Sync()
	return err
}
