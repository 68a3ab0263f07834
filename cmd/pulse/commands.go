package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/codepulse/internal/archive"
	"github.com/suykerbuyk/codepulse/internal/check"
	"github.com/suykerbuyk/codepulse/internal/config"
	"github.com/suykerbuyk/codepulse/internal/hook"
	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/stats"
	"github.com/suykerbuyk/codepulse/internal/trends"
	"github.com/suykerbuyk/codepulse/internal/watch"
)

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "pulse",
		Short: "Offline coding-activity stats, achievements and focus timer",
		Long: `pulse turns editor change events into lines-written stats, XP, levels,
streaks, achievements, weekly challenges and a Pomodoro focus timer.
Everything stays on this machine.

Configuration: ~/.config/codepulse/config.toml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newHookCmd(g),
		newWatchCmd(g),
		newStatsCmd(g),
		newTimerCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newResetCmd(g),
		newNameCmd(g),
		newProjectCmd(g),
		newCheckCmd(g),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// withApp opens the app, runs fn and always closes it.
func withApp(cmd *cobra.Command, g *globals, fn func(a *app) error) error {
	a, err := openApp(cmd.Context(), g)
	if err != nil {
		return err
	}
	err = fn(a)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newHandler(a *app) *hook.Handler {
	return &hook.Handler{
		Engine:    a.engine,
		ExportDir: a.cfg.ExportDir(),
		Compress:  a.cfg.Export.Compress,
		Log:       a.log,
		OnTheme: func(theme string) {
			a.log.Debug("theme changed", "theme", theme)
		},
	}
}

func newHookCmd(g *globals) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Handle envelopes from stdin and reply with celebrations as JSON",
		Long: `Reads one or more JSON envelopes from stdin, for example

  {"kind":"change","change":{"languageId":"go","fileName":"main.go","changes":[...]}}
  {"kind":"intent","intent":"timer.start","args":{"minutes":25}}

and writes {"events":[...],"notices":[...]} to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := hook.ReadStdin(timeout)
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				n, err := newHandler(a).HandleAll(cmd.Context(), bytes.NewReader(data))
				if err != nil {
					a.log.Warn("some envelopes failed", "handled", n, "error", err)
				}
				return writeReply(cmd.OutOrStdout(), a.engine.Outbox())
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "stdin read timeout")
	return cmd
}

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <spool-dir>",
		Short: "Follow *.jsonl envelope files in a spool directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if a.engine.AttachTimer() {
					fmt.Fprintln(out, mutedStyle.Render("resumed focus timer countdown"))
				}

				go func() {
					flush := time.NewTicker(500 * time.Millisecond)
					remind := time.NewTicker(time.Minute)
					defer flush.Stop()
					defer remind.Stop()
					for {
						select {
						case <-ctx.Done():
							return
						case <-flush.C:
							printOutbox(out, a.engine.Outbox())
						case <-remind.C:
							a.engine.Remind(ctx)
						}
					}
				}()

				spool := watch.New(args[0], newHandler(a), a.log)
				if err := spool.LoadOffsets(ctx, a.cfg.SpoolOffsetsPath()); err != nil {
					return err
				}
				err := spool.Run(ctx)
				printOutbox(out, a.engine.Outbox())
				return err
			})
		},
	}
}

func newStatsCmd(g *globals) *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Show the stats dashboard",
		Aliases: []string{"dashboard"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				s := a.engine.Snapshot()
				out := cmd.OutOrStdout()
				fmt.Fprint(out, stats.Format(stats.Compute(s, time.Now())))
				if tr := trends.Compute(s.History, s.Sessions, weeks); tr.ActiveDays > 0 {
					fmt.Fprintln(out)
					fmt.Fprint(out, trends.Format(tr))
				}
				printOutbox(out, a.engine.Outbox())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&weeks, "weeks", 8, "weeks of trends to show")
	return cmd
}

func newTimerCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Pomodoro focus timer",
	}

	var (
		typ     string
		minutes int
		task    string
	)
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session and count it down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				sess, err := a.engine.StartTimer(cmd.Context(), model.PomodoroType(typ), minutes, strings.TrimSpace(task))
				if err != nil {
					printOutbox(cmd.ErrOrStderr(), a.engine.Outbox())
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(fmt.Sprintf("%s session, %d min", sess.Type, sess.Duration)))
				return follow(cmd, a)
			})
		},
	}
	start.Flags().StringVarP(&typ, "type", "t", string(model.PomodoroWork), "work, shortBreak or longBreak")
	start.Flags().IntVarP(&minutes, "minutes", "m", 0, "duration in minutes (0 uses the configured default)")
	start.Flags().StringVar(&task, "task", "", "what the session is for")

	resume := &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused session and count it down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				if err := a.engine.ResumeTimer(cmd.Context()); err != nil {
					printOutbox(cmd.ErrOrStderr(), a.engine.Outbox())
					return nil
				}
				return follow(cmd, a)
			})
		},
	}

	pause := timerOp(g, "pause", "Pause the current session", func(ctx context.Context, a *app) error {
		return a.engine.PauseTimer(ctx)
	})
	stop := timerOp(g, "stop", "Stop the current session without credit", func(ctx context.Context, a *app) error {
		return a.engine.StopTimer(ctx)
	})

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				p := a.engine.Snapshot().Pomodoro
				out := cmd.OutOrStdout()
				if c := p.Current; c != nil {
					fmt.Fprintln(out, timerStyle.Render(fmt.Sprintf("%s  %s  %s", c.Type, c.State, clock(c.RemainingSeconds))))
				} else {
					fmt.Fprintln(out, mutedStyle.Render("no focus session"))
				}
				fmt.Fprintf(out, "completed %d, streak %d (best %d)\n", p.CompletedSessions, p.CurrentStreak, p.LongestStreak)
				return nil
			})
		},
	}

	cmd.AddCommand(start, resume, pause, stop, status)
	return cmd
}

func timerOp(g *globals, use, short string, op func(context.Context, *app) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(a *app) error {
				// Refusals arrive as notices.
				_ = op(cmd.Context(), a)
				printOutbox(cmd.OutOrStdout(), a.engine.Outbox())
				return nil
			})
		},
	}
}

// follow shows the countdown until the session ends. An interrupt pauses
// the session so a later `pulse timer resume` picks it up.
func follow(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			fmt.Fprintln(out)
			if err := a.engine.PauseTimer(context.Background()); err == nil {
				fmt.Fprintln(out, mutedStyle.Render("paused; continue with `pulse timer resume`"))
			}
			printOutbox(out, a.engine.Outbox())
			return nil
		case <-t.C:
			c := a.engine.Snapshot().Pomodoro.Current
			if c == nil {
				fmt.Fprintln(out)
				printOutbox(out, a.engine.Outbox())
				return nil
			}
			fmt.Fprintf(out, "\r%s", countdownStyle.Render(clock(c.RemainingSeconds)))
		}
	}
}

func newExportCmd(g *globals) *cobra.Command {
	var compress bool
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write a snapshot of all stats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				if !cmd.Flags().Changed("compress") {
					compress = a.cfg.Export.Compress
				}
				path := filepath.Join(a.cfg.ExportDir(), archive.DefaultName(time.Now(), compress))
				if len(args) == 1 {
					path = args[0]
				}
				if err := a.engine.Export(path, compress); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "exported: "+config.CompressHome(path))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&compress, "compress", true, "zstd-compress the snapshot")
	return cmd
}

func newImportCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all stats with an exported snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				if err := a.engine.Import(cmd.Context(), args[0]); err != nil {
					return err
				}
				printOutbox(cmd.OutOrStdout(), a.engine.Outbox())
				return nil
			})
		},
	}
}

func newResetCmd(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all stats (the display name is kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset erases all stats; pass --yes to confirm")
			}
			return withApp(cmd, g, func(a *app) error {
				if err := a.engine.Reset(cmd.Context()); err != nil {
					return err
				}
				printOutbox(cmd.OutOrStdout(), a.engine.Outbox())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newNameCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "name <display name>",
		Short: "Set the display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				if err := a.engine.Rename(cmd.Context(), strings.Join(args, " ")); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "name: "+a.engine.Snapshot().Name)
				return nil
			})
		},
	}
}

func newProjectCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "project <name>",
		Short: "Show one project's rollup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				out := cmd.OutOrStdout()
				p, err := a.engine.OpenProject(args[0])
				if err != nil {
					printOutbox(out, a.engine.Outbox())
					return nil
				}
				fmt.Fprintln(out, titleStyle.Render(args[0]))
				fmt.Fprintf(out, "  %-14s %d\n", "lines", p.Lines)
				fmt.Fprintf(out, "  %-14s %d\n", "sessions", p.Sessions)
				fmt.Fprintf(out, "  %-14s %.0f min\n", "time", p.TimeSpent)
				fmt.Fprintf(out, "  %-14s %s\n", "languages", strings.Join(p.Languages, ", "))
				fmt.Fprintf(out, "  %-14s %d\n", "files", len(p.Files))
				fmt.Fprintf(out, "  %-14s %s\n", "last worked", p.LastWorked.Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
}

func newCheckCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report on config, state store and timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			st, closeDB, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			report := check.Run(cmd.Context(), cfg, st)
			fmt.Fprint(cmd.OutOrStdout(), report.Format())
			if report.HasFailures() {
				return errors.New("check failed")
			}
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	var stateDir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the state directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, action, err := config.WriteDefault(stateDir)
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
				return fmt.Errorf("create state dir: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s: %s\nstate: %s\n", action, config.CompressHome(path), config.CompressHome(cfg.StateDir))
			return nil
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "where stats are kept")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pulse v%s (codepulse)\n", version)
		},
	}
}
