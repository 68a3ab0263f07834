package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/suykerbuyk/codepulse/internal/config"
	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/store"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "pulse check\n\n  no checks ran\n"
	}

	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("pulse check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports which config file is in effect.
func CheckConfig(cfg config.Config) Result {
	if cfg.Path == "" {
		return Result{Name: "config", Status: Pass, Detail: "defaults (no config.toml)"}
	}
	return Result{Name: "config", Status: Pass, Detail: config.CompressHome(cfg.Path)}
}

// CheckStateDir checks whether the state directory exists.
func CheckStateDir(dir string) Result {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return Result{Name: "state", Status: Pass, Detail: config.CompressHome(dir)}
	case err == nil:
		return Result{Name: "state", Status: Fail, Detail: config.CompressHome(dir) + " is not a directory"}
	default:
		return Result{Name: "state", Status: Warn, Detail: config.CompressHome(dir) + " not found (fresh install)"}
	}
}

// CheckStore reads the stored blob and reports whether it decodes, along
// with its size against maxBytes. The decoded stats are returned for the
// checks that follow; nil when nothing usable is stored.
func CheckStore(ctx context.Context, st store.Store, maxBytes int) ([]Result, *model.Stats) {
	data, err := st.Load(ctx)
	if err != nil {
		return []Result{{Name: "store", Status: Fail, Detail: err.Error()}}, nil
	}
	if len(data) == 0 {
		return []Result{{Name: "store", Status: Warn, Detail: "no saved stats yet"}}, nil
	}

	s, err := store.Decode(data)
	if err != nil {
		var le *store.LoadError
		if errors.As(err, &le) {
			return []Result{{Name: "store", Status: Fail, Detail: "saved stats unreadable; the next run starts fresh"}}, nil
		}
		return []Result{{Name: "store", Status: Fail, Detail: err.Error()}}, nil
	}

	results := []Result{{
		Name:   "store",
		Status: Pass,
		Detail: fmt.Sprintf("level %d, %d days of history", s.Level, len(s.History)),
	}}
	return append(results, CheckSize(len(data), maxBytes)), s
}

// CheckSize warns once the blob uses more than 80% of the cap. Above the
// cap, history is pruned on the next save.
func CheckSize(size, maxBytes int) Result {
	detail := fmt.Sprintf("%s of %s", humanBytes(size), humanBytes(maxBytes))
	switch {
	case maxBytes <= 0:
		return Result{Name: "size", Status: Pass, Detail: humanBytes(size) + " (no cap)"}
	case size > maxBytes:
		return Result{Name: "size", Status: Warn, Detail: detail + "; old history will be pruned"}
	case size*5 > maxBytes*4:
		return Result{Name: "size", Status: Warn, Detail: detail + "; nearing cap"}
	default:
		return Result{Name: "size", Status: Pass, Detail: detail}
	}
}

// CheckTimer reports a focus session left running or paused.
func CheckTimer(s *model.Stats) Result {
	if s == nil || s.Pomodoro.Current == nil {
		return Result{Name: "timer", Status: Pass, Detail: "idle"}
	}
	c := s.Pomodoro.Current
	remaining := fmt.Sprintf("%d:%02d left", c.RemainingSeconds/60, c.RemainingSeconds%60)
	if c.State == model.PomodoroRunning {
		return Result{Name: "timer", Status: Warn, Detail: fmt.Sprintf("%s session running, %s (resumes on next attach)", c.Type, remaining)}
	}
	return Result{Name: "timer", Status: Pass, Detail: fmt.Sprintf("%s session %s, %s", c.Type, c.State, remaining)}
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Run executes all checks against the given config and store.
func Run(ctx context.Context, cfg config.Config, st store.Store) Report {
	var results []Result

	results = append(results, CheckConfig(cfg))
	results = append(results, CheckStateDir(cfg.StateDir))
	storeResults, s := CheckStore(ctx, st, cfg.Storage.MaxBytes)
	results = append(results, storeResults...)
	results = append(results, CheckTimer(s))

	return Report{Results: results}
}
