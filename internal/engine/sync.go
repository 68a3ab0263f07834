package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/stats"
	"github.com/suykerbuyk/codepulse/internal/store"
)

// beginLocked starts a mutating handler: it takes the store's
// cross-process lock and adopts whatever another process saved since this
// engine last read or wrote the store. The returned func drops the lock.
func (e *Engine) beginLocked(ctx context.Context) (func(), error) {
	unlock, err := e.persister.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}
	if err := e.refreshLocked(ctx, false); err != nil {
		e.log.Warn("state reload failed, keeping memory", "error", err)
	}
	return unlock, nil
}

// refreshLocked replaces the live aggregate with the stored one when the
// store holds a blob this engine has not seen. force decodes even a known
// blob. An empty or unusable blob leaves memory alone.
func (e *Engine) refreshLocked(ctx context.Context, force bool) error {
	data, changed, err := e.persister.Load(ctx)
	if err != nil {
		return err
	}
	if (!changed && !force) || len(data) == 0 {
		return nil
	}
	s, err := store.Decode(data)
	if err != nil {
		return err
	}
	e.adoptLocked(s)
	return nil
}

// adoptLocked swaps in s. The countdown of a focus session ticking here
// survives the swap: remaining time only goes down, so the smaller value
// wins. A ticker whose session was paused, stopped or replaced elsewhere
// is detached.
func (e *Engine) adoptLocked(s *model.Stats) {
	mine, theirs := e.stats.Pomodoro.Current, s.Pomodoro.Current
	same := mine != nil && theirs != nil && mine.ID == theirs.ID &&
		mine.State == model.PomodoroRunning && theirs.State == model.PomodoroRunning
	if same {
		theirs.RemainingSeconds = min(theirs.RemainingSeconds, mine.RemainingSeconds)
	} else if e.cancelTick != nil {
		e.log.Info("focus session changed by another process, countdown detached")
		e.detachLocked()
	}
	settle(s, e.now())
	e.stats = s
	e.behind = false
	e.log.Debug("state reloaded", "level", s.Level, "days", len(s.History))
}

// rollbackLocked discards a half-applied cycle by reading the last saved
// state back.
func (e *Engine) rollbackLocked(ctx context.Context) {
	if err := e.refreshLocked(ctx, true); err != nil {
		e.log.Error("rollback failed, keeping partial state", "error", err)
		e.behind = true
	}
}

// settle brings the derived fields of a freshly read aggregate up to
// date. Level-ups and streak changes found here are not celebrated.
func settle(s *model.Stats, now time.Time) {
	stats.ApplyLevelUps(s)
	s.Streak = stats.LiveStreak(s.History, now)
	s.MaxStreak = max(s.MaxStreak, s.Streak)
	stats.Recompute(s)
}

// errLoad reports whether err came from an unusable blob rather than a
// failing store.
func errLoad(err error) bool {
	var le *store.LoadError
	return errors.As(err, &le)
}
