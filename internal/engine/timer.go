package engine

import (
	"context"
	"time"

	"github.com/suykerbuyk/codepulse/internal/achieve"
	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/outbox"
	"github.com/suykerbuyk/codepulse/internal/pomodoro"
	"github.com/suykerbuyk/codepulse/internal/stats"
)

// TickInterval is the focus-timer resolution.
const TickInterval = time.Second

// StartTimer starts a focus session. A non-positive minutes value uses
// the configured default for typ. Invalid transitions are returned and
// also queued as an informational notice.
func (e *Engine) StartTimer(ctx context.Context, typ model.PomodoroType, minutes int, task string) (*model.PomodoroSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	release, err := e.beginLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if minutes <= 0 {
		minutes = e.defaultMinutes(typ)
	}
	sess, err := pomodoro.Start(&e.stats.Pomodoro, typ, minutes, task, e.now())
	if err != nil {
		return nil, e.timerRefused("start", err)
	}
	e.log.Info("focus session started", "id", sess.ID, "type", string(typ), "minutes", minutes)
	e.attachLocked()
	e.persistLocked(ctx)
	cp := *sess
	return &cp, nil
}

// PauseTimer freezes the running session.
func (e *Engine) PauseTimer(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	release, err := e.beginLocked(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := pomodoro.Pause(&e.stats.Pomodoro, e.now()); err != nil {
		return e.timerRefused("pause", err)
	}
	e.detachLocked()
	e.persistLocked(ctx)
	return nil
}

// ResumeTimer restarts a paused session.
func (e *Engine) ResumeTimer(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	release, err := e.beginLocked(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := pomodoro.Resume(&e.stats.Pomodoro); err != nil {
		return e.timerRefused("resume", err)
	}
	e.attachLocked()
	e.persistLocked(ctx)
	return nil
}

// StopTimer ends the current session without completion credit.
func (e *Engine) StopTimer(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	release, err := e.beginLocked(ctx)
	if err != nil {
		return err
	}
	defer release()

	sess, err := pomodoro.Stop(&e.stats.Pomodoro, e.now())
	if err != nil {
		return e.timerRefused("stop", err)
	}
	e.detachLocked()
	e.log.Info("focus session stopped", "id", sess.ID, "remaining", sess.RemainingSeconds)
	e.out.Notify(outbox.Info, "Focus session stopped.")
	e.persistLocked(ctx)
	return nil
}

// AttachTimer starts ticking a session restored in the running state.
// After a reload the countdown stays frozen until this is called, so
// time spent unloaded is not deducted. It reports whether a ticker runs.
func (e *Engine) AttachTimer() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !pomodoro.Running(&e.stats.Pomodoro) {
		return false
	}
	if e.cancelTick == nil {
		e.attachLocked()
	}
	return true
}

// DetachTimer stops ticking without changing the session.
func (e *Engine) DetachTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detachLocked()
}

func (e *Engine) attachLocked() {
	e.detachLocked()
	e.tickGen++
	gen := e.tickGen
	e.ticks = 0
	e.cancelTick = e.sched.Every(TickInterval, func() { e.tick(gen) })
}

func (e *Engine) detachLocked() {
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}
	e.tickGen++
}

// tick is the scheduler callback. Ticks from a cancelled ticker are
// ignored by generation. Plain ticks only count down in memory; a tick
// that saves or completes the session runs against the latest stored
// state under the store lock.
func (e *Engine) tick(gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.tickGen {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("timer tick failed", "panic", r)
		}
	}()

	cur := e.stats.Pomodoro.Current
	if cur == nil || cur.State != model.PomodoroRunning {
		return
	}
	e.ticks++
	n := e.timer.PersistEvery
	completing := cur.RemainingSeconds <= 1
	if !completing && (n <= 0 || e.ticks%n != 0) {
		pomodoro.Tick(&e.stats.Pomodoro, e.now())
		e.dirty = true
		return
	}

	ctx := context.Background()
	release, err := e.beginLocked(ctx)
	if err != nil {
		e.log.Warn("timer tick without store lock", "error", err)
	} else {
		defer release()
	}
	if gen != e.tickGen {
		// The session was paused, stopped or replaced elsewhere.
		return
	}

	now := e.now()
	done := pomodoro.Tick(&e.stats.Pomodoro, now)
	if done == nil {
		e.persistLocked(ctx)
		return
	}

	e.detachLocked()
	s := e.stats
	xp := pomodoro.Reward(done)
	s.GrantXP(xp)
	e.log.Info("focus session completed", "id", done.ID, "type", string(done.Type), "xp", xp)

	cy := &cycle{s: s, now: now}
	cy.celebrate(pomodoroEvent(done, xp))
	e.evaluate(cy, achieve.Activity{Now: now}, achieve.CatPomodoro)
	for _, lvl := range stats.ApplyLevelUps(s) {
		cy.celebrate(levelUpEvent(lvl))
	}
	stats.Recompute(s)

	e.publish(cy.events)
	e.persistLocked(ctx)
}

// timerRefused reports an invalid transition as an informational notice.
func (e *Engine) timerRefused(op string, err error) error {
	e.log.Debug("timer transition refused", "op", op, "error", err)
	e.out.Notify(outbox.Info, "Focus timer: "+err.Error())
	return err
}

func (e *Engine) defaultMinutes(typ model.PomodoroType) int {
	switch typ {
	case model.PomodoroShortBreak:
		return e.timer.ShortBreak
	case model.PomodoroLongBreak:
		return e.timer.LongBreak
	default:
		return e.timer.Work
	}
}
