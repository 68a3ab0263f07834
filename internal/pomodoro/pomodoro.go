// Package pomodoro is the focus-timer state machine. Every function
// mutates a *model.PomodoroStats in place and never blocks; the caller
// owns locking, the tick source and persistence.
package pomodoro

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// WorkXP is the bonus for completing a work session.
const WorkXP = 50

// Default durations in minutes.
const (
	DefaultWork       = 25
	DefaultShortBreak = 5
	DefaultLongBreak  = 15
)

var (
	ErrActive          = errors.New("a focus session is already active")
	ErrNoSession       = errors.New("no focus session")
	ErrNotRunning      = errors.New("focus session is not running")
	ErrNotPaused       = errors.New("focus session is not paused")
	ErrNoTimeLeft      = errors.New("focus session has no time left")
	ErrInvalidType     = errors.New("unknown focus session type")
	ErrInvalidDuration = errors.New("focus session duration must be positive")
)

// Start creates a running session of typ lasting minutes.
func Start(p *model.PomodoroStats, typ model.PomodoroType, minutes int, task string, now time.Time) (*model.PomodoroSession, error) {
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	if minutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if c := p.Current; c != nil && (c.State == model.PomodoroRunning || c.State == model.PomodoroPaused) {
		return nil, ErrActive
	}
	p.Current = &model.PomodoroSession{
		ID:               uuid.NewString(),
		Start:            now,
		Duration:         minutes,
		Type:             typ,
		Task:             task,
		RemainingSeconds: minutes * 60,
		State:            model.PomodoroRunning,
	}
	return p.Current, nil
}

// Pause freezes a running session.
func Pause(p *model.PomodoroStats, now time.Time) error {
	c := p.Current
	if c == nil {
		return ErrNoSession
	}
	if c.State != model.PomodoroRunning {
		return ErrNotRunning
	}
	c.State = model.PomodoroPaused
	c.PausedAt = &now
	return nil
}

// Resume restarts a paused session from its remaining seconds.
func Resume(p *model.PomodoroStats) error {
	c := p.Current
	if c == nil {
		return ErrNoSession
	}
	if c.State != model.PomodoroPaused {
		return ErrNotPaused
	}
	if c.RemainingSeconds <= 0 {
		return ErrNoTimeLeft
	}
	c.State = model.PomodoroRunning
	c.PausedAt = nil
	return nil
}

// Stop ends a running or paused session as interrupted. It moves the
// session to history without completion credit and leaves the streak
// untouched.
func Stop(p *model.PomodoroStats, now time.Time) (*model.PomodoroSession, error) {
	c := p.Current
	if c == nil {
		return nil, ErrNoSession
	}
	c.State = model.PomodoroStopped
	c.Interrupted = true
	c.PausedAt = nil
	c.End = &now
	return finish(p), nil
}

// Tick advances a running session by one second. When the countdown
// reaches zero the session completes and is returned; otherwise Tick
// returns nil. Ticks on a missing or paused session are ignored.
func Tick(p *model.PomodoroStats, now time.Time) *model.PomodoroSession {
	c := p.Current
	if c == nil || c.State != model.PomodoroRunning {
		return nil
	}
	if c.RemainingSeconds > 0 {
		c.RemainingSeconds--
	}
	if c.RemainingSeconds > 0 {
		return nil
	}
	return complete(p, now)
}

// Running reports whether the current session is counting down.
func Running(p *model.PomodoroStats) bool {
	return p.Current != nil && p.Current.State == model.PomodoroRunning
}

// Reward returns the XP earned by a completed session.
func Reward(s *model.PomodoroSession) int {
	if s != nil && s.Completed && s.Type == model.PomodoroWork {
		return WorkXP
	}
	return 0
}

func complete(p *model.PomodoroStats, now time.Time) *model.PomodoroSession {
	c := p.Current
	c.State = model.PomodoroCompleted
	c.Completed = true
	c.End = &now

	p.CompletedSessions++
	p.CurrentStreak++
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	if c.Type == model.PomodoroWork {
		p.TotalWorkTime += c.Duration
	} else {
		p.TotalBreakTime += c.Duration
	}
	return finish(p)
}

// finish appends the current session to history, clears it and returns a
// copy of the finished session.
func finish(p *model.PomodoroStats) *model.PomodoroSession {
	done := *p.Current
	p.History = append(p.History, done)
	p.Current = nil
	return &done
}
