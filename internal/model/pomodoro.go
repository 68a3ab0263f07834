package model

import "time"

// PomodoroType is the kind of focus session.
type PomodoroType string

const (
	PomodoroWork       PomodoroType = "work"
	PomodoroShortBreak PomodoroType = "shortBreak"
	PomodoroLongBreak  PomodoroType = "longBreak"
)

// IsValid reports whether t is a known session type.
func (t PomodoroType) IsValid() bool {
	switch t {
	case PomodoroWork, PomodoroShortBreak, PomodoroLongBreak:
		return true
	default:
		return false
	}
}

// PomodoroState is the lifecycle state of a focus session.
type PomodoroState string

const (
	PomodoroRunning   PomodoroState = "running"
	PomodoroPaused    PomodoroState = "paused"
	PomodoroCompleted PomodoroState = "completed"
	PomodoroStopped   PomodoroState = "stopped"
)

// PomodoroSession is one focus-timer run.
type PomodoroSession struct {
	ID               string        `json:"id"`
	Start            time.Time     `json:"start"`
	End              *time.Time    `json:"end,omitempty"`
	Duration         int           `json:"duration"` // minutes
	Type             PomodoroType  `json:"type"`
	Completed        bool          `json:"completed"`
	Interrupted      bool          `json:"interrupted"`
	Task             string        `json:"task,omitempty"`
	RemainingSeconds int           `json:"remainingSeconds"`
	State            PomodoroState `json:"state"`
	PausedAt         *time.Time    `json:"pausedAt,omitempty"`
}

// PomodoroStats holds focus-timer counters, the current session and history.
type PomodoroStats struct {
	CompletedSessions int               `json:"completedSessions"`
	CurrentStreak     int               `json:"currentStreak"`
	LongestStreak     int               `json:"longestStreak"`
	TotalWorkTime     int               `json:"totalWorkTime"`  // minutes
	TotalBreakTime    int               `json:"totalBreakTime"` // minutes
	Current           *PomodoroSession  `json:"current,omitempty"`
	History           []PomodoroSession `json:"history"`
}
