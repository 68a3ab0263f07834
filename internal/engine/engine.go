// Package engine owns the live Stats aggregate and runs every handler
// against it: edit ingest, user intents and focus-timer ticks. Handlers are
// serialized by one mutex held for their full duration, so each runs to
// completion before the next starts. Mutating handlers also hold the
// store's cross-process lock and start from the latest saved state, so
// several processes sharing one store never overwrite each other.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/suykerbuyk/codepulse/internal/achieve"
	"github.com/suykerbuyk/codepulse/internal/logger"
	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/outbox"
	"github.com/suykerbuyk/codepulse/internal/pomodoro"
	"github.com/suykerbuyk/codepulse/internal/session"
	"github.com/suykerbuyk/codepulse/internal/store"
)

// Goals configure the daily-goal and streak-reminder notices.
type Goals struct {
	// DailyLines triggers a notice once today's added lines reach it; 0
	// disables the goal.
	DailyLines int
	// ReminderHour is the local hour (1-23) from which a streak-at-risk
	// notice may fire; 0 disables reminders.
	ReminderHour int
}

// TimerDefaults are the focus-timer durations in minutes used when an
// intent does not name one.
type TimerDefaults struct {
	Work       int
	ShortBreak int
	LongBreak  int
	// PersistEvery saves the countdown every n ticks while running; 0
	// saves only on transitions. Zero durations fall back to DefaultTimer.
	PersistEvery int
}

// DefaultTimer matches the classic 25/5/15 cycle and saves once a minute.
var DefaultTimer = TimerDefaults{
	Work:         pomodoro.DefaultWork,
	ShortBreak:   pomodoro.DefaultShortBreak,
	LongBreak:    pomodoro.DefaultLongBreak,
	PersistEvery: 60,
}

// Options wire an Engine. Persister is required; everything else has a
// default.
type Options struct {
	Persister *store.Persister
	Outbox    *outbox.Outbox
	Scheduler pomodoro.Scheduler
	Tracker   *session.Tracker
	Now       func() time.Time
	Picker    achieve.Picker
	Goals     Goals
	Timer     TimerDefaults
	Log       *logger.Logger
}

// Engine is the application context for one loaded aggregate.
type Engine struct {
	mu    sync.Mutex
	stats *model.Stats

	persister *store.Persister
	out       *outbox.Outbox
	sched     pomodoro.Scheduler
	tracker   *session.Tracker
	now       func() time.Time
	pick      achieve.Picker
	goals     Goals
	timer     TimerDefaults
	log       *logger.Logger

	cancelTick func()
	tickGen    int
	ticks      int

	// dirty is set by countdown ticks that were not saved.
	dirty bool
	// behind is set while the store lacks changes held in memory.
	behind bool
}

// ErrNoPersister is returned by New when Options.Persister is nil.
var ErrNoPersister = errors.New("engine needs a persister")

// New builds an engine holding fresh stats. Call Load to read the store.
func New(opts Options) (*Engine, error) {
	if opts.Persister == nil {
		return nil, ErrNoPersister
	}
	e := &Engine{
		stats:     model.NewStats(),
		persister: opts.Persister,
		out:       opts.Outbox,
		sched:     opts.Scheduler,
		tracker:   opts.Tracker,
		now:       opts.Now,
		pick:      opts.Picker,
		goals:     opts.Goals,
		timer:     opts.Timer,
		log:       logger.OrNop(opts.Log),
		behind:    true,
	}
	if e.out == nil {
		e.out = outbox.New()
	}
	if e.sched == nil {
		e.sched = pomodoro.RealScheduler{}
	}
	if e.tracker == nil {
		e.tracker = session.NewTracker()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.pick == nil {
		e.pick = achieve.RandomPicker
	}
	if e.timer.Work <= 0 {
		e.timer.Work = DefaultTimer.Work
	}
	if e.timer.ShortBreak <= 0 {
		e.timer.ShortBreak = DefaultTimer.ShortBreak
	}
	if e.timer.LongBreak <= 0 {
		e.timer.LongBreak = DefaultTimer.LongBreak
	}
	return e, nil
}

// Load reads the stored aggregate. An unusable blob is replaced by fresh
// state and reported as a warning notice; only a failing store read is
// returned as an error. Derived fields, the streak included, are
// recomputed after loading.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, _, err := e.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	s, err := store.Decode(data)
	behind := len(data) == 0
	if err != nil {
		if !errLoad(err) {
			return err
		}
		e.log.Warn("stored state unusable, starting fresh", "error", err)
		e.out.Notify(outbox.Warning, "Saved stats could not be read and were reset to defaults.")
		s = model.NewStats()
		behind = true
	}

	settle(s, e.now())
	e.stats = s
	e.behind = behind
	e.log.Debug("state loaded",
		"bytes", len(data),
		"level", s.Level,
		"days", len(s.History),
	)
	return nil
}

// Snapshot returns a deep copy of the live aggregate.
func (e *Engine) Snapshot() *model.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Clone()
}

// Outbox returns the queue of celebrations and notices.
func (e *Engine) Outbox() *outbox.Outbox { return e.out }

// Close stops the focus-timer ticker and saves countdown progress that
// no handler has saved yet. An engine that only read state writes nothing.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dirty {
		e.detachLocked()
		return nil
	}
	release, err := e.beginLocked(ctx)
	if err != nil {
		e.detachLocked()
		return err
	}
	defer release()
	e.detachLocked()
	_, err = e.persistLocked(ctx)
	return err
}

// persistLocked saves the live aggregate. A failure of both payloads is
// logged and surfaced as a warning notice; the in-memory state is kept.
func (e *Engine) persistLocked(ctx context.Context) (store.Outcome, error) {
	outcome, err := e.persister.Save(ctx, e.stats, e.now())
	switch outcome {
	case store.Saved:
		e.behind = false
	case store.SavedCritical:
		e.log.Warn("saved critical fields only")
		e.behind = true
	case store.Failed:
		e.log.Error("save failed", "error", err)
		e.out.Notify(outbox.Warning, "Stats could not be saved; progress since the last save may be lost.")
		e.behind = true
	}
	e.dirty = false
	return outcome, err
}

// publish hands events to the outbox in order.
func (e *Engine) publish(events []outbox.Event) {
	for _, ev := range events {
		e.out.Celebrate(ev)
	}
}
