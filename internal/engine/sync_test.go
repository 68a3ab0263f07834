package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/pomodoro"
	"github.com/suykerbuyk/codepulse/internal/store"
)

// sibling opens a second engine on the fixture's store, as another
// process would.
func sibling(t *testing.T, f *fixture, now func() time.Time) *Engine {
	t.Helper()
	e, err := New(Options{
		Persister: store.NewPersister(f.ms, store.DefaultEncodeOptions, store.DefaultBreakerSettings, nil),
		Scheduler: pomodoro.NewManualScheduler(now()),
		Now:       now,
		Picker:    func(int) int { return 0 },
	})
	require.NoError(t, err)
	require.NoError(t, e.Load(context.Background()))
	return e
}

func TestSharedStore_TimerKeepsOtherProcessEdits(t *testing.T) {
	f := timerFixture(t, func(o *Options) { o.Timer.PersistEvery = 60 })
	ctx := context.Background()

	_, err := f.e.StartTimer(ctx, model.PomodoroWork, 25, "")
	require.NoError(t, err)
	f.sched.Advance(3 * time.Minute)

	other := sibling(t, f, f.sched.Now)
	_, err = other.Ingest(ctx, insert("/src/app/a.go", "go", numbered(3)))
	require.NoError(t, err)
	require.NoError(t, other.Close(ctx))

	f.sched.Advance(22 * time.Minute)
	require.NoError(t, f.e.Close(ctx))

	got := sibling(t, f, f.sched.Now).Snapshot()
	assert.Equal(t, 3, got.ManualLines)
	assert.Equal(t, 3, got.History[model.DayKey(base)].Added)
	assert.Equal(t, 1, got.Pomodoro.CompletedSessions)
	assert.Nil(t, got.Pomodoro.Current)
}

func TestSharedStore_StopElsewhereDetachesCountdown(t *testing.T) {
	f := timerFixture(t, func(o *Options) { o.Timer.PersistEvery = 60 })
	ctx := context.Background()

	_, err := f.e.StartTimer(ctx, model.PomodoroWork, 25, "")
	require.NoError(t, err)

	other := sibling(t, f, f.sched.Now)
	require.NoError(t, other.StopTimer(ctx))

	f.sched.Advance(time.Minute)
	assert.Zero(t, f.sched.Active(), "countdown detached at the next save")
	assert.Nil(t, f.e.Snapshot().Pomodoro.Current)

	f.sched.Advance(30 * time.Minute)
	assert.Zero(t, f.e.Snapshot().Pomodoro.CompletedSessions)
}

func TestSharedStore_CountdownSurvivesReload(t *testing.T) {
	f := timerFixture(t, func(o *Options) { o.Timer.PersistEvery = 60 })
	ctx := context.Background()

	_, err := f.e.StartTimer(ctx, model.PomodoroWork, 25, "")
	require.NoError(t, err)
	f.sched.Advance(90 * time.Second)

	other := sibling(t, f, f.sched.Now)
	require.NoError(t, other.Rename(ctx, "Ada"))

	// The rename is adopted; the countdown ticked here is kept.
	require.NoError(t, f.e.Rename(ctx, "Ada L"))
	cur := f.e.Snapshot().Pomodoro.Current
	require.NotNil(t, cur)
	assert.Equal(t, 25*60-90, cur.RemainingSeconds)
}

func TestReadOnlyHandlersDoNotSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.e.Ingest(ctx, insert("/home/ada/pulse/main.go", "go", "run()\n"))
	require.NoError(t, err)
	require.Equal(t, 1, f.ms.Saves())

	reader := sibling(t, f, f.clock.now)
	_ = reader.Snapshot()
	_, err = reader.OpenProject("pulse")
	require.NoError(t, err)
	require.NoError(t, reader.Export(filepath.Join(t.TempDir(), "snap.json"), false))
	assert.False(t, reader.Remind(ctx))
	require.NoError(t, reader.Close(ctx))

	assert.Equal(t, 1, f.ms.Saves())
}

func TestLoad_RecomputesStaleStreak(t *testing.T) {
	tests := []struct {
		name       string
		activeFrom int // days ago of the most recent active day
		want       int
	}{
		{"yesterday active", 1, 5},
		{"missed days", 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			s := model.NewStats()
			for i := tt.activeFrom; i < tt.activeFrom+5; i++ {
				s.Day(model.DayKey(base.AddDate(0, 0, -i))).Added = 5
			}
			s.Streak, s.MaxStreak = 5, 5
			data, _, err := store.Encode(s, store.EncodeOptions{}, base)
			require.NoError(t, err)
			require.NoError(t, f.ms.Save(ctx, data))

			require.NoError(t, f.e.Load(ctx))
			got := f.e.Snapshot()
			assert.Equal(t, tt.want, got.Streak)
			assert.Equal(t, 5, got.MaxStreak)

			events, notices := drain(f.e)
			assert.Empty(t, events)
			assert.Empty(t, notices)
		})
	}
}

func TestIngest_FailureRollsBackToSavedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.e.Ingest(ctx, insert("/src/app/a.go", "go", numbered(2)))
	require.NoError(t, err)
	before := f.e.Snapshot()

	// A new week makes the challenge picker run mid-cycle.
	f.clock.advance(7 * 24 * time.Hour)
	f.e.pick = func(int) int { panic("picker broke") }

	_, err = f.e.Ingest(ctx, insert("/src/app/a.go", "go", numbered(4)))
	assert.ErrorIs(t, err, ErrDropped)

	after := f.e.Snapshot()
	assert.Equal(t, before.ManualLines, after.ManualLines)
	assert.Equal(t, before.TotalXP, after.TotalXP)
	assert.Len(t, after.History, 1)
	assert.Equal(t, 1, f.ms.Saves())
}
