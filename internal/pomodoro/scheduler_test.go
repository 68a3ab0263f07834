package pomodoro

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/codepulse/internal/model"
)

func TestManualScheduler_Advance(t *testing.T) {
	m := NewManualScheduler(now)
	var fired []time.Time
	cancel := m.Every(time.Second, func() { fired = append(fired, m.Now()) })

	m.Advance(3500 * time.Millisecond)
	assert.Len(t, fired, 3)
	assert.Equal(t, now.Add(3*time.Second), fired[2])
	assert.Equal(t, now.Add(3500*time.Millisecond), m.Now())

	cancel()
	cancel()
	m.Advance(time.Minute)
	assert.Len(t, fired, 3)
	assert.Zero(t, m.Active())
}

func TestManualScheduler_CancelFromCallback(t *testing.T) {
	m := NewManualScheduler(now)
	n := 0
	var cancel func()
	cancel = m.Every(time.Second, func() {
		n++
		if n == 2 {
			cancel()
		}
	})
	m.Advance(10 * time.Second)
	assert.Equal(t, 2, n)
}

func TestManualScheduler_DrivesCountdown(t *testing.T) {
	m := NewManualScheduler(now)
	stats := &model.PomodoroStats{}
	_, err := Start(stats, model.PomodoroWork, 1, "", now)
	require.NoError(t, err)
	var done int
	cancel := m.Every(time.Second, func() {
		if Tick(stats, m.Now()) != nil {
			done++
		}
	})
	defer cancel()

	m.Advance(59 * time.Second)
	assert.Zero(t, done)
	m.Advance(time.Second)
	assert.Equal(t, 1, done)
	m.Advance(time.Minute)
	assert.Equal(t, 1, done)
}

func TestRealScheduler_TicksAndCancels(t *testing.T) {
	var n atomic.Int32
	cancel := RealScheduler{}.Every(5*time.Millisecond, func() { n.Add(1) })

	assert.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	cancel()

	stopped := n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), stopped+1)
}
