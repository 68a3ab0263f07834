package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/codepulse/internal/model"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

func edit(offset time.Duration, lines int, file string) Edit {
	return Edit{At: start.Add(offset), Lines: lines, Language: "go", File: file, Project: "api"}
}

func TestTrack_OpensFirstSession(t *testing.T) {
	s := model.NewStats()
	closed := NewTracker().Track(s, edit(0, 3, "a.go"))

	assert.Nil(t, closed)
	require.NotNil(t, s.CurrentSession)
	assert.Equal(t, start, s.CurrentSession.Start)
	assert.Equal(t, 3, s.CurrentSession.Lines)
	assert.Equal(t, "go", s.CurrentSession.Language)
	assert.Equal(t, []string{"a.go"}, s.CurrentSession.Files)
	assert.Nil(t, s.CurrentSession.End)
}

func TestTrack_ExtendsWithinBoundary(t *testing.T) {
	s := model.NewStats()
	tr := NewTracker()
	tr.Track(s, edit(0, 3, "a.go"))
	tr.Track(s, edit(10*time.Minute, 2, "b.go"))
	closed := tr.Track(s, edit(30*time.Minute, 1, "a.go"))

	assert.Nil(t, closed)
	assert.Equal(t, 6, s.CurrentSession.Lines)
	assert.Equal(t, []string{"a.go", "b.go"}, s.CurrentSession.Files)
	assert.Len(t, s.CurrentSession.EditTimes, 3)
	assert.Empty(t, s.Sessions)
}

func TestTrack_BoundaryMeasuredFromStart(t *testing.T) {
	s := model.NewStats()
	s.Language("go")
	tr := NewTracker()

	// Continuous activity every five minutes still closes after 30 minutes
	// from the session start.
	for m := 0; m <= 30; m += 5 {
		tr.Track(s, edit(time.Duration(m)*time.Minute, 1, "a.go"))
	}
	closed := tr.Track(s, edit(31*time.Minute, 4, "c.go"))

	require.NotNil(t, closed)
	require.NotNil(t, closed.End)
	assert.Equal(t, start.Add(30*time.Minute), *closed.End)
	assert.Equal(t, 7, closed.Lines)
	assert.Nil(t, closed.EditTimes)
	require.NotNil(t, closed.FlowMetrics)
	assert.Equal(t, 6, closed.FlowMetrics.Interruptions)
	assert.Zero(t, closed.FlowMetrics.TypingBursts)
	assert.Zero(t, closed.FlowMetrics.FlowScore)

	require.Len(t, s.Sessions, 1)
	assert.Equal(t, start.Add(31*time.Minute), s.CurrentSession.Start)
	assert.Equal(t, 4, s.CurrentSession.Lines)
	assert.Equal(t, []string{"c.go"}, s.CurrentSession.Files)
}

func TestClose_RollsUpDuration(t *testing.T) {
	s := model.NewStats()
	s.Language("go")
	tr := NewTracker()
	tr.Track(s, edit(0, 1, "a.go"))
	tr.Track(s, edit(12*time.Minute, 1, "a.go"))
	tr.Track(s, edit(2*time.Hour, 1, "a.go"))

	assert.InDelta(t, 12.0, s.TotalTimeSpent, 1e-9)
	assert.InDelta(t, 12.0, s.LongestSession, 1e-9)

	day := s.History[model.DayKey(start)]
	require.NotNil(t, day)
	assert.Equal(t, 1, day.Sessions)
	assert.InDelta(t, 12.0, day.TimeSpent, 1e-9)

	assert.Equal(t, 1, s.Languages["go"].Sessions)
	assert.InDelta(t, 12.0, s.Languages["go"].TimeSpent, 1e-9)
	assert.Equal(t, 1, s.Projects["api"].Sessions)
	assert.InDelta(t, 12.0, s.Projects["api"].TimeSpent, 1e-9)
}

func TestClose_DoesNotCreateLanguage(t *testing.T) {
	s := model.NewStats()
	sess := &model.CodingSession{Start: start, Language: "rust"}
	s.CurrentSession = sess

	closed := Close(s, sess)

	assert.Nil(t, s.CurrentSession)
	assert.NotContains(t, s.Languages, "rust")
	assert.Equal(t, start, *closed.End)
	assert.Equal(t, model.FlowMetrics{}, *closed.FlowMetrics)
}

func TestClose_LongestIsMax(t *testing.T) {
	s := model.NewStats()
	s.LongestSession = 45
	sess := &model.CodingSession{Start: start}
	sess.RecordEdit(start.Add(10 * time.Minute))

	Close(s, sess)
	assert.Equal(t, 45.0, s.LongestSession)
	assert.InDelta(t, 10.0, s.TotalTimeSpent, 1e-9)
}
