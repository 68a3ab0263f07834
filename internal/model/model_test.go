package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStats_Defaults(t *testing.T) {
	s := NewStats()

	assert.Equal(t, DefaultName, s.Name)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, -1, s.MostProductiveHour)
	assert.NotNil(t, s.History)
	assert.NotNil(t, s.Languages)
	assert.NotNil(t, s.Projects)
}

func TestStats_DayCreatesLazily(t *testing.T) {
	s := NewStats()
	assert.Empty(t, s.History)

	d := s.Day("2026-03-01")
	d.Added = 5

	assert.Len(t, s.History, 1)
	assert.Same(t, d, s.Day("2026-03-01"))
	assert.NotNil(t, d.Languages)
}

func TestStats_LanguageTracksInsertionOrder(t *testing.T) {
	s := NewStats()

	_, created := s.Language("go")
	assert.True(t, created)
	_, created = s.Language("python")
	assert.True(t, created)
	_, created = s.Language("go")
	assert.False(t, created)

	assert.Equal(t, []string{"go", "python"}, s.LanguageOrder)
}

func TestDayRecord_Active(t *testing.T) {
	tests := []struct {
		name string
		day  *DayRecord
		want bool
	}{
		{"nil", nil, false},
		{"empty", &DayRecord{}, false},
		{"added", &DayRecord{Added: 1}, true},
		{"removed", &DayRecord{Removed: 2}, true},
		{"touched", &DayRecord{Touched: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.day.Active())
		})
	}
}

func TestCodingSession_RecordEditCaps(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	s := &CodingSession{Start: start}
	for i := 0; i < SessionEditCap+20; i++ {
		s.RecordEdit(start.Add(time.Duration(i) * time.Second))
	}

	require.Len(t, s.EditTimes, SessionEditCap)
	assert.Equal(t, start.Add(20*time.Second), s.EditTimes[0])
	assert.Equal(t, time.Duration(SessionEditCap+19)*time.Second, s.Duration())
}

func TestCodingSession_AddFileDistinct(t *testing.T) {
	s := &CodingSession{}
	s.AddFile("a.go")
	s.AddFile("b.go")
	s.AddFile("a.go")
	s.AddFile("")

	assert.Equal(t, []string{"a.go", "b.go"}, s.Files)
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 10, 16, 15, 0, 0, 0, time.Local), "2026-10-11"}, // Friday
		{time.Date(2026, 10, 11, 0, 30, 0, 0, time.Local), "2026-10-11"}, // Sunday
		{time.Date(2026, 10, 17, 23, 0, 0, 0, time.Local), "2026-10-11"}, // Saturday
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DayKey(WeekStart(tt.in)), tt.in.String())
	}
}

func TestClone_IsDeep(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	s := NewStats()
	s.Day("2026-03-01").Languages["go"] = 3
	lang, _ := s.Language("go")
	lang.Lines = 3
	s.Project("api").AddFile("/src/api/main.go")
	s.CurrentSession = &CodingSession{Start: now, Files: []string{"a.go"}, EditTimes: []time.Time{now}}
	s.Achievements = []Achievement{{ID: "first_line", UnlockedAt: &now}}
	s.Pomodoro.Current = &PomodoroSession{ID: "p1", RemainingSeconds: 60}
	s.RecentChanges = []RecentChange{{Text: "abc"}}

	c := s.Clone()
	c.Day("2026-03-01").Languages["go"] = 99
	c.Languages["go"].Lines = 99
	c.Projects["api"].AddFile("/src/api/other.go")
	c.CurrentSession.Files[0] = "changed.go"
	*c.Achievements[0].UnlockedAt = now.Add(time.Hour)
	c.Pomodoro.Current.RemainingSeconds = 1
	c.RecentChanges[0].Text = "zzz"

	assert.Equal(t, 3, s.History["2026-03-01"].Languages["go"])
	assert.Equal(t, 3, s.Languages["go"].Lines)
	assert.Len(t, s.Projects["api"].Files, 1)
	assert.Equal(t, "a.go", s.CurrentSession.Files[0])
	assert.Equal(t, now, *s.Achievements[0].UnlockedAt)
	assert.Equal(t, 60, s.Pomodoro.Current.RemainingSeconds)
	assert.Equal(t, "abc", s.RecentChanges[0].Text)
}

func TestGrantXP(t *testing.T) {
	s := NewStats()
	s.GrantXP(30)
	s.GrantXP(-5)

	assert.Equal(t, 30, s.XP)
	assert.Equal(t, 30, s.TotalXP)
}
