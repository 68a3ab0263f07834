package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/codepulse/internal/model"
)

var now = time.Date(2026, 3, 2, 14, 30, 15, 123_000_000, time.Local)

func richStats() *model.Stats {
	s := model.NewStats()
	s.Name = "Ada"
	s.XP, s.TotalXP, s.Level = 40, 1240, 5
	s.Streak, s.MaxStreak = 3, 9
	s.ManualLines, s.DeletedLines = 120, 30
	s.LastCoded = &now
	s.FavoriteLanguage = "go"
	s.MostProductiveHour = 14
	s.CodingDays = 4
	s.AverageXPPerDay = 310
	s.AverageSessionLength = 12.5
	s.TotalTimeSpent = 25
	s.LongestSession = 20.25
	s.LastReminder = "2026-03-01"

	d := s.Day("2026-03-02")
	d.Added, d.Removed, d.Sessions, d.TimeSpent = 12, 3, 1, 20.25
	d.Languages["go"] = 12
	s.Day("2026-03-01").Touched = true

	l, _ := s.Language("go")
	l.Lines, l.Sessions, l.TimeSpent = 100, 2, 25
	l, _ = s.Language("python")
	l.Lines = 20

	p := s.Project("api")
	p.Lines, p.Sessions, p.TimeSpent = 120, 2, 25
	p.AddLanguage("go")
	p.AddFile("/src/api/main.go")
	p.LastWorked = now

	end := now.Add(-time.Hour)
	s.Sessions = []model.CodingSession{{
		Start: now.Add(-90 * time.Minute), End: &end, Lines: 10, Language: "go", Project: "api",
		Files:       []string{"/src/api/main.go"},
		FlowMetrics: &model.FlowMetrics{Interruptions: 1, TypingBursts: 2, LongestBurst: 4.5, AverageGapTime: 30.2, FlowScore: 10},
	}}
	s.CurrentSession = &model.CodingSession{Start: now, Lines: 2, Language: "go", Files: []string{"a.go"}, EditTimes: []time.Time{now}}

	s.Badges = []model.Badge{{ID: "lang:go", Title: "First go code", Icon: "🏅", EarnedAt: now}}
	s.Achievements = []model.Achievement{
		{ID: "lines_100", Title: "Warming Up", Target: 100, Progress: 100, UnlockedAt: &now},
		{ID: "lines_1000", Title: "Code Machine", Target: 1000, Progress: 12},
	}
	s.WeeklyChallenge = &model.WeeklyChallenge{ID: "weekly_lines_500:2026-03-01", Title: "Line Machine", Type: model.ChallengeLines, Target: 500, Reward: 250, Progress: 12, WeekStart: "2026-03-01"}
	s.Pomodoro = model.PomodoroStats{
		CompletedSessions: 2, CurrentStreak: 2, LongestStreak: 2, TotalWorkTime: 50,
		Current: &model.PomodoroSession{ID: "p3", Start: now, Duration: 25, Type: model.PomodoroWork, RemainingSeconds: 733, State: model.PomodoroPaused, PausedAt: &now},
		History: []model.PomodoroSession{{ID: "p1", Start: now.Add(-2 * time.Hour), End: &end, Duration: 25, Type: model.PomodoroWork, Completed: true, State: model.PomodoroCompleted}},
	}
	s.RecentChanges = []model.RecentChange{{Timestamp: now, Text: "x := 1\n", FileName: "a.go"}}
	return s
}

func TestRoundTrip_Lossless(t *testing.T) {
	s := richStats()
	first, _, err := Encode(s, DefaultEncodeOptions, now)
	require.NoError(t, err)

	back, err := Decode(first)
	require.NoError(t, err)
	second, _, err := Encode(back, DefaultEncodeOptions, now)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))

	assert.Equal(t, s.Name, back.Name)
	assert.Equal(t, s.XP, back.XP)
	assert.Equal(t, s.TotalXP, back.TotalXP)
	assert.Equal(t, s.Level, back.Level)
	assert.Equal(t, s.LongestSession, back.LongestSession)
	assert.True(t, s.LastCoded.Equal(*back.LastCoded))
	assert.Equal(t, now.UnixMilli(), back.Pomodoro.Current.PausedAt.UnixMilli())
	assert.Equal(t, 733, back.Pomodoro.Current.RemainingSeconds)
	assert.Equal(t, []string{"go", "python"}, back.LanguageOrder)
	require.NotNil(t, back.CurrentSession)
	assert.Len(t, back.CurrentSession.EditTimes, 1)
}

func TestDecode_Empty(t *testing.T) {
	for _, in := range []string{"", "  \n"} {
		s, err := Decode([]byte(in))
		require.NoError(t, err)
		assert.Equal(t, model.NewStats(), s)
	}
}

func TestDecode_Unusable(t *testing.T) {
	for _, in := range []string{"{not json", "[1,2,3]", `"hello"`, "null"} {
		s, err := Decode([]byte(in))
		assert.Nil(t, s, in)
		var le *LoadError
		assert.True(t, errors.As(err, &le), in)
	}
}

func TestDecode_DefaultTable(t *testing.T) {
	blob := `{
		"name": 42,
		"xp": "abc",
		"totalXp": "250",
		"level": -3,
		"streak": true,
		"manualLines": -10,
		"mostProductiveHour": 99,
		"averageXpPerDay": "NaN",
		"totalTimeSpent": "Infinity",
		"longestSession": -5,
		"favoriteLanguage": null
	}`
	s, err := Decode([]byte(blob))
	require.NoError(t, err)

	assert.Equal(t, model.DefaultName, s.Name)
	assert.Equal(t, 0, s.XP)
	assert.Equal(t, 250, s.TotalXP)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, 0, s.Streak)
	assert.Equal(t, 0, s.ManualLines)
	assert.Equal(t, -1, s.MostProductiveHour)
	assert.Zero(t, s.AverageXPPerDay)
	assert.Zero(t, s.TotalTimeSpent)
	assert.Zero(t, s.LongestSession)
	assert.Empty(t, s.FavoriteLanguage)
	assert.NotNil(t, s.History)
}

func TestDecode_Timestamps(t *testing.T) {
	ms := now.UnixMilli()
	blob := fmt.Sprintf(`{
		"lastCoded": %d,
		"projects": {"api": {"lastWorked": "%d"}},
		"badges": [{"id": "lang:go", "earnedAt": "%s"}],
		"sessions": [{"start": "garbage", "end": %d}]
	}`, ms, ms, now.Format(time.RFC3339Nano), ms)

	s, err := Decode([]byte(blob))
	require.NoError(t, err)

	require.NotNil(t, s.LastCoded)
	assert.Equal(t, ms, s.LastCoded.UnixMilli())
	assert.Equal(t, ms, s.Projects["api"].LastWorked.UnixMilli())
	assert.True(t, now.Equal(s.Badges[0].EarnedAt))
	assert.Empty(t, s.Sessions, "session with bad start is dropped")
}

func TestDecode_DropsDamagedEntries(t *testing.T) {
	blob := `{
		"history": {"2026-03-02": {"added": 5, "languages": {"go": 5, "bad": "x"}}, "yesterday": {"added": 1}, "2026-03-01": 7},
		"languages": {"go": {"lines": 5}, "rust": "oops"},
		"languageOrder": ["python", "go", "go"],
		"achievements": [{"id": "lines_100", "progress": 250}, {"title": "no id"}],
		"weeklyChallenge": {"title": "missing week"},
		"pomodoroStats": {"completedSessions": 1, "current": {"start": 1, "type": "nap", "state": "running"}},
		"currentSession": {"start": 1700000000000, "end": 1700000001000}
	}`
	s, err := Decode([]byte(blob))
	require.NoError(t, err)

	assert.Len(t, s.History, 1)
	assert.Equal(t, map[string]int{"go": 5}, s.History["2026-03-02"].Languages)
	assert.Len(t, s.Languages, 1)
	assert.Equal(t, []string{"go"}, s.LanguageOrder)
	require.Len(t, s.Achievements, 1)
	assert.Equal(t, 100.0, s.Achievements[0].Progress)
	assert.Nil(t, s.WeeklyChallenge)
	assert.Equal(t, 1, s.Pomodoro.CompletedSessions)
	assert.Nil(t, s.Pomodoro.Current)
	assert.Nil(t, s.CurrentSession, "a closed session cannot be current")
}

func TestDecode_CriticalPayload(t *testing.T) {
	data, err := EncodeCritical(richStats())
	require.NoError(t, err)

	s, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "Ada", s.Name)
	assert.Equal(t, 120, s.ManualLines)
	assert.Equal(t, 40, s.XP)
	assert.Equal(t, 5, s.Level)
	assert.Equal(t, 3, s.Streak)
	assert.True(t, now.Equal(*s.LastCoded))
	assert.Empty(t, s.History)
}

func TestEncode_PrunesOverCap(t *testing.T) {
	s := model.NewStats()
	for i := 0; i < 800; i++ {
		d := s.Day(model.DayKey(now.AddDate(0, 0, -i)))
		d.Added = i + 1
		d.Languages["go"] = i + 1
	}
	full, pruned, err := Encode(s, EncodeOptions{MaxBytes: 0, RetentionDays: 365}, now)
	require.NoError(t, err)
	assert.Zero(t, pruned)
	assert.Len(t, s.History, 800)

	data, pruned, err := Encode(s, EncodeOptions{MaxBytes: len(full) - 1, RetentionDays: 365}, now)
	require.NoError(t, err)
	assert.Equal(t, 800-366, pruned)
	assert.Len(t, s.History, 366)
	assert.Less(t, len(data), len(full))
	assert.Contains(t, s.History, model.DayKey(now.AddDate(0, 0, -365)))
	assert.NotContains(t, s.History, model.DayKey(now.AddDate(0, 0, -366)))
}

func TestEncode_UnderCapKeepsHistory(t *testing.T) {
	s := model.NewStats()
	s.Day("2001-01-01").Added = 1
	_, pruned, err := Encode(s, DefaultEncodeOptions, now)
	require.NoError(t, err)
	assert.Zero(t, pruned)
	assert.Contains(t, s.History, "2001-01-01")
}

func TestLoadError_Message(t *testing.T) {
	_, err := Decode([]byte("{"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "unusable stored state"))
}
