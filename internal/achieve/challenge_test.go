package achieve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/codepulse/internal/model"
)

func pickID(id string) Picker {
	return func(int) int {
		for i, c := range Challenges {
			if c.ID == id {
				return i
			}
		}
		panic("unknown challenge " + id)
	}
}

func TestEvaluateChallenge_StartsForWeek(t *testing.T) {
	s := model.NewStats()
	res := EvaluateChallenge(s, now, pickID("weekly_lines_500"))

	assert.True(t, res.Started)
	require.NotNil(t, s.WeeklyChallenge)
	assert.Equal(t, "2026-10-11", s.WeeklyChallenge.WeekStart)
	assert.Equal(t, model.ChallengeLines, s.WeeklyChallenge.Type)
	assert.Zero(t, s.WeeklyChallenge.Progress)

	res = EvaluateChallenge(s, now.Add(time.Hour), pickID("weekly_flow_3"))
	assert.False(t, res.Started)
	assert.Equal(t, model.ChallengeLines, s.WeeklyChallenge.Type)
}

func TestEvaluateChallenge_RollsOverOnNewWeek(t *testing.T) {
	s := model.NewStats()
	s.WeeklyChallenge = &model.WeeklyChallenge{ID: "old", WeekStart: "2026-10-04", Progress: 400, Target: 500, Type: model.ChallengeLines}

	res := EvaluateChallenge(s, now, pickID("weekly_time_300"))

	assert.True(t, res.Started)
	assert.Equal(t, model.ChallengeTime, s.WeeklyChallenge.Type)
	assert.Equal(t, "2026-10-11", s.WeeklyChallenge.WeekStart)
	assert.Zero(t, s.WeeklyChallenge.Progress)
}

func TestEvaluateChallenge_CompletesOnce(t *testing.T) {
	s := model.NewStats()
	s.Day("2026-10-10").Added = 900 // previous week, ignored
	s.Day("2026-10-11").Added = 300
	s.Day("2026-10-13").Added = 150

	EvaluateChallenge(s, now, pickID("weekly_lines_500"))
	assert.Equal(t, 450.0, s.WeeklyChallenge.Progress)
	assert.False(t, s.WeeklyChallenge.Completed)
	assert.Zero(t, s.TotalXP)

	s.Day("2026-10-13").Added = 200
	res := EvaluateChallenge(s, now, nil)
	assert.True(t, res.Completed)
	assert.True(t, s.WeeklyChallenge.Completed)
	assert.Equal(t, 250, s.TotalXP)

	s.Day("2026-10-14").Added = 500
	res = EvaluateChallenge(s, now, nil)
	assert.False(t, res.Completed)
	assert.Equal(t, 250, s.TotalXP)
}

func TestWeekValue(t *testing.T) {
	week := model.WeekStart(now)
	s := model.NewStats()
	mon := s.Day("2026-10-12")
	mon.Added, mon.TimeSpent = 10, 45
	mon.Languages["go"] = 10
	mon.Languages["sql"] = 0
	tue := s.Day("2026-10-13")
	tue.Removed, tue.TimeSpent = 3, 15
	tue.Languages["python"] = 4
	s.Day("2026-10-18").Added = 99 // next week

	inWeek := time.Date(2026, 10, 12, 11, 0, 0, 0, time.Local)
	nextWeek := time.Date(2026, 10, 18, 11, 0, 0, 0, time.Local)
	s.Sessions = []model.CodingSession{
		{End: &inWeek, FlowMetrics: &model.FlowMetrics{FlowScore: 70}},
		{End: &inWeek, FlowMetrics: &model.FlowMetrics{FlowScore: 69}},
		{End: &nextWeek, FlowMetrics: &model.FlowMetrics{FlowScore: 95}},
	}

	assert.Equal(t, 10.0, weekValue(s, model.ChallengeLines, week))
	assert.Equal(t, 2.0, weekValue(s, model.ChallengeStreak, week))
	assert.Equal(t, 60.0, weekValue(s, model.ChallengeTime, week))
	assert.Equal(t, 2.0, weekValue(s, model.ChallengeLanguages, week))
	assert.Equal(t, 1.0, weekValue(s, model.ChallengeFlow, week))
}

func TestRandomPicker_InRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		n := RandomPicker(len(Challenges))
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, len(Challenges))
	}
}
