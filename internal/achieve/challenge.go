package achieve

import (
	"math/rand/v2"
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// ChallengeTemplate is one entry of the weekly challenge catalog.
type ChallengeTemplate struct {
	ID          string
	Title       string
	Description string
	Type        model.ChallengeType
	Target      int
	Reward      int
}

// Challenges is the fixed weekly challenge catalog.
var Challenges = []ChallengeTemplate{
	{"weekly_lines_500", "Line Machine", "Write 500 lines this week", model.ChallengeLines, 500, 250},
	{"weekly_lines_1500", "Marathon Week", "Write 1,500 lines this week", model.ChallengeLines, 1500, 600},
	{"weekly_streak_5", "Five Alive", "Code on 5 days this week", model.ChallengeStreak, 5, 300},
	{"weekly_languages_3", "Language Tour", "Write code in 3 languages this week", model.ChallengeLanguages, 3, 200},
	{"weekly_time_300", "Five Hour Focus", "Spend 300 minutes coding this week", model.ChallengeTime, 300, 300},
	{"weekly_flow_3", "Flow Hunter", "Finish 3 sessions with a flow score of 70 or more", model.ChallengeFlow, 3, 350},
}

// FlowThreshold is the flow score a session needs to count toward a flow
// challenge.
const FlowThreshold = 70

// Picker returns an index in [0, n).
type Picker func(n int) int

// RandomPicker draws from math/rand/v2.
func RandomPicker(n int) int { return rand.IntN(n) }

// ChallengeResult reports what a challenge evaluation changed.
type ChallengeResult struct {
	Started   bool
	Completed bool
}

// EvaluateChallenge rolls the weekly challenge over when the week changed,
// recomputes its progress from this week's aggregates and completes it
// once, granting the reward XP.
func EvaluateChallenge(s *model.Stats, now time.Time, pick Picker) ChallengeResult {
	var res ChallengeResult
	week := model.WeekStart(now)
	weekKey := model.DayKey(week)

	c := s.WeeklyChallenge
	if c == nil || c.WeekStart != weekKey {
		if pick == nil {
			pick = RandomPicker
		}
		tpl := Challenges[pick(len(Challenges))]
		c = &model.WeeklyChallenge{
			ID:          tpl.ID + ":" + weekKey,
			Title:       tpl.Title,
			Description: tpl.Description,
			Type:        tpl.Type,
			Target:      tpl.Target,
			Reward:      tpl.Reward,
			WeekStart:   weekKey,
		}
		s.WeeklyChallenge = c
		res.Started = true
	}

	if c.Completed {
		return res
	}
	c.Progress = weekValue(s, c.Type, week)
	if c.Progress >= float64(c.Target) {
		c.Completed = true
		s.GrantXP(c.Reward)
		res.Completed = true
	}
	return res
}

// weekValue aggregates the challenge measure over the seven days from week.
func weekValue(s *model.Stats, typ model.ChallengeType, week time.Time) float64 {
	if typ == model.ChallengeFlow {
		end := week.AddDate(0, 0, 7)
		n := 0
		for _, sess := range s.Sessions {
			if sess.End == nil || sess.FlowMetrics == nil {
				continue
			}
			if sess.End.Before(week) || !sess.End.Before(end) {
				continue
			}
			if sess.FlowMetrics.FlowScore >= FlowThreshold {
				n++
			}
		}
		return float64(n)
	}

	var total float64
	langs := make(map[string]bool)
	for i := 0; i < 7; i++ {
		d := s.History[model.DayKey(week.AddDate(0, 0, i))]
		if d == nil {
			continue
		}
		switch typ {
		case model.ChallengeLines:
			total += float64(d.Added)
		case model.ChallengeStreak:
			if d.Active() {
				total++
			}
		case model.ChallengeTime:
			total += d.TimeSpent
		case model.ChallengeLanguages:
			for lang, lines := range d.Languages {
				if lines > 0 {
					langs[lang] = true
				}
			}
		}
	}
	if typ == model.ChallengeLanguages {
		return float64(len(langs))
	}
	return total
}
