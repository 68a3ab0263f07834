package stats

import (
	"slices"
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// XPPerLevel is the XP needed to leave level 1; level n needs n*XPPerLevel.
const XPPerLevel = 100

// StreakMilestones are the streak lengths that earn a celebration.
var StreakMilestones = []int{3, 7, 14, 30, 100}

// Streak counts consecutive active days ending today. It is 0 when today
// is inactive and depends only on history.
func Streak(history map[string]*model.DayRecord, today time.Time) int {
	day := model.StartOfDay(today)
	n := 0
	for n <= len(history) {
		if !history[model.DayKey(day)].Active() {
			break
		}
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// LiveStreak is the streak as it stands before today's first edit: the
// run ending today, or the run ending yesterday while today is still
// inactive. It is 0 once a full day was missed.
func LiveStreak(history map[string]*model.DayRecord, now time.Time) int {
	if n := Streak(history, now); n > 0 {
		return n
	}
	return Streak(history, model.StartOfDay(now).AddDate(0, 0, -1))
}

// UpdateStreak recomputes the streak from history, raises MaxStreak and
// returns the milestones newly reached by this update.
func UpdateStreak(s *model.Stats, now time.Time) []int {
	prev := s.Streak
	s.Streak = Streak(s.History, now)
	if s.Streak > s.MaxStreak {
		s.MaxStreak = s.Streak
	}
	var crossed []int
	for _, m := range StreakMilestones {
		if prev < m && s.Streak >= m {
			crossed = append(crossed, m)
		}
	}
	return crossed
}

// ApplyLevelUps converts surplus XP into levels until xp < level*100 and
// returns every level reached, in order.
func ApplyLevelUps(s *model.Stats) []int {
	if s.Level < 1 {
		s.Level = 1
	}
	var reached []int
	for s.XP >= s.Level*XPPerLevel {
		s.XP -= s.Level * XPPerLevel
		s.Level++
		reached = append(reached, s.Level)
	}
	return reached
}

// LevelForTotal returns the level and level-local XP that a lifetime total
// of xp produces from level 1.
func LevelForTotal(total int) (level, xp int) {
	level, xp = 1, total
	for xp >= level*XPPerLevel {
		xp -= level * XPPerLevel
		level++
	}
	return level, xp
}

// FavoriteLanguage returns the language with the most cumulative lines.
// Ties go to the language seen first.
func FavoriteLanguage(s *model.Stats) string {
	best, bestLines := "", -1
	for _, id := range order(s) {
		l := s.Languages[id]
		if l == nil {
			continue
		}
		if l.Lines > bestLines {
			best, bestLines = id, l.Lines
		}
	}
	return best
}

// order is LanguageOrder plus any rollup missing from it, which only
// happens for aggregates written before the order was tracked.
func order(s *model.Stats) []string {
	ids := s.LanguageOrder
	if len(ids) == len(s.Languages) {
		return ids
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	missing := make([]string, 0, len(s.Languages))
	for id := range s.Languages {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return append(append([]string(nil), ids...), missing...)
}

// Recompute refreshes codingDays, the averages and favoriteLanguage.
func Recompute(s *model.Stats) {
	s.CodingDays = 0
	for _, d := range s.History {
		if d != nil && d.Added > 0 {
			s.CodingDays++
		}
	}
	s.AverageXPPerDay = 0
	if s.CodingDays > 0 {
		s.AverageXPPerDay = float64(s.TotalXP) / float64(s.CodingDays)
	}
	s.AverageSessionLength = 0
	if n := len(s.Sessions); n > 0 {
		s.AverageSessionLength = s.TotalTimeSpent / float64(n)
	}
	s.FavoriteLanguage = FavoriteLanguage(s)
}
