package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// Summary is the dashboard view of a Stats aggregate.
type Summary struct {
	Name      string
	Level     int
	XP        int
	XPToNext  int
	TotalXP   int
	Streak    int
	MaxStreak int

	ManualLines  int
	DeletedLines int
	CodingDays   int

	TotalTime      float64 // minutes
	LongestSession float64 // minutes
	AvgSession     float64 // minutes
	AvgXPPerDay    float64
	AvgFlowScore   float64
	ClosedSessions int

	FavoriteLanguage   string
	MostProductiveHour int

	Today model.DayRecord

	Languages []LanguageRow
	Projects  []ProjectRow

	Unlocked          int
	TotalAchievements int
	RecentUnlocks     []model.Achievement
	NextAchievements  []model.Achievement

	Challenge *model.WeeklyChallenge
	Pomodoro  PomodoroRow
}

// LanguageRow is one language line of the dashboard.
type LanguageRow struct {
	ID        string
	Lines     int
	Sessions  int
	TimeSpent float64
}

// ProjectRow is one project line of the dashboard.
type ProjectRow struct {
	Name       string
	Lines      int
	Sessions   int
	TimeSpent  float64
	Languages  int
	Files      int
	LastWorked time.Time
}

// PomodoroRow summarises the focus timer.
type PomodoroRow struct {
	Completed     int
	CurrentStreak int
	LongestStreak int
	WorkMinutes   int
	BreakMinutes  int
	Interrupted   int
	Current       *model.PomodoroSession
}

// Compute builds a Summary from s as of now.
func Compute(s *model.Stats, now time.Time) Summary {
	sum := Summary{
		Name:               s.Name,
		Level:              s.Level,
		XP:                 s.XP,
		XPToNext:           s.Level*XPPerLevel - s.XP,
		TotalXP:            s.TotalXP,
		Streak:             s.Streak,
		MaxStreak:          s.MaxStreak,
		ManualLines:        s.ManualLines,
		DeletedLines:       s.DeletedLines,
		CodingDays:         s.CodingDays,
		TotalTime:          s.TotalTimeSpent,
		LongestSession:     s.LongestSession,
		AvgSession:         s.AverageSessionLength,
		AvgXPPerDay:        s.AverageXPPerDay,
		ClosedSessions:     len(s.Sessions),
		FavoriteLanguage:   s.FavoriteLanguage,
		MostProductiveHour: s.MostProductiveHour,
		Challenge:          s.WeeklyChallenge,
	}
	if d := s.History[model.DayKey(now)]; d != nil {
		sum.Today = *d
	}

	scored := 0
	for _, sess := range s.Sessions {
		if sess.FlowMetrics != nil && sess.FlowMetrics.FlowScore > 0 {
			sum.AvgFlowScore += float64(sess.FlowMetrics.FlowScore)
			scored++
		}
	}
	if scored > 0 {
		sum.AvgFlowScore /= float64(scored)
	}

	// Languages by lines desc, first-seen wins ties.
	for _, id := range order(s) {
		if l := s.Languages[id]; l != nil {
			sum.Languages = append(sum.Languages, LanguageRow{ID: id, Lines: l.Lines, Sessions: l.Sessions, TimeSpent: l.TimeSpent})
		}
	}
	sort.SliceStable(sum.Languages, func(i, j int) bool {
		return sum.Languages[i].Lines > sum.Languages[j].Lines
	})

	// Projects by lines desc, then name
	for name, p := range s.Projects {
		if p == nil {
			continue
		}
		sum.Projects = append(sum.Projects, ProjectRow{
			Name:       name,
			Lines:      p.Lines,
			Sessions:   p.Sessions,
			TimeSpent:  p.TimeSpent,
			Languages:  len(p.Languages),
			Files:      len(p.Files),
			LastWorked: p.LastWorked,
		})
	}
	sort.Slice(sum.Projects, func(i, j int) bool {
		if sum.Projects[i].Lines != sum.Projects[j].Lines {
			return sum.Projects[i].Lines > sum.Projects[j].Lines
		}
		return strings.ToLower(sum.Projects[i].Name) < strings.ToLower(sum.Projects[j].Name)
	})

	sum.TotalAchievements = len(s.Achievements)
	var pending []model.Achievement
	for _, a := range s.Achievements {
		if a.Unlocked() {
			sum.Unlocked++
			sum.RecentUnlocks = append(sum.RecentUnlocks, a)
		} else if a.Progress > 0 {
			pending = append(pending, a)
		}
	}
	sort.SliceStable(sum.RecentUnlocks, func(i, j int) bool {
		return sum.RecentUnlocks[i].UnlockedAt.After(*sum.RecentUnlocks[j].UnlockedAt)
	})
	if len(sum.RecentUnlocks) > 5 {
		sum.RecentUnlocks = sum.RecentUnlocks[:5]
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Progress > pending[j].Progress
	})
	if len(pending) > 3 {
		pending = pending[:3]
	}
	sum.NextAchievements = pending

	p := s.Pomodoro
	sum.Pomodoro = PomodoroRow{
		Completed:     p.CompletedSessions,
		CurrentStreak: p.CurrentStreak,
		LongestStreak: p.LongestStreak,
		WorkMinutes:   p.TotalWorkTime,
		BreakMinutes:  p.TotalBreakTime,
		Current:       p.Current,
	}
	for _, h := range p.History {
		if h.Interrupted {
			sum.Pomodoro.Interrupted++
		}
	}

	return sum
}
