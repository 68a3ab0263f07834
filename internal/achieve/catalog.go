package achieve

import (
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// Categories.
const (
	CatLines    = "lines"
	CatDaily    = "daily"
	CatStreak   = "streak"
	CatLanguage = "language"
	CatLevel    = "level"
	CatSession  = "session"
	CatTime     = "time"
	CatFlow     = "flow"
	CatProject  = "project"
	CatCleanup  = "cleanup"
	CatPomodoro = "pomodoro"
	CatSpecial  = "special"
)

// Rarities.
const (
	Common    = "common"
	Rare      = "rare"
	Epic      = "epic"
	Legendary = "legendary"
)

// Activity describes the cycle being evaluated.
type Activity struct {
	Now time.Time
	// Coded is true when the cycle accepted at least one line.
	Coded bool
}

// Definition is a catalog template with its progress source. Value
// returns the current measure compared against Target; binary templates
// use a Target of 1 and return 0 or 1.
type Definition struct {
	ID          string
	Title       string
	Description string
	Icon        string
	Category    string
	Rarity      string
	Target      int
	Value       func(s *model.Stats, a Activity) float64
}

// Template returns the persisted form of d with no progress.
func (d Definition) Template() model.Achievement {
	return model.Achievement{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Icon:        d.Icon,
		Category:    d.Category,
		Rarity:      d.Rarity,
		Target:      d.Target,
	}
}

func manualLines(s *model.Stats, _ Activity) float64 { return float64(s.ManualLines) }
func deletedLines(s *model.Stats, _ Activity) float64 { return float64(s.DeletedLines) }
func bestStreak(s *model.Stats, _ Activity) float64  { return float64(max(s.Streak, s.MaxStreak)) }
func languages(s *model.Stats, _ Activity) float64   { return float64(len(s.Languages)) }
func level(s *model.Stats, _ Activity) float64       { return float64(s.Level) }
func sessions(s *model.Stats, _ Activity) float64    { return float64(len(s.Sessions)) }
func projects(s *model.Stats, _ Activity) float64    { return float64(len(s.Projects)) }
func hoursCoded(s *model.Stats, _ Activity) float64  { return s.TotalTimeSpent / 60 }

func pomodoros(s *model.Stats, _ Activity) float64 {
	return float64(s.Pomodoro.CompletedSessions)
}

func pomodoroStreak(s *model.Stats, _ Activity) float64 {
	return float64(max(s.Pomodoro.CurrentStreak, s.Pomodoro.LongestStreak))
}

func bestDay(s *model.Stats, _ Activity) float64 {
	best := 0
	for _, d := range s.History {
		if d != nil && d.Added > best {
			best = d.Added
		}
	}
	return float64(best)
}

func bestFlow(s *model.Stats, _ Activity) float64 {
	best := 0
	for _, sess := range s.Sessions {
		if sess.FlowMetrics != nil && sess.FlowMetrics.FlowScore > best {
			best = sess.FlowMetrics.FlowScore
		}
	}
	return float64(best)
}

func codedWhen(ok func(t time.Time) bool) func(*model.Stats, Activity) float64 {
	return func(_ *model.Stats, a Activity) float64 {
		if a.Coded && ok(a.Now) {
			return 1
		}
		return 0
	}
}

// Catalog is the fixed achievement list, in display order.
var Catalog = []Definition{
	{"first_code", "Hello, World", "Write your first meaningful line", "👋", CatLines, Common, 1, manualLines},
	{"lines_100", "Warming Up", "Write 100 lines of code", "✍️", CatLines, Common, 100, manualLines},
	{"lines_1000", "Code Machine", "Write 1,000 lines of code", "⚙️", CatLines, Rare, 1000, manualLines},
	{"lines_5000", "Prolific", "Write 5,000 lines of code", "📚", CatLines, Epic, 5000, manualLines},
	{"lines_10000", "Ten Thousand", "Write 10,000 lines of code", "🏔️", CatLines, Legendary, 10000, manualLines},

	{"daily_100", "Century Day", "Write 100 lines in a single day", "💯", CatDaily, Common, 100, bestDay},
	{"daily_500", "Power Day", "Write 500 lines in a single day", "⚡", CatDaily, Epic, 500, bestDay},

	{"streak_3", "On a Roll", "Code 3 days in a row", "🔥", CatStreak, Common, 3, bestStreak},
	{"streak_7", "Week Warrior", "Code 7 days in a row", "📅", CatStreak, Rare, 7, bestStreak},
	{"streak_30", "Monthly Devotion", "Code 30 days in a row", "🗓️", CatStreak, Epic, 30, bestStreak},
	{"streak_100", "Unstoppable", "Code 100 days in a row", "💎", CatStreak, Legendary, 100, bestStreak},

	{"polyglot_3", "Polyglot", "Write code in 3 languages", "🌍", CatLanguage, Common, 3, languages},
	{"polyglot_5", "Linguist", "Write code in 5 languages", "🗣️", CatLanguage, Rare, 5, languages},
	{"polyglot_10", "Babel", "Write code in 10 languages", "🏛️", CatLanguage, Epic, 10, languages},

	{"level_5", "Apprentice", "Reach level 5", "⭐", CatLevel, Common, 5, level},
	{"level_10", "Journeyman", "Reach level 10", "🌟", CatLevel, Rare, 10, level},
	{"level_25", "Master", "Reach level 25", "👑", CatLevel, Legendary, 25, level},

	{"sessions_10", "Regular", "Complete 10 coding sessions", "🎯", CatSession, Common, 10, sessions},
	{"sessions_100", "Seasoned", "Complete 100 coding sessions", "🏅", CatSession, Epic, 100, sessions},

	{"time_10h", "Ten Hours In", "Spend 10 hours coding", "⏱️", CatTime, Common, 10, hoursCoded},
	{"time_100h", "Centurion", "Spend 100 hours coding", "⌛", CatTime, Epic, 100, hoursCoded},

	{"flow_70", "In the Zone", "Finish a session with a flow score of 70", "🌊", CatFlow, Rare, 70, bestFlow},
	{"flow_90", "Deep Flow", "Finish a session with a flow score of 90", "🧘", CatFlow, Epic, 90, bestFlow},

	{"projects_3", "Juggler", "Work on 3 projects", "🤹", CatProject, Common, 3, projects},
	{"projects_10", "Portfolio", "Work on 10 projects", "🗂️", CatProject, Rare, 10, projects},

	{"cleanup_100", "Tidy Up", "Delete 100 lines of code", "🧹", CatCleanup, Common, 100, deletedLines},
	{"cleanup_1000", "Marie Kondo", "Delete 1,000 lines of code", "🗑️", CatCleanup, Rare, 1000, deletedLines},

	{"pomodoro_1", "Tomato Timer", "Complete a focus session", "🍅", CatPomodoro, Common, 1, pomodoros},
	{"pomodoro_25", "Focus Farmer", "Complete 25 focus sessions", "🧺", CatPomodoro, Rare, 25, pomodoros},
	{"pomodoro_streak_4", "Full Cycle", "Complete 4 focus sessions in a row", "🔄", CatPomodoro, Rare, 4, pomodoroStreak},

	{"early_bird", "Early Bird", "Code before 6 AM", "🐦", CatSpecial, Rare, 1,
		codedWhen(func(t time.Time) bool { return t.Hour() < 6 })},
	{"night_owl", "Night Owl", "Code after 10 PM", "🦉", CatSpecial, Rare, 1,
		codedWhen(func(t time.Time) bool { return t.Hour() >= 22 })},
	{"weekend_warrior", "Weekend Warrior", "Code on a weekend", "🏖️", CatSpecial, Common, 1,
		codedWhen(func(t time.Time) bool { return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday })},
}

var byID = func() map[string]Definition {
	m := make(map[string]Definition, len(Catalog))
	for _, d := range Catalog {
		m[d.ID] = d
	}
	return m
}()

// Lookup returns the catalog definition for id.
func Lookup(id string) (Definition, bool) {
	d, ok := byID[id]
	return d, ok
}
