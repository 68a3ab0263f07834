// Package model holds the persisted Stats aggregate and its record types.
// Every component mutates the one live *Stats owned by the engine; nothing
// keeps a private copy.
package model

import "time"

// Ring-buffer limits for the validator's recent-change log.
const (
	RecentChangesCap    = 10
	RecentChangesWindow = 5 * time.Minute
	RecentTextMax       = 100
)

// SessionEditCap bounds the edit timestamps kept for an open session.
const SessionEditCap = 100

// DayRecord is the aggregate bucket for one calendar date.
type DayRecord struct {
	Added        int            `json:"added"`
	Removed      int            `json:"removed"`
	Touched      bool           `json:"touched"`
	Languages    map[string]int `json:"languages"`
	Sessions     int            `json:"sessions"`
	TimeSpent    float64        `json:"timeSpent"` // minutes
	GoalNotified bool           `json:"goalNotified,omitempty"`
}

// Active reports whether the day counts toward a streak.
func (d *DayRecord) Active() bool {
	return d != nil && (d.Added > 0 || d.Removed > 0 || d.Touched)
}

// LanguageStat is the cumulative rollup for one language id.
type LanguageStat struct {
	Lines     int     `json:"lines"`
	Sessions  int     `json:"sessions"`
	TimeSpent float64 `json:"timeSpent"`
}

// ProjectStat is the cumulative rollup for one inferred project.
type ProjectStat struct {
	Lines      int       `json:"lines"`
	Sessions   int       `json:"sessions"`
	TimeSpent  float64   `json:"timeSpent"`
	Languages  []string  `json:"languages"`
	Files      []string  `json:"files"`
	LastWorked time.Time `json:"lastWorked"`
}

// AddLanguage inserts lang into the distinct language set.
func (p *ProjectStat) AddLanguage(lang string) {
	p.Languages = addDistinct(p.Languages, lang)
}

// AddFile inserts path into the distinct file set.
func (p *ProjectStat) AddFile(path string) {
	p.Files = addDistinct(p.Files, path)
}

// FlowMetrics summarises one closed coding session.
type FlowMetrics struct {
	Interruptions  int     `json:"interruptions"`
	TypingBursts   int     `json:"typingBursts"`
	LongestBurst   float64 `json:"longestBurst"`   // minutes
	AverageGapTime float64 `json:"averageGapTime"` // seconds
	FileSwitches   int     `json:"fileSwitches"`
	FlowScore      int     `json:"flowScore"`
}

// CodingSession groups validated edits. It is open while End is nil.
type CodingSession struct {
	Start       time.Time    `json:"start"`
	End         *time.Time   `json:"end,omitempty"`
	Lines       int          `json:"lines"`
	Language    string       `json:"language"`
	Project     string       `json:"project,omitempty"`
	Files       []string     `json:"files"`
	FlowMetrics *FlowMetrics `json:"flowMetrics,omitempty"`
	EditTimes   []time.Time  `json:"editTimes,omitempty"`
}

// Duration returns the session length; open sessions measure to their
// last recorded edit.
func (s *CodingSession) Duration() time.Duration {
	if s.End != nil {
		return s.End.Sub(s.Start)
	}
	if n := len(s.EditTimes); n > 0 {
		return s.EditTimes[n-1].Sub(s.Start)
	}
	return 0
}

// AddFile appends path to the ordered distinct file list.
func (s *CodingSession) AddFile(path string) {
	if path == "" {
		return
	}
	s.Files = addDistinct(s.Files, path)
}

// RecordEdit appends an edit timestamp, keeping the most recent SessionEditCap.
func (s *CodingSession) RecordEdit(at time.Time) {
	s.EditTimes = append(s.EditTimes, at)
	if len(s.EditTimes) > SessionEditCap {
		s.EditTimes = s.EditTimes[len(s.EditTimes)-SessionEditCap:]
	}
}

// Achievement is a catalog template plus mutable progress.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Category    string     `json:"category"`
	Rarity      string     `json:"rarity"`
	Target      int        `json:"target"`
	Progress    float64    `json:"progress"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// Unlocked reports whether the achievement has been granted.
func (a *Achievement) Unlocked() bool { return a.UnlockedAt != nil }

// ChallengeType selects the weekly progress formula.
type ChallengeType string

const (
	ChallengeLines     ChallengeType = "lines"
	ChallengeStreak    ChallengeType = "streak"
	ChallengeLanguages ChallengeType = "languages"
	ChallengeTime      ChallengeType = "time"
	ChallengeFlow      ChallengeType = "flow"
)

// WeeklyChallenge is the single active challenge for a week.
type WeeklyChallenge struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        ChallengeType `json:"type"`
	Target      int           `json:"target"`
	Reward      int           `json:"reward"`
	Progress    float64       `json:"progress"`
	Completed   bool          `json:"completed"`
	WeekStart   string        `json:"weekStart"`
}

// Badge is a permanent one-time unlock marker.
type Badge struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Icon     string    `json:"icon"`
	EarnedAt time.Time `json:"earnedAt"`
}

// RecentChange is one accepted edit in the validator's rolling log.
type RecentChange struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	FileName  string    `json:"fileName"`
}

// Stats is the single persisted aggregate.
type Stats struct {
	Name string `json:"name"`

	XP           int `json:"xp"`
	TotalXP      int `json:"totalXp"`
	Level        int `json:"level"`
	Streak       int `json:"streak"`
	MaxStreak    int `json:"maxStreak"`
	ManualLines  int `json:"manualLines"`
	DeletedLines int `json:"deletedLines"`

	LastCoded *time.Time `json:"lastCoded,omitempty"`

	FavoriteLanguage     string  `json:"favoriteLanguage"`
	MostProductiveHour   int     `json:"mostProductiveHour"`
	CodingDays           int     `json:"codingDays"`
	AverageXPPerDay      float64 `json:"averageXpPerDay"`
	AverageSessionLength float64 `json:"averageSessionLength"` // minutes
	TotalTimeSpent       float64 `json:"totalTimeSpent"`       // minutes
	LongestSession       float64 `json:"longestSession"`       // minutes

	History       map[string]*DayRecord    `json:"history"`
	Languages     map[string]*LanguageStat `json:"languages"`
	LanguageOrder []string                 `json:"languageOrder"`
	Projects      map[string]*ProjectStat  `json:"projects"`

	Sessions       []CodingSession `json:"sessions"`
	CurrentSession *CodingSession  `json:"currentSession,omitempty"`

	Badges          []Badge          `json:"badges"`
	Achievements    []Achievement    `json:"achievements"`
	WeeklyChallenge *WeeklyChallenge `json:"weeklyChallenge,omitempty"`
	Pomodoro        PomodoroStats    `json:"pomodoroStats"`

	RecentChanges []RecentChange `json:"recentChanges"`
	LastReminder  string         `json:"lastReminder,omitempty"`
}

// DefaultName is the display name of a fresh aggregate.
const DefaultName = "Developer"

// NewStats returns a fresh aggregate at level 1.
func NewStats() *Stats {
	return &Stats{
		Name:               DefaultName,
		Level:              1,
		MostProductiveHour: -1,
		History:            make(map[string]*DayRecord),
		Languages:          make(map[string]*LanguageStat),
		Projects:           make(map[string]*ProjectStat),
	}
}

// Day fetches or creates the record for key.
func (s *Stats) Day(key string) *DayRecord {
	if s.History == nil {
		s.History = make(map[string]*DayRecord)
	}
	d, ok := s.History[key]
	if !ok {
		d = &DayRecord{Languages: make(map[string]int)}
		s.History[key] = d
	}
	if d.Languages == nil {
		d.Languages = make(map[string]int)
	}
	return d
}

// Language fetches the rollup for id, creating it when missing.
// created is true only on creation.
func (s *Stats) Language(id string) (stat *LanguageStat, created bool) {
	if s.Languages == nil {
		s.Languages = make(map[string]*LanguageStat)
	}
	if l, ok := s.Languages[id]; ok {
		return l, false
	}
	l := &LanguageStat{}
	s.Languages[id] = l
	s.LanguageOrder = addDistinct(s.LanguageOrder, id)
	return l, true
}

// Project fetches or creates the rollup for name.
func (s *Stats) Project(name string) *ProjectStat {
	if s.Projects == nil {
		s.Projects = make(map[string]*ProjectStat)
	}
	p, ok := s.Projects[name]
	if !ok {
		p = &ProjectStat{}
		s.Projects[name] = p
	}
	return p
}

// HasBadge reports whether a badge with id was already earned.
func (s *Stats) HasBadge(id string) bool {
	for _, b := range s.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// GrantXP adds amount to both the level-local and lifetime counters.
func (s *Stats) GrantXP(amount int) {
	if amount <= 0 {
		return
	}
	s.XP += amount
	s.TotalXP += amount
}

func addDistinct(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
