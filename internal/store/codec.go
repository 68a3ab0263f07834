package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// LoadError means a stored blob could not be used at all.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "unusable stored state: " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Scalar fallbacks for the top-level aggregate. A stored value that is
// missing, non-numeric or non-finite is replaced by Default; values below
// Min are raised to Min.
type intDefault struct {
	Key     string
	Default int
	Min     int
	field   func(*model.Stats) *int
}

type floatDefault struct {
	Key     string
	Default float64
	field   func(*model.Stats) *float64
}

type stringDefault struct {
	Key     string
	Default string
	field   func(*model.Stats) *string
}

var intDefaults = []intDefault{
	{"xp", 0, 0, func(s *model.Stats) *int { return &s.XP }},
	{"totalXp", 0, 0, func(s *model.Stats) *int { return &s.TotalXP }},
	{"level", 1, 1, func(s *model.Stats) *int { return &s.Level }},
	{"streak", 0, 0, func(s *model.Stats) *int { return &s.Streak }},
	{"maxStreak", 0, 0, func(s *model.Stats) *int { return &s.MaxStreak }},
	{"manualLines", 0, 0, func(s *model.Stats) *int { return &s.ManualLines }},
	{"deletedLines", 0, 0, func(s *model.Stats) *int { return &s.DeletedLines }},
	{"mostProductiveHour", -1, -1, func(s *model.Stats) *int { return &s.MostProductiveHour }},
	{"codingDays", 0, 0, func(s *model.Stats) *int { return &s.CodingDays }},
}

var floatDefaults = []floatDefault{
	{"averageXpPerDay", 0, func(s *model.Stats) *float64 { return &s.AverageXPPerDay }},
	{"averageSessionLength", 0, func(s *model.Stats) *float64 { return &s.AverageSessionLength }},
	{"totalTimeSpent", 0, func(s *model.Stats) *float64 { return &s.TotalTimeSpent }},
	{"longestSession", 0, func(s *model.Stats) *float64 { return &s.LongestSession }},
}

var stringDefaults = []stringDefault{
	{"name", model.DefaultName, func(s *model.Stats) *string { return &s.Name }},
	{"favoriteLanguage", "", func(s *model.Stats) *string { return &s.FavoriteLanguage }},
	{"lastReminder", "", func(s *model.Stats) *string { return &s.LastReminder }},
}

// Decode rebuilds a Stats aggregate from a stored blob. An empty blob is a
// first run and yields fresh state. Field-level damage is repaired from the
// default tables; only a blob that is not a JSON object returns a
// *LoadError.
func Decode(data []byte) (*model.Stats, error) {
	s := model.NewStats()
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &LoadError{Err: err}
	}
	root, ok := asObject(raw)
	if !ok {
		return nil, &LoadError{Err: fmt.Errorf("top-level value is %T, not an object", raw)}
	}

	for _, d := range intDefaults {
		*d.field(s) = max(d.Min, root.integer(d.Key, d.Default))
	}
	for _, d := range floatDefaults {
		v := root.num(d.Key, d.Default)
		if v < 0 {
			v = d.Default
		}
		*d.field(s) = v
	}
	for _, d := range stringDefaults {
		*d.field(s) = root.str(d.Key, d.Default)
	}
	if s.Name == "" {
		s.Name = model.DefaultName
	}
	if s.MostProductiveHour > 23 {
		s.MostProductiveHour = -1
	}
	s.LastCoded = root.whenPtr("lastCoded")

	if h, ok := root.child("history"); ok {
		for key, v := range h {
			if _, err := model.ParseDayKey(key, time.Local); err != nil {
				continue
			}
			if d, ok := decodeDay(v); ok {
				s.History[key] = d
			}
		}
	}

	s.LanguageOrder = root.strs("languageOrder")
	if langs, ok := root.child("languages"); ok {
		for id, v := range langs {
			if l, ok := decodeLanguage(v); ok {
				s.Languages[id] = l
			}
		}
	}
	s.LanguageOrder = repairOrder(s.LanguageOrder, s.Languages)

	if projects, ok := root.child("projects"); ok {
		for name, v := range projects {
			if p, ok := decodeProject(v); ok {
				s.Projects[name] = p
			}
		}
	}

	for _, v := range root.list("sessions") {
		if sess, ok := decodeSession(v); ok && sess.End != nil {
			s.Sessions = append(s.Sessions, *sess)
		}
	}
	if v, ok := root["currentSession"]; ok {
		if sess, ok := decodeSession(v); ok && sess.End == nil {
			s.CurrentSession = sess
		}
	}

	for _, v := range root.list("badges") {
		if b, ok := decodeBadge(v); ok && !s.HasBadge(b.ID) {
			s.Badges = append(s.Badges, b)
		}
	}
	for _, v := range root.list("achievements") {
		if a, ok := decodeAchievement(v); ok {
			s.Achievements = append(s.Achievements, a)
		}
	}
	if c, ok := decodeChallenge(root["weeklyChallenge"]); ok {
		s.WeeklyChallenge = c
	}
	if p, ok := root.child("pomodoroStats"); ok {
		s.Pomodoro = decodePomodoroStats(p)
	}
	for _, v := range root.list("recentChanges") {
		if c, ok := decodeRecentChange(v); ok {
			s.RecentChanges = append(s.RecentChanges, c)
		}
	}
	if n := len(s.RecentChanges); n > model.RecentChangesCap {
		s.RecentChanges = s.RecentChanges[n-model.RecentChangesCap:]
	}

	return s, nil
}

func decodeDay(v any) (*model.DayRecord, bool) {
	o, ok := asObject(v)
	if !ok {
		return nil, false
	}
	d := &model.DayRecord{
		Added:        o.nonNeg("added"),
		Removed:      o.nonNeg("removed"),
		Touched:      o.flag("touched"),
		Languages:    make(map[string]int),
		Sessions:     o.nonNeg("sessions"),
		TimeSpent:    max(0, o.num("timeSpent", 0)),
		GoalNotified: o.flag("goalNotified"),
	}
	if langs, ok := o.child("languages"); ok {
		for id := range langs {
			if n := langs.nonNeg(id); n > 0 {
				d.Languages[id] = n
			}
		}
	}
	return d, true
}

func decodeLanguage(v any) (*model.LanguageStat, bool) {
	o, ok := asObject(v)
	if !ok {
		return nil, false
	}
	return &model.LanguageStat{
		Lines:     o.nonNeg("lines"),
		Sessions:  o.nonNeg("sessions"),
		TimeSpent: max(0, o.num("timeSpent", 0)),
	}, true
}

func decodeProject(v any) (*model.ProjectStat, bool) {
	o, ok := asObject(v)
	if !ok {
		return nil, false
	}
	p := &model.ProjectStat{
		Lines:     o.nonNeg("lines"),
		Sessions:  o.nonNeg("sessions"),
		TimeSpent: max(0, o.num("timeSpent", 0)),
	}
	for _, l := range o.strs("languages") {
		p.AddLanguage(l)
	}
	for _, f := range o.strs("files") {
		p.AddFile(f)
	}
	p.LastWorked, _ = o.when("lastWorked")
	return p, true
}

func decodeSession(v any) (*model.CodingSession, bool) {
	o, ok := asObject(v)
	if !ok {
		return nil, false
	}
	start, ok := o.when("start")
	if !ok {
		return nil, false
	}
	sess := &model.CodingSession{
		Start:    start,
		End:      o.whenPtr("end"),
		Lines:    o.nonNeg("lines"),
		Language: o.str("language", ""),
		Project:  o.str("project", ""),
	}
	for _, f := range o.strs("files") {
		sess.AddFile(f)
	}
	for _, e := range o.list("editTimes") {
		if t, ok := toTime(e); ok {
			sess.RecordEdit(t)
		}
	}
	if fm, ok := o.child("flowMetrics"); ok {
		sess.FlowMetrics = &model.FlowMetrics{
			Interruptions:  fm.nonNeg("interruptions"),
			TypingBursts:   fm.nonNeg("typingBursts"),
			LongestBurst:   max(0, fm.num("longestBurst", 0)),
			AverageGapTime: max(0, fm.num("averageGapTime", 0)),
			FileSwitches:   fm.nonNeg("fileSwitches"),
			FlowScore:      min(100, fm.nonNeg("flowScore")),
		}
	}
	return sess, true
}

func decodeBadge(v any) (model.Badge, bool) {
	o, ok := asObject(v)
	if !ok {
		return model.Badge{}, false
	}
	b := model.Badge{
		ID:    o.str("id", ""),
		Title: o.str("title", ""),
		Icon:  o.str("icon", ""),
	}
	b.EarnedAt, _ = o.when("earnedAt")
	return b, b.ID != ""
}

func decodeAchievement(v any) (model.Achievement, bool) {
	o, ok := asObject(v)
	if !ok {
		return model.Achievement{}, false
	}
	a := model.Achievement{
		ID:          o.str("id", ""),
		Title:       o.str("title", ""),
		Description: o.str("description", ""),
		Icon:        o.str("icon", ""),
		Category:    o.str("category", ""),
		Rarity:      o.str("rarity", ""),
		Target:      o.nonNeg("target"),
		Progress:    min(100, max(0, o.num("progress", 0))),
		UnlockedAt:  o.whenPtr("unlockedAt"),
	}
	if a.UnlockedAt != nil {
		a.Progress = 100
	}
	return a, a.ID != ""
}

func decodeChallenge(v any) (*model.WeeklyChallenge, bool) {
	o, ok := asObject(v)
	if !ok {
		return nil, false
	}
	c := &model.WeeklyChallenge{
		ID:          o.str("id", ""),
		Title:       o.str("title", ""),
		Description: o.str("description", ""),
		Type:        model.ChallengeType(o.str("type", "")),
		Target:      o.nonNeg("target"),
		Reward:      o.nonNeg("reward"),
		Progress:    max(0, o.num("progress", 0)),
		Completed:   o.flag("completed"),
		WeekStart:   o.str("weekStart", ""),
	}
	return c, c.ID != "" && c.WeekStart != ""
}

func decodePomodoroSession(v any) (model.PomodoroSession, bool) {
	o, ok := asObject(v)
	if !ok {
		return model.PomodoroSession{}, false
	}
	start, ok := o.when("start")
	if !ok {
		return model.PomodoroSession{}, false
	}
	p := model.PomodoroSession{
		ID:               o.str("id", ""),
		Start:            start,
		End:              o.whenPtr("end"),
		Duration:         o.nonNeg("duration"),
		Type:             model.PomodoroType(o.str("type", "")),
		Completed:        o.flag("completed"),
		Interrupted:      o.flag("interrupted"),
		Task:             o.str("task", ""),
		RemainingSeconds: o.nonNeg("remainingSeconds"),
		State:            model.PomodoroState(o.str("state", "")),
		PausedAt:         o.whenPtr("pausedAt"),
	}
	return p, p.Type.IsValid()
}

func decodePomodoroStats(o object) model.PomodoroStats {
	p := model.PomodoroStats{
		CompletedSessions: o.nonNeg("completedSessions"),
		CurrentStreak:     o.nonNeg("currentStreak"),
		LongestStreak:     o.nonNeg("longestStreak"),
		TotalWorkTime:     o.nonNeg("totalWorkTime"),
		TotalBreakTime:    o.nonNeg("totalBreakTime"),
	}
	if cur, ok := decodePomodoroSession(o["current"]); ok {
		if cur.State == model.PomodoroRunning || cur.State == model.PomodoroPaused {
			p.Current = &cur
		}
	}
	for _, v := range o.list("history") {
		if h, ok := decodePomodoroSession(v); ok {
			p.History = append(p.History, h)
		}
	}
	return p
}

func decodeRecentChange(v any) (model.RecentChange, bool) {
	o, ok := asObject(v)
	if !ok {
		return model.RecentChange{}, false
	}
	ts, ok := o.when("timestamp")
	if !ok {
		return model.RecentChange{}, false
	}
	return model.RecentChange{
		Timestamp: ts,
		Text:      o.str("text", ""),
		FileName:  o.str("fileName", ""),
	}, true
}

// repairOrder drops unknown ids and duplicates from order and appends any
// language missing from it in name order.
func repairOrder(order []string, langs map[string]*model.LanguageStat) []string {
	seen := make(map[string]bool, len(order))
	out := make([]string, 0, len(langs))
	for _, id := range order {
		if _, ok := langs[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	var missing []string
	for id := range langs {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return append(out, missing...)
}

// EncodeOptions bound the stored blob.
type EncodeOptions struct {
	MaxBytes      int
	RetentionDays int
}

// DefaultEncodeOptions is the 1 MiB cap with 365 days of retention.
var DefaultEncodeOptions = EncodeOptions{MaxBytes: 1 << 20, RetentionDays: 365}

// Encode serializes s. When the result exceeds opts.MaxBytes, day records
// older than the retention window are pruned from s and it is encoded
// again. The blob may still exceed the cap after pruning. Encode returns
// the number of pruned days.
func Encode(s *model.Stats, opts EncodeOptions, now time.Time) ([]byte, int, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, 0, fmt.Errorf("encode stats: %w", err)
	}
	if opts.MaxBytes <= 0 || len(data) <= opts.MaxBytes {
		return data, 0, nil
	}
	pruned := PruneHistory(s, now, opts.RetentionDays)
	if pruned == 0 {
		return data, 0, nil
	}
	data, err = json.Marshal(s)
	if err != nil {
		return nil, pruned, fmt.Errorf("encode pruned stats: %w", err)
	}
	return data, pruned, nil
}

// PruneHistory deletes day records older than days before now.
func PruneHistory(s *model.Stats, now time.Time, days int) int {
	if days <= 0 {
		return 0
	}
	cutoff := model.DayKey(model.StartOfDay(now).AddDate(0, 0, -days))
	n := 0
	for key := range s.History {
		// ISO keys sort chronologically as strings.
		if key < cutoff {
			delete(s.History, key)
			n++
		}
	}
	return n
}

// criticalFields is the reduced payload written when a full save fails.
type criticalFields struct {
	Name        string     `json:"name"`
	ManualLines int        `json:"manualLines"`
	XP          int        `json:"xp"`
	Level       int        `json:"level"`
	Streak      int        `json:"streak"`
	LastCoded   *time.Time `json:"lastCoded,omitempty"`
}

// EncodeCritical serializes only the fields that must survive a failing
// store.
func EncodeCritical(s *model.Stats) ([]byte, error) {
	return json.Marshal(criticalFields{
		Name:        s.Name,
		ManualLines: s.ManualLines,
		XP:          s.XP,
		Level:       s.Level,
		Streak:      s.Streak,
		LastCoded:   s.LastCoded,
	})
}
