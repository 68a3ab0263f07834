package model

import (
	"maps"
	"slices"
	"time"
)

// Clone returns a deep copy of s. Snapshots handed to rendering and the
// working copy of an ingest cycle are both clones.
func (s *Stats) Clone() *Stats {
	if s == nil {
		return nil
	}
	c := *s
	c.LastCoded = cloneTime(s.LastCoded)

	c.History = make(map[string]*DayRecord, len(s.History))
	for k, d := range s.History {
		if d == nil {
			continue
		}
		dc := *d
		dc.Languages = maps.Clone(d.Languages)
		if dc.Languages == nil {
			dc.Languages = make(map[string]int)
		}
		c.History[k] = &dc
	}

	c.Languages = make(map[string]*LanguageStat, len(s.Languages))
	for k, l := range s.Languages {
		if l == nil {
			continue
		}
		lc := *l
		c.Languages[k] = &lc
	}
	c.LanguageOrder = slices.Clone(s.LanguageOrder)

	c.Projects = make(map[string]*ProjectStat, len(s.Projects))
	for k, p := range s.Projects {
		if p == nil {
			continue
		}
		pc := *p
		pc.Languages = slices.Clone(p.Languages)
		pc.Files = slices.Clone(p.Files)
		c.Projects[k] = &pc
	}

	c.Sessions = make([]CodingSession, len(s.Sessions))
	for i := range s.Sessions {
		c.Sessions[i] = s.Sessions[i].clone()
	}
	if s.CurrentSession != nil {
		cs := s.CurrentSession.clone()
		c.CurrentSession = &cs
	}

	c.Badges = slices.Clone(s.Badges)
	c.Achievements = make([]Achievement, len(s.Achievements))
	for i, a := range s.Achievements {
		a.UnlockedAt = cloneTime(a.UnlockedAt)
		c.Achievements[i] = a
	}
	if s.WeeklyChallenge != nil {
		wc := *s.WeeklyChallenge
		c.WeeklyChallenge = &wc
	}

	c.Pomodoro = s.Pomodoro
	if s.Pomodoro.Current != nil {
		cur := s.Pomodoro.Current.clone()
		c.Pomodoro.Current = &cur
	}
	c.Pomodoro.History = make([]PomodoroSession, len(s.Pomodoro.History))
	for i := range s.Pomodoro.History {
		c.Pomodoro.History[i] = s.Pomodoro.History[i].clone()
	}

	c.RecentChanges = slices.Clone(s.RecentChanges)
	return &c
}

func (s CodingSession) clone() CodingSession {
	s.End = cloneTime(s.End)
	s.Files = slices.Clone(s.Files)
	s.EditTimes = slices.Clone(s.EditTimes)
	if s.FlowMetrics != nil {
		fm := *s.FlowMetrics
		s.FlowMetrics = &fm
	}
	return s
}

func (p PomodoroSession) clone() PomodoroSession {
	p.End = cloneTime(p.End)
	p.PausedAt = cloneTime(p.PausedAt)
	return p
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
