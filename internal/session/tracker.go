package session

import (
	"time"

	"github.com/suykerbuyk/codepulse/internal/flow"
	"github.com/suykerbuyk/codepulse/internal/model"
)

// DefaultBoundary is the distance from a session's start after which the
// next edit opens a new session.
const DefaultBoundary = 30 * time.Minute

// Edit is one qualifying notification as seen by the tracker.
type Edit struct {
	At       time.Time
	Lines    int
	Language string
	File     string
	Project  string
}

// Tracker groups edits into coding sessions on a Stats aggregate.
type Tracker struct {
	// Boundary is measured from the open session's start, not from its
	// last edit, so no session spans more than Boundary plus one edit.
	Boundary time.Duration
}

// NewTracker returns a tracker using DefaultBoundary.
func NewTracker() *Tracker {
	return &Tracker{Boundary: DefaultBoundary}
}

// Track records e against the open session. When e falls past the
// boundary the open session is closed, rolled into the aggregates and
// returned, and a new session is opened seeded with e.
func (t *Tracker) Track(s *model.Stats, e Edit) *model.CodingSession {
	cur := s.CurrentSession
	if cur != nil && e.At.Sub(cur.Start) <= t.boundary() {
		cur.Lines += e.Lines
		cur.AddFile(e.File)
		cur.RecordEdit(e.At)
		return nil
	}

	var closed *model.CodingSession
	if cur != nil {
		closed = Close(s, cur)
	}
	next := &model.CodingSession{
		Start:    e.At,
		Lines:    e.Lines,
		Language: e.Language,
		Project:  e.Project,
	}
	next.AddFile(e.File)
	next.RecordEdit(e.At)
	s.CurrentSession = next
	return closed
}

func (t *Tracker) boundary() time.Duration {
	if t == nil || t.Boundary <= 0 {
		return DefaultBoundary
	}
	return t.Boundary
}

// Close finalises sess: its end is the last recorded edit, flow metrics
// are computed and its duration is rolled into the lifetime, day,
// language and project counters. The closed session is appended to the
// session log and CurrentSession is cleared when it pointed at sess.
func Close(s *model.Stats, sess *model.CodingSession) *model.CodingSession {
	end := sess.Start
	if n := len(sess.EditTimes); n > 0 {
		end = sess.EditTimes[n-1]
	}
	sess.End = &end

	duration := sess.Duration()
	metrics := flow.Compute(sess.EditTimes, len(sess.Files), duration)
	sess.FlowMetrics = &metrics
	sess.EditTimes = nil

	minutes := duration.Minutes()
	s.TotalTimeSpent += minutes
	if minutes > s.LongestSession {
		s.LongestSession = minutes
	}

	day := s.Day(model.DayKey(end))
	day.TimeSpent += minutes
	day.Sessions++

	// Language rollups are created by the ingest path, which owns the
	// first-language bonus; a session never creates one.
	if lang, ok := s.Languages[sess.Language]; ok {
		lang.Sessions++
		lang.TimeSpent += minutes
	}
	if sess.Project != "" {
		p := s.Project(sess.Project)
		p.Sessions++
		p.TimeSpent += minutes
	}

	s.Sessions = append(s.Sessions, *sess)
	if s.CurrentSession == sess {
		s.CurrentSession = nil
	}
	return &s.Sessions[len(s.Sessions)-1]
}
