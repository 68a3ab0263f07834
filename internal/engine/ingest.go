package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suykerbuyk/codepulse/internal/achieve"
	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/outbox"
	"github.com/suykerbuyk/codepulse/internal/session"
	"github.com/suykerbuyk/codepulse/internal/stats"
	"github.com/suykerbuyk/codepulse/internal/validate"
)

// XPPerLine is the XP granted for each validated line.
const XPPerLine = 10

// DefaultLanguage is used when a change carries no language id.
const DefaultLanguage = "plaintext"

var (
	// ErrDropped means a notification failed outside per-edit processing
	// and was discarded without touching state.
	ErrDropped = errors.New("edit notification dropped")
	// ErrBadRange marks a sub-edit with negative line numbers.
	ErrBadRange = errors.New("negative line range")
)

// SubEdit is one replaced range of a change notification.
type SubEdit struct {
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Text      string `json:"text"`
}

// Change is one text-change notification from the host editor.
type Change struct {
	Language string    `json:"languageId"`
	File     string    `json:"fileName"`
	Edits    []SubEdit `json:"changes"`
}

// Result summarises what an ingest cycle did.
type Result struct {
	Added    int // validated lines
	Rejected int // lines refused by the validator
	Removed  int
	Skipped  int // malformed sub-edits
	Touched  bool
	Closed   *model.CodingSession
}

// cycle carries one notification's working copy and its pending output.
type cycle struct {
	s       *model.Stats
	now     time.Time
	changed bool
	events  []outbox.Event
	notices []outbox.Notice
}

func (c *cycle) celebrate(ev outbox.Event) { c.events = append(c.events, ev) }

func (c *cycle) notify(sev outbox.Severity, msg string) {
	c.notices = append(c.notices, outbox.Notice{Severity: sev, Message: msg})
}

// Ingest folds one change notification into the aggregate. A failure
// drops the whole notification and returns ErrDropped: the cycle works in
// place and is rolled back from the store, or on a copy while the store
// is behind memory. Malformed sub-edits are skipped individually.
func (e *Engine) Ingest(ctx context.Context, c Change) (res Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	release, err := e.beginLocked(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	cy := &cycle{s: e.stats, now: e.now()}
	if e.behind {
		cy.s = e.stats.Clone()
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrDropped, r)
			}
		}()
		res = e.apply(cy, c)
	}()
	if err != nil {
		e.log.Error("ingest failed", "file", c.File, "error", err)
		if cy.s == e.stats {
			e.rollbackLocked(ctx)
		}
		return Result{}, err
	}
	if !cy.changed {
		return res, nil
	}

	e.stats = cy.s
	e.publish(cy.events)
	for _, n := range cy.notices {
		e.out.Notify(n.Severity, n.Message)
	}
	e.persistLocked(ctx)
	return res, nil
}

func (e *Engine) apply(cy *cycle, c Change) Result {
	s, now := cy.s, cy.now
	lang := c.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	var res Result
	for i, sub := range c.Edits {
		added, rejected, removed, err := measure(s, sub, c.File, now)
		if err != nil {
			e.log.Debug("sub-edit skipped", "file", c.File, "index", i, "error", err)
			res.Skipped++
			continue
		}
		res.Added += added
		res.Rejected += rejected
		res.Removed += removed
	}
	if res.Rejected > 0 {
		e.log.Debug("lines rejected", "file", c.File, "lines", res.Rejected)
	}

	today := model.DayKey(now)
	if res.Added == 0 && res.Removed == 0 {
		day := s.Day(today)
		if !day.Touched {
			day.Touched = true
			cy.changed = true
		}
		res.Touched = true
		return res
	}
	cy.changed = true

	day := s.Day(today)
	project := session.DetectProject(c.File)

	if res.Added > 0 {
		s.ManualLines += res.Added
		s.GrantXP(res.Added * XPPerLine)

		before := day.Added
		day.Added += res.Added
		day.Languages[lang] += res.Added
		if before < DailyLinesMilestone && day.Added >= DailyLinesMilestone {
			cy.celebrate(lines100Event(day.Added))
		}

		l, created := s.Language(lang)
		l.Lines += res.Added
		if created && !s.HasBadge(LanguageBadgeID(lang)) {
			s.GrantXP(FirstLanguageXP)
			s.Badges = append(s.Badges, model.Badge{
				ID:       LanguageBadgeID(lang),
				Title:    "First " + lang + " code",
				Icon:     "🌐",
				EarnedAt: now,
			})
			cy.celebrate(languageEvent(lang))
		}

		p := s.Project(project)
		p.Lines += res.Added
		p.LastWorked = now
		p.AddLanguage(lang)
		if c.File != "" {
			p.AddFile(c.File)
		}
		s.FavoriteLanguage = stats.FavoriteLanguage(s)
	}

	if res.Removed > 0 {
		s.DeletedLines += res.Removed
		day.Removed += res.Removed
	}

	closed := e.tracker.Track(s, session.Edit{
		At:       now,
		Lines:    res.Added,
		Language: lang,
		File:     c.File,
		Project:  project,
	})
	if closed != nil {
		cp := *closed
		res.Closed = &cp
		e.log.Debug("session closed",
			"minutes", cp.Duration().Minutes(),
			"flow", cp.FlowMetrics.FlowScore,
		)
	}

	if res.Added > 0 {
		// Last active hour, not a histogram.
		s.MostProductiveHour = now.Hour()
	}
	s.LastCoded = &now

	for _, lvl := range stats.ApplyLevelUps(s) {
		cy.celebrate(levelUpEvent(lvl))
	}
	for _, m := range stats.UpdateStreak(s, now) {
		cy.celebrate(streakEvent(m))
	}
	stats.Recompute(s)

	e.evaluate(cy, achieve.Activity{Now: now, Coded: res.Added > 0}, "")
	ch := achieve.EvaluateChallenge(s, now, e.pick)
	if ch.Started {
		cy.notify(outbox.Info, "New weekly challenge: "+s.WeeklyChallenge.Title)
	}
	if ch.Completed {
		cy.celebrate(challengeEvent(s.WeeklyChallenge))
	}
	for _, lvl := range stats.ApplyLevelUps(s) {
		cy.celebrate(levelUpEvent(lvl))
	}
	stats.Recompute(s)

	e.checkGoal(cy, day)
	e.checkReminder(cy)
	return res
}

// measure counts one sub-edit and records accepted text in the
// validator's log. A panic inside is reported as an error so the caller
// can skip just this sub-edit.
func measure(s *model.Stats, sub SubEdit, file string, now time.Time) (added, rejected, removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			added, rejected, removed = 0, 0, 0
			err = fmt.Errorf("sub-edit: %v", r)
		}
	}()
	if sub.StartLine < 0 || sub.EndLine < 0 {
		return 0, 0, 0, ErrBadRange
	}
	removed = max(0, sub.EndLine-sub.StartLine)
	if sub.Text == "" {
		return 0, 0, removed, nil
	}
	lines := strings.Count(sub.Text, "\n")
	if lines == 0 {
		return 0, 0, removed, nil
	}
	if !validate.IsValid(sub.Text, file, s.RecentChanges, now) {
		return 0, lines, removed, nil
	}
	s.RecentChanges = validate.Record(s.RecentChanges, sub.Text, file, now)
	return lines, 0, removed, nil
}

// evaluate runs the achievement evaluator and queues one celebration per
// unlock. An empty category evaluates the whole catalog.
func (e *Engine) evaluate(cy *cycle, a achieve.Activity, category string) {
	var unlocked []model.Achievement
	if category == "" {
		unlocked = achieve.Evaluate(cy.s, a)
	} else {
		unlocked = achieve.EvaluateCategory(cy.s, a, category)
	}
	for _, u := range unlocked {
		e.log.Info("achievement unlocked", "id", u.ID)
		cy.celebrate(achievementEvent(u))
	}
}
