package engine

import (
	"context"
	"fmt"

	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/outbox"
	"github.com/suykerbuyk/codepulse/internal/stats"
)

// checkGoal queues the daily-goal notice once per day.
func (e *Engine) checkGoal(cy *cycle, day *model.DayRecord) {
	if e.goals.DailyLines <= 0 || day.GoalNotified || day.Added < e.goals.DailyLines {
		return
	}
	day.GoalNotified = true
	cy.notify(outbox.Info, fmt.Sprintf("Daily goal reached: %d lines today.", day.Added))
}

// checkReminder queues a streak-at-risk notice once per day when it is
// past the reminder hour, yesterday was active and today is not.
func (e *Engine) checkReminder(cy *cycle) bool {
	h := e.goals.ReminderHour
	if h <= 0 || cy.now.Hour() < h {
		return false
	}
	s := cy.s
	today := model.DayKey(cy.now)
	if s.LastReminder == today || s.History[today].Active() {
		return false
	}
	yesterday := model.StartOfDay(cy.now).AddDate(0, 0, -1)
	streak := stats.Streak(s.History, yesterday)
	if streak == 0 {
		return false
	}
	s.LastReminder = today
	cy.changed = true
	cy.notify(outbox.Warning, fmt.Sprintf("Your %d-day streak ends at midnight. Write a line to keep it.", streak))
	return true
}

// Remind runs the streak reminder outside an edit, for hosts that poll.
// It reports whether a notice was queued.
func (e *Engine) Remind(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if h := e.goals.ReminderHour; h <= 0 || now.Hour() < h || e.stats.LastReminder == model.DayKey(now) {
		return false
	}
	release, err := e.beginLocked(ctx)
	if err != nil {
		e.log.Warn("reminder skipped", "error", err)
		return false
	}
	defer release()

	cy := &cycle{s: e.stats, now: now}
	if !e.checkReminder(cy) {
		return false
	}
	for _, n := range cy.notices {
		e.out.Notify(n.Severity, n.Message)
	}
	e.persistLocked(ctx)
	return true
}
