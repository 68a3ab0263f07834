package stats

import (
	"fmt"
	"strings"
)

// Format renders a Summary as aligned terminal output.
func Format(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "pulse stats  %s\n", s.Name)

	if s.TotalXP == 0 && s.ManualLines == 0 && s.DeletedLines == 0 {
		b.WriteString("\n  No activity recorded yet. Pipe editor events into `pulse hook` to start.\n")
		return b.String()
	}

	// Progress
	b.WriteString("\nProgress\n")
	fmt.Fprintf(&b, "  %-20s %d  %s %d/%d xp\n", "level", s.Level,
		progressBar(s.XP, s.XP+s.XPToNext, 20), s.XP, s.XP+s.XPToNext)
	fmt.Fprintf(&b, "  %-20s %s\n", "total xp", FormatInt(s.TotalXP))
	fmt.Fprintf(&b, "  %-20s %d days (best %d)\n", "streak", s.Streak, s.MaxStreak)
	fmt.Fprintf(&b, "  %-20s %d added / %d removed\n", "today", s.Today.Added, s.Today.Removed)

	// Overview
	b.WriteString("\nOverview\n")
	fmt.Fprintf(&b, "  %-20s %s\n", "lines written", FormatInt(s.ManualLines))
	fmt.Fprintf(&b, "  %-20s %s\n", "lines deleted", FormatInt(s.DeletedLines))
	fmt.Fprintf(&b, "  %-20s %d\n", "coding days", s.CodingDays)
	fmt.Fprintf(&b, "  %-20s %s\n", "xp per day", formatFloat(s.AvgXPPerDay))
	fmt.Fprintf(&b, "  %-20s %d\n", "sessions", s.ClosedSessions)
	fmt.Fprintf(&b, "  %-20s %s\n", "time coded", FormatMinutes(int(s.TotalTime)))
	fmt.Fprintf(&b, "  %-20s %s\n", "avg session", FormatMinutes(int(s.AvgSession)))
	fmt.Fprintf(&b, "  %-20s %s\n", "longest session", FormatMinutes(int(s.LongestSession)))
	if s.AvgFlowScore > 0 {
		fmt.Fprintf(&b, "  %-20s %.0f\n", "avg flow score", s.AvgFlowScore)
	}
	if s.FavoriteLanguage != "" {
		fmt.Fprintf(&b, "  %-20s %s\n", "favorite language", s.FavoriteLanguage)
	}
	if s.MostProductiveHour >= 0 {
		fmt.Fprintf(&b, "  %-20s %02d:00\n", "last active hour", s.MostProductiveHour)
	}

	if len(s.Languages) > 0 {
		b.WriteString("\nLanguages\n")
		for _, l := range s.Languages {
			fmt.Fprintf(&b, "  %-24s %6s lines   %3d sessions   %s\n",
				l.ID, FormatInt(l.Lines), l.Sessions, FormatMinutes(int(l.TimeSpent)))
		}
	}

	if len(s.Projects) > 0 {
		b.WriteString("\nProjects\n")
		limit := min(5, len(s.Projects))
		for _, p := range s.Projects[:limit] {
			fmt.Fprintf(&b, "  %-24s %6s lines   %3d sessions   %s\n",
				p.Name, FormatInt(p.Lines), p.Sessions, FormatMinutes(int(p.TimeSpent)))
		}
		if len(s.Projects) > 5 {
			fmt.Fprintf(&b, "  ... and %d more\n", len(s.Projects)-5)
		}
	}

	if s.TotalAchievements > 0 {
		fmt.Fprintf(&b, "\nAchievements (%d/%d)\n", s.Unlocked, s.TotalAchievements)
		for _, a := range s.RecentUnlocks {
			fmt.Fprintf(&b, "  %s %-28s %s\n", a.Icon, a.Title, a.UnlockedAt.Format("2006-01-02"))
		}
		for _, a := range s.NextAchievements {
			fmt.Fprintf(&b, "  %s %-28s %s %3.0f%%\n", a.Icon, a.Title, progressBar(int(a.Progress), 100, 10), a.Progress)
		}
	}

	if c := s.Challenge; c != nil {
		b.WriteString("\nWeekly Challenge\n")
		status := fmt.Sprintf("%s / %d", formatFloat(c.Progress), c.Target)
		if c.Completed {
			status += "  done"
		}
		fmt.Fprintf(&b, "  %-24s %s   +%d xp\n", c.Title, status, c.Reward)
		fmt.Fprintf(&b, "  %s\n", c.Description)
	}

	p := s.Pomodoro
	if p.Completed > 0 || p.Interrupted > 0 || p.Current != nil {
		b.WriteString("\nFocus Timer\n")
		fmt.Fprintf(&b, "  %-20s %d (streak %d, best %d)\n", "completed", p.Completed, p.CurrentStreak, p.LongestStreak)
		fmt.Fprintf(&b, "  %-20s %d\n", "stopped early", p.Interrupted)
		fmt.Fprintf(&b, "  %-20s %s work / %s break\n", "time", FormatMinutes(p.WorkMinutes), FormatMinutes(p.BreakMinutes))
		if c := p.Current; c != nil {
			fmt.Fprintf(&b, "  %-20s %s %s, %s left\n", "current", c.Type, c.State, FormatClock(c.RemainingSeconds))
		}
	}

	return b.String()
}

// progressBar draws a fixed-width bar for value out of total.
func progressBar(value, total, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat("-", width) + "]"
	}
	filled := value * width / total
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// formatFloat formats a float for display with commas.
func formatFloat(f float64) string {
	return FormatInt(int(f + 0.5))
}

// FormatInt formats a non-negative integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "0"
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// FormatMinutes formats minutes as "Xh Ym".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatClock formats seconds as "MM:SS".
func FormatClock(seconds int) string {
	seconds = max(0, seconds)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
