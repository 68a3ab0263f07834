package engine

import (
	"fmt"

	"github.com/suykerbuyk/codepulse/internal/achieve"
	"github.com/suykerbuyk/codepulse/internal/model"
	"github.com/suykerbuyk/codepulse/internal/outbox"
)

// FirstLanguageXP is the one-time bonus for the first lines in a language.
const FirstLanguageXP = 100

// DailyLinesMilestone is the per-day line count that earns a celebration.
const DailyLinesMilestone = 100

// LanguageBadgeID is the badge id recorded for a first-language unlock.
func LanguageBadgeID(lang string) string { return "lang:" + lang }

func lines100Event(added int) outbox.Event {
	return outbox.Event{
		Type:              outbox.TypeLines100,
		Message:           fmt.Sprintf("%d lines today!", DailyLinesMilestone),
		Effect:            outbox.EffectConfetti,
		HighlightSelector: "#today-lines",
		Detail:            map[string]any{"added": added},
	}
}

func languageEvent(lang string) outbox.Event {
	return outbox.Event{
		Type:              outbox.TypeLanguageUnlock,
		Message:           fmt.Sprintf("New language unlocked: %s (+%d XP)", lang, FirstLanguageXP),
		Effect:            outbox.EffectSparkle,
		HighlightSelector: "#languages",
		Detail:            map[string]any{"language": lang, "xp": FirstLanguageXP},
	}
}

func levelUpEvent(level int) outbox.Event {
	return outbox.Event{
		Type:              outbox.TypeLevelUp,
		Message:           fmt.Sprintf("Level up! You reached level %d", level),
		Effect:            outbox.EffectFireworks,
		HighlightSelector: "#level",
		Detail:            map[string]any{"level": level},
	}
}

func streakEvent(days int) outbox.Event {
	return outbox.Event{
		Type:              outbox.TypeStreak,
		Message:           fmt.Sprintf("%d-day streak!", days),
		Effect:            outbox.EffectFireworks,
		HighlightSelector: "#streak",
		Detail:            map[string]any{"streak": days},
	}
}

func achievementEvent(a model.Achievement) outbox.Event {
	effect := outbox.EffectConfetti
	if a.Rarity == achieve.Epic || a.Rarity == achieve.Legendary {
		effect = outbox.EffectFireworks
	}
	return outbox.Event{
		Type:              outbox.TypeAchievement,
		Message:           fmt.Sprintf("%s Achievement unlocked: %s", a.Icon, a.Title),
		Effect:            effect,
		HighlightSelector: "#achievement-" + a.ID,
		Detail: map[string]any{
			"id":     a.ID,
			"rarity": a.Rarity,
			"xp":     a.Target * achieve.XPPerTarget,
		},
	}
}

func challengeEvent(c *model.WeeklyChallenge) outbox.Event {
	return outbox.Event{
		Type:              outbox.TypeChallenge,
		Message:           fmt.Sprintf("Weekly challenge complete: %s (+%d XP)", c.Title, c.Reward),
		Effect:            outbox.EffectFireworks,
		HighlightSelector: "#weekly-challenge",
		Detail:            map[string]any{"id": c.ID, "xp": c.Reward},
	}
}

func pomodoroEvent(sess *model.PomodoroSession, xp int) outbox.Event {
	msg := fmt.Sprintf("Focus session complete: %d minutes", sess.Duration)
	if sess.Type != model.PomodoroWork {
		msg = "Break over, back to it"
	}
	return outbox.Event{
		Type:              outbox.TypePomodoro,
		Message:           msg,
		Effect:            outbox.EffectConfetti,
		HighlightSelector: "#pomodoro",
		Detail: map[string]any{
			"id":   sess.ID,
			"type": string(sess.Type),
			"xp":   xp,
		},
	}
}
