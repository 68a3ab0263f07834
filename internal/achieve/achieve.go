// Package achieve evaluates achievement progress and the weekly challenge
// against the Stats aggregate.
package achieve

import (
	"math"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// XPPerTarget is the unlock bonus per unit of target.
const XPPerTarget = 10

// Materialize adds any catalog template missing from s, refreshing the
// template fields of known ids while keeping progress and unlock time.
// Unknown ids are kept as-is.
func Materialize(s *model.Stats) {
	have := make(map[string]int, len(s.Achievements))
	for i, a := range s.Achievements {
		have[a.ID] = i
	}
	for _, d := range Catalog {
		tpl := d.Template()
		i, ok := have[d.ID]
		if !ok {
			s.Achievements = append(s.Achievements, tpl)
			continue
		}
		cur := &s.Achievements[i]
		tpl.Progress, tpl.UnlockedAt = cur.Progress, cur.UnlockedAt
		*cur = tpl
	}
}

// Evaluate recomputes progress for every locked achievement and unlocks
// those reaching 100, granting Target*XPPerTarget XP once each. It returns
// copies of the achievements unlocked by this call.
func Evaluate(s *model.Stats, a Activity) []model.Achievement {
	return evaluate(s, a, "")
}

// EvaluateCategory is Evaluate restricted to one category.
func EvaluateCategory(s *model.Stats, a Activity, category string) []model.Achievement {
	return evaluate(s, a, category)
}

func evaluate(s *model.Stats, a Activity, category string) []model.Achievement {
	Materialize(s)

	var unlocked []model.Achievement
	for i := range s.Achievements {
		ach := &s.Achievements[i]
		if ach.Unlocked() {
			continue
		}
		if category != "" && ach.Category != category {
			continue
		}
		d, ok := Lookup(ach.ID)
		if !ok || d.Target <= 0 {
			continue
		}
		ach.Progress = progress(d.Value(s, a), d.Target)
		if ach.Progress < 100 {
			continue
		}
		at := a.Now
		ach.UnlockedAt = &at
		s.GrantXP(ach.Target * XPPerTarget)
		unlocked = append(unlocked, *ach)
	}
	return unlocked
}

// progress is value/target as a percentage clamped to [0, 100] and
// rounded to one decimal.
func progress(value float64, target int) float64 {
	if math.IsNaN(value) || value <= 0 {
		return 0
	}
	pct := value / float64(target) * 100
	if pct >= 100 {
		return 100
	}
	return math.Round(pct*10) / 10
}
