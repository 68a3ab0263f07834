package flow

import "math"

// Score weights and thresholds.
const (
	baseScore = 50

	interruptionFloor  = 50
	interruptionWeight = 10
	fileSwitchFree     = 2
	fileSwitchWeight   = 5

	burstLongMinutes  = 15.0
	burstShortMinutes = 5.0
	burstLongBonus    = 20
	burstShortBonus   = 10

	gapTightSeconds = 10.0
	gapLooseSeconds = 30.0
	gapTightBonus   = 15
	gapLooseBonus   = 5

	durationLongMinutes  = 60.0
	durationShortMinutes = 30.0
	durationLongBonus    = 15
	durationShortBonus   = 10
)

// Score computes the 0-100 flow score for a session's metrics.
//
// Any interruption subtracts at least interruptionFloor, so a single long
// pause collapses the base score.
func Score(m Metrics, durationMinutes float64) int {
	score := float64(baseScore)

	if m.Interruptions > 0 {
		score -= math.Max(interruptionFloor, float64(m.Interruptions*interruptionWeight))
	}
	score -= math.Max(0, float64((m.FileSwitches-fileSwitchFree)*fileSwitchWeight))

	switch {
	case m.LongestBurst > burstLongMinutes:
		score += burstLongBonus
	case m.LongestBurst > burstShortMinutes:
		score += burstShortBonus
	}

	switch {
	case m.AverageGapTime < gapTightSeconds:
		score += gapTightBonus
	case m.AverageGapTime < gapLooseSeconds:
		score += gapLooseBonus
	}

	switch {
	case durationMinutes > durationLongMinutes:
		score += durationLongBonus
	case durationMinutes > durationShortMinutes:
		score += durationShortBonus
	}

	return int(math.Round(clamp(score)))
}

// clamp limits a value to [0, 100].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
