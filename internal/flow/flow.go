// Package flow derives focus metrics for a closed coding session.
package flow

import (
	"math"
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// Metrics is the flow summary stored on a closed session.
type Metrics = model.FlowMetrics

const (
	// InterruptionGap is the pause after which an edit counts as an interruption.
	InterruptionGap = 120 * time.Second
	// BurstGap starts a new typing burst.
	BurstGap = 30 * time.Second

	minSessionLength = 5 * time.Minute
	minEdits         = 3
)

// Compute builds flow metrics from the edit timestamps of a session,
// its distinct file count and its duration. Sessions shorter than five
// minutes or with fewer than three edits only report file switches.
func Compute(editTimes []time.Time, distinctFiles int, duration time.Duration) Metrics {
	m := Metrics{FileSwitches: max(0, distinctFiles-1)}
	if duration < minSessionLength || len(editTimes) < minEdits {
		return m
	}

	gaps := Gaps(editTimes)
	var sum float64
	for _, g := range gaps {
		if g > InterruptionGap.Seconds() {
			m.Interruptions++
		}
		sum += g
	}
	if len(gaps) > 0 {
		m.AverageGapTime = round1(sum / float64(len(gaps)))
	}

	bursts, longest := segmentBursts(editTimes)
	m.TypingBursts = bursts
	m.LongestBurst = round1(longest.Minutes())

	m.FlowScore = Score(m, duration.Minutes())
	return m
}

// Gaps returns the inter-edit gaps in seconds.
func Gaps(editTimes []time.Time) []float64 {
	if len(editTimes) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(editTimes)-1)
	for i := 1; i < len(editTimes); i++ {
		gaps = append(gaps, editTimes[i].Sub(editTimes[i-1]).Seconds())
	}
	return gaps
}

// segmentBursts splits edits on gaps longer than BurstGap. It counts the
// segments that contain at least one gap and returns the longest span.
func segmentBursts(editTimes []time.Time) (int, time.Duration) {
	var (
		count    int
		longest  time.Duration
		segStart = 0
	)
	closeSeg := func(end int) {
		if end > segStart {
			count++
			if d := editTimes[end].Sub(editTimes[segStart]); d > longest {
				longest = d
			}
		}
	}
	for i := 1; i < len(editTimes); i++ {
		if editTimes[i].Sub(editTimes[i-1]) > BurstGap {
			closeSeg(i - 1)
			segStart = i
		}
	}
	closeSeg(len(editTimes) - 1)
	return count, longest
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
