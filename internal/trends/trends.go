// Package trends buckets the day history into weeks and reports per-metric
// time series with rolling averages, anomalies and direction.
package trends

import (
	"math"
	"slices"
	"time"

	"github.com/suykerbuyk/codepulse/internal/model"
)

// WeekBucket accumulates raw values for a single week starting on Sunday.
type WeekBucket struct {
	Start time.Time

	Lines      float64
	Deleted    float64
	Minutes    float64
	ActiveDays int
	FlowScores []float64
}

// TrendPoint is a single data point in a metric time series.
type TrendPoint struct {
	WeekLabel  string  // "Jan 05", "Feb 16", etc.
	Value      float64 // per-week value
	RollingAvg float64 // 4-week rolling average (0 if < 4 weeks of data)
	Anomaly    bool    // >1.5 stddev from rolling avg
}

// MetricTrend holds the full time series for one metric.
type MetricTrend struct {
	Name       string
	Points     []TrendPoint // most recent first
	OverallAvg float64
	Direction  string  // "improving", "worsening", "stable"
	DeltaPct   float64 // percent change between the last two 4-week windows
}

// Result holds the complete trends analysis.
type Result struct {
	ActiveDays   int
	TotalWeeks   int
	DisplayWeeks int
	Metrics      []MetricTrend
}

// Compute builds weekly trends from day records and closed sessions.
func Compute(history map[string]*model.DayRecord, sessions []model.CodingSession, displayWeeks int) Result {
	if displayWeeks <= 0 {
		displayWeeks = 12
	}

	bucketMap := make(map[string]*WeekBucket)
	bucketFor := func(t time.Time) *WeekBucket {
		start := model.WeekStart(t)
		key := model.DayKey(start)
		b, ok := bucketMap[key]
		if !ok {
			b = &WeekBucket{Start: start}
			bucketMap[key] = b
		}
		return b
	}

	activeDays := 0
	for key, d := range history {
		if !d.Active() {
			continue
		}
		day, err := model.ParseDayKey(key, time.Local)
		if err != nil {
			continue
		}
		activeDays++
		b := bucketFor(day)
		b.ActiveDays++
		b.Lines += float64(d.Added)
		b.Deleted += float64(d.Removed)
		b.Minutes += d.TimeSpent
	}

	for _, sess := range sessions {
		if sess.End == nil || sess.FlowMetrics == nil || sess.FlowMetrics.FlowScore == 0 {
			continue
		}
		// Sessions only count toward weeks that already have activity.
		if b, ok := bucketMap[model.DayKey(model.WeekStart(*sess.End))]; ok {
			b.FlowScores = append(b.FlowScores, float64(sess.FlowMetrics.FlowScore))
		}
	}

	if len(bucketMap) == 0 {
		return Result{DisplayWeeks: displayWeeks}
	}

	// Sort buckets chronologically (oldest first for rolling avg computation)
	buckets := make([]*WeekBucket, 0, len(bucketMap))
	for _, b := range bucketMap {
		buckets = append(buckets, b)
	}
	slices.SortFunc(buckets, func(a, b *WeekBucket) int {
		return a.Start.Compare(b.Start)
	})

	total := func(f func(*WeekBucket) float64) func(*WeekBucket) (float64, bool) {
		return func(b *WeekBucket) (float64, bool) { return f(b), true }
	}
	linesPts := buildPoints(buckets, total(func(b *WeekBucket) float64 { return b.Lines }))
	deletedPts := buildPoints(buckets, total(func(b *WeekBucket) float64 { return b.Deleted }))
	timePts := buildPoints(buckets, total(func(b *WeekBucket) float64 { return b.Minutes }))
	daysPts := buildPoints(buckets, total(func(b *WeekBucket) float64 { return float64(b.ActiveDays) }))
	flowPts := buildPoints(buckets, func(b *WeekBucket) (float64, bool) { return avg(b.FlowScores) })

	metrics := []MetricTrend{
		buildMetric("lines", linesPts, displayWeeks),
		buildMetric("deleted", deletedPts, displayWeeks),
		buildMetric("time", timePts, displayWeeks),
		buildMetric("active days", daysPts, displayWeeks),
		buildMetric("flow", flowPts, displayWeeks),
	}

	return Result{
		ActiveDays:   activeDays,
		TotalWeeks:   len(buckets),
		DisplayWeeks: displayWeeks,
		Metrics:      metrics,
	}
}

// buildPoints creates TrendPoints from buckets using an extractor function.
// Points are returned oldest-first for rolling avg computation.
func buildPoints(buckets []*WeekBucket, extract func(*WeekBucket) (float64, bool)) []TrendPoint {
	var pts []TrendPoint
	for _, b := range buckets {
		val, ok := extract(b)
		if !ok {
			continue
		}
		pts = append(pts, TrendPoint{
			WeekLabel: weekLabel(b.Start),
			Value:     val,
		})
	}
	return pts
}

// buildMetric computes rolling averages, anomalies, and direction for a metric.
// Every metric is higher-is-better.
func buildMetric(name string, pts []TrendPoint, displayWeeks int) MetricTrend {
	m := MetricTrend{Name: name}

	if len(pts) == 0 {
		m.Direction = "stable"
		return m
	}

	// Compute rolling average and stddev, detect anomalies
	values := make([]float64, len(pts))
	for i := range pts {
		values[i] = pts[i].Value
	}

	for i := range pts {
		if i >= 3 { // need at least 4 points for rolling avg
			ra := rollingAvg(values, i, 4)
			pts[i].RollingAvg = ra

			sd := rollingStddev(values, i, 4)
			if sd > 0 && math.Abs(pts[i].Value-ra) > 1.5*sd {
				pts[i].Anomaly = true
			}
		}
	}

	m.OverallAvg, _ = avg(values)

	// Direction: compare last 4 weeks vs previous 4 weeks
	m.Direction, m.DeltaPct = metricDirection(values)

	slices.Reverse(pts)
	m.Points = pts[:min(len(pts), displayWeeks)]

	return m
}

// metricDirection compares the last 4 values vs the previous 4.
// Returns direction string and delta percentage.
func metricDirection(values []float64) (string, float64) {
	n := len(values)
	if n < 8 {
		return "stable", 0
	}

	// Last 4 weeks average
	recent := rollingAvg(values, n-1, 4)
	// Previous 4 weeks average
	prev := rollingAvg(values, n-5, 4)

	if prev == 0 {
		return "stable", 0
	}

	delta := (recent - prev) / prev * 100

	if math.Abs(delta) < 10 {
		return "stable", delta
	}

	if delta > 0 {
		return "improving", delta
	}
	return "worsening", delta
}

// --- Helpers ---

// weekLabel formats a date as "Jan 06".
func weekLabel(t time.Time) string {
	return t.Format("Jan 02")
}

// avg computes the arithmetic mean. Returns (0, false) if slice is empty.
func avg(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

// rollingAvg averages the window values ending at index end (inclusive),
// clamped at the start of the series.
func rollingAvg(values []float64, end, window int) float64 {
	v, _ := avg(values[max(0, end-window+1) : end+1])
	return v
}

// rollingStddev is the population standard deviation over the same window
// as rollingAvg; 0 with fewer than two values.
func rollingStddev(values []float64, end, window int) float64 {
	win := values[max(0, end-window+1) : end+1]
	if len(win) < 2 {
		return 0
	}
	mean, _ := avg(win)
	var sumSq float64
	for _, v := range win {
		sumSq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sumSq / float64(len(win)))
}
