package trends

import (
	"fmt"
	"strings"

	"github.com/suykerbuyk/codepulse/internal/stats"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Format renders a Result as aligned terminal output: an overview line per
// metric, then a sparkline and week table for each.
func Format(r Result) string {
	if r.TotalWeeks == 0 {
		return "pulse trends\n\n  No activity recorded yet.\n"
	}

	var b strings.Builder
	b.WriteString("pulse trends\n")

	fmt.Fprintf(&b, "\nOverview (%d active days, %d weeks)\n", r.ActiveDays, r.TotalWeeks)
	for _, m := range r.Metrics {
		if len(m.Points) == 0 {
			continue
		}
		change := ""
		if m.Direction != "stable" && m.DeltaPct != 0 {
			change = fmt.Sprintf(" (%+.0f%%)", m.DeltaPct)
		}
		fmt.Fprintf(&b, "  %-16s %8s avg  %s %s%s\n",
			m.Name, metricValue(m.Name, m.OverallAvg), arrow(m.Direction), m.Direction, change)
	}

	for _, m := range r.Metrics {
		if len(m.Points) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%-16s %s\n", metricTitle(m.Name), sparkline(m.Points))
		fmt.Fprintf(&b, "  %-10s %8s %8s\n", "Week", "Value", "Avg")
		for _, p := range m.Points {
			avg := ""
			if p.RollingAvg > 0 {
				avg = metricValue(m.Name, p.RollingAvg)
			}
			fmt.Fprintf(&b, "  %-10s %8s %8s%s\n", p.WeekLabel, metricValue(m.Name, p.Value), avg, anomalyMark(p))
		}
	}

	return b.String()
}

// sparkline draws points oldest to newest, scaled to the largest value.
func sparkline(points []TrendPoint) string {
	peak := 0.0
	for _, p := range points {
		peak = max(peak, p.Value)
	}
	out := make([]rune, len(points))
	for i, p := range points {
		level := 0
		if peak > 0 {
			level = int(p.Value / peak * float64(len(sparkBlocks)-1))
		}
		// Points are newest first.
		out[len(points)-1-i] = sparkBlocks[max(0, min(level, len(sparkBlocks)-1))]
	}
	return string(out)
}

func anomalyMark(p TrendPoint) string {
	switch {
	case !p.Anomaly:
		return ""
	case p.RollingAvg > 0 && p.Value > p.RollingAvg:
		return "  ^ spike"
	default:
		return "  v dip"
	}
}

func arrow(dir string) string {
	switch dir {
	case "improving":
		return "↑"
	case "worsening":
		return "↓"
	default:
		return "→"
	}
}

func metricTitle(name string) string {
	switch name {
	case "lines":
		return "Lines Written"
	case "deleted":
		return "Lines Deleted"
	case "time":
		return "Time Coded"
	case "active days":
		return "Active Days"
	case "flow":
		return "Flow Score"
	default:
		return name
	}
}

func metricValue(metric string, val float64) string {
	switch metric {
	case "time":
		return stats.FormatMinutes(int(val + 0.5))
	case "active days":
		return fmt.Sprintf("%.1f", val)
	default:
		return stats.FormatInt(int(val + 0.5))
	}
}
