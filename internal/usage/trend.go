package usage

// Trend labels the direction of recent token consumption.
type Trend string

const (
	TrendIncreasing   Trend = "increasing"
	TrendDecreasing   Trend = "decreasing"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient_data"
)

const (
	trendRecentDays = 3
	trendThreshold  = 0.2
)

// computeTrend compares the mean daily tokens of the last three active days
// against the mean of the active days before them. Zero days are skipped so
// a weekend gap does not read as a drop. Fewer than three active days in
// the window is not enough history to call a direction.
func computeTrend(days []DayStat) Trend {
	var active []float64
	for _, d := range days {
		if d.TotalTokens > 0 {
			active = append(active, float64(d.TotalTokens))
		}
	}
	if len(active) < trendRecentDays {
		return TrendInsufficient
	}

	recent := active[len(active)-trendRecentDays:]
	prev := active[:len(active)-trendRecentDays]
	if len(prev) == 0 {
		return TrendStable
	}

	prevMean := mean(prev)
	if prevMean == 0 {
		return TrendStable
	}
	ratio := mean(recent) / prevMean

	switch {
	case ratio > 1+trendThreshold:
		return TrendIncreasing
	case ratio < 1-trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
