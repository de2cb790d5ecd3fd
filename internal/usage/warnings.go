package usage

import (
	"fmt"

	"github.com/openclaw/clawmetry/internal/config"
)

type WarningSeverity string

const (
	WarningWarn  WarningSeverity = "warning"
	WarningError WarningSeverity = "error"
)

// Warning is one budget threshold crossing. At most one warning fires per
// period: crossing the error tier suppresses that period's warn tier.
type Warning struct {
	Severity WarningSeverity `json:"severity"`
	Period   string          `json:"period"`
	Message  string          `json:"message"`
	Limit    float64         `json:"limit"`
	Actual   float64         `json:"actual"`
}

func buildWarnings(b config.BudgetsConfig, rpt *Report) []Warning {
	var warnings []Warning

	add := func(period string, cost, warn, errLimit float64) {
		switch {
		case errLimit > 0 && cost >= errLimit:
			warnings = append(warnings, Warning{
				Severity: WarningError,
				Period:   period,
				Message:  fmt.Sprintf("%s cost $%.2f exceeds the $%.2f limit", period, cost, errLimit),
				Limit:    errLimit,
				Actual:   cost,
			})
		case warn > 0 && cost >= warn:
			warnings = append(warnings, Warning{
				Severity: WarningWarn,
				Period:   period,
				Message:  fmt.Sprintf("%s cost $%.2f exceeds the $%.2f budget", period, cost, warn),
				Limit:    warn,
				Actual:   cost,
			})
		}
	}

	add("daily", rpt.Today.Cost, b.DailyWarn, b.DailyError)
	add("weekly", rpt.Week.Cost, b.WeeklyWarn, b.WeeklyError)
	add("monthly", rpt.Month.Cost, b.MonthlyWarn, b.MonthlyError)

	// The projection warning is a trend signal, not a budget: it fires only
	// while usage is actually climbing.
	if b.ProjectionCeiling > 0 && rpt.Trend == TrendIncreasing && rpt.MonthlyProjection > b.ProjectionCeiling {
		warnings = append(warnings, Warning{
			Severity: WarningWarn,
			Period:   "projection",
			Message:  fmt.Sprintf("projected monthly cost $%.2f exceeds the $%.2f ceiling", rpt.MonthlyProjection, b.ProjectionCeiling),
			Limit:    b.ProjectionCeiling,
			Actual:   rpt.MonthlyProjection,
		})
	}

	return warnings
}
