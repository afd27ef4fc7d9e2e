package lead

import (
	"fmt"
	"time"
)

// Metrics summarizes the whole pipeline. It is always derived from a lead set.
type Metrics struct {
	TotalLeads        int                     `json:"totalLeads"`
	ConversionRate    float64                 `json:"conversionRate"`
	AvgTimeInPipeline time.Duration           `json:"avgTimeInPipeline"`
	TotalValue        float64                 `json:"totalValue"`
	Stages            map[string]StageMetrics `json:"stages"`
}

// StageMetrics summarizes one stage.
type StageMetrics struct {
	Count          int           `json:"count"`
	AvgTimeInStage time.Duration `json:"avgTimeInStage"`
	// Conversion is the percentage of all leads at or past this stage.
	Conversion float64 `json:"conversion"`
	Value      float64 `json:"value"`
}

// ComputeMetrics derives pipeline metrics from leads grouped by stage. The
// last entry of stages is the terminal stage. Leads in buckets not named in
// stages are ignored.
func ComputeMetrics(stages []string, byStage map[string][]Lead, now time.Time) Metrics {
	m := Metrics{Stages: make(map[string]StageMetrics, len(stages))}
	if len(stages) == 0 {
		return m
	}
	terminal := stages[len(stages)-1]

	var open time.Duration
	var openCount int
	counts := make([]int, len(stages))
	for i, stage := range stages {
		leads := byStage[stage]
		counts[i] = len(leads)
		m.TotalLeads += len(leads)

		var sm StageMetrics
		var inStage time.Duration
		var touched int
		sm.Count = len(leads)
		for _, l := range leads {
			sm.Value += l.LoanAmount
			if t := l.LastTouched(); !t.IsZero() && now.After(t) {
				inStage += now.Sub(t)
				touched++
			}
			if stage != terminal && !l.CreatedAt.IsZero() && now.After(l.CreatedAt) {
				open += now.Sub(l.CreatedAt)
				openCount++
			}
		}
		if touched > 0 {
			sm.AvgTimeInStage = inStage / time.Duration(touched)
		}
		m.TotalValue += sm.Value
		m.Stages[stage] = sm
	}

	if m.TotalLeads == 0 {
		return m
	}
	m.ConversionRate = percent(counts[len(counts)-1], m.TotalLeads)
	if openCount > 0 {
		m.AvgTimeInPipeline = open / time.Duration(openCount)
	}

	reached := 0
	for i := len(stages) - 1; i >= 0; i-- {
		reached += counts[i]
		sm := m.Stages[stages[i]]
		sm.Conversion = percent(reached, m.TotalLeads)
		m.Stages[stages[i]] = sm
	}
	return m
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// FormatDays renders a duration as days:hours, e.g. "3:07".
func FormatDays(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	return fmt.Sprintf("%d:%02d", days, hours)
}
