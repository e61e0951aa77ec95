package analytics

import "time"

// Drawdown represents a peak-to-trough period of an equity curve.
type Drawdown struct {
	StartTime   time.Time // Date of the peak
	EndTime     time.Time // Date equity regained the peak, or the last point if still open
	PeakValue   float64
	TroughTime  time.Time
	TroughValue float64
	DepthPct    float64 // Percentage of the peak lost at the trough
	Recovered   bool
}

// DrawdownSummary describes the drawdowns of an equity curve.
type DrawdownSummary struct {
	MaxDrawdown    float64 // Largest peak-to-trough loss in account currency
	MaxDrawdownPct float64 // Largest peak-to-trough loss as a percentage of the peak
	Drawdowns      []Drawdown
}

// AnalyzeDrawdowns walks an ascending equity curve and records every period
// spent below a previous peak.
func AnalyzeDrawdowns(curve []EquityPoint) DrawdownSummary {
	summary := DrawdownSummary{Drawdowns: make([]Drawdown, 0)}
	if len(curve) == 0 {
		return summary
	}

	peak := curve[0]
	var current *Drawdown

	for _, p := range curve[1:] {
		if p.Equity >= peak.Equity {
			if current != nil {
				current.EndTime = p.Date
				current.Recovered = true
				summary.Drawdowns = append(summary.Drawdowns, *current)
				current = nil
			}
			peak = p
			continue
		}

		loss := peak.Equity - p.Equity
		depthPct := 0.0
		if peak.Equity > 0 {
			depthPct = 100 * loss / peak.Equity
		}
		if current == nil {
			current = &Drawdown{
				StartTime:   peak.Date,
				PeakValue:   peak.Equity,
				TroughTime:  p.Date,
				TroughValue: p.Equity,
				DepthPct:    depthPct,
			}
		} else if p.Equity < current.TroughValue {
			current.TroughTime = p.Date
			current.TroughValue = p.Equity
			current.DepthPct = depthPct
		}

		if loss > summary.MaxDrawdown {
			summary.MaxDrawdown = loss
		}
		if depthPct > summary.MaxDrawdownPct {
			summary.MaxDrawdownPct = depthPct
		}
	}

	// Close any open drawdown
	if current != nil {
		current.EndTime = curve[len(curve)-1].Date
		summary.Drawdowns = append(summary.Drawdowns, *current)
	}
	return summary
}
