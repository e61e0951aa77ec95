package analytics

import (
	"math"

	"traderDashboard/internal/domain"
)

// PerformanceMetrics holds the summary metrics shown on an account dashboard.
// It is derived on every request and never stored.
type PerformanceMetrics struct {
	Balance            float64
	Equity             float64
	TradeCount         int     // Number of valid trades (finite, non-zero profit)
	TotalLots          float64 // Sum of volume over valid trades
	WinRate            float64 // Percentage, 0-100
	AvgWin             float64 // Magnitude
	AvgLoss            float64 // Magnitude
	AvgRiskRewardRatio float64 // AvgWin / AvgLoss, 0 without losses
	Expectancy         float64 // Expected profit per trade
	ProfitFactor       float64 // Gross win / gross loss, 0 without losses
}

// ComputeMetrics aggregates closed trades and an account snapshot into
// PerformanceMetrics.
//
// Only trades with a finite, non-zero profit are counted; break-even and
// malformed trades are left out of every count, sum and ratio. Every division
// is guarded and resolves to 0 when its denominator is empty. A nil snapshot
// means the account state is unavailable and yields zero balance and equity.
// The input slice is not modified.
func ComputeMetrics(trades []domain.Trade, snapshot *domain.AccountSnapshot) PerformanceMetrics {
	var m PerformanceMetrics
	if snapshot != nil {
		m.Balance = finiteOrZero(snapshot.Balance)
		m.Equity = finiteOrZero(snapshot.Equity)
	}

	var wins, losses int
	var grossWin, grossLoss float64
	for _, t := range trades {
		if !t.HasValidProfit() {
			continue
		}
		m.TradeCount++
		if isFinite(t.Volume) && t.Volume > 0 {
			m.TotalLots += t.Volume
		}
		if t.Profit > 0 {
			wins++
			grossWin += t.Profit
		} else {
			losses++
			grossLoss += -t.Profit
		}
	}

	if m.TradeCount == 0 {
		return m
	}

	count := float64(m.TradeCount)
	m.WinRate = 100 * float64(wins) / count
	if wins > 0 {
		m.AvgWin = grossWin / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = grossLoss / float64(losses)
	}
	if m.AvgLoss > 0 {
		m.AvgRiskRewardRatio = m.AvgWin / m.AvgLoss
	}
	m.Expectancy = m.AvgWin*(float64(wins)/count) - m.AvgLoss*(float64(losses)/count)
	if grossLoss > 0 {
		m.ProfitFactor = grossWin / grossLoss
	}
	return m
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if isFinite(v) {
		return v
	}
	return 0
}
