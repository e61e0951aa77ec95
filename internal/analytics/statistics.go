package analytics

import (
	"math"
	"sort"
	"time"

	"traderDashboard/internal/domain"
)

// TradeStatistics holds the detailed trade-journal breakdown shown next to
// the headline metrics.
type TradeStatistics struct {
	GrossProfit float64
	GrossLoss   float64 // Magnitude
	NetProfit   float64
	BestTrade   float64
	WorstTrade  float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageDurationHours float64

	LongTrades   int
	ShortTrades  int
	LongWinRate  float64 // Percentage, 0-100
	ShortWinRate float64 // Percentage, 0-100

	Symbols        []SymbolStats
	MonthlyResults map[string]float64 // "2006-01" -> net profit of trades closed that month
}

// SymbolStats is the per-instrument slice of TradeStatistics.
type SymbolStats struct {
	Symbol    string
	Trades    int
	Wins      int
	WinRate   float64
	NetProfit float64
	TotalLots float64
}

// MonthlyResult is one month of net trading result.
type MonthlyResult struct {
	Month  time.Time
	Return float64
}

// AnalyzeTrades computes the journal breakdown of closed trades using the
// same validity rule as ComputeMetrics. Streaks follow close time order.
func AnalyzeTrades(trades []domain.Trade) TradeStatistics {
	stats := TradeStatistics{MonthlyResults: make(map[string]float64)}

	valid := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.HasValidProfit() {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return stats
	}

	// Sort trades by close time
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].CloseTime.Before(valid[j].CloseTime)
	})

	bySymbol := make(map[string]*SymbolStats)
	var consecutiveWins, consecutiveLosses int
	var longWins, shortWins int
	var totalHours float64

	stats.BestTrade = math.Inf(-1)
	stats.WorstTrade = math.Inf(1)

	for _, t := range valid {
		win := t.Profit > 0
		if win {
			stats.GrossProfit += t.Profit
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			stats.GrossLoss += -t.Profit
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > stats.MaxConsecutiveWins {
			stats.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > stats.MaxConsecutiveLosses {
			stats.MaxConsecutiveLosses = consecutiveLosses
		}

		stats.BestTrade = math.Max(stats.BestTrade, t.Profit)
		stats.WorstTrade = math.Min(stats.WorstTrade, t.Profit)
		totalHours += float64(t.DurationHours())

		switch t.Direction {
		case domain.Buy:
			stats.LongTrades++
			if win {
				longWins++
			}
		case domain.Sell:
			stats.ShortTrades++
			if win {
				shortWins++
			}
		}

		s, ok := bySymbol[t.Symbol]
		if !ok {
			s = &SymbolStats{Symbol: t.Symbol}
			bySymbol[t.Symbol] = s
		}
		s.Trades++
		if win {
			s.Wins++
		}
		s.NetProfit += t.Profit
		if isFinite(t.Volume) && t.Volume > 0 {
			s.TotalLots += t.Volume
		}

		if !t.CloseTime.IsZero() {
			stats.MonthlyResults[t.CloseTime.Format("2006-01")] += t.Profit
		}
	}

	stats.NetProfit = stats.GrossProfit - stats.GrossLoss
	stats.AverageDurationHours = totalHours / float64(len(valid))
	if stats.LongTrades > 0 {
		stats.LongWinRate = 100 * float64(longWins) / float64(stats.LongTrades)
	}
	if stats.ShortTrades > 0 {
		stats.ShortWinRate = 100 * float64(shortWins) / float64(stats.ShortTrades)
	}

	stats.Symbols = make([]SymbolStats, 0, len(bySymbol))
	for _, s := range bySymbol {
		s.WinRate = 100 * float64(s.Wins) / float64(s.Trades)
		stats.Symbols = append(stats.Symbols, *s)
	}
	sort.Slice(stats.Symbols, func(i, j int) bool {
		return stats.Symbols[i].Symbol < stats.Symbols[j].Symbol
	})

	return stats
}

// MonthlyReturns returns the monthly results as a slice sorted by month.
func (s TradeStatistics) MonthlyReturns() []MonthlyResult {
	returns := make([]MonthlyResult, 0, len(s.MonthlyResults))
	for month, profit := range s.MonthlyResults {
		date, err := time.Parse("2006-01", month)
		if err != nil {
			continue
		}
		returns = append(returns, MonthlyResult{Month: date, Return: profit})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}
