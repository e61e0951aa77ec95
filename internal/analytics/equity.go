package analytics

import (
	"sort"
	"time"

	"traderDashboard/internal/domain"
)

// EquityPoint is the account equity at the start of a calendar day.
type EquityPoint struct {
	Date   time.Time // Midnight of the day, in the curve's location
	Equity float64
}

// ReconstructEquityCurve rebuilds a daily equity series ending today (UTC)
// from ledger deals and the current equity. See ReconstructEquityCurveAt.
func ReconstructEquityCurve(deals []domain.Deal, currentEquity float64) []EquityPoint {
	return ReconstructEquityCurveAt(deals, currentEquity, time.Now().UTC())
}

// ReconstructEquityCurveAt rebuilds a daily equity series by unwinding deals
// backwards from currentEquity, with calendar days taken in now's location.
//
// Deals are walked newest to oldest and each trading deal's profit is
// subtracted from a running total, giving the equity just before that deal.
// The value is keyed by the deal's day, so the oldest deal of a day wins and
// each day holds the equity before its first deal. Today always holds
// currentEquity; deals dated today or later only move the running total.
// Non-trading deals (deposits, withdrawals, credits, fees) are not unwound,
// and deals without a time or with a non-finite profit are skipped. The
// result is sorted by date ascending.
func ReconstructEquityCurveAt(deals []domain.Deal, currentEquity float64, now time.Time) []EquityPoint {
	loc := now.Location()
	today := startOfDay(now, loc)
	current := finiteOrZero(currentEquity)

	usable := make([]domain.Deal, 0, len(deals))
	for _, d := range deals {
		if d.Time.IsZero() || !isFinite(d.Profit) || !d.Type.IsTrading() {
			continue
		}
		usable = append(usable, d)
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Time.After(usable[j].Time)
	})

	byDay := map[time.Time]float64{today: current}
	running := current
	for _, d := range usable {
		running -= d.Profit
		day := startOfDay(d.Time, loc)
		if !day.Before(today) {
			continue
		}
		byDay[day] = running
	}

	curve := make([]EquityPoint, 0, len(byDay))
	for day, equity := range byDay {
		curve = append(curve, EquityPoint{Date: day, Equity: equity})
	}
	sort.Slice(curve, func(i, j int) bool {
		return curve[i].Date.Before(curve[j].Date)
	})
	return curve
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
