package httpapi

import (
	"math"
	"time"

	"traderDashboard/internal/analytics"
	"traderDashboard/internal/app"
	"traderDashboard/internal/domain"
	"traderDashboard/internal/risk"
)

// LinkAccountRequest is the body of POST /api/v1/accounts.
type LinkAccountRequest struct {
	UserID            string  `json:"userId" binding:"required"`
	Platform          string  `json:"platform" binding:"required"`
	Login             string  `json:"login"`
	Server            string  `json:"server"`
	ProviderAccountID string  `json:"providerAccountId"`
	Name              string  `json:"name"`
	InitialBalance    float64 `json:"initialBalance"`
}

func (r LinkAccountRequest) toDomain() *domain.TradingAccount {
	return &domain.TradingAccount{
		UserID:            r.UserID,
		Platform:          domain.Platform(r.Platform),
		Login:             r.Login,
		Server:            r.Server,
		ProviderAccountID: r.ProviderAccountID,
		Name:              r.Name,
		InitialBalance:    r.InitialBalance,
	}
}

type AccountResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Platform          string    `json:"platform"`
	Login             string    `json:"login,omitempty"`
	Server            string    `json:"server,omitempty"`
	ProviderAccountID string    `json:"providerAccountId,omitempty"`
	Name              string    `json:"name"`
	InitialBalance    float64   `json:"initialBalance"`
	Archived          bool      `json:"archived"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func newAccountResponse(a *domain.TradingAccount) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		ID:                a.ID,
		UserID:            a.UserID,
		Platform:          string(a.Platform),
		Login:             a.Login,
		Server:            a.Server,
		ProviderAccountID: a.ProviderAccountID,
		Name:              a.Name,
		InitialBalance:    a.InitialBalance,
		Archived:          a.Archived,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

type SnapshotResponse struct {
	Balance    *float64 `json:"balance"`
	Equity     *float64 `json:"equity"`
	Margin     *float64 `json:"margin"`
	FreeMargin *float64 `json:"freeMargin"`
	Leverage   *float64 `json:"leverage"`
	Currency   string   `json:"currency"`
	Server     string   `json:"server,omitempty"`
	Platform   string   `json:"platform"`
}

// TradeResponse carries a closed trade. Prices and profit the provider did
// not report are null.
type TradeResponse struct {
	Ticket        string    `json:"ticket"`
	Direction     string    `json:"direction"`
	Volume        *float64  `json:"volume"`
	Symbol        string    `json:"symbol"`
	OpenPrice     *float64  `json:"openPrice"`
	ClosePrice    *float64  `json:"closePrice"`
	Profit        *float64  `json:"profit"`
	OpenTime      time.Time `json:"openTime"`
	CloseTime     time.Time `json:"closeTime"`
	DurationHours int       `json:"durationHours"`
}

type MetricsResponse struct {
	Balance            float64 `json:"balance"`
	Equity             float64 `json:"equity"`
	TradeCount         int     `json:"tradeCount"`
	TotalLots          float64 `json:"totalLots"`
	WinRate            float64 `json:"winRate"`
	AvgWin             float64 `json:"avgWin"`
	AvgLoss            float64 `json:"avgLoss"`
	AvgRiskRewardRatio float64 `json:"avgRiskRewardRatio"`
	Expectancy         float64 `json:"expectancy"`
	ProfitFactor       float64 `json:"profitFactor"`
}

type SymbolStatsResponse struct {
	Symbol    string  `json:"symbol"`
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"winRate"`
	NetProfit float64 `json:"netProfit"`
	TotalLots float64 `json:"totalLots"`
}

type MonthlyResultResponse struct {
	Month  string  `json:"month"`
	Return float64 `json:"return"`
}

type StatisticsResponse struct {
	GrossProfit          float64                 `json:"grossProfit"`
	GrossLoss            float64                 `json:"grossLoss"`
	NetProfit            float64                 `json:"netProfit"`
	BestTrade            float64                 `json:"bestTrade"`
	WorstTrade           float64                 `json:"worstTrade"`
	MaxConsecutiveWins   int                     `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int                     `json:"maxConsecutiveLosses"`
	AverageDurationHours float64                 `json:"averageDurationHours"`
	LongTrades           int                     `json:"longTrades"`
	ShortTrades          int                     `json:"shortTrades"`
	LongWinRate          float64                 `json:"longWinRate"`
	ShortWinRate         float64                 `json:"shortWinRate"`
	Symbols              []SymbolStatsResponse   `json:"symbols"`
	Monthly              []MonthlyResultResponse `json:"monthly"`
}

type EquityPointResponse struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

type DrawdownResponse struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Peak       float64 `json:"peak"`
	TroughDate string  `json:"troughDate"`
	Trough     float64 `json:"trough"`
	DepthPct   float64 `json:"depthPct"`
	Recovered  bool    `json:"recovered"`
}

type DrawdownsResponse struct {
	MaxDrawdown    float64            `json:"maxDrawdown"`
	MaxDrawdownPct float64            `json:"maxDrawdownPct"`
	Periods        []DrawdownResponse `json:"periods"`
}

type ViolationResponse struct {
	Kind   string  `json:"kind"`
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
	Limit  float64 `json:"limit"`
	Detail string  `json:"detail"`
}

type EvaluationResponse struct {
	Status             string              `json:"status"`
	InitialBalance     float64             `json:"initialBalance"`
	DailyLossLimit     float64             `json:"dailyLossLimit"`
	DrawdownFloor      float64             `json:"drawdownFloor"`
	ProfitTargetEquity float64             `json:"profitTargetEquity"`
	LowestEquity       float64             `json:"lowestEquity"`
	TradingDays        int                 `json:"tradingDays"`
	TargetReached      bool                `json:"targetReached"`
	Violations         []ViolationResponse `json:"violations"`
}

type DashboardResponse struct {
	Account          *AccountResponse      `json:"account"`
	Snapshot         *SnapshotResponse     `json:"snapshot"`
	Metrics          MetricsResponse       `json:"metrics"`
	MetricsAvailable bool                  `json:"metricsAvailable"`
	Statistics       StatisticsResponse    `json:"statistics"`
	EquityCurve      []EquityPointResponse `json:"equityCurve"`
	EquityAvailable  bool                  `json:"equityAvailable"`
	Drawdowns        DrawdownsResponse     `json:"drawdowns"`
	Evaluation       *EvaluationResponse   `json:"evaluation"`
	Trades           []TradeResponse       `json:"trades"`
	Warnings         []string              `json:"warnings"`
	GeneratedAt      time.Time             `json:"generatedAt"`
}

const dateLayout = "2006-01-02"

// num turns NaN and infinities into null; encoding/json rejects them.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newSnapshotResponse(s *domain.AccountSnapshot) *SnapshotResponse {
	if s == nil {
		return nil
	}
	return &SnapshotResponse{
		Balance:    num(s.Balance),
		Equity:     num(s.Equity),
		Margin:     num(s.Margin),
		FreeMargin: num(s.FreeMargin),
		Leverage:   num(s.Leverage),
		Currency:   s.Currency,
		Server:     s.Server,
		Platform:   string(s.Platform),
	}
}

func newTradesResponse(trades []domain.Trade) []TradeResponse {
	out := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeResponse{
			Ticket:        t.Ticket,
			Direction:     string(t.Direction),
			Volume:        num(t.Volume),
			Symbol:        t.Symbol,
			OpenPrice:     num(t.OpenPrice),
			ClosePrice:    num(t.ClosePrice),
			Profit:        num(t.Profit),
			OpenTime:      t.OpenTime,
			CloseTime:     t.CloseTime,
			DurationHours: t.DurationHours(),
		})
	}
	return out
}

func newMetricsResponse(m analytics.PerformanceMetrics) MetricsResponse {
	return MetricsResponse{
		Balance:            m.Balance,
		Equity:             m.Equity,
		TradeCount:         m.TradeCount,
		TotalLots:          m.TotalLots,
		WinRate:            m.WinRate,
		AvgWin:             m.AvgWin,
		AvgLoss:            m.AvgLoss,
		AvgRiskRewardRatio: m.AvgRiskRewardRatio,
		Expectancy:         m.Expectancy,
		ProfitFactor:       m.ProfitFactor,
	}
}

func newStatisticsResponse(s analytics.TradeStatistics) StatisticsResponse {
	resp := StatisticsResponse{
		GrossProfit:          s.GrossProfit,
		GrossLoss:            s.GrossLoss,
		NetProfit:            s.NetProfit,
		BestTrade:            s.BestTrade,
		WorstTrade:           s.WorstTrade,
		MaxConsecutiveWins:   s.MaxConsecutiveWins,
		MaxConsecutiveLosses: s.MaxConsecutiveLosses,
		AverageDurationHours: s.AverageDurationHours,
		LongTrades:           s.LongTrades,
		ShortTrades:          s.ShortTrades,
		LongWinRate:          s.LongWinRate,
		ShortWinRate:         s.ShortWinRate,
		Symbols:              make([]SymbolStatsResponse, 0, len(s.Symbols)),
		Monthly:              make([]MonthlyResultResponse, 0, len(s.MonthlyResults)),
	}
	for _, sym := range s.Symbols {
		resp.Symbols = append(resp.Symbols, SymbolStatsResponse(sym))
	}
	for _, m := range s.MonthlyReturns() {
		resp.Monthly = append(resp.Monthly, MonthlyResultResponse{Month: m.Month.Format("2006-01"), Return: m.Return})
	}
	return resp
}

func newEquityResponse(curve []analytics.EquityPoint) []EquityPointResponse {
	out := make([]EquityPointResponse, 0, len(curve))
	for _, p := range curve {
		out = append(out, EquityPointResponse{Date: p.Date.Format(dateLayout), Equity: p.Equity})
	}
	return out
}

func newDrawdownsResponse(s analytics.DrawdownSummary) DrawdownsResponse {
	resp := DrawdownsResponse{
		MaxDrawdown:    s.MaxDrawdown,
		MaxDrawdownPct: s.MaxDrawdownPct,
		Periods:        make([]DrawdownResponse, 0, len(s.Drawdowns)),
	}
	for _, d := range s.Drawdowns {
		resp.Periods = append(resp.Periods, DrawdownResponse{
			Start:      d.StartTime.Format(dateLayout),
			End:        d.EndTime.Format(dateLayout),
			Peak:       d.PeakValue,
			TroughDate: d.TroughTime.Format(dateLayout),
			Trough:     d.TroughValue,
			DepthPct:   d.DepthPct,
			Recovered:  d.Recovered,
		})
	}
	return resp
}

func newEvaluationResponse(e *risk.Evaluation) *EvaluationResponse {
	if e == nil {
		return nil
	}
	resp := &EvaluationResponse{
		Status:             string(e.Status),
		InitialBalance:     e.InitialBalance,
		DailyLossLimit:     e.DailyLossLimit,
		DrawdownFloor:      e.DrawdownFloor,
		ProfitTargetEquity: e.ProfitTargetEquity,
		LowestEquity:       e.LowestEquity,
		TradingDays:        e.TradingDays,
		TargetReached:      e.TargetReached,
		Violations:         make([]ViolationResponse, 0, len(e.Violations)),
	}
	for _, v := range e.Violations {
		resp.Violations = append(resp.Violations, ViolationResponse{
			Kind:   string(v.Kind),
			Date:   v.Date.Format(dateLayout),
			Equity: v.Equity,
			Limit:  v.Limit,
			Detail: v.Detail,
		})
	}
	return resp
}

func newDashboardResponse(d *app.Dashboard) DashboardResponse {
	return DashboardResponse{
		Account:          newAccountResponse(d.Account),
		Snapshot:         newSnapshotResponse(d.Snapshot),
		Metrics:          newMetricsResponse(d.Metrics),
		MetricsAvailable: d.MetricsAvailable,
		Statistics:       newStatisticsResponse(d.Statistics),
		EquityCurve:      newEquityResponse(d.EquityCurve),
		EquityAvailable:  d.EquityAvailable,
		Drawdowns:        newDrawdownsResponse(d.Drawdowns),
		Evaluation:       newEvaluationResponse(d.Evaluation),
		Trades:           newTradesResponse(d.Trades),
		Warnings:         d.Warnings,
		GeneratedAt:      d.GeneratedAt,
	}
}
