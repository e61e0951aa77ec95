package risk

import (
	"fmt"
	"math"
	"time"

	"traderDashboard/internal/analytics"
	"traderDashboard/internal/domain"
)

// RuleSet holds the limits of a funded-account evaluation. Loss and target
// values are fractions of the initial balance (0.05 = 5%).
type RuleSet struct {
	MaxDailyLoss   float64
	MaxDrawdown    float64
	ProfitTarget   float64
	MinTradingDays int
	Location       *time.Location // Calendar of trading days; nil means UTC
}

// Status is the outcome of an evaluation.
type Status string

const (
	StatusActive Status = "active"
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// ViolationKind names the rule that was broken.
type ViolationKind string

const (
	ViolationDailyLoss ViolationKind = "daily_loss"
	ViolationDrawdown  ViolationKind = "max_drawdown"
)

// Violation records one breach of a rule.
type Violation struct {
	Kind   ViolationKind
	Date   time.Time
	Equity float64 // Equity at the breach
	Limit  float64 // Threshold that was crossed
	Detail string
}

// Evaluation is the state of an account against its RuleSet.
type Evaluation struct {
	Status             Status
	InitialBalance     float64
	DailyLossLimit     float64 // Largest allowed day-over-day equity drop
	DrawdownFloor      float64 // Equity must stay above this
	ProfitTargetEquity float64 // Equity to reach to pass
	LowestEquity       float64
	TradingDays        int
	TargetReached      bool
	Violations         []Violation
}

// Evaluator checks accounts against a RuleSet.
type Evaluator struct {
	rules RuleSet
}

// NewEvaluator validates the rules and creates an Evaluator.
func NewEvaluator(rules RuleSet) (*Evaluator, error) {
	if rules.MaxDailyLoss < 0 || rules.MaxDailyLoss >= 1 {
		return nil, fmt.Errorf("max daily loss %f must be in [0, 1)", rules.MaxDailyLoss)
	}
	if rules.MaxDrawdown < 0 || rules.MaxDrawdown >= 1 {
		return nil, fmt.Errorf("max drawdown %f must be in [0, 1)", rules.MaxDrawdown)
	}
	if rules.ProfitTarget < 0 {
		return nil, fmt.Errorf("profit target %f cannot be negative", rules.ProfitTarget)
	}
	if rules.MinTradingDays < 0 {
		return nil, fmt.Errorf("min trading days %d cannot be negative", rules.MinTradingDays)
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	return &Evaluator{rules: rules}, nil
}

// Evaluate checks an ascending daily equity curve, the closed trades and the
// current snapshot against the rules. A zero MaxDailyLoss, MaxDrawdown or
// ProfitTarget disables that rule. Without a positive initial balance no
// limit can be derived and the account stays active.
func (e *Evaluator) Evaluate(initialBalance float64, curve []analytics.EquityPoint, trades []domain.Trade, snapshot *domain.AccountSnapshot) Evaluation {
	eval := Evaluation{
		Status:         StatusActive,
		InitialBalance: initialBalance,
		TradingDays:    countTradingDays(trades, e.rules.Location),
		Violations:     make([]Violation, 0),
	}
	if initialBalance <= 0 || math.IsNaN(initialBalance) || math.IsInf(initialBalance, 0) {
		return eval
	}

	eval.DailyLossLimit = e.rules.MaxDailyLoss * initialBalance
	eval.DrawdownFloor = initialBalance * (1 - e.rules.MaxDrawdown)
	eval.ProfitTargetEquity = initialBalance * (1 + e.rules.ProfitTarget)
	eval.LowestEquity = initialBalance

	for i, p := range curve {
		if p.Equity < eval.LowestEquity {
			eval.LowestEquity = p.Equity
		}
		if e.rules.MaxDrawdown > 0 && p.Equity < eval.DrawdownFloor {
			eval.Violations = append(eval.Violations, Violation{
				Kind:   ViolationDrawdown,
				Date:   p.Date,
				Equity: p.Equity,
				Limit:  eval.DrawdownFloor,
				Detail: fmt.Sprintf("equity %.2f below floor %.2f", p.Equity, eval.DrawdownFloor),
			})
		}
		if i == 0 || e.rules.MaxDailyLoss <= 0 {
			continue
		}
		drop := curve[i-1].Equity - p.Equity
		if drop > eval.DailyLossLimit {
			eval.Violations = append(eval.Violations, Violation{
				Kind:   ViolationDailyLoss,
				Date:   p.Date,
				Equity: p.Equity,
				Limit:  eval.DailyLossLimit,
				Detail: fmt.Sprintf("daily loss %.2f exceeds limit %.2f", drop, eval.DailyLossLimit),
			})
		}
	}

	current := math.NaN()
	if snapshot != nil {
		current = snapshot.Equity
	} else if len(curve) > 0 {
		current = curve[len(curve)-1].Equity
	}
	if !math.IsNaN(current) && !math.IsInf(current, 0) {
		if current < eval.LowestEquity {
			eval.LowestEquity = current
		}
		if e.rules.ProfitTarget > 0 && current >= eval.ProfitTargetEquity {
			eval.TargetReached = true
		}
	}

	switch {
	case len(eval.Violations) > 0:
		eval.Status = StatusFailed
	case eval.TargetReached && eval.TradingDays >= e.rules.MinTradingDays:
		eval.Status = StatusPassed
	}
	return eval
}

// countTradingDays counts distinct close dates of valid trades in loc.
func countTradingDays(trades []domain.Trade, loc *time.Location) int {
	days := make(map[string]struct{})
	for _, t := range trades {
		if !t.HasValidProfit() || t.CloseTime.IsZero() {
			continue
		}
		days[t.CloseTime.In(loc).Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}
