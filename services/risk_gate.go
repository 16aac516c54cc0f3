package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ict-ledger/interfaces"
)

// Rule names reported in a Decision
const (
	RuleTradingHalted     = "trading_halted"
	RuleDailyLossLimit    = "daily_loss_limit"
	RuleConsecutiveLosses = "consecutive_losses"
	RulePortfolioHeat     = "portfolio_heat"
	RuleMaxPositionRisk   = "max_position_risk"
)

// RiskProposal is what the gate needs to know about a position being opened
type RiskProposal struct {
	Symbol     string
	RiskAmount decimal.Decimal
	// OpenHeat is the summed risk of positions already open
	OpenHeat                  decimal.Decimal
	OverrideConsecutiveLosses bool
}

// RiskGate admits or rejects new positions against the account limits.
// Evaluate does no I/O; the ledger persists any event it returns.
type RiskGate struct {
	clock interfaces.Clock
}

func NewRiskGate(clock interfaces.Clock) *RiskGate {
	if clock == nil {
		clock = time.Now
	}
	return &RiskGate{clock: clock}
}

// Evaluate applies the rules in order; the first failing rule decides.
func (g *RiskGate) Evaluate(p RiskProposal, acct interfaces.AccountSnapshot) interfaces.Decision {
	limits := acct.Limits

	if !acct.CanTrade {
		reason := acct.HaltReason
		if reason == "" {
			reason = "trading is halted"
		}
		return interfaces.Decision{Rule: RuleTradingHalted, Reason: reason}
	}

	projected := acct.DailyPnL.Sub(p.RiskAmount)
	if projected.LessThan(limits.MaxDailyLoss.Neg()) {
		return g.reject(RuleDailyLossLimit,
			fmt.Sprintf("daily pnl %s minus risk %s would breach max daily loss %s",
				acct.DailyPnL.StringFixed(2), p.RiskAmount.StringFixed(2), limits.MaxDailyLoss.StringFixed(2)),
			interfaces.RiskDailyLossLimit, interfaces.SeverityCritical, projected.Neg(), limits.MaxDailyLoss, p, acct)
	}

	threshold := limits.ConsecutiveLossThreshold
	if threshold > 0 && acct.ConsecutiveLosses >= threshold && !p.OverrideConsecutiveLosses {
		return g.reject(RuleConsecutiveLosses,
			fmt.Sprintf("%d consecutive losses reached threshold %d", acct.ConsecutiveLosses, threshold),
			interfaces.RiskConsecutiveLosses, interfaces.SeverityWarning,
			decimal.NewFromInt(int64(acct.ConsecutiveLosses)), decimal.NewFromInt(int64(threshold)), p, acct)
	}

	heat := p.OpenHeat.Add(p.RiskAmount)
	if heat.GreaterThan(limits.MaxPortfolioHeat) {
		return g.reject(RulePortfolioHeat,
			fmt.Sprintf("portfolio heat %s would exceed max %s",
				heat.StringFixed(2), limits.MaxPortfolioHeat.StringFixed(2)),
			interfaces.RiskPortfolioHeat, interfaces.SeverityWarning, heat, limits.MaxPortfolioHeat, p, acct)
	}

	// Input check rather than a limit breach, so no event.
	if p.RiskAmount.GreaterThan(limits.MaxPositionRisk) {
		return interfaces.Decision{
			Rule: RuleMaxPositionRisk,
			Reason: fmt.Sprintf("position risk %s exceeds max position risk %s",
				p.RiskAmount.StringFixed(2), limits.MaxPositionRisk.StringFixed(2)),
		}
	}

	return interfaces.Decision{Approved: true}
}

func (g *RiskGate) reject(rule, reason string, eventType interfaces.RiskEventType, severity interfaces.Severity,
	triggered, limit decimal.Decimal, p RiskProposal, acct interfaces.AccountSnapshot) interfaces.Decision {
	return interfaces.Decision{
		Rule:   rule,
		Reason: reason,
		RiskEvent: &interfaces.RiskEvent{
			Type:           eventType,
			Severity:       severity,
			TriggeredValue: triggered,
			LimitValue:     limit,
			Account:        acct,
			Symbol:         p.Symbol,
			ActionTaken:    "position rejected",
			CreatedAt:      g.clock().UTC(),
		},
	}
}
