package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ict-ledger/interfaces"
)

func gateAccount() interfaces.AccountSnapshot {
	return interfaces.AccountSnapshot{
		Balance:  d("10000"),
		DailyPnL: d("0"),
		Limits:   defaultLimits(),
		CanTrade: true,
	}
}

func TestRiskGateEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		acct     func(*interfaces.AccountSnapshot)
		proposal RiskProposal
		rule     string
		event    interfaces.RiskEventType
	}{
		{
			name:     "approved",
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("300"), OpenHeat: d("700")},
		},
		{
			name:     "halted account",
			acct:     func(a *interfaces.AccountSnapshot) { a.CanTrade = false; a.HaltReason = "manual" },
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("100")},
			rule:     RuleTradingHalted,
		},
		{
			name:     "daily loss would be breached",
			acct:     func(a *interfaces.AccountSnapshot) { a.DailyPnL = d("-300") },
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("201")},
			rule:     RuleDailyLossLimit,
			event:    interfaces.RiskDailyLossLimit,
		},
		{
			name:     "daily loss exactly at limit is allowed",
			acct:     func(a *interfaces.AccountSnapshot) { a.DailyPnL = d("-300") },
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("200")},
		},
		{
			name:     "losing streak",
			acct:     func(a *interfaces.AccountSnapshot) { a.ConsecutiveLosses = 3 },
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("100")},
			rule:     RuleConsecutiveLosses,
			event:    interfaces.RiskConsecutiveLosses,
		},
		{
			name:     "losing streak overridden",
			acct:     func(a *interfaces.AccountSnapshot) { a.ConsecutiveLosses = 5 },
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("100"), OverrideConsecutiveLosses: true},
		},
		{
			name:     "portfolio heat",
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("250"), OpenHeat: d("800")},
			rule:     RulePortfolioHeat,
			event:    interfaces.RiskPortfolioHeat,
		},
		{
			name:     "heat exactly at limit is allowed",
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("200"), OpenHeat: d("800")},
		},
		{
			name:     "oversized position",
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("301")},
			rule:     RuleMaxPositionRisk,
		},
		{
			name:     "halt wins over every other rule",
			acct:     func(a *interfaces.AccountSnapshot) { a.CanTrade = false; a.ConsecutiveLosses = 9 },
			proposal: RiskProposal{Symbol: "NQ", RiskAmount: d("5000"), OpenHeat: d("5000")},
			rule:     RuleTradingHalted,
		},
	}

	now := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	gate := NewRiskGate(func() time.Time { return now })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acct := gateAccount()
			if tt.acct != nil {
				tt.acct(&acct)
			}

			decision := gate.Evaluate(tt.proposal, acct)

			if tt.rule == "" {
				assert.True(t, decision.Approved, decision.Reason)
				assert.Nil(t, decision.RiskEvent)
				return
			}
			assert.False(t, decision.Approved)
			assert.Equal(t, tt.rule, decision.Rule)
			assert.NotEmpty(t, decision.Reason)
			if tt.event == "" {
				assert.Nil(t, decision.RiskEvent)
				return
			}
			require.NotNil(t, decision.RiskEvent)
			assert.Equal(t, tt.event, decision.RiskEvent.Type)
			assert.Equal(t, "NQ", decision.RiskEvent.Symbol)
			assert.Equal(t, now, decision.RiskEvent.CreatedAt)
		})
	}
}

func TestRiskGateDailyLossEventValues(t *testing.T) {
	t.Parallel()
	acct := gateAccount()
	acct.DailyPnL = d("-300")

	decision := NewRiskGate(nil).Evaluate(RiskProposal{Symbol: "NQ", RiskAmount: d("300")}, acct)

	require.NotNil(t, decision.RiskEvent)
	assert.Equal(t, interfaces.SeverityCritical, decision.RiskEvent.Severity)
	assertDecimal(t, "600", decision.RiskEvent.TriggeredValue)
	assertDecimal(t, "500", decision.RiskEvent.LimitValue)
}
