package interfaces

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalOutcome is the realized result of a signal
type SignalOutcome string

const (
	OutcomePending   SignalOutcome = "pending"
	OutcomeWin       SignalOutcome = "win"
	OutcomeLoss      SignalOutcome = "loss"
	OutcomeBreakeven SignalOutcome = "breakeven"
)

// OutcomeFromPnL classifies a realized P&L. Zero is its own category.
func OutcomeFromPnL(pnl decimal.Decimal) SignalOutcome {
	switch pnl.Sign() {
	case 1:
		return OutcomeWin
	case -1:
		return OutcomeLoss
	}
	return OutcomeBreakeven
}

// ICTElements are the confluence factors a detector saw when it fired
type ICTElements struct {
	FairValueGap        bool   `json:"fair_value_gap"`
	OrderBlock          bool   `json:"order_block"`
	LiquiditySweep      bool   `json:"liquidity_sweep"`
	DeltaDivergence     bool   `json:"delta_divergence"`
	StructureShift      bool   `json:"market_structure_shift"`
	KillzoneAligned     bool   `json:"killzone_aligned"`
	HigherTimeframeBias string `json:"htf_bias,omitempty"` // bullish, bearish, neutral
	OrderFlowConfirmed  bool   `json:"order_flow_confirmed"`
}

// SignalRequest is a detection event from an external pattern detector
type SignalRequest struct {
	Symbol          string            `json:"symbol" validate:"required,max=20"`
	SignalType      Side              `json:"signal_type" validate:"required,oneof=long short"`
	Trigger         SetupType         `json:"trigger" validate:"required,max=40"`
	Confidence      *decimal.Decimal  `json:"confidence,omitempty"`
	EntryPrice      decimal.Decimal   `json:"entry_price"`
	StopLoss        decimal.Decimal   `json:"stop_loss"`
	Targets         []decimal.Decimal `json:"targets" validate:"min=1,max=5"`
	ICTElements     ICTElements       `json:"ict_elements"`
	MarketStructure string            `json:"market_structure,omitempty" validate:"max=40"`
	Session         Session           `json:"session,omitempty"`
	Timeframe       string            `json:"timeframe,omitempty" validate:"max=10"`
	DetectedAt      *time.Time        `json:"detected_at,omitempty"`
	Notes           string            `json:"notes,omitempty" validate:"max=2000"`
}

// Signal is a detected ICT-pattern opportunity and its eventual outcome
type Signal struct {
	ID              string            `json:"id"`
	Symbol          string            `json:"symbol"`
	SignalType      Side              `json:"signal_type"`
	Trigger         SetupType         `json:"trigger"`
	Confidence      decimal.Decimal   `json:"confidence"`
	EntryPrice      decimal.Decimal   `json:"entry_price"`
	StopLoss        decimal.Decimal   `json:"stop_loss"`
	Targets         []decimal.Decimal `json:"targets"`
	RiskReward      decimal.Decimal   `json:"risk_reward"`
	ICTElements     ICTElements       `json:"ict_elements"`
	MarketStructure string            `json:"market_structure,omitempty"`
	Session         Session           `json:"session"`
	Timeframe       string            `json:"timeframe,omitempty"`
	Outcome         SignalOutcome     `json:"outcome"`
	ExitPrice       *decimal.Decimal  `json:"exit_price,omitempty"`
	PnL             *decimal.Decimal  `json:"pnl,omitempty"`
	DetectedAt      time.Time         `json:"detected_at"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

// SignalFilter narrows signal listings
type SignalFilter struct {
	Symbol  string
	Trigger SetupType
	Outcome SignalOutcome
	Since   *time.Time
	Limit   int
}
