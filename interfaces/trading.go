package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Valid reports whether the side is known
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Sign returns +1 for long and -1 for short
func (s Side) Sign() decimal.Decimal {
	if s == SideShort {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// PositionStatus is the lifecycle state of a position
type PositionStatus string

const (
	StatusOpen       PositionStatus = "open"
	StatusClosed     PositionStatus = "closed"
	StatusStoppedOut PositionStatus = "stopped_out"
	StatusTargetHit  PositionStatus = "target_hit"
)

// positionTransitions lists every allowed status change. Anything missing is rejected.
var positionTransitions = map[PositionStatus][]PositionStatus{
	StatusOpen: {StatusClosed, StatusStoppedOut, StatusTargetHit},
}

// CanTransition reports whether a position may move from one status to another
func CanTransition(from, to PositionStatus) bool {
	for _, next := range positionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CloseReason explains why a position was closed
type CloseReason string

const (
	CloseManual CloseReason = "manual"
	CloseStop   CloseReason = "stop"
	CloseTarget CloseReason = "target"
)

// Status maps a close reason to the terminal position status
func (r CloseReason) Status() (PositionStatus, bool) {
	switch r {
	case CloseManual, "":
		return StatusClosed, true
	case CloseStop:
		return StatusStoppedOut, true
	case CloseTarget:
		return StatusTargetHit, true
	}
	return "", false
}

// Session is an ICT trading session / killzone
type Session string

const (
	SessionAsia     Session = "asia"
	SessionLondon   Session = "london"
	SessionNYAM     Session = "ny_am"
	SessionNYLunch  Session = "ny_lunch"
	SessionNYPM     Session = "ny_pm"
	SessionOffHours Session = "off_hours"
)

// SetupType names the ICT pattern behind a trade or signal
type SetupType string

const (
	SetupFVGFill          SetupType = "fvg_fill"
	SetupOrderBlockRetest SetupType = "order_block_retest"
	SetupLiquiditySweep   SetupType = "liquidity_sweep"
	SetupDeltaDivergence  SetupType = "delta_divergence"
	SetupBreakerBlock     SetupType = "breaker_block"
	SetupStructureShift   SetupType = "market_structure_shift"
	SetupOther            SetupType = "other"
)

// MarketContext is the market snapshot captured when a position is entered
type MarketContext struct {
	VIX     *decimal.Decimal `json:"vix,omitempty"`
	CVD     *decimal.Decimal `json:"cvd,omitempty"`
	Session Session          `json:"session,omitempty"`
	Notes   string           `json:"notes,omitempty"`
}

// PositionRequest is an inbound trade action
type PositionRequest struct {
	Symbol           string           `json:"symbol" validate:"required,max=20"`
	Side             Side             `json:"side" validate:"required,oneof=long short"`
	Contracts        decimal.Decimal  `json:"contracts"`
	EntryPrice       decimal.Decimal  `json:"entry_price"`
	StopLoss         decimal.Decimal  `json:"stop_loss"`
	TakeProfit       decimal.Decimal  `json:"take_profit"`
	PointValue       *decimal.Decimal `json:"point_value,omitempty"`
	SetupType        SetupType        `json:"setup_type" validate:"omitempty,max=40"`
	SignalConfidence decimal.Decimal  `json:"signal_confidence"`
	MarketContext    MarketContext    `json:"market_context"`
	SignalID         string           `json:"signal_id,omitempty"`
	EntryTime        *time.Time       `json:"entry_time,omitempty"`
	Tags             []string         `json:"tags,omitempty" validate:"max=20,dive,max=40"`
	Notes            string           `json:"notes,omitempty" validate:"max=2000"`

	// OverrideConsecutiveLosses lets an operator bypass the losing-streak gate
	OverrideConsecutiveLosses bool `json:"override_consecutive_losses,omitempty"`
}

// Position is one trade instance
type Position struct {
	ID               string           `json:"id"`
	Symbol           string           `json:"symbol"`
	Side             Side             `json:"side"`
	Contracts        decimal.Decimal  `json:"contracts"`
	EntryPrice       decimal.Decimal  `json:"entry_price"`
	StopLoss         decimal.Decimal  `json:"stop_loss"`
	TakeProfit       decimal.Decimal  `json:"take_profit"`
	ExitPrice        *decimal.Decimal `json:"exit_price,omitempty"`
	EntryTime        time.Time        `json:"entry_time"`
	ExitTime         *time.Time       `json:"exit_time,omitempty"`
	Status           PositionStatus   `json:"status"`
	RealizedPnL      *decimal.Decimal `json:"realized_pnl,omitempty"`
	UnrealizedPnL    decimal.Decimal  `json:"unrealized_pnl"`
	SetupType        SetupType        `json:"setup_type"`
	SignalConfidence decimal.Decimal  `json:"signal_confidence"`
	MarketContext    MarketContext    `json:"market_context"`
	RiskAmount       decimal.Decimal  `json:"risk_amount"`
	RewardAmount     decimal.Decimal  `json:"reward_amount"`
	RiskRewardRatio  decimal.Decimal  `json:"risk_reward_ratio"`
	PointValue       decimal.Decimal  `json:"point_value"`
	SignalID         string           `json:"signal_id,omitempty"`
	CloseReason      CloseReason      `json:"close_reason,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// IsOpen reports whether the position is still live
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// HaltScope says which kind of reset may lift a halt
type HaltScope string

const (
	HaltNone  HaltScope = "none"
	HaltDaily HaltScope = "daily"
	HaltHard  HaltScope = "hard"
)

// AccountLimits are the configured risk limits on the account
type AccountLimits struct {
	MaxDailyLoss             decimal.Decimal `json:"max_daily_loss"`
	MaxPositionRisk          decimal.Decimal `json:"max_position_risk"`
	MaxPortfolioHeat         decimal.Decimal `json:"max_portfolio_heat"`
	ConsecutiveLossThreshold int             `json:"consecutive_loss_threshold"`
}

// AccountSnapshot is a consistent read of the current account state
type AccountSnapshot struct {
	AccountID         uint            `json:"account_id"`
	Balance           decimal.Decimal `json:"balance"`
	InitialBalance    decimal.Decimal `json:"initial_balance"`
	DailyPnL          decimal.Decimal `json:"daily_pnl"`
	DailyTrades       int             `json:"daily_trades"`
	DailyDate         string          `json:"daily_date"`
	ConsecutiveWins   int             `json:"consecutive_wins"`
	ConsecutiveLosses int             `json:"consecutive_losses"`
	Limits            AccountLimits   `json:"limits"`
	CanTrade          bool            `json:"can_trade"`
	HaltReason        string          `json:"halt_reason,omitempty"`
	HaltScope         HaltScope       `json:"halt_scope"`
	Version           int64           `json:"version"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// RiskEventType classifies a risk event
type RiskEventType string

const (
	RiskDailyLossLimit    RiskEventType = "daily_loss_limit"
	RiskConsecutiveLosses RiskEventType = "consecutive_losses"
	RiskPortfolioHeat     RiskEventType = "portfolio_heat"
	RiskManualHalt        RiskEventType = "manual_halt"
	RiskAccountEnabled    RiskEventType = "account_enabled"
)

// Severity of a risk event
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// RiskEvent is an immutable record of a limit violation or other risk occurrence
type RiskEvent struct {
	ID             string          `json:"id"`
	Type           RiskEventType   `json:"type"`
	Severity       Severity        `json:"severity"`
	TriggeredValue decimal.Decimal `json:"triggered_value"`
	LimitValue     decimal.Decimal `json:"limit_value"`
	Account        AccountSnapshot `json:"account"`
	Symbol         string          `json:"symbol,omitempty"`
	PositionID     string          `json:"position_id,omitempty"`
	ActionTaken    string          `json:"action_taken"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Decision is the outcome of a risk gate evaluation
type Decision struct {
	Approved  bool       `json:"approved"`
	Rule      string     `json:"rule,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	RiskEvent *RiskEvent `json:"risk_event,omitempty"`
}

// EquityPoint is one balance snapshot on the equity curve
type EquityPoint struct {
	ID           uint            `json:"id"`
	Balance      decimal.Decimal `json:"balance"`
	ChangeAmount decimal.Decimal `json:"change_amount"`
	ChangeType   string          `json:"change_type"`
	PositionID   string          `json:"position_id,omitempty"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// Equity curve change types
const (
	EquityInitial    = "initial"
	EquityTradeClose = "trade_close"
)

// PriceSource supplies the latest traded price for mark-to-market
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Clock returns the current time; swapped in tests
type Clock func() time.Time
