package interfaces

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodType is the window granularity of an aggregate
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
	PeriodAllTime PeriodType = "all_time"
	PeriodCustom  PeriodType = "custom"
)

// ParsePeriodType validates a period type name
func ParsePeriodType(s string) (PeriodType, error) {
	switch p := PeriodType(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime, PeriodCustom:
		return p, nil
	}
	return "", ValidationError("parse_period_type", "unknown period type %q", s)
}

// ProfitFactor is gross profit over absolute gross loss.
// Infinite is set when there is profit and no loss; both zero gives Value 0.
type ProfitFactor struct {
	Value    decimal.Decimal
	Infinite bool
}

func (p ProfitFactor) String() string {
	if p.Infinite {
		return "inf"
	}
	return p.Value.StringFixed(4)
}

func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *ProfitFactor) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("profit factor: %w", err)
	}
	if s == "inf" {
		*p = ProfitFactor{Infinite: true}
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("profit factor: %w", err)
	}
	*p = ProfitFactor{Value: v}
	return nil
}

// TradeStats are the measures shared by every aggregate slice
type TradeStats struct {
	TotalTrades      int             `json:"total_trades"`
	Wins             int             `json:"wins"`
	Losses           int             `json:"losses"`
	Breakevens       int             `json:"breakevens"`
	WinRate          decimal.Decimal `json:"win_rate"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	GrossLoss        decimal.Decimal `json:"gross_loss"`
	NetPnL           decimal.Decimal `json:"net_pnl"`
	ProfitFactor     ProfitFactor    `json:"profit_factor"`
	AverageWin       decimal.Decimal `json:"average_win"`
	AverageLoss      decimal.Decimal `json:"average_loss"`
	LargestWin       decimal.Decimal `json:"largest_win"`
	LargestLoss      decimal.Decimal `json:"largest_loss"`
	AverageRR        decimal.Decimal `json:"average_rr"`
	AverageRMultiple decimal.Decimal `json:"average_r_multiple"`
	Expectancy       decimal.Decimal `json:"expectancy"`
	MaxWinStreak     int             `json:"max_win_streak"`
	MaxLossStreak    int             `json:"max_loss_streak"`
}

// SignalStats summarise resolved signals for a slice
type SignalStats struct {
	SignalCount     int             `json:"signal_count"`
	SignalWins      int             `json:"signal_wins"`
	SignalLosses    int             `json:"signal_losses"`
	SignalBreakeven int             `json:"signal_breakeven"`
	SignalPending   int             `json:"signal_pending"`
	SignalWinRate   decimal.Decimal `json:"signal_win_rate"`
	AvgConfidence   decimal.Decimal `json:"avg_confidence"`
}

// PerformanceReport is the account-wide aggregate for one window
type PerformanceReport struct {
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	TradeStats
	Signals        SignalStats     `json:"signals"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`
	SharpeRatio    decimal.Decimal `json:"sharpe_ratio"`
	SortinoRatio   decimal.Decimal `json:"sortino_ratio"`
	StartBalance   decimal.Decimal `json:"start_balance"`
	EndBalance     decimal.Decimal `json:"end_balance"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// SetupReport is the aggregate for one setup type in a window
type SetupReport struct {
	SetupType   SetupType  `json:"setup_type"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	TradeStats
	Signals SignalStats `json:"signals"`
}

// SessionReport is the aggregate for one session in a window
type SessionReport struct {
	Session     Session    `json:"session"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	TradeStats
	Signals SignalStats `json:"signals"`
}

// DailyReport is the per-day stats row
type DailyReport struct {
	Date string `json:"date"`
	TradeStats
	StartBalance decimal.Decimal `json:"start_balance"`
	EndBalance   decimal.Decimal `json:"end_balance"`
}
