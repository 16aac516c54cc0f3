package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ict-ledger/interfaces"
)

// DBPosition is one trade. Rows are never deleted.
type DBPosition struct {
	gorm.Model
	PositionID string `gorm:"type:varchar(40);uniqueIndex;not null"`
	Symbol     string `gorm:"type:varchar(20);index;not null"`
	Side       string `gorm:"type:varchar(5);not null"`

	Contracts  decimal.Decimal  `gorm:"type:numeric(20,6);not null"`
	EntryPrice decimal.Decimal  `gorm:"type:numeric(20,6);not null"`
	StopLoss   decimal.Decimal  `gorm:"type:numeric(20,6);not null"`
	TakeProfit decimal.Decimal  `gorm:"type:numeric(20,6);not null"`
	PointValue decimal.Decimal  `gorm:"type:numeric(20,6);not null"`
	ExitPrice  *decimal.Decimal `gorm:"type:numeric(20,6)"`

	EntryTime time.Time  `gorm:"not null;index"`
	ExitTime  *time.Time `gorm:"index"`

	// open, closed, stopped_out, target_hit
	Status      string `gorm:"type:varchar(12);index;not null"`
	CloseReason string `gorm:"type:varchar(10)"`

	// Explicit names; default naming turns "PnL" into "pn_l".
	RealizedPnL   *decimal.Decimal `gorm:"column:realized_pnl;type:numeric(20,6)"`
	UnrealizedPnL decimal.Decimal  `gorm:"column:unrealized_pnl;type:numeric(20,6);not null;default:0"`

	RiskAmount      decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	RewardAmount    decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	RiskRewardRatio decimal.Decimal `gorm:"type:numeric(20,6);not null"`

	SetupType        string          `gorm:"type:varchar(40);index"`
	SignalConfidence decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
	SignalID         string          `gorm:"type:varchar(40);index"`

	// Market context at entry
	VIX          *decimal.Decimal `gorm:"column:vix;type:numeric(10,4)"`
	CVD          *decimal.Decimal `gorm:"column:cvd;type:numeric(20,4)"`
	Session      string           `gorm:"type:varchar(12);index"`
	ContextNotes string

	Tags  datatypes.JSONSlice[string]
	Notes string
}

// DBAccountState holds the account. Only one row may have IsCurrent set.
type DBAccountState struct {
	gorm.Model
	IsCurrent bool `gorm:"not null;default:false;uniqueIndex:idx_account_state_current,where:is_current = true"`

	Balance        decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	InitialBalance decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	DailyPnL       decimal.Decimal `gorm:"column:daily_pnl;type:numeric(20,6);not null;default:0"`
	DailyTrades    int             `gorm:"not null;default:0"`
	DailyDate      string          `gorm:"type:varchar(10);not null"`

	ConsecutiveWins   int `gorm:"not null;default:0"`
	ConsecutiveLosses int `gorm:"not null;default:0"`

	MaxDailyLoss             decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	MaxPositionRisk          decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	MaxPortfolioHeat         decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	ConsecutiveLossThreshold int             `gorm:"not null;default:3"`

	CanTrade   bool   `gorm:"not null;default:true"`
	HaltReason string `gorm:"type:varchar(255)"`
	HaltScope  string `gorm:"type:varchar(8);not null;default:'none'"`

	Version int64 `gorm:"not null;default:1"`
}

// DBRiskEvent is an immutable risk occurrence
type DBRiskEvent struct {
	gorm.Model
	EventID        string          `gorm:"type:varchar(40);uniqueIndex;not null"`
	Type           string          `gorm:"type:varchar(24);index;not null"`
	Severity       string          `gorm:"type:varchar(10);index;not null"`
	TriggeredValue decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	LimitValue     decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Account        datatypes.JSONType[interfaces.AccountSnapshot]
	Symbol         string `gorm:"type:varchar(20)"`
	PositionID     string `gorm:"type:varchar(40);index"`
	ActionTaken    string
}

// DBEquityCurve is one append-only balance snapshot
type DBEquityCurve struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	ChangeAmount decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	ChangeType   string          `gorm:"type:varchar(16);not null"`
	PositionID   *string         `gorm:"type:varchar(40);index"`
	RecordedAt   time.Time       `gorm:"not null;index"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
}

// DBSignal is a detected ICT pattern and its outcome
type DBSignal struct {
	gorm.Model
	SignalID        string                                     `gorm:"type:varchar(40);uniqueIndex;not null"`
	Symbol          string                                     `gorm:"type:varchar(20);index;not null"`
	SignalType      string                                     `gorm:"type:varchar(5);not null"`
	Trigger         string                                     `gorm:"column:trigger_type;type:varchar(40);index;not null"`
	Confidence      decimal.Decimal                            `gorm:"type:numeric(10,4);not null"`
	EntryPrice      decimal.Decimal                            `gorm:"type:numeric(20,6);not null"`
	StopLoss        decimal.Decimal                            `gorm:"type:numeric(20,6);not null"`
	Targets         datatypes.JSONSlice[decimal.Decimal]
	RiskReward      decimal.Decimal                            `gorm:"type:numeric(20,6);not null"`
	ICTElements     datatypes.JSONType[interfaces.ICTElements] `gorm:"column:ict_elements"`
	MarketStructure string                                     `gorm:"type:varchar(40)"`
	Session         string                                     `gorm:"type:varchar(12);index"`
	Timeframe       string                                     `gorm:"type:varchar(10)"`
	Outcome         string                                     `gorm:"type:varchar(10);index;not null"`
	ExitPrice       *decimal.Decimal                           `gorm:"type:numeric(20,6)"`
	PnL             *decimal.Decimal                           `gorm:"column:pnl;type:numeric(20,6)"`
	DetectedAt      time.Time                                  `gorm:"not null;index"`
	ResolvedAt      *time.Time                                 `gorm:"index"`
	Notes           string
}

// DBAlert persists dispatched alerts for the dashboard
type DBAlert struct {
	gorm.Model
	AlertID           string `gorm:"type:varchar(40);uniqueIndex;not null"`
	Title             string `gorm:"type:varchar(200);not null"`
	Message           string
	Priority          string `gorm:"type:varchar(8);index"`
	AlertType         string `gorm:"type:varchar(24);index"`
	RelatedPositionID string `gorm:"type:varchar(40);index"`
	Data              datatypes.JSONMap
	Acknowledged      bool `gorm:"not null;default:false;index"`
	AcknowledgedAt    *time.Time
}

// DBStrategy stores a typed strategy configuration
type DBStrategy struct {
	gorm.Model
	Name    string `gorm:"type:varchar(60);uniqueIndex;not null"`
	Kind    string `gorm:"type:varchar(20);not null"`
	Enabled bool   `gorm:"not null;default:true"`
	Params  datatypes.JSONType[interfaces.StrategyConfig]
}

// StatsColumns are shared by every aggregate table
type StatsColumns struct {
	TotalTrades          int             `gorm:"not null;default:0"`
	Wins                 int             `gorm:"not null;default:0"`
	Losses               int             `gorm:"not null;default:0"`
	Breakevens           int             `gorm:"not null;default:0"`
	WinRate              decimal.Decimal `gorm:"type:numeric(10,6);not null;default:0"`
	GrossProfit          decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	GrossLoss            decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	NetPnL               decimal.Decimal `gorm:"column:net_pnl;type:numeric(20,6);not null;default:0"`
	ProfitFactor         decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	ProfitFactorInfinite bool            `gorm:"not null;default:false"`
	AverageWin           decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	AverageLoss          decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	LargestWin           decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	LargestLoss          decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	AverageRR            decimal.Decimal `gorm:"column:average_rr;type:numeric(20,6);not null;default:0"`
	AverageRMultiple     decimal.Decimal `gorm:"column:average_r_multiple;type:numeric(20,6);not null;default:0"`
	Expectancy           decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	MaxWinStreak         int             `gorm:"not null;default:0"`
	MaxLossStreak        int             `gorm:"not null;default:0"`
}

// SignalColumns summarise resolved signals in an aggregate
type SignalColumns struct {
	SignalCount     int             `gorm:"not null;default:0"`
	SignalWins      int             `gorm:"not null;default:0"`
	SignalLosses    int             `gorm:"not null;default:0"`
	SignalBreakeven int             `gorm:"not null;default:0"`
	SignalPending   int             `gorm:"not null;default:0"`
	SignalWinRate   decimal.Decimal `gorm:"type:numeric(10,6);not null;default:0"`
	AvgConfidence   decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`
}

// DBPerformanceAnalytics is the account-wide aggregate for one window
type DBPerformanceAnalytics struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	PeriodType  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_perf_period"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_perf_period"`
	PeriodEnd   time.Time `gorm:"not null;uniqueIndex:idx_perf_period"`

	StatsColumns  `gorm:"embedded"`
	SignalColumns `gorm:"embedded"`

	MaxDrawdown    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	MaxDrawdownPct decimal.Decimal `gorm:"type:numeric(10,6);not null;default:0"`
	SharpeRatio    decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	SortinoRatio   decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	StartBalance   decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	EndBalance     decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	ComputedAt     time.Time       `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// DBSetupPerformance is the per-setup aggregate for one window
type DBSetupPerformance struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	SetupType   string    `gorm:"type:varchar(40);not null;uniqueIndex:idx_setup_period"`
	PeriodType  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_setup_period"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_setup_period"`
	PeriodEnd   time.Time `gorm:"not null;uniqueIndex:idx_setup_period"`

	StatsColumns  `gorm:"embedded"`
	SignalColumns `gorm:"embedded"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// DBSessionPerformance is the per-session aggregate for one window
type DBSessionPerformance struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Session     string    `gorm:"type:varchar(12);not null;uniqueIndex:idx_session_period"`
	PeriodType  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_session_period"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_session_period"`
	PeriodEnd   time.Time `gorm:"not null;uniqueIndex:idx_session_period"`

	StatsColumns  `gorm:"embedded"`
	SignalColumns `gorm:"embedded"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// DBDailyStats is the per-trading-day aggregate
type DBDailyStats struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Date string `gorm:"type:varchar(10);not null;uniqueIndex"`

	StatsColumns `gorm:"embedded"`

	StartBalance decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	EndBalance   decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides for cleaner table names
func (DBPosition) TableName() string {
	return "positions"
}

func (DBAccountState) TableName() string {
	return "account_state"
}

func (DBRiskEvent) TableName() string {
	return "risk_events"
}

func (DBEquityCurve) TableName() string {
	return "equity_curve"
}

func (DBSignal) TableName() string {
	return "signals"
}

func (DBAlert) TableName() string {
	return "alerts"
}

func (DBStrategy) TableName() string {
	return "strategies"
}

func (DBPerformanceAnalytics) TableName() string {
	return "performance_analytics"
}

func (DBSetupPerformance) TableName() string {
	return "setup_performance"
}

func (DBSessionPerformance) TableName() string {
	return "session_performance"
}

func (DBDailyStats) TableName() string {
	return "daily_stats"
}

// AllModels lists every table for migration
func AllModels() []any {
	return []any{
		&DBPosition{},
		&DBAccountState{},
		&DBRiskEvent{},
		&DBEquityCurve{},
		&DBSignal{},
		&DBAlert{},
		&DBStrategy{},
		&DBPerformanceAnalytics{},
		&DBSetupPerformance{},
		&DBSessionPerformance{},
		&DBDailyStats{},
	}
}
