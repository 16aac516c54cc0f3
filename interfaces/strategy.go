package interfaces

import (
	"github.com/shopspring/decimal"
)

// StrategyKind discriminates the typed parameter block of a strategy
type StrategyKind string

const (
	StrategyICTScalp      StrategyKind = "ict_scalp"
	StrategyOrderBlock    StrategyKind = "order_block"
	StrategySweepReversal StrategyKind = "sweep_reversal"
)

// ICTScalpParams configure the FVG scalping strategy
type ICTScalpParams struct {
	MinGapTicks     int             `json:"min_gap_ticks"`
	MinConfidence   decimal.Decimal `json:"min_confidence"`
	Sessions        []Session       `json:"sessions"`
	TargetR         decimal.Decimal `json:"target_r"`
	RequireCVDAgree bool            `json:"require_cvd_agree"`
}

// OrderBlockParams configure the order-block retest strategy
type OrderBlockParams struct {
	LookbackBars    int             `json:"lookback_bars"`
	MaxRetests      int             `json:"max_retests"`
	MinDisplacement decimal.Decimal `json:"min_displacement"`
	MinConfidence   decimal.Decimal `json:"min_confidence"`
}

// SweepReversalParams configure the liquidity-sweep reversal strategy
type SweepReversalParams struct {
	SweepTicks        int             `json:"sweep_ticks"`
	RequireDivergence bool            `json:"require_divergence"`
	MaxVIX            decimal.Decimal `json:"max_vix"`
	MinConfidence     decimal.Decimal `json:"min_confidence"`
}

// StrategyConfig is a named strategy; exactly one variant matching Kind is set
type StrategyConfig struct {
	Name          string               `json:"name" validate:"required,max=60"`
	Kind          StrategyKind         `json:"kind" validate:"required"`
	Enabled       bool                 `json:"enabled"`
	ICTScalp      *ICTScalpParams      `json:"ict_scalp,omitempty"`
	OrderBlock    *OrderBlockParams    `json:"order_block,omitempty"`
	SweepReversal *SweepReversalParams `json:"sweep_reversal,omitempty"`
}

// Validate checks the discriminator against the populated variant
func (s StrategyConfig) Validate() error {
	set := 0
	if s.ICTScalp != nil {
		set++
	}
	if s.OrderBlock != nil {
		set++
	}
	if s.SweepReversal != nil {
		set++
	}
	if set != 1 {
		return ValidationError("strategy_config", "exactly one parameter block required, got %d", set)
	}
	switch s.Kind {
	case StrategyICTScalp:
		if s.ICTScalp == nil {
			return ValidationError("strategy_config", "kind %s requires ict_scalp parameters", s.Kind)
		}
	case StrategyOrderBlock:
		if s.OrderBlock == nil {
			return ValidationError("strategy_config", "kind %s requires order_block parameters", s.Kind)
		}
	case StrategySweepReversal:
		if s.SweepReversal == nil {
			return ValidationError("strategy_config", "kind %s requires sweep_reversal parameters", s.Kind)
		}
	default:
		return ValidationError("strategy_config", "unknown strategy kind %q", s.Kind)
	}
	return nil
}
