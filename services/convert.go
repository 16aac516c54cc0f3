package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// Conversions between gorm rows and domain types

func dbToPosition(row *models.DBPosition) *interfaces.Position {
	return &interfaces.Position{
		ID:         row.PositionID,
		Symbol:     row.Symbol,
		Side:       interfaces.Side(row.Side),
		Contracts:  row.Contracts,
		EntryPrice: row.EntryPrice,
		StopLoss:   row.StopLoss,
		TakeProfit: row.TakeProfit,
		ExitPrice:  row.ExitPrice,
		EntryTime:  row.EntryTime,
		ExitTime:   row.ExitTime,
		Status:     interfaces.PositionStatus(row.Status),

		RealizedPnL:      row.RealizedPnL,
		UnrealizedPnL:    row.UnrealizedPnL,
		SetupType:        interfaces.SetupType(row.SetupType),
		SignalConfidence: row.SignalConfidence,
		MarketContext: interfaces.MarketContext{
			VIX:     row.VIX,
			CVD:     row.CVD,
			Session: interfaces.Session(row.Session),
			Notes:   row.ContextNotes,
		},
		RiskAmount:      row.RiskAmount,
		RewardAmount:    row.RewardAmount,
		RiskRewardRatio: row.RiskRewardRatio,
		PointValue:      row.PointValue,
		SignalID:        row.SignalID,
		CloseReason:     interfaces.CloseReason(row.CloseReason),
		Tags:            []string(row.Tags),
		Notes:           row.Notes,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func dbToSignal(row *models.DBSignal) *interfaces.Signal {
	return &interfaces.Signal{
		ID:              row.SignalID,
		Symbol:          row.Symbol,
		SignalType:      interfaces.Side(row.SignalType),
		Trigger:         interfaces.SetupType(row.Trigger),
		Confidence:      row.Confidence,
		EntryPrice:      row.EntryPrice,
		StopLoss:        row.StopLoss,
		Targets:         []decimal.Decimal(row.Targets),
		RiskReward:      row.RiskReward,
		ICTElements:     row.ICTElements.Data(),
		MarketStructure: row.MarketStructure,
		Session:         interfaces.Session(row.Session),
		Timeframe:       row.Timeframe,
		Outcome:         interfaces.SignalOutcome(row.Outcome),
		ExitPrice:       row.ExitPrice,
		PnL:             row.PnL,
		DetectedAt:      row.DetectedAt,
		ResolvedAt:      row.ResolvedAt,
		Notes:           row.Notes,
	}
}

func snapshotFromDB(row *models.DBAccountState) interfaces.AccountSnapshot {
	return interfaces.AccountSnapshot{
		AccountID:         row.ID,
		Balance:           row.Balance,
		InitialBalance:    row.InitialBalance,
		DailyPnL:          row.DailyPnL,
		DailyTrades:       row.DailyTrades,
		DailyDate:         row.DailyDate,
		ConsecutiveWins:   row.ConsecutiveWins,
		ConsecutiveLosses: row.ConsecutiveLosses,
		Limits: interfaces.AccountLimits{
			MaxDailyLoss:             row.MaxDailyLoss,
			MaxPositionRisk:          row.MaxPositionRisk,
			MaxPortfolioHeat:         row.MaxPortfolioHeat,
			ConsecutiveLossThreshold: row.ConsecutiveLossThreshold,
		},
		CanTrade:   row.CanTrade,
		HaltReason: row.HaltReason,
		HaltScope:  interfaces.HaltScope(row.HaltScope),
		Version:    row.Version,
		UpdatedAt:  row.UpdatedAt,
	}
}

func riskEventToDB(ev *interfaces.RiskEvent) *models.DBRiskEvent {
	row := &models.DBRiskEvent{
		EventID:        ev.ID,
		Type:           string(ev.Type),
		Severity:       string(ev.Severity),
		TriggeredValue: ev.TriggeredValue,
		LimitValue:     ev.LimitValue,
		Account:        datatypes.NewJSONType(ev.Account),
		Symbol:         ev.Symbol,
		PositionID:     ev.PositionID,
		ActionTaken:    ev.ActionTaken,
	}
	row.CreatedAt = ev.CreatedAt
	return row
}

func dbToRiskEvent(row *models.DBRiskEvent) *interfaces.RiskEvent {
	return &interfaces.RiskEvent{
		ID:             row.EventID,
		Type:           interfaces.RiskEventType(row.Type),
		Severity:       interfaces.Severity(row.Severity),
		TriggeredValue: row.TriggeredValue,
		LimitValue:     row.LimitValue,
		Account:        row.Account.Data(),
		Symbol:         row.Symbol,
		PositionID:     row.PositionID,
		ActionTaken:    row.ActionTaken,
		CreatedAt:      row.CreatedAt,
	}
}

func dbToEquityPoint(row *models.DBEquityCurve) interfaces.EquityPoint {
	p := interfaces.EquityPoint{
		ID:           row.ID,
		Balance:      row.Balance,
		ChangeAmount: row.ChangeAmount,
		ChangeType:   row.ChangeType,
		RecordedAt:   row.RecordedAt,
	}
	if row.PositionID != nil {
		p.PositionID = *row.PositionID
	}
	return p
}

func dbToAlert(row *models.DBAlert) interfaces.Alert {
	return interfaces.Alert{
		ID:                row.AlertID,
		Title:             row.Title,
		Message:           row.Message,
		Priority:          interfaces.AlertPriority(row.Priority),
		AlertType:         row.AlertType,
		RelatedPositionID: row.RelatedPositionID,
		Data:              map[string]any(row.Data),
		CreatedAt:         row.CreatedAt,
		Acknowledged:      row.Acknowledged,
	}
}
