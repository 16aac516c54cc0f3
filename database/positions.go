package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// PositionFilter narrows position listings
type PositionFilter struct {
	Status string
	Symbol string
	Limit  int
}

// SavePosition inserts a new position
func (s *LocalStorage) SavePosition(ctx context.Context, position *models.DBPosition) error {
	if err := s.db.WithContext(ctx).Create(position).Error; err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// GetPosition retrieves a position by its public ID
func (s *LocalStorage) GetPosition(ctx context.Context, positionID string) (*models.DBPosition, error) {
	var row models.DBPosition
	err := s.db.WithContext(ctx).Where("position_id = ?", positionID).First(&row).Error
	if IsNotFound(err) {
		return nil, interfaces.NotFound("get_position", "position %s not found", positionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &row, nil
}

// LockPosition retrieves a position FOR UPDATE inside a transaction
func (s *LocalStorage) LockPosition(ctx context.Context, positionID string) (*models.DBPosition, error) {
	var row models.DBPosition
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("position_id = ?", positionID).
		First(&row).Error
	if IsNotFound(err) {
		return nil, interfaces.NotFound("lock_position", "position %s not found", positionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock position: %w", err)
	}
	return &row, nil
}

// ClosePosition writes the exit fields. The update only matches an open row,
// so a racing close that already won leaves zero rows affected.
func (s *LocalStorage) ClosePosition(ctx context.Context, row *models.DBPosition) error {
	res := s.db.WithContext(ctx).
		Model(&models.DBPosition{}).
		Where("position_id = ? AND status = ?", row.PositionID, string(interfaces.StatusOpen)).
		Updates(map[string]any{
			"status":         row.Status,
			"close_reason":   row.CloseReason,
			"exit_price":     row.ExitPrice,
			"exit_time":      row.ExitTime,
			"realized_pnl":   row.RealizedPnL,
			"unrealized_pnl": decimal.Zero,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to close position: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return interfaces.InvalidStateError("close_position", "position %s is not open", row.PositionID)
	}
	return nil
}

// UpdateUnrealized refreshes the cached unrealized P&L of an open position
func (s *LocalStorage) UpdateUnrealized(ctx context.Context, positionID string, pnl decimal.Decimal) error {
	err := s.db.WithContext(ctx).
		Model(&models.DBPosition{}).
		Where("position_id = ? AND status = ?", positionID, string(interfaces.StatusOpen)).
		Update("unrealized_pnl", pnl).Error
	if err != nil {
		return fmt.Errorf("failed to update unrealized pnl: %w", err)
	}
	return nil
}

// ListPositions returns positions newest first
func (s *LocalStorage) ListPositions(ctx context.Context, filter PositionFilter) ([]*models.DBPosition, error) {
	query := s.db.WithContext(ctx).Model(&models.DBPosition{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}

	var rows []*models.DBPosition
	err := query.Order("entry_time DESC").Order("id DESC").
		Limit(normalizeLimit(filter.Limit, 200)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return rows, nil
}

// OpenPositions returns every open position oldest first
func (s *LocalStorage) OpenPositions(ctx context.Context) ([]*models.DBPosition, error) {
	var rows []*models.DBPosition
	err := s.db.WithContext(ctx).
		Where("status = ?", string(interfaces.StatusOpen)).
		Order("entry_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get open positions: %w", err)
	}
	return rows, nil
}

// OpenRisk sums risk_amount over open positions. Summed in Go so decimal
// precision does not depend on the engine's numeric affinity.
func (s *LocalStorage) OpenRisk(ctx context.Context) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&models.DBPosition{}).
		Where("status = ?", string(interfaces.StatusOpen)).
		Pluck("risk_amount", &amounts).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum open risk: %w", err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// ClosedPositionsBetween returns positions whose exit falls in [start, end), oldest exit first
func (s *LocalStorage) ClosedPositionsBetween(ctx context.Context, start, end time.Time) ([]*models.DBPosition, error) {
	var rows []*models.DBPosition
	err := s.db.WithContext(ctx).
		Where("status <> ?", string(interfaces.StatusOpen)).
		Where("exit_time >= ? AND exit_time < ?", start.UTC(), end.UTC()).
		Order("exit_time ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get closed positions: %w", err)
	}
	return rows, nil
}

// SumRealized totals realized P&L over every closed position
func (s *LocalStorage) SumRealized(ctx context.Context) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&models.DBPosition{}).
		Where("status <> ?", string(interfaces.StatusOpen)).
		Pluck("realized_pnl", &amounts).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum realized pnl: %w", err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// FirstActivity returns the earliest entry time on record, or zero
func (s *LocalStorage) FirstActivity(ctx context.Context) (time.Time, error) {
	var row models.DBPosition
	err := s.db.WithContext(ctx).Order("entry_time ASC").Limit(1).Find(&row).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read first position: %w", err)
	}
	first := row.EntryTime

	var sig models.DBSignal
	if err := s.db.WithContext(ctx).Order("detected_at ASC").Limit(1).Find(&sig).Error; err != nil {
		return time.Time{}, fmt.Errorf("failed to read first signal: %w", err)
	}
	if !sig.DetectedAt.IsZero() && (first.IsZero() || sig.DetectedAt.Before(first)) {
		first = sig.DetectedAt
	}
	return first, nil
}
