package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// SaveSignal inserts a new signal
func (s *LocalStorage) SaveSignal(ctx context.Context, signal *models.DBSignal) error {
	if err := s.db.WithContext(ctx).Create(signal).Error; err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}
	return nil
}

// GetSignal retrieves a signal by its public ID
func (s *LocalStorage) GetSignal(ctx context.Context, signalID string) (*models.DBSignal, error) {
	var row models.DBSignal
	err := s.db.WithContext(ctx).Where("signal_id = ?", signalID).First(&row).Error
	if IsNotFound(err) {
		return nil, interfaces.NotFound("get_signal", "signal %s not found", signalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return &row, nil
}

// ResolveSignal sets the outcome of a pending signal exactly once
func (s *LocalStorage) ResolveSignal(ctx context.Context, signalID string, outcome interfaces.SignalOutcome, exitPrice, pnl decimal.Decimal, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.DBSignal{}).
		Where("signal_id = ? AND outcome = ?", signalID, string(interfaces.OutcomePending)).
		Updates(map[string]any{
			"outcome":     string(outcome),
			"exit_price":  exitPrice,
			"pnl":         pnl,
			"resolved_at": at.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to resolve signal: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := s.GetSignal(ctx, signalID); err != nil {
		return err
	}
	return interfaces.AlreadyResolvedError("resolve_signal", signalID)
}

// ListSignals returns signals newest first
func (s *LocalStorage) ListSignals(ctx context.Context, filter interfaces.SignalFilter) ([]*models.DBSignal, error) {
	query := s.db.WithContext(ctx).Model(&models.DBSignal{})
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	if filter.Trigger != "" {
		query = query.Where("trigger_type = ?", string(filter.Trigger))
	}
	if filter.Outcome != "" {
		query = query.Where("outcome = ?", string(filter.Outcome))
	}
	if filter.Since != nil && !filter.Since.IsZero() {
		query = query.Where("detected_at >= ?", filter.Since.UTC())
	}

	var rows []*models.DBSignal
	err := query.Order("detected_at DESC").Order("id DESC").
		Limit(normalizeLimit(filter.Limit, 200)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	return rows, nil
}

// SignalsBetween returns signals detected in [start, end), oldest first
func (s *LocalStorage) SignalsBetween(ctx context.Context, start, end time.Time) ([]*models.DBSignal, error) {
	var rows []*models.DBSignal
	err := s.db.WithContext(ctx).
		Where("detected_at >= ? AND detected_at < ?", start.UTC(), end.UTC()).
		Order("detected_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get signals: %w", err)
	}
	return rows, nil
}
