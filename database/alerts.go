package database

import (
	"context"
	"fmt"
	"time"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// SaveAlert persists a dispatched alert
func (s *LocalStorage) SaveAlert(ctx context.Context, alert *models.DBAlert) error {
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// ListAlerts returns recent alerts, optionally only unacknowledged ones
func (s *LocalStorage) ListAlerts(ctx context.Context, unackedOnly bool, limit int) ([]*models.DBAlert, error) {
	query := s.db.WithContext(ctx).Model(&models.DBAlert{})
	if unackedOnly {
		query = query.Where("acknowledged = ?", false)
	}
	var rows []*models.DBAlert
	if err := query.Order("id DESC").Limit(normalizeLimit(limit, 50)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return rows, nil
}

// AcknowledgeAlert marks an alert as seen
func (s *LocalStorage) AcknowledgeAlert(ctx context.Context, alertID string, at time.Time) error {
	at = at.UTC()
	res := s.db.WithContext(ctx).
		Model(&models.DBAlert{}).
		Where("alert_id = ?", alertID).
		Updates(map[string]any{"acknowledged": true, "acknowledged_at": &at})
	if res.Error != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return interfaces.NotFound("acknowledge_alert", "alert %s not found", alertID)
	}
	return nil
}
