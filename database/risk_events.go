package database

import (
	"context"
	"fmt"
	"time"

	"ict-ledger/models"
)

// SaveRiskEvent appends an immutable risk event
func (s *LocalStorage) SaveRiskEvent(ctx context.Context, event *models.DBRiskEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to save risk event: %w", err)
	}
	return nil
}

// ListRiskEvents returns the most recent risk events
func (s *LocalStorage) ListRiskEvents(ctx context.Context, since *time.Time, limit int) ([]*models.DBRiskEvent, error) {
	query := s.db.WithContext(ctx).Model(&models.DBRiskEvent{})
	if since != nil && !since.IsZero() {
		query = query.Where("created_at >= ?", since.UTC())
	}

	var rows []*models.DBRiskEvent
	err := query.Order("id DESC").Limit(normalizeLimit(limit, 50)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list risk events: %w", err)
	}
	return rows, nil
}

// CountRiskEvents counts events of one type, mainly for tests and health checks
func (s *LocalStorage) CountRiskEvents(ctx context.Context, eventType string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.DBRiskEvent{}).Where("type = ?", eventType).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count risk events: %w", err)
	}
	return n, nil
}
