package database

import (
	"context"
	"fmt"
	"time"

	"ict-ledger/models"
)

// AppendEquity adds one point to the equity curve
func (s *LocalStorage) AppendEquity(ctx context.Context, point *models.DBEquityCurve) error {
	point.RecordedAt = point.RecordedAt.UTC()
	if err := s.db.WithContext(ctx).Create(point).Error; err != nil {
		return fmt.Errorf("failed to append equity point: %w", err)
	}
	return nil
}

// EquityBetween returns the points recorded in [start, end), oldest first
func (s *LocalStorage) EquityBetween(ctx context.Context, start, end time.Time) ([]*models.DBEquityCurve, error) {
	var rows []*models.DBEquityCurve
	err := s.db.WithContext(ctx).
		Where("recorded_at >= ? AND recorded_at < ?", start.UTC(), end.UTC()).
		Order("recorded_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get equity curve: %w", err)
	}
	return rows, nil
}

// LastEquityBefore returns the latest point strictly before t, or nil
func (s *LocalStorage) LastEquityBefore(ctx context.Context, t time.Time) (*models.DBEquityCurve, error) {
	var rows []*models.DBEquityCurve
	err := s.db.WithContext(ctx).
		Where("recorded_at < ?", t.UTC()).
		Order("recorded_at DESC").Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get equity point: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListEquity returns the curve since a point in time, oldest first
func (s *LocalStorage) ListEquity(ctx context.Context, since *time.Time, limit int) ([]*models.DBEquityCurve, error) {
	query := s.db.WithContext(ctx).Model(&models.DBEquityCurve{})
	if since != nil && !since.IsZero() {
		query = query.Where("recorded_at >= ?", since.UTC())
	}
	var rows []*models.DBEquityCurve
	err := query.Order("recorded_at ASC").Order("id ASC").Limit(normalizeLimit(limit, 1000)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list equity curve: %w", err)
	}
	return rows, nil
}
