package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

var periodKey = []clause.Column{{Name: "period_type"}, {Name: "period_start"}, {Name: "period_end"}}

func upsert(db *gorm.DB, key []clause.Column, row any) error {
	return db.Clauses(clause.OnConflict{Columns: key, UpdateAll: true}).Create(row).Error
}

// UpsertPerformance writes or overwrites the account-wide row for a window
func (s *LocalStorage) UpsertPerformance(ctx context.Context, row *models.DBPerformanceAnalytics) error {
	if err := upsert(s.db.WithContext(ctx), periodKey, row); err != nil {
		return fmt.Errorf("failed to upsert performance: %w", err)
	}
	return nil
}

// UpsertSetupPerformance writes or overwrites per-setup rows for a window
func (s *LocalStorage) UpsertSetupPerformance(ctx context.Context, rows []*models.DBSetupPerformance) error {
	key := append([]clause.Column{{Name: "setup_type"}}, periodKey...)
	for _, row := range rows {
		if err := upsert(s.db.WithContext(ctx), key, row); err != nil {
			return fmt.Errorf("failed to upsert setup performance %s: %w", row.SetupType, err)
		}
	}
	return nil
}

// UpsertSessionPerformance writes or overwrites per-session rows for a window
func (s *LocalStorage) UpsertSessionPerformance(ctx context.Context, rows []*models.DBSessionPerformance) error {
	key := append([]clause.Column{{Name: "session"}}, periodKey...)
	for _, row := range rows {
		if err := upsert(s.db.WithContext(ctx), key, row); err != nil {
			return fmt.Errorf("failed to upsert session performance %s: %w", row.Session, err)
		}
	}
	return nil
}

// UpsertDailyStats writes or overwrites the row for one trading day
func (s *LocalStorage) UpsertDailyStats(ctx context.Context, row *models.DBDailyStats) error {
	if err := upsert(s.db.WithContext(ctx), []clause.Column{{Name: "date"}}, row); err != nil {
		return fmt.Errorf("failed to upsert daily stats: %w", err)
	}
	return nil
}

// DeleteSlices removes setup and session rows of a window so slices that no
// longer have data do not linger after a recompute
func (s *LocalStorage) DeleteSlices(ctx context.Context, periodType string, start, end time.Time) error {
	db := s.db.WithContext(ctx)
	where := "period_type = ? AND period_start = ? AND period_end = ?"
	if err := db.Where(where, periodType, start.UTC(), end.UTC()).Delete(&models.DBSetupPerformance{}).Error; err != nil {
		return fmt.Errorf("failed to clear setup performance: %w", err)
	}
	if err := db.Where(where, periodType, start.UTC(), end.UTC()).Delete(&models.DBSessionPerformance{}).Error; err != nil {
		return fmt.Errorf("failed to clear session performance: %w", err)
	}
	return nil
}

// GetPerformance reads the stored account-wide row for a window
func (s *LocalStorage) GetPerformance(ctx context.Context, periodType string, start, end time.Time) (*models.DBPerformanceAnalytics, error) {
	var row models.DBPerformanceAnalytics
	err := s.db.WithContext(ctx).
		Where("period_type = ? AND period_start = ? AND period_end = ?", periodType, start.UTC(), end.UTC()).
		First(&row).Error
	if IsNotFound(err) {
		return nil, interfaces.NotFound("get_performance", "no %s aggregate for %s", periodType, start.UTC().Format(time.RFC3339))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get performance: %w", err)
	}
	return &row, nil
}

// ListPerformance returns stored rows of one period type, newest window first
func (s *LocalStorage) ListPerformance(ctx context.Context, periodType string, limit int) ([]*models.DBPerformanceAnalytics, error) {
	query := s.db.WithContext(ctx).Model(&models.DBPerformanceAnalytics{})
	if periodType != "" {
		query = query.Where("period_type = ?", periodType)
	}
	var rows []*models.DBPerformanceAnalytics
	if err := query.Order("period_start DESC").Limit(normalizeLimit(limit, 50)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list performance: %w", err)
	}
	return rows, nil
}

// ListSetupPerformance returns per-setup rows for a window
func (s *LocalStorage) ListSetupPerformance(ctx context.Context, periodType string, start, end time.Time) ([]*models.DBSetupPerformance, error) {
	var rows []*models.DBSetupPerformance
	err := s.db.WithContext(ctx).
		Where("period_type = ? AND period_start = ? AND period_end = ?", periodType, start.UTC(), end.UTC()).
		Order("setup_type ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list setup performance: %w", err)
	}
	return rows, nil
}

// ListSessionPerformance returns per-session rows for a window
func (s *LocalStorage) ListSessionPerformance(ctx context.Context, periodType string, start, end time.Time) ([]*models.DBSessionPerformance, error) {
	var rows []*models.DBSessionPerformance
	err := s.db.WithContext(ctx).
		Where("period_type = ? AND period_start = ? AND period_end = ?", periodType, start.UTC(), end.UTC()).
		Order("session ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list session performance: %w", err)
	}
	return rows, nil
}

// ListDailyStats returns the most recent trading days, newest first
func (s *LocalStorage) ListDailyStats(ctx context.Context, limit int) ([]*models.DBDailyStats, error) {
	var rows []*models.DBDailyStats
	err := s.db.WithContext(ctx).Order("date DESC").Limit(normalizeLimit(limit, 30)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats: %w", err)
	}
	return rows, nil
}

// CountAggregates counts rows in the account-wide aggregate table
func (s *LocalStorage) CountAggregates(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.DBPerformanceAnalytics{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count aggregates: %w", err)
	}
	return n, nil
}

// TruncateAggregates deletes every derived row ahead of a rebuild
func (s *LocalStorage) TruncateAggregates(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []any{
		&models.DBPerformanceAnalytics{},
		&models.DBSetupPerformance{},
		&models.DBSessionPerformance{},
		&models.DBDailyStats{},
	} {
		if err := db.Delete(m).Error; err != nil {
			return fmt.Errorf("failed to truncate aggregates: %w", err)
		}
	}
	return nil
}
