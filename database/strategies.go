package database

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// UpsertStrategy stores a strategy configuration keyed by name
func (s *LocalStorage) UpsertStrategy(ctx context.Context, cfg interfaces.StrategyConfig) (*models.DBStrategy, error) {
	row := &models.DBStrategy{
		Name:    cfg.Name,
		Kind:    string(cfg.Kind),
		Enabled: cfg.Enabled,
		Params:  datatypes.NewJSONType(cfg),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "enabled", "params", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert strategy: %w", err)
	}
	return row, nil
}

// ListStrategies returns all strategies by name
func (s *LocalStorage) ListStrategies(ctx context.Context) ([]*models.DBStrategy, error) {
	var rows []*models.DBStrategy
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	return rows, nil
}

// GetStrategy retrieves one strategy by name
func (s *LocalStorage) GetStrategy(ctx context.Context, name string) (*models.DBStrategy, error) {
	var row models.DBStrategy
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if IsNotFound(err) {
		return nil, interfaces.NotFound("get_strategy", "strategy %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return &row, nil
}
