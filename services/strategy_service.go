package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"ict-ledger/database"
	"ict-ledger/interfaces"
)

// StrategyService stores typed strategy configurations
type StrategyService struct {
	storage *database.LocalStorage
	logger  *logrus.Logger
}

func NewStrategyService(storage *database.LocalStorage, logger *logrus.Logger) *StrategyService {
	if logger == nil {
		logger = logrus.New()
	}
	return &StrategyService{storage: storage, logger: logger}
}

// Save validates the variant against its kind and upserts it by name
func (s *StrategyService) Save(ctx context.Context, cfg interfaces.StrategyConfig) (*interfaces.StrategyConfig, error) {
	const op = "save_strategy"

	cfg.Name = strings.TrimSpace(cfg.Name)
	if err := validateStruct(op, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.storage.UpsertStrategy(ctx, cfg); err != nil {
		return nil, interfaces.Internal(op, err)
	}

	s.logger.WithFields(logrus.Fields{
		"name":    cfg.Name,
		"kind":    cfg.Kind,
		"enabled": cfg.Enabled,
	}).Info("Strategy saved")
	return s.Get(ctx, cfg.Name)
}

func (s *StrategyService) Get(ctx context.Context, name string) (*interfaces.StrategyConfig, error) {
	row, err := s.storage.GetStrategy(ctx, name)
	if err != nil {
		return nil, interfaces.Internal("get_strategy", err)
	}
	cfg := row.Params.Data()
	return &cfg, nil
}

func (s *StrategyService) List(ctx context.Context) ([]interfaces.StrategyConfig, error) {
	rows, err := s.storage.ListStrategies(ctx)
	if err != nil {
		return nil, interfaces.Internal("list_strategies", err)
	}
	out := make([]interfaces.StrategyConfig, len(rows))
	for i, row := range rows {
		out[i] = row.Params.Data()
	}
	return out, nil
}
