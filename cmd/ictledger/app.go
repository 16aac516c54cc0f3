package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ict-ledger/config"
	"ict-ledger/controllers"
	"ict-ledger/database"
	"ict-ledger/interfaces"
	"ict-ledger/services"
)

// app is the wired ledger shared by every command
type app struct {
	cfg      config.Config
	logger   *logrus.Logger
	location *time.Location

	storage     *database.LocalStorage
	metrics     *services.Metrics
	alertStore  *services.StoreDispatcher
	activity    *services.ActivityLogger
	accounts    *services.AccountService
	ledger      *services.PositionLedger
	signals     *services.SignalLedger
	performance *services.PerformanceAggregator
	strategies  *services.StrategyService
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := config.NewLogger(cfg.Log)
	location, _ := cfg.Location()
	pointValues, _ := cfg.PointValues()
	limits, _ := cfg.Limits()
	initialBalance, _ := cfg.InitialBalance()

	storage, err := database.Open(cfg.Database(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	accountStore := database.NewAccountStore(storage)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		location:   location,
		storage:    storage,
		metrics:    services.NewMetrics(),
		alertStore: services.NewStoreDispatcher(storage),
		activity:   services.NewActivityLogger(cfg.Alerts.ActivityDir, location, logger),
	}

	dispatchers := services.MultiDispatcher{a.alertStore, services.NewLogDispatcher(logger), a.activity}
	if cfg.Alerts.SlackWebhookURL != "" {
		dispatchers = append(dispatchers, services.NewSlackDispatcher(cfg.Alerts.SlackWebhookURL, interfaces.PriorityMedium))
	}

	var prices interfaces.PriceSource
	if cfg.Market.AlpacaAPIKey != "" && cfg.Market.AlpacaAPISecret != "" {
		prices = services.NewAlpacaPriceSource(cfg.Market.AlpacaAPIKey, cfg.Market.AlpacaAPISecret, logger)
	}

	a.accounts = services.NewAccountService(storage, accountStore, services.AccountServiceOptions{
		Alerts:     dispatchers,
		Metrics:    a.metrics,
		Location:   location,
		MaxRetries: cfg.Risk.MaxRetries,
		Logger:     logger,
	})
	a.ledger = services.NewPositionLedger(storage, accountStore, services.PositionLedgerOptions{
		Gate:    services.NewRiskGate(nil),
		Alerts:  dispatchers,
		Prices:  prices,
		Metrics: a.metrics,
		Config: services.LedgerConfig{
			Location:          location,
			PointValues:       pointValues,
			HaltOnDailyLoss:   cfg.Risk.HaltOnDailyLoss,
			MaxRetries:        cfg.Risk.MaxRetries,
			AutoCloseOnLevels: cfg.Trading.AutoCloseOnLevels,
		},
		Logger: logger,
	})
	a.signals = services.NewSignalLedger(storage, a.metrics, nil, location, logger)
	a.performance = services.NewPerformanceAggregator(storage, services.PerformanceOptions{
		Metrics:      a.metrics,
		Location:     location,
		RiskFreeRate: cfg.Performance.RiskFreeRate,
		Logger:       logger,
	})
	a.strategies = services.NewStrategyService(storage, logger)

	if _, err := a.accounts.Bootstrap(ctx, services.AccountDefaults{
		InitialBalance: initialBalance,
		Limits:         limits,
	}); err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to bootstrap account: %w", err)
	}
	return a, nil
}

func (a *app) deps() controllers.Deps {
	return controllers.Deps{
		Storage:     a.storage,
		Accounts:    a.accounts,
		Ledger:      a.ledger,
		Signals:     a.signals,
		Performance: a.performance,
		Strategies:  a.strategies,
		Alerts:      a.alertStore,
		Activity:    a.activity,
		Metrics:     a.metrics,
		Location:    a.location,
		Logger:      a.logger,
	}
}

func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}
