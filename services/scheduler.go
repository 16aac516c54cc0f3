package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SchedulerConfig holds cron specs; empty disables a job. Specs take a
// seconds field and run in the trading timezone.
type SchedulerConfig struct {
	DailyReset string
	Recompute  string
	// MarkPositions marks open positions against the price source
	MarkPositions string
	Location      *time.Location
}

// Scheduler drives the periodic ledger jobs: the daily reset tick,
// aggregate refresh and optional mark-to-market
type Scheduler struct {
	cron    *cron.Cron
	baseCtx context.Context
	logger  *logrus.Logger

	accounts    *AccountService
	performance *PerformanceAggregator
	ledger      *PositionLedger
}

func NewScheduler(baseCtx context.Context, cfg SchedulerConfig, accounts *AccountService, performance *PerformanceAggregator, ledger *PositionLedger, logger *logrus.Logger) (*Scheduler, error) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		baseCtx:     baseCtx,
		logger:      logger,
		accounts:    accounts,
		performance: performance,
		ledger:      ledger,
	}

	if cfg.DailyReset != "" && accounts != nil {
		if err := s.add("daily_reset", cfg.DailyReset, s.dailyReset); err != nil {
			return nil, err
		}
	}
	if cfg.Recompute != "" && performance != nil {
		if err := s.add("recompute", cfg.Recompute, s.recompute); err != nil {
			return nil, err
		}
	}
	if cfg.MarkPositions != "" && ledger != nil && ledger.prices != nil {
		if err := s.add("mark_positions", cfg.MarkPositions, s.markPositions); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, job func(context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		job(s.baseCtx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec for %s %q: %w", name, spec, err)
	}
	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"spec": spec,
	}).Info("Scheduled job")
	return nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started")
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// Entries reports how many jobs are scheduled
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) dailyReset(ctx context.Context) {
	snap, reset, err := s.accounts.ResetDaily(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled daily reset failed")
		return
	}
	if reset {
		s.logger.WithField("daily_date", snap.DailyDate).Info("Scheduled daily reset applied")
	}
}

func (s *Scheduler) recompute(ctx context.Context) {
	reports, err := s.performance.RecomputeCurrent(ctx, s.performance.clock())
	if err != nil {
		s.logger.WithError(err).Error("Scheduled recompute failed")
	}
	s.logger.WithField("windows", len(reports)).Debug("Scheduled recompute finished")
}

func (s *Scheduler) markPositions(ctx context.Context) {
	summary, err := s.ledger.MarkAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled mark-to-market failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"marked":           len(summary.Marks),
		"closed":           len(summary.Closed),
		"total_unrealized": summary.TotalUnrealized.String(),
	}).Debug("Scheduled mark-to-market finished")
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger *logrus.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error("cron: " + msg)
}

func kvFields(kv []any) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
