package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ict-ledger/database"
	"ict-ledger/interfaces"
	"ict-ledger/models"
)

const dayLayout = "2006-01-02"

// AccountDefaults seed the account row on first start
type AccountDefaults struct {
	InitialBalance decimal.Decimal
	Limits         interfaces.AccountLimits
}

// AccountService owns the account lifecycle outside of position events:
// bootstrap, daily reset, manual halt/enable and limit changes.
type AccountService struct {
	storage    *database.LocalStorage
	accounts   *database.AccountStore
	alerts     interfaces.AlertDispatcher
	metrics    *Metrics
	clock      interfaces.Clock
	location   *time.Location
	maxRetries int
	logger     *logrus.Logger
}

type AccountServiceOptions struct {
	Alerts     interfaces.AlertDispatcher
	Metrics    *Metrics
	Clock      interfaces.Clock
	Location   *time.Location
	MaxRetries int
	Logger     *logrus.Logger
}

func NewAccountService(storage *database.LocalStorage, accounts *database.AccountStore, opts AccountServiceOptions) *AccountService {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 5
	}
	return &AccountService{
		storage:    storage,
		accounts:   accounts,
		alerts:     opts.Alerts,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		location:   opts.Location,
		maxRetries: opts.MaxRetries,
		logger:     logger,
	}
}

// Bootstrap creates the single current account row and its initial equity
// point if they do not exist yet. Safe to call on every start.
func (s *AccountService) Bootstrap(ctx context.Context, defaults AccountDefaults) (interfaces.AccountSnapshot, error) {
	if !defaults.InitialBalance.IsPositive() {
		return interfaces.AccountSnapshot{}, interfaces.ValidationError("bootstrap", "initial balance must be positive")
	}
	if err := validateLimits(defaults.Limits); err != nil {
		return interfaces.AccountSnapshot{}, err
	}

	now := s.clock().UTC()
	var (
		row     *models.DBAccountState
		created bool
	)
	err := s.storage.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		row, created, err = s.accounts.WithTx(tx).Ensure(ctx, models.DBAccountState{
			Balance:                  defaults.InitialBalance,
			InitialBalance:           defaults.InitialBalance,
			DailyPnL:                 decimal.Zero,
			DailyDate:                tradingDay(now, s.location),
			MaxDailyLoss:             defaults.Limits.MaxDailyLoss,
			MaxPositionRisk:          defaults.Limits.MaxPositionRisk,
			MaxPortfolioHeat:         defaults.Limits.MaxPortfolioHeat,
			ConsecutiveLossThreshold: defaults.Limits.ConsecutiveLossThreshold,
			CanTrade:                 true,
			HaltScope:                string(interfaces.HaltNone),
		})
		if err != nil || !created {
			return err
		}
		return s.storage.WithTx(tx).AppendEquity(ctx, &models.DBEquityCurve{
			Balance:      defaults.InitialBalance,
			ChangeAmount: defaults.InitialBalance,
			ChangeType:   interfaces.EquityInitial,
			RecordedAt:   now,
		})
	})
	if err != nil {
		return interfaces.AccountSnapshot{}, interfaces.Internal("bootstrap", err)
	}

	snap := snapshotFromDB(row)
	if created {
		s.logger.WithFields(logrus.Fields{
			"balance":    snap.Balance.String(),
			"daily_date": snap.DailyDate,
		}).Info("Account state created")
	}
	s.metrics.observeAccount(snap)
	return snap, nil
}

// Snapshot reads the current account state
func (s *AccountService) Snapshot(ctx context.Context) (interfaces.AccountSnapshot, error) {
	row, err := s.accounts.Current(ctx)
	if err != nil {
		return interfaces.AccountSnapshot{}, interfaces.Internal("account_snapshot", err)
	}
	return snapshotFromDB(row), nil
}

// ResetDaily starts a new trading day if the stored day is older than today.
// Applying it again on the same day changes nothing. It reports whether a
// reset happened.
func (s *AccountService) ResetDaily(ctx context.Context) (interfaces.AccountSnapshot, bool, error) {
	today := tradingDay(s.clock(), s.location)

	type result struct {
		snap  interfaces.AccountSnapshot
		reset bool
	}
	res, err := retryConflicts(ctx, s.maxRetries, func() (result, error) {
		var out result
		err := s.storage.InTx(ctx, func(tx *gorm.DB) error {
			accounts := s.accounts.WithTx(tx)
			row, err := accounts.LockCurrent(ctx)
			if err != nil {
				return err
			}
			if applyDailyReset(row, today) {
				if err := accounts.Update(ctx, row); err != nil {
					return err
				}
				out.reset = true
			}
			out.snap = snapshotFromDB(row)
			return nil
		})
		return out, err
	})
	if err != nil {
		return interfaces.AccountSnapshot{}, false, interfaces.Internal("reset_daily", err)
	}

	if res.reset {
		s.logger.WithFields(logrus.Fields{
			"daily_date": res.snap.DailyDate,
			"can_trade":  res.snap.CanTrade,
			"halt_scope": res.snap.HaltScope,
		}).Info("Daily reset applied")
		s.metrics.observeAccount(res.snap)
	}
	return res.snap, res.reset, nil
}

// Halt stops new opens. A daily halt lifts at the next daily reset; a hard
// halt only lifts through Enable.
func (s *AccountService) Halt(ctx context.Context, reason string, scope interfaces.HaltScope) (interfaces.AccountSnapshot, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return interfaces.AccountSnapshot{}, interfaces.ValidationError("halt", "reason is required")
	}
	if scope != interfaces.HaltDaily && scope != interfaces.HaltHard {
		return interfaces.AccountSnapshot{}, interfaces.ValidationError("halt", "scope must be daily or hard, got %q", scope)
	}

	severity := interfaces.SeverityWarning
	if scope == interfaces.HaltHard {
		severity = interfaces.SeverityCritical
	}

	type result struct {
		snap  interfaces.AccountSnapshot
		event *interfaces.RiskEvent
	}
	res, err := retryConflicts(ctx, s.maxRetries, func() (result, error) {
		var out result
		err := s.storage.InTx(ctx, func(tx *gorm.DB) error {
			accounts := s.accounts.WithTx(tx)
			row, err := accounts.LockCurrent(ctx)
			if err != nil {
				return err
			}
			row.CanTrade = false
			row.HaltReason = reason
			row.HaltScope = string(scope)
			if err := accounts.Update(ctx, row); err != nil {
				return err
			}
			out.snap = snapshotFromDB(row)
			out.event = &interfaces.RiskEvent{
				Type:           interfaces.RiskManualHalt,
				Severity:       severity,
				TriggeredValue: row.DailyPnL,
				LimitValue:     row.MaxDailyLoss,
				Account:        out.snap,
				ActionTaken:    "trading halted (" + string(scope) + "): " + reason,
			}
			return saveRiskEvent(ctx, s.storage.WithTx(tx), out.event, s.clock)
		})
		return out, err
	})
	if err != nil {
		return interfaces.AccountSnapshot{}, interfaces.Internal("halt", err)
	}

	s.logger.WithFields(logrus.Fields{
		"reason": reason,
		"scope":  scope,
	}).Warn("Trading halted")
	dispatchAlert(ctx, s.alerts, riskEventAlert(res.event), s.logger)
	return res.snap, nil
}

// Enable lifts any halt. Enabling an account that can already trade is a no-op.
func (s *AccountService) Enable(ctx context.Context, reason string) (interfaces.AccountSnapshot, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manually re-enabled"
	}

	type result struct {
		snap  interfaces.AccountSnapshot
		event *interfaces.RiskEvent
	}
	res, err := retryConflicts(ctx, s.maxRetries, func() (result, error) {
		var out result
		err := s.storage.InTx(ctx, func(tx *gorm.DB) error {
			accounts := s.accounts.WithTx(tx)
			row, err := accounts.LockCurrent(ctx)
			if err != nil {
				return err
			}
			if row.CanTrade {
				out.snap = snapshotFromDB(row)
				return nil
			}
			previous := row.HaltReason
			row.CanTrade = true
			row.HaltReason = ""
			row.HaltScope = string(interfaces.HaltNone)
			if err := accounts.Update(ctx, row); err != nil {
				return err
			}
			out.snap = snapshotFromDB(row)
			out.event = &interfaces.RiskEvent{
				Type:           interfaces.RiskAccountEnabled,
				Severity:       interfaces.SeverityInfo,
				TriggeredValue: row.DailyPnL,
				LimitValue:     row.MaxDailyLoss,
				Account:        out.snap,
				ActionTaken:    "trading enabled: " + reason + " (was: " + previous + ")",
			}
			return saveRiskEvent(ctx, s.storage.WithTx(tx), out.event, s.clock)
		})
		return out, err
	})
	if err != nil {
		return interfaces.AccountSnapshot{}, interfaces.Internal("enable", err)
	}

	if res.event != nil {
		s.logger.WithField("reason", reason).Info("Trading enabled")
		dispatchAlert(ctx, s.alerts, riskEventAlert(res.event), s.logger)
	}
	return res.snap, nil
}

// UpdateLimits replaces the configured risk limits
func (s *AccountService) UpdateLimits(ctx context.Context, limits interfaces.AccountLimits) (interfaces.AccountSnapshot, error) {
	if err := validateLimits(limits); err != nil {
		return interfaces.AccountSnapshot{}, err
	}

	snap, err := retryConflicts(ctx, s.maxRetries, func() (interfaces.AccountSnapshot, error) {
		var out interfaces.AccountSnapshot
		err := s.storage.InTx(ctx, func(tx *gorm.DB) error {
			accounts := s.accounts.WithTx(tx)
			row, err := accounts.LockCurrent(ctx)
			if err != nil {
				return err
			}
			row.MaxDailyLoss = limits.MaxDailyLoss
			row.MaxPositionRisk = limits.MaxPositionRisk
			row.MaxPortfolioHeat = limits.MaxPortfolioHeat
			row.ConsecutiveLossThreshold = limits.ConsecutiveLossThreshold
			if err := accounts.Update(ctx, row); err != nil {
				return err
			}
			out = snapshotFromDB(row)
			return nil
		})
		return out, err
	})
	if err != nil {
		return interfaces.AccountSnapshot{}, interfaces.Internal("update_limits", err)
	}

	s.logger.WithFields(logrus.Fields{
		"max_daily_loss":     limits.MaxDailyLoss.String(),
		"max_position_risk":  limits.MaxPositionRisk.String(),
		"max_portfolio_heat": limits.MaxPortfolioHeat.String(),
		"loss_threshold":     limits.ConsecutiveLossThreshold,
	}).Info("Risk limits updated")
	return snap, nil
}

// RiskEvents lists recent risk events, newest first
func (s *AccountService) RiskEvents(ctx context.Context, since *time.Time, limit int) ([]*interfaces.RiskEvent, error) {
	rows, err := s.storage.ListRiskEvents(ctx, since, limit)
	if err != nil {
		return nil, interfaces.Internal("list_risk_events", err)
	}
	events := make([]*interfaces.RiskEvent, len(rows))
	for i, row := range rows {
		events[i] = dbToRiskEvent(row)
	}
	return events, nil
}

// EquityCurve lists balance snapshots, oldest first
func (s *AccountService) EquityCurve(ctx context.Context, since *time.Time, limit int) ([]interfaces.EquityPoint, error) {
	rows, err := s.storage.ListEquity(ctx, since, limit)
	if err != nil {
		return nil, interfaces.Internal("list_equity", err)
	}
	points := make([]interfaces.EquityPoint, len(rows))
	for i, row := range rows {
		points[i] = dbToEquityPoint(row)
	}
	return points, nil
}

func validateLimits(l interfaces.AccountLimits) error {
	if !l.MaxDailyLoss.IsPositive() {
		return interfaces.ValidationError("limits", "max daily loss must be positive")
	}
	if !l.MaxPositionRisk.IsPositive() {
		return interfaces.ValidationError("limits", "max position risk must be positive")
	}
	if !l.MaxPortfolioHeat.IsPositive() {
		return interfaces.ValidationError("limits", "max portfolio heat must be positive")
	}
	if l.ConsecutiveLossThreshold < 1 {
		return interfaces.ValidationError("limits", "consecutive loss threshold must be at least 1")
	}
	return nil
}

// tradingDay is the calendar date of t in the trading timezone
func tradingDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// applyDailyReset rolls the row forward to today. Daily halts are cleared;
// hard halts survive. Returns false when the row is already on today.
func applyDailyReset(row *models.DBAccountState, today string) bool {
	// Dates compare lexically; a clock that moves backwards never resets.
	if today <= row.DailyDate {
		return false
	}
	row.DailyPnL = decimal.Zero
	row.DailyTrades = 0
	row.DailyDate = today
	if !row.CanTrade && row.HaltScope == string(interfaces.HaltDaily) {
		row.CanTrade = true
		row.HaltReason = ""
		row.HaltScope = string(interfaces.HaltNone)
	}
	return true
}

// saveRiskEvent assigns an id and timestamp, then persists the event
func saveRiskEvent(ctx context.Context, st *database.LocalStorage, ev *interfaces.RiskEvent, clock interfaces.Clock) error {
	ev.ID = database.NewID(database.PrefixRiskEvent)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = clock().UTC()
	}
	return st.SaveRiskEvent(ctx, riskEventToDB(ev))
}
