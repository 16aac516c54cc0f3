package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ict-ledger/database"
	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// LedgerConfig holds the trading settings the position ledger needs
type LedgerConfig struct {
	Location        *time.Location
	PointValues     map[string]decimal.Decimal
	HaltOnDailyLoss bool
	MaxRetries      int
	// AutoCloseOnLevels lets MarkAll close positions whose price crossed
	// the stop or the target
	AutoCloseOnLevels bool
}

type PositionLedgerOptions struct {
	Gate    *RiskGate
	Alerts  interfaces.AlertDispatcher
	Prices  interfaces.PriceSource
	Metrics *Metrics
	Clock   interfaces.Clock
	Config  LedgerConfig
	Logger  *logrus.Logger
}

// PositionLedger owns the position lifecycle and every account mutation
// caused by it. Open and Close each run as one transaction around the
// locked account row.
type PositionLedger struct {
	storage  *database.LocalStorage
	accounts *database.AccountStore
	gate     *RiskGate
	alerts   interfaces.AlertDispatcher
	prices   interfaces.PriceSource
	metrics  *Metrics
	clock    interfaces.Clock
	cfg      LedgerConfig
	logger   *logrus.Logger
}

// MarkResult is the mark-to-market of one open position
type MarkResult struct {
	PositionID    string          `json:"position_id"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// MarkSummary is the outcome of marking every open position
type MarkSummary struct {
	Marks           []MarkResult           `json:"marks"`
	Closed          []*interfaces.Position `json:"closed,omitempty"`
	TotalUnrealized decimal.Decimal        `json:"total_unrealized"`
	DailyPnL        decimal.Decimal        `json:"daily_pnl"`
	Errors          []string               `json:"errors,omitempty"`
	MarkedAt        time.Time              `json:"marked_at"`
}

func NewPositionLedger(storage *database.LocalStorage, accounts *database.AccountStore, opts PositionLedgerOptions) *PositionLedger {
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
	if opts.Gate == nil {
		opts.Gate = NewRiskGate(opts.Clock)
	}
	if opts.Config.Location == nil {
		opts.Config.Location = time.UTC
	}
	if opts.Config.MaxRetries < 1 {
		opts.Config.MaxRetries = 5
	}

	return &PositionLedger{
		storage:  storage,
		accounts: accounts,
		gate:     opts.Gate,
		alerts:   opts.Alerts,
		prices:   opts.Prices,
		metrics:  opts.Metrics,
		clock:    opts.Clock,
		cfg:      opts.Config,
		logger:   logger,
	}
}

// Open admits a position through the risk gate and persists it.
// A gate rejection returns a RiskRejection error carrying the decision;
// its RiskEvent, if any, is committed before the error is returned.
func (l *PositionLedger) Open(ctx context.Context, req interfaces.PositionRequest) (*interfaces.Position, error) {
	const op = "open_position"

	template, err := l.buildPosition(op, req)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"symbol":      template.Symbol,
		"side":        template.Side,
		"contracts":   template.Contracts.String(),
		"risk_amount": template.RiskAmount.String(),
	}).Info("Opening position")

	type result struct {
		row      *models.DBPosition
		snap     interfaces.AccountSnapshot
		heat     decimal.Decimal
		decision interfaces.Decision
	}
	res, err := retryConflicts(ctx, l.cfg.MaxRetries, func() (result, error) {
		var out result
		err := l.storage.InTx(ctx, func(tx *gorm.DB) error {
			st := l.storage.WithTx(tx)
			accounts := l.accounts.WithTx(tx)

			acct, err := accounts.LockCurrent(ctx)
			if err != nil {
				return err
			}
			reset := applyDailyReset(acct, l.today())

			if template.SignalID != "" {
				if _, err := st.GetSignal(ctx, template.SignalID); err != nil {
					if interfaces.IsKind(err, interfaces.KindNotFound) {
						return interfaces.ValidationError(op, "signal %s does not exist", template.SignalID)
					}
					return err
				}
			}

			// Heat is read inside the transaction that writes the position,
			// so two racing opens cannot both fit under the limit.
			heat, err := st.OpenRisk(ctx)
			if err != nil {
				return err
			}
			out.decision = l.gate.Evaluate(RiskProposal{
				Symbol:                    template.Symbol,
				RiskAmount:                template.RiskAmount,
				OpenHeat:                  heat,
				OverrideConsecutiveLosses: req.OverrideConsecutiveLosses,
			}, snapshotFromDB(acct))

			if !out.decision.Approved {
				if out.decision.Rule == RuleMaxPositionRisk {
					d := out.decision
					return &interfaces.Error{Kind: interfaces.KindValidation, Op: op, Message: d.Reason, Decision: &d}
				}
				if reset {
					if err := accounts.Update(ctx, acct); err != nil {
						return err
					}
				}
				out.snap = snapshotFromDB(acct)
				if out.decision.RiskEvent == nil {
					return nil
				}
				return saveRiskEvent(ctx, st, out.decision.RiskEvent, l.clock)
			}

			row := *template
			if err := st.SavePosition(ctx, &row); err != nil {
				return err
			}
			acct.DailyTrades++
			if err := accounts.Update(ctx, acct); err != nil {
				return err
			}
			out.row = &row
			out.snap = snapshotFromDB(acct)
			out.heat = heat.Add(row.RiskAmount)
			return nil
		})
		return out, err
	})
	if err != nil {
		if d := interfaces.DecisionOf(err); d != nil {
			l.metrics.riskRejected(d.Rule)
			l.logger.WithError(err).WithField("symbol", template.Symbol).Warn("Position rejected")
		}
		return nil, interfaces.Internal(op, err)
	}

	if !res.decision.Approved {
		l.metrics.riskRejected(res.decision.Rule)
		l.logger.WithFields(logrus.Fields{
			"symbol": template.Symbol,
			"rule":   res.decision.Rule,
			"reason": res.decision.Reason,
		}).Warn("Position rejected by risk gate")
		if res.decision.RiskEvent != nil {
			dispatchAlert(ctx, l.alerts, riskEventAlert(res.decision.RiskEvent), l.logger)
		}
		return nil, interfaces.RiskRejection(op, res.decision)
	}

	position := dbToPosition(res.row)
	l.metrics.positionOpened()
	l.metrics.observeHeat(res.heat)
	l.metrics.observeAccount(res.snap)

	l.logger.WithFields(logrus.Fields{
		"position_id":       position.ID,
		"symbol":            position.Symbol,
		"entry_price":       position.EntryPrice.String(),
		"stop_loss":         position.StopLoss.String(),
		"take_profit":       position.TakeProfit.String(),
		"risk_reward_ratio": position.RiskRewardRatio.StringFixed(2),
		"portfolio_heat":    res.heat.String(),
	}).Info("Position opened")

	return position, nil
}

// Precheck runs the risk gate against an unlocked snapshot without writing
// anything. The answer may change before a real Open commits.
func (l *PositionLedger) Precheck(ctx context.Context, req interfaces.PositionRequest) (interfaces.Decision, error) {
	const op = "precheck_position"

	template, err := l.buildPosition(op, req)
	if err != nil {
		return interfaces.Decision{}, err
	}
	acct, err := l.accounts.Current(ctx)
	if err != nil {
		return interfaces.Decision{}, interfaces.Internal(op, err)
	}
	applyDailyReset(acct, l.today())
	heat, err := l.storage.OpenRisk(ctx)
	if err != nil {
		return interfaces.Decision{}, interfaces.Internal(op, err)
	}
	return l.gate.Evaluate(RiskProposal{
		Symbol:                    template.Symbol,
		RiskAmount:                template.RiskAmount,
		OpenHeat:                  heat,
		OverrideConsecutiveLosses: req.OverrideConsecutiveLosses,
	}, snapshotFromDB(acct)), nil
}

// Close realizes a position's P&L into the account, the equity curve and
// any linked pending signal, all in one transaction. A zero exitTime means now.
func (l *PositionLedger) Close(ctx context.Context, positionID string, exitPrice decimal.Decimal, exitTime time.Time, reason interfaces.CloseReason) (*interfaces.Position, error) {
	const op = "close_position"

	if strings.TrimSpace(positionID) == "" {
		return nil, interfaces.ValidationError(op, "position id is required")
	}
	if !exitPrice.IsPositive() {
		return nil, interfaces.ValidationError(op, "exit price must be positive, got %s", exitPrice)
	}
	status, ok := reason.Status()
	if !ok {
		return nil, interfaces.ValidationError(op, "unknown close reason %q", reason)
	}
	if reason == "" {
		reason = interfaces.CloseManual
	}
	if exitTime.IsZero() {
		exitTime = l.clock()
	}
	exitTime = exitTime.UTC()

	type result struct {
		row      *models.DBPosition
		snap     interfaces.AccountSnapshot
		heat     decimal.Decimal
		resolved interfaces.SignalOutcome
		event    *interfaces.RiskEvent
	}
	res, err := retryConflicts(ctx, l.cfg.MaxRetries, func() (result, error) {
		var out result
		err := l.storage.InTx(ctx, func(tx *gorm.DB) error {
			st := l.storage.WithTx(tx)
			accounts := l.accounts.WithTx(tx)

			row, err := st.LockPosition(ctx, positionID)
			if err != nil {
				return err
			}
			from := interfaces.PositionStatus(row.Status)
			if !interfaces.CanTransition(from, status) {
				return interfaces.InvalidStateError(op, "position %s is %s and cannot become %s", positionID, from, status)
			}
			if exitTime.Before(row.EntryTime) {
				return interfaces.ValidationError(op, "exit time %s is before entry time %s",
					exitTime.Format(time.RFC3339), row.EntryTime.UTC().Format(time.RFC3339))
			}

			acct, err := accounts.LockCurrent(ctx)
			if err != nil {
				return err
			}
			applyDailyReset(acct, l.today())

			realized := pnlAt(row, exitPrice)
			exit := exitPrice
			at := exitTime
			row.Status = string(status)
			row.CloseReason = string(reason)
			row.ExitPrice = &exit
			row.ExitTime = &at
			row.RealizedPnL = &realized
			row.UnrealizedPnL = decimal.Zero
			if err := st.ClosePosition(ctx, row); err != nil {
				return err
			}

			acct.Balance = acct.Balance.Add(realized)
			acct.DailyPnL = acct.DailyPnL.Add(realized)
			applyStreak(acct, realized)

			haltNow := l.cfg.HaltOnDailyLoss && acct.CanTrade &&
				acct.DailyPnL.LessThanOrEqual(acct.MaxDailyLoss.Neg())
			if haltNow {
				acct.CanTrade = false
				acct.HaltReason = fmt.Sprintf("daily loss %s reached limit %s",
					acct.DailyPnL.StringFixed(2), acct.MaxDailyLoss.StringFixed(2))
				acct.HaltScope = string(interfaces.HaltDaily)
			}
			if err := accounts.Update(ctx, acct); err != nil {
				return err
			}
			out.snap = snapshotFromDB(acct)

			id := row.PositionID
			if err := st.AppendEquity(ctx, &models.DBEquityCurve{
				Balance:      acct.Balance,
				ChangeAmount: realized,
				ChangeType:   interfaces.EquityTradeClose,
				PositionID:   &id,
				RecordedAt:   exitTime,
			}); err != nil {
				return err
			}

			if row.SignalID != "" {
				outcome, err := resolveLinkedSignal(ctx, st, row.SignalID, exitPrice, realized, exitTime)
				if err != nil {
					return err
				}
				out.resolved = outcome
			}

			if haltNow {
				out.event = &interfaces.RiskEvent{
					Type:           interfaces.RiskDailyLossLimit,
					Severity:       interfaces.SeverityCritical,
					TriggeredValue: acct.DailyPnL.Neg(),
					LimitValue:     acct.MaxDailyLoss,
					Account:        out.snap,
					Symbol:         row.Symbol,
					PositionID:     row.PositionID,
					ActionTaken:    "trading halted for the day",
				}
				if err := saveRiskEvent(ctx, st, out.event, l.clock); err != nil {
					return err
				}
			}

			if out.heat, err = st.OpenRisk(ctx); err != nil {
				return err
			}
			out.row = row
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}

	position := dbToPosition(res.row)
	l.metrics.positionClosed(position.Status)
	l.metrics.observeAccount(res.snap)
	l.metrics.observeHeat(res.heat)
	if res.resolved != "" {
		l.metrics.signalResolved(res.resolved)
	}

	l.logger.WithFields(logrus.Fields{
		"position_id":        position.ID,
		"symbol":             position.Symbol,
		"status":             position.Status,
		"exit_price":         exitPrice.String(),
		"realized_pnl":       position.RealizedPnL.String(),
		"balance":            res.snap.Balance.String(),
		"daily_pnl":          res.snap.DailyPnL.String(),
		"consecutive_losses": res.snap.ConsecutiveLosses,
	}).Info("Position closed")

	dispatchAlert(ctx, l.alerts, positionClosedAlert(position, res.snap), l.logger)
	if res.event != nil {
		l.logger.WithField("daily_pnl", res.snap.DailyPnL.String()).Warn("Daily loss limit reached, trading halted")
		dispatchAlert(ctx, l.alerts, riskEventAlert(res.event), l.logger)
	}
	return position, nil
}

// resolveLinkedSignal settles a pending signal from its position's close.
// Missing or already-resolved signals are left alone.
func resolveLinkedSignal(ctx context.Context, st *database.LocalStorage, signalID string, exitPrice, pnl decimal.Decimal, at time.Time) (interfaces.SignalOutcome, error) {
	sig, err := st.GetSignal(ctx, signalID)
	if interfaces.IsKind(err, interfaces.KindNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if sig.Outcome != string(interfaces.OutcomePending) {
		return "", nil
	}
	outcome := interfaces.OutcomeFromPnL(pnl)
	if err := st.ResolveSignal(ctx, signalID, outcome, exitPrice, pnl, at); err != nil {
		return "", err
	}
	return outcome, nil
}

// MarkToMarket values an open position at price and refreshes its cached
// unrealized P&L. Account state is not touched.
func (l *PositionLedger) MarkToMarket(ctx context.Context, positionID string, price decimal.Decimal) (decimal.Decimal, error) {
	const op = "mark_to_market"

	if !price.IsPositive() {
		return decimal.Zero, interfaces.ValidationError(op, "price must be positive, got %s", price)
	}
	row, err := l.storage.GetPosition(ctx, positionID)
	if err != nil {
		return decimal.Zero, interfaces.Internal(op, err)
	}
	if row.Status != string(interfaces.StatusOpen) {
		return decimal.Zero, interfaces.InvalidStateError(op, "position %s is %s", positionID, row.Status)
	}
	unrealized := pnlAt(row, price)
	if err := l.storage.UpdateUnrealized(ctx, positionID, unrealized); err != nil {
		return decimal.Zero, interfaces.Internal(op, err)
	}
	return unrealized, nil
}

// MarkAll marks every open position at the latest price from the price
// source. With AutoCloseOnLevels a crossed stop or target closes the position.
// Open losses that would breach the daily limit raise a warning alert only;
// the hard gate stays on realized P&L.
func (l *PositionLedger) MarkAll(ctx context.Context) (*MarkSummary, error) {
	const op = "mark_all"

	if l.prices == nil {
		return nil, interfaces.InvalidStateError(op, "no price source configured")
	}
	rows, err := l.storage.OpenPositions(ctx)
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}

	summary := &MarkSummary{
		Marks:           make([]MarkResult, 0, len(rows)),
		TotalUnrealized: decimal.Zero,
		MarkedAt:        l.clock().UTC(),
	}
	prices := make(map[string]decimal.Decimal)
	for _, row := range rows {
		price, ok := prices[row.Symbol]
		if !ok {
			price, err = l.prices.LatestPrice(ctx, row.Symbol)
			if err != nil {
				l.logger.WithError(err).WithField("symbol", row.Symbol).Error("Failed to get latest price")
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", row.Symbol, err))
				continue
			}
			prices[row.Symbol] = price
		}

		if l.cfg.AutoCloseOnLevels {
			if reason, hit := levelHit(row, price); hit {
				closed, err := l.Close(ctx, row.PositionID, price, time.Time{}, reason)
				if err == nil {
					summary.Closed = append(summary.Closed, closed)
					continue
				}
				if !interfaces.IsKind(err, interfaces.KindInvalidState) {
					summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", row.PositionID, err))
				}
				continue
			}
		}

		unrealized, err := l.MarkToMarket(ctx, row.PositionID, price)
		if err != nil {
			// Closed by someone else between the listing and the mark
			if !interfaces.IsKind(err, interfaces.KindInvalidState) {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", row.PositionID, err))
			}
			continue
		}
		summary.Marks = append(summary.Marks, MarkResult{
			PositionID:    row.PositionID,
			Symbol:        row.Symbol,
			Price:         price,
			UnrealizedPnL: unrealized,
		})
		summary.TotalUnrealized = summary.TotalUnrealized.Add(unrealized)
	}

	acct, err := l.accounts.Current(ctx)
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}
	summary.DailyPnL = acct.DailyPnL

	exposure := acct.DailyPnL.Add(summary.TotalUnrealized)
	if acct.CanTrade && summary.TotalUnrealized.IsNegative() && exposure.LessThanOrEqual(acct.MaxDailyLoss.Neg()) {
		l.logger.WithFields(logrus.Fields{
			"daily_pnl":        acct.DailyPnL.String(),
			"total_unrealized": summary.TotalUnrealized.String(),
			"max_daily_loss":   acct.MaxDailyLoss.String(),
		}).Warn("Open losses would breach the daily loss limit")
		dispatchAlert(ctx, l.alerts, interfaces.Alert{
			Title: "Unrealized drawdown near daily limit",
			Message: fmt.Sprintf("realized %s plus unrealized %s is at or beyond -%s",
				acct.DailyPnL.StringFixed(2), summary.TotalUnrealized.StringFixed(2), acct.MaxDailyLoss.StringFixed(2)),
			Priority:  interfaces.PriorityMedium,
			AlertType: interfaces.AlertUnrealizedDrawdown,
			Data: map[string]any{
				"daily_pnl":        acct.DailyPnL.String(),
				"total_unrealized": summary.TotalUnrealized.String(),
				"max_daily_loss":   acct.MaxDailyLoss.String(),
			},
			CreatedAt: summary.MarkedAt,
		}, l.logger)
	}

	return summary, nil
}

// Get returns one position
func (l *PositionLedger) Get(ctx context.Context, positionID string) (*interfaces.Position, error) {
	row, err := l.storage.GetPosition(ctx, positionID)
	if err != nil {
		return nil, interfaces.Internal("get_position", err)
	}
	return dbToPosition(row), nil
}

// List returns positions newest first, optionally by status and symbol
func (l *PositionLedger) List(ctx context.Context, status interfaces.PositionStatus, symbol string, limit int) ([]*interfaces.Position, error) {
	const op = "list_positions"

	switch status {
	case "", interfaces.StatusOpen, interfaces.StatusClosed, interfaces.StatusStoppedOut, interfaces.StatusTargetHit:
	default:
		return nil, interfaces.ValidationError(op, "unknown status %q", status)
	}
	rows, err := l.storage.ListPositions(ctx, database.PositionFilter{
		Status: string(status),
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Limit:  limit,
	})
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}
	positions := make([]*interfaces.Position, len(rows))
	for i, row := range rows {
		positions[i] = dbToPosition(row)
	}
	return positions, nil
}

// OpenHeat is the summed risk amount of all open positions
func (l *PositionLedger) OpenHeat(ctx context.Context) (decimal.Decimal, error) {
	heat, err := l.storage.OpenRisk(ctx)
	if err != nil {
		return decimal.Zero, interfaces.Internal("open_heat", err)
	}
	return heat, nil
}

func (l *PositionLedger) today() string {
	return tradingDay(l.clock(), l.cfg.Location)
}

// buildPosition validates a request and derives the risk figures
func (l *PositionLedger) buildPosition(op string, req interfaces.PositionRequest) (*models.DBPosition, error) {
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, interfaces.ValidationError(op, "symbol is required")
	}
	if !req.Contracts.IsPositive() {
		return nil, interfaces.ValidationError(op, "contracts must be positive, got %s", req.Contracts)
	}
	for name, v := range map[string]decimal.Decimal{
		"entry_price": req.EntryPrice,
		"stop_loss":   req.StopLoss,
		"take_profit": req.TakeProfit,
	} {
		if !v.IsPositive() {
			return nil, interfaces.ValidationError(op, "%s must be positive, got %s", name, v)
		}
	}
	switch req.Side {
	case interfaces.SideLong:
		if !req.StopLoss.LessThan(req.EntryPrice) || !req.TakeProfit.GreaterThan(req.EntryPrice) {
			return nil, interfaces.ValidationError(op, "long position needs stop_loss < entry_price < take_profit")
		}
	case interfaces.SideShort:
		if !req.StopLoss.GreaterThan(req.EntryPrice) || !req.TakeProfit.LessThan(req.EntryPrice) {
			return nil, interfaces.ValidationError(op, "short position needs take_profit < entry_price < stop_loss")
		}
	}
	if req.SignalConfidence.IsNegative() || req.SignalConfidence.GreaterThan(maxConfidence) {
		return nil, interfaces.ValidationError(op, "signal_confidence must be between 0 and 100, got %s", req.SignalConfidence)
	}

	pointValue := decimal.NewFromInt(1)
	if req.PointValue != nil {
		if !req.PointValue.IsPositive() {
			return nil, interfaces.ValidationError(op, "point_value must be positive, got %s", req.PointValue)
		}
		pointValue = *req.PointValue
	} else if pv, ok := l.cfg.PointValues[symbol]; ok {
		pointValue = pv
	}

	mc := req.MarketContext
	if mc.VIX != nil && mc.VIX.IsNegative() {
		return nil, interfaces.ValidationError(op, "vix must not be negative, got %s", mc.VIX)
	}

	entryTime := l.clock()
	if req.EntryTime != nil && !req.EntryTime.IsZero() {
		entryTime = *req.EntryTime
	}
	entryTime = entryTime.UTC()

	session := mc.Session
	if session == "" {
		session = ClassifySession(entryTime, l.cfg.Location)
	} else if !validSession(session) {
		return nil, interfaces.ValidationError(op, "unknown session %q", session)
	}

	setup := req.SetupType
	if setup == "" {
		setup = interfaces.SetupOther
	}

	tags := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	size := req.Contracts.Mul(pointValue)
	risk := req.EntryPrice.Sub(req.StopLoss).Abs().Mul(size)
	reward := req.TakeProfit.Sub(req.EntryPrice).Abs().Mul(size)

	return &models.DBPosition{
		PositionID:       database.NewID(database.PrefixPosition),
		Symbol:           symbol,
		Side:             string(req.Side),
		Contracts:        req.Contracts,
		EntryPrice:       req.EntryPrice,
		StopLoss:         req.StopLoss,
		TakeProfit:       req.TakeProfit,
		PointValue:       pointValue,
		EntryTime:        entryTime,
		Status:           string(interfaces.StatusOpen),
		UnrealizedPnL:    decimal.Zero,
		RiskAmount:       risk,
		RewardAmount:     reward,
		RiskRewardRatio:  reward.DivRound(risk, 4),
		SetupType:        string(setup),
		SignalConfidence: req.SignalConfidence,
		SignalID:         strings.TrimSpace(req.SignalID),
		VIX:              mc.VIX,
		CVD:              mc.CVD,
		Session:          string(session),
		ContextNotes:     mc.Notes,
		Tags:             tags,
		Notes:            req.Notes,
	}, nil
}

// pnlAt is (price - entry) * contracts * point value * side sign
func pnlAt(row *models.DBPosition, price decimal.Decimal) decimal.Decimal {
	return price.Sub(row.EntryPrice).
		Mul(row.Contracts).
		Mul(row.PointValue).
		Mul(interfaces.Side(row.Side).Sign())
}

// applyStreak updates win/loss streaks; a breakeven leaves both alone
func applyStreak(acct *models.DBAccountState, realized decimal.Decimal) {
	switch realized.Sign() {
	case 1:
		acct.ConsecutiveWins++
		acct.ConsecutiveLosses = 0
	case -1:
		acct.ConsecutiveLosses++
		acct.ConsecutiveWins = 0
	}
}

// levelHit reports whether price has crossed the stop or the target
func levelHit(row *models.DBPosition, price decimal.Decimal) (interfaces.CloseReason, bool) {
	if interfaces.Side(row.Side) == interfaces.SideShort {
		switch {
		case price.GreaterThanOrEqual(row.StopLoss):
			return interfaces.CloseStop, true
		case price.LessThanOrEqual(row.TakeProfit):
			return interfaces.CloseTarget, true
		}
		return "", false
	}
	switch {
	case price.LessThanOrEqual(row.StopLoss):
		return interfaces.CloseStop, true
	case price.GreaterThanOrEqual(row.TakeProfit):
		return interfaces.CloseTarget, true
	}
	return "", false
}
