package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"ict-ledger/database"
	"ict-ledger/interfaces"
	"ict-ledger/models"
)

var (
	allTimeStart = time.Unix(0, 0).UTC()
	allTimeEnd   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// PerformanceAggregator is the only writer of the aggregate tables. Every
// row it writes can be rebuilt from positions, signals and the equity curve.
type PerformanceAggregator struct {
	storage      *database.LocalStorage
	metrics      *Metrics
	clock        interfaces.Clock
	location     *time.Location
	riskFreeRate float64
	logger       *logrus.Logger
}

type PerformanceOptions struct {
	Metrics      *Metrics
	Clock        interfaces.Clock
	Location     *time.Location
	RiskFreeRate float64
	Logger       *logrus.Logger
}

func NewPerformanceAggregator(storage *database.LocalStorage, opts PerformanceOptions) *PerformanceAggregator {
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
	return &PerformanceAggregator{
		storage:      storage,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
		location:     opts.Location,
		riskFreeRate: opts.RiskFreeRate,
		logger:       logger,
	}
}

// PeriodBounds returns the [start, end) window of the given type that
// contains t, using trading-timezone calendar boundaries. Weeks start Monday.
func PeriodBounds(periodType interfaces.PeriodType, t time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var start, end time.Time
	switch periodType {
	case interfaces.PeriodDaily:
		start, end = day, day.AddDate(0, 0, 1)
	case interfaces.PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case interfaces.PeriodMonthly:
		start = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	case interfaces.PeriodYearly:
		start = time.Date(local.Year(), 1, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	case interfaces.PeriodAllTime:
		return allTimeStart, allTimeEnd, nil
	default:
		return time.Time{}, time.Time{}, interfaces.ValidationError("period_bounds", "period type %q has no calendar bounds", periodType)
	}
	return start.UTC(), end.UTC(), nil
}

// window is everything loaded for one aggregation pass
type window struct {
	positions []*models.DBPosition
	signals   []*models.DBSignal
	equity    []*models.DBEquityCurve
	prior     *models.DBEquityCurve
}

// computed holds the rows of one window before they are written
type computed struct {
	report   *interfaces.PerformanceReport
	setups   []*interfaces.SetupReport
	sessions []*interfaces.SessionReport
	daily    *interfaces.DailyReport
}

func (c *computed) empty() bool {
	return c.report.TotalTrades == 0 && c.report.Signals.SignalCount == 0
}

// Recompute rebuilds and upserts every aggregate of one window in a single
// transaction. A failure leaves the previous rows untouched.
func (a *PerformanceAggregator) Recompute(ctx context.Context, periodType interfaces.PeriodType, start, end time.Time) (*interfaces.PerformanceReport, error) {
	const op = "recompute_performance"

	start, end, err := a.normalizeWindow(op, periodType, start, end)
	if err != nil {
		return nil, err
	}

	c, err := a.compute(ctx, periodType, start, end)
	if err == nil {
		err = a.storage.InTx(ctx, func(tx *gorm.DB) error {
			return a.write(ctx, a.storage.WithTx(tx), c)
		})
	}
	a.metrics.aggregation(periodType, err)
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"period_type":  periodType,
			"period_start": start.Format(time.RFC3339),
		}).Error("Performance recompute failed")
		return nil, interfaces.Internal(op, err)
	}

	a.logger.WithFields(logrus.Fields{
		"period_type":  periodType,
		"period_start": start.Format(time.RFC3339),
		"trades":       c.report.TotalTrades,
		"net_pnl":      c.report.NetPnL.String(),
	}).Debug("Performance recomputed")
	return c.report, nil
}

func (a *PerformanceAggregator) normalizeWindow(op string, periodType interfaces.PeriodType, start, end time.Time) (time.Time, time.Time, error) {
	switch periodType {
	case interfaces.PeriodAllTime:
		return allTimeStart, allTimeEnd, nil
	case interfaces.PeriodDaily, interfaces.PeriodWeekly, interfaces.PeriodMonthly, interfaces.PeriodYearly:
		if end.IsZero() {
			return PeriodBounds(periodType, start, a.location)
		}
	case interfaces.PeriodCustom:
	default:
		return time.Time{}, time.Time{}, interfaces.ValidationError(op, "unknown period type %q", periodType)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, interfaces.ValidationError(op, "period end must be after period start")
	}
	return start.UTC(), end.UTC(), nil
}

// load reads the window's source rows concurrently
func (a *PerformanceAggregator) load(ctx context.Context, start, end time.Time) (*window, error) {
	w := &window{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		w.positions, err = a.storage.ClosedPositionsBetween(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		w.signals, err = a.storage.SignalsBetween(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		w.equity, err = a.storage.EquityBetween(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		w.prior, err = a.storage.LastEquityBefore(gctx, start)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return w, nil
}

// compute derives every aggregate of a window without writing anything
func (a *PerformanceAggregator) compute(ctx context.Context, periodType interfaces.PeriodType, start, end time.Time) (*computed, error) {
	w, err := a.load(ctx, start, end)
	if err != nil {
		return nil, err
	}

	trades := make([]tradeSample, len(w.positions))
	for i, p := range w.positions {
		trades[i] = sampleFromPosition(p)
	}

	startBalance, endBalance, balances := balancePath(w.prior, w.equity)
	maxDD, maxDDPct := drawdown(startBalance, balances)
	sharpe, sortino := sharpeSortino(tradeReturns(w.equity), a.riskFreeRate)
	now := a.clock().UTC()

	report := &interfaces.PerformanceReport{
		PeriodType:     periodType,
		PeriodStart:    start,
		PeriodEnd:      end,
		TradeStats:     computeTradeStats(trades),
		Signals:        computeSignalStats(w.signals),
		MaxDrawdown:    maxDD,
		MaxDrawdownPct: maxDDPct,
		SharpeRatio:    sharpe,
		SortinoRatio:   sortino,
		StartBalance:   startBalance,
		EndBalance:     endBalance,
		ComputedAt:     now,
	}

	c := &computed{report: report}
	c.setups = sliceBySetup(periodType, start, end, w)
	c.sessions = sliceBySession(periodType, start, end, w)
	if a.isCalendarDay(periodType, start, end) {
		c.daily = &interfaces.DailyReport{
			Date:         start.In(a.location).Format(dayLayout),
			TradeStats:   report.TradeStats,
			StartBalance: startBalance,
			EndBalance:   endBalance,
		}
	}
	return c, nil
}

// isCalendarDay reports whether [start, end) is exactly one trading day, the
// only window allowed to write a per-day row
func (a *PerformanceAggregator) isCalendarDay(periodType interfaces.PeriodType, start, end time.Time) bool {
	if periodType != interfaces.PeriodDaily {
		return false
	}
	dayStart, dayEnd, err := PeriodBounds(interfaces.PeriodDaily, start, a.location)
	return err == nil && dayStart.Equal(start) && dayEnd.Equal(end)
}

// balancePath returns the opening and closing balance of a window and the
// balance after each point in it
func balancePath(prior *models.DBEquityCurve, points []*models.DBEquityCurve) (decimal.Decimal, decimal.Decimal, []decimal.Decimal) {
	start := decimal.Zero
	switch {
	case prior != nil:
		start = prior.Balance
	case len(points) > 0 && points[0].ChangeType == interfaces.EquityInitial:
		start = points[0].Balance
	case len(points) > 0:
		start = points[0].Balance.Sub(points[0].ChangeAmount)
	}
	balances := make([]decimal.Decimal, len(points))
	end := start
	for i, p := range points {
		balances[i] = p.Balance
		end = p.Balance
	}
	return start, end, balances
}

func sliceBySetup(periodType interfaces.PeriodType, start, end time.Time, w *window) []*interfaces.SetupReport {
	trades := map[interfaces.SetupType][]tradeSample{}
	signals := map[interfaces.SetupType][]*models.DBSignal{}
	for _, p := range w.positions {
		k := interfaces.SetupType(p.SetupType)
		trades[k] = append(trades[k], sampleFromPosition(p))
	}
	for _, s := range w.signals {
		k := interfaces.SetupType(s.Trigger)
		signals[k] = append(signals[k], s)
	}

	out := make([]*interfaces.SetupReport, 0, len(trades)+len(signals))
	for _, k := range unionKeys(trades, signals) {
		out = append(out, &interfaces.SetupReport{
			SetupType:   k,
			PeriodType:  periodType,
			PeriodStart: start,
			PeriodEnd:   end,
			TradeStats:  computeTradeStats(trades[k]),
			Signals:     computeSignalStats(signals[k]),
		})
	}
	return out
}

func sliceBySession(periodType interfaces.PeriodType, start, end time.Time, w *window) []*interfaces.SessionReport {
	trades := map[interfaces.Session][]tradeSample{}
	signals := map[interfaces.Session][]*models.DBSignal{}
	for _, p := range w.positions {
		k := interfaces.Session(p.Session)
		trades[k] = append(trades[k], sampleFromPosition(p))
	}
	for _, s := range w.signals {
		k := interfaces.Session(s.Session)
		signals[k] = append(signals[k], s)
	}

	out := make([]*interfaces.SessionReport, 0, len(trades)+len(signals))
	for _, k := range unionKeys(trades, signals) {
		out = append(out, &interfaces.SessionReport{
			Session:     k,
			PeriodType:  periodType,
			PeriodStart: start,
			PeriodEnd:   end,
			TradeStats:  computeTradeStats(trades[k]),
			Signals:     computeSignalStats(signals[k]),
		})
	}
	return out
}

func unionKeys[K ~string, A, B any](a map[K]A, b map[K]B) []K {
	seen := make(map[K]struct{}, len(a)+len(b))
	keys := make([]K, 0, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (a *PerformanceAggregator) write(ctx context.Context, st *database.LocalStorage, c *computed) error {
	r := c.report
	if err := st.UpsertPerformance(ctx, reportToDB(r)); err != nil {
		return err
	}
	if err := st.DeleteSlices(ctx, string(r.PeriodType), r.PeriodStart, r.PeriodEnd); err != nil {
		return err
	}

	setups := make([]*models.DBSetupPerformance, len(c.setups))
	for i, s := range c.setups {
		setups[i] = &models.DBSetupPerformance{
			SetupType:     string(s.SetupType),
			PeriodType:    string(s.PeriodType),
			PeriodStart:   s.PeriodStart,
			PeriodEnd:     s.PeriodEnd,
			StatsColumns:  statsToColumns(s.TradeStats),
			SignalColumns: signalsToColumns(s.Signals),
		}
	}
	if err := st.UpsertSetupPerformance(ctx, setups); err != nil {
		return err
	}

	sessions := make([]*models.DBSessionPerformance, len(c.sessions))
	for i, s := range c.sessions {
		sessions[i] = &models.DBSessionPerformance{
			Session:       string(s.Session),
			PeriodType:    string(s.PeriodType),
			PeriodStart:   s.PeriodStart,
			PeriodEnd:     s.PeriodEnd,
			StatsColumns:  statsToColumns(s.TradeStats),
			SignalColumns: signalsToColumns(s.Signals),
		}
	}
	if err := st.UpsertSessionPerformance(ctx, sessions); err != nil {
		return err
	}

	if c.daily != nil {
		return st.UpsertDailyStats(ctx, &models.DBDailyStats{
			Date:         c.daily.Date,
			StatsColumns: statsToColumns(c.daily.TradeStats),
			StartBalance: c.daily.StartBalance,
			EndBalance:   c.daily.EndBalance,
		})
	}
	return nil
}

// RecomputeCurrent refreshes the daily, weekly, monthly, yearly and all-time
// windows containing now. Each window succeeds or fails on its own.
func (a *PerformanceAggregator) RecomputeCurrent(ctx context.Context, now time.Time) ([]*interfaces.PerformanceReport, error) {
	periods := []interfaces.PeriodType{
		interfaces.PeriodDaily,
		interfaces.PeriodWeekly,
		interfaces.PeriodMonthly,
		interfaces.PeriodYearly,
		interfaces.PeriodAllTime,
	}
	reports := make([]*interfaces.PerformanceReport, 0, len(periods))
	var errs []error
	for _, pt := range periods {
		start, end, err := PeriodBounds(pt, now, a.location)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report, err := a.Recompute(ctx, pt, start, end)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// Verify compares the stored aggregate of a window with a fresh computation.
// On mismatch every aggregate is rebuilt and an AggregationInconsistency
// error is returned. A window never computed before is simply computed.
func (a *PerformanceAggregator) Verify(ctx context.Context, periodType interfaces.PeriodType, start, end time.Time) (*interfaces.PerformanceReport, error) {
	const op = "verify_performance"

	start, end, err := a.normalizeWindow(op, periodType, start, end)
	if err != nil {
		return nil, err
	}
	stored, err := a.storage.GetPerformance(ctx, string(periodType), start, end)
	if interfaces.IsKind(err, interfaces.KindNotFound) {
		return a.Recompute(ctx, periodType, start, end)
	}
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}

	fresh, err := a.compute(ctx, periodType, start, end)
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}
	if field, ok := sameAggregate(dbToReport(stored), fresh.report); !ok {
		a.logger.WithFields(logrus.Fields{
			"period_type":  periodType,
			"period_start": start.Format(time.RFC3339),
			"field":        field,
		}).Error("Stored aggregate disagrees with ledger, rebuilding")

		_, rebuildErr := a.Rebuild(ctx)
		return nil, &interfaces.Error{
			Kind:    interfaces.KindAggregationInconsistency,
			Op:      op,
			Message: "stored " + string(periodType) + " aggregate differs on " + field + "; aggregates rebuilt",
			Err:     rebuildErr,
		}
	}
	return fresh.report, nil
}

// sameAggregate compares the ledger-derived fields of two reports and names
// the first that differs
func sameAggregate(stored, fresh *interfaces.PerformanceReport) (string, bool) {
	ints := []struct {
		name string
		a, b int
	}{
		{"total_trades", stored.TotalTrades, fresh.TotalTrades},
		{"wins", stored.Wins, fresh.Wins},
		{"losses", stored.Losses, fresh.Losses},
		{"breakevens", stored.Breakevens, fresh.Breakevens},
		{"signal_count", stored.Signals.SignalCount, fresh.Signals.SignalCount},
		{"signal_wins", stored.Signals.SignalWins, fresh.Signals.SignalWins},
		{"signal_losses", stored.Signals.SignalLosses, fresh.Signals.SignalLosses},
		{"signal_breakeven", stored.Signals.SignalBreakeven, fresh.Signals.SignalBreakeven},
		{"signal_pending", stored.Signals.SignalPending, fresh.Signals.SignalPending},
	}
	for _, f := range ints {
		if f.a != f.b {
			return f.name, false
		}
	}
	decs := []struct {
		name string
		a, b decimal.Decimal
	}{
		{"win_rate", stored.WinRate, fresh.WinRate},
		{"signal_win_rate", stored.Signals.SignalWinRate, fresh.Signals.SignalWinRate},
		{"net_pnl", stored.NetPnL, fresh.NetPnL},
		{"gross_profit", stored.GrossProfit, fresh.GrossProfit},
		{"gross_loss", stored.GrossLoss, fresh.GrossLoss},
		{"profit_factor", stored.ProfitFactor.Value, fresh.ProfitFactor.Value},
		{"max_drawdown", stored.MaxDrawdown, fresh.MaxDrawdown},
		{"end_balance", stored.EndBalance, fresh.EndBalance},
	}
	for _, f := range decs {
		if !f.a.Round(statPrecision).Equal(f.b.Round(statPrecision)) {
			return f.name, false
		}
	}
	if stored.ProfitFactor.Infinite != fresh.ProfitFactor.Infinite {
		return "profit_factor", false
	}
	return "", true
}

// Rebuild recomputes each day, week, month and year that has activity, plus
// all-time, then replaces every aggregate in one transaction. A failure
// leaves the previous rows in place. It returns the number of windows written.
func (a *PerformanceAggregator) Rebuild(ctx context.Context) (int, error) {
	const op = "rebuild_performance"

	first, err := a.storage.FirstActivity(ctx)
	if err != nil {
		return 0, interfaces.Internal(op, err)
	}

	var windows []*computed
	if !first.IsZero() {
		now := a.clock()
		for _, pt := range []interfaces.PeriodType{
			interfaces.PeriodDaily,
			interfaces.PeriodWeekly,
			interfaces.PeriodMonthly,
			interfaces.PeriodYearly,
		} {
			start, end, err := PeriodBounds(pt, first, a.location)
			if err != nil {
				return 0, err
			}
			for !start.After(now) {
				c, err := a.compute(ctx, pt, start, end)
				if err != nil {
					return 0, interfaces.Internal(op, err)
				}
				if !c.empty() {
					windows = append(windows, c)
				}
				if start, end, err = PeriodBounds(pt, end, a.location); err != nil {
					return 0, err
				}
			}
		}
	}
	all, err := a.compute(ctx, interfaces.PeriodAllTime, allTimeStart, allTimeEnd)
	if err != nil {
		return 0, interfaces.Internal(op, err)
	}
	windows = append(windows, all)

	err = a.storage.InTx(ctx, func(tx *gorm.DB) error {
		st := a.storage.WithTx(tx)
		if err := st.TruncateAggregates(ctx); err != nil {
			return err
		}
		for _, c := range windows {
			if err := a.write(ctx, st, c); err != nil {
				return err
			}
		}
		return nil
	})
	for _, c := range windows {
		a.metrics.aggregation(c.report.PeriodType, err)
	}
	if err != nil {
		a.logger.WithError(err).Error("Performance rebuild failed, previous aggregates kept")
		return 0, interfaces.Internal(op, err)
	}

	a.logger.WithFields(logrus.Fields{
		"windows":        len(windows),
		"first_activity": first.Format(time.RFC3339),
	}).Info("Performance aggregates rebuilt")
	return len(windows), nil
}

// Get reads the stored aggregate for a window
func (a *PerformanceAggregator) Get(ctx context.Context, periodType interfaces.PeriodType, start, end time.Time) (*interfaces.PerformanceReport, error) {
	const op = "get_performance"
	start, end, err := a.normalizeWindow(op, periodType, start, end)
	if err != nil {
		return nil, err
	}
	row, err := a.storage.GetPerformance(ctx, string(periodType), start, end)
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}
	return dbToReport(row), nil
}

// List returns stored aggregates of one period type, newest window first
func (a *PerformanceAggregator) List(ctx context.Context, periodType interfaces.PeriodType, limit int) ([]*interfaces.PerformanceReport, error) {
	rows, err := a.storage.ListPerformance(ctx, string(periodType), limit)
	if err != nil {
		return nil, interfaces.Internal("list_performance", err)
	}
	reports := make([]*interfaces.PerformanceReport, len(rows))
	for i, row := range rows {
		reports[i] = dbToReport(row)
	}
	return reports, nil
}

// Setups returns the per-setup aggregates of a window
func (a *PerformanceAggregator) Setups(ctx context.Context, periodType interfaces.PeriodType, start, end time.Time) ([]*interfaces.SetupReport, error) {
	const op = "list_setup_performance"
	start, end, err := a.normalizeWindow(op, periodType, start, end)
	if err != nil {
		return nil, err
	}
	rows, err := a.storage.ListSetupPerformance(ctx, string(periodType), start, end)
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}
	out := make([]*interfaces.SetupReport, len(rows))
	for i, row := range rows {
		out[i] = &interfaces.SetupReport{
			SetupType:   interfaces.SetupType(row.SetupType),
			PeriodType:  interfaces.PeriodType(row.PeriodType),
			PeriodStart: row.PeriodStart.UTC(),
			PeriodEnd:   row.PeriodEnd.UTC(),
			TradeStats:  columnsToStats(row.StatsColumns),
			Signals:     columnsToSignals(row.SignalColumns),
		}
	}
	return out, nil
}

// Sessions returns the per-session aggregates of a window
func (a *PerformanceAggregator) Sessions(ctx context.Context, periodType interfaces.PeriodType, start, end time.Time) ([]*interfaces.SessionReport, error) {
	const op = "list_session_performance"
	start, end, err := a.normalizeWindow(op, periodType, start, end)
	if err != nil {
		return nil, err
	}
	rows, err := a.storage.ListSessionPerformance(ctx, string(periodType), start, end)
	if err != nil {
		return nil, interfaces.Internal(op, err)
	}
	out := make([]*interfaces.SessionReport, len(rows))
	for i, row := range rows {
		out[i] = &interfaces.SessionReport{
			Session:     interfaces.Session(row.Session),
			PeriodType:  interfaces.PeriodType(row.PeriodType),
			PeriodStart: row.PeriodStart.UTC(),
			PeriodEnd:   row.PeriodEnd.UTC(),
			TradeStats:  columnsToStats(row.StatsColumns),
			Signals:     columnsToSignals(row.SignalColumns),
		}
	}
	return out, nil
}

// Daily returns the most recent per-day stats, newest first
func (a *PerformanceAggregator) Daily(ctx context.Context, limit int) ([]*interfaces.DailyReport, error) {
	rows, err := a.storage.ListDailyStats(ctx, limit)
	if err != nil {
		return nil, interfaces.Internal("list_daily_stats", err)
	}
	out := make([]*interfaces.DailyReport, len(rows))
	for i, row := range rows {
		out[i] = &interfaces.DailyReport{
			Date:         row.Date,
			TradeStats:   columnsToStats(row.StatsColumns),
			StartBalance: row.StartBalance,
			EndBalance:   row.EndBalance,
		}
	}
	return out, nil
}

func reportToDB(r *interfaces.PerformanceReport) *models.DBPerformanceAnalytics {
	return &models.DBPerformanceAnalytics{
		PeriodType:     string(r.PeriodType),
		PeriodStart:    r.PeriodStart,
		PeriodEnd:      r.PeriodEnd,
		StatsColumns:   statsToColumns(r.TradeStats),
		SignalColumns:  signalsToColumns(r.Signals),
		MaxDrawdown:    r.MaxDrawdown,
		MaxDrawdownPct: r.MaxDrawdownPct,
		SharpeRatio:    r.SharpeRatio,
		SortinoRatio:   r.SortinoRatio,
		StartBalance:   r.StartBalance,
		EndBalance:     r.EndBalance,
		ComputedAt:     r.ComputedAt,
	}
}

func dbToReport(row *models.DBPerformanceAnalytics) *interfaces.PerformanceReport {
	return &interfaces.PerformanceReport{
		PeriodType:     interfaces.PeriodType(row.PeriodType),
		PeriodStart:    row.PeriodStart.UTC(),
		PeriodEnd:      row.PeriodEnd.UTC(),
		TradeStats:     columnsToStats(row.StatsColumns),
		Signals:        columnsToSignals(row.SignalColumns),
		MaxDrawdown:    row.MaxDrawdown,
		MaxDrawdownPct: row.MaxDrawdownPct,
		SharpeRatio:    row.SharpeRatio,
		SortinoRatio:   row.SortinoRatio,
		StartBalance:   row.StartBalance,
		EndBalance:     row.EndBalance,
		ComputedAt:     row.ComputedAt,
	}
}

func statsToColumns(s interfaces.TradeStats) models.StatsColumns {
	return models.StatsColumns{
		TotalTrades:          s.TotalTrades,
		Wins:                 s.Wins,
		Losses:               s.Losses,
		Breakevens:           s.Breakevens,
		WinRate:              s.WinRate,
		GrossProfit:          s.GrossProfit,
		GrossLoss:            s.GrossLoss,
		NetPnL:               s.NetPnL,
		ProfitFactor:         s.ProfitFactor.Value,
		ProfitFactorInfinite: s.ProfitFactor.Infinite,
		AverageWin:           s.AverageWin,
		AverageLoss:          s.AverageLoss,
		LargestWin:           s.LargestWin,
		LargestLoss:          s.LargestLoss,
		AverageRR:            s.AverageRR,
		AverageRMultiple:     s.AverageRMultiple,
		Expectancy:           s.Expectancy,
		MaxWinStreak:         s.MaxWinStreak,
		MaxLossStreak:        s.MaxLossStreak,
	}
}

func columnsToStats(c models.StatsColumns) interfaces.TradeStats {
	return interfaces.TradeStats{
		TotalTrades:      c.TotalTrades,
		Wins:             c.Wins,
		Losses:           c.Losses,
		Breakevens:       c.Breakevens,
		WinRate:          c.WinRate,
		GrossProfit:      c.GrossProfit,
		GrossLoss:        c.GrossLoss,
		NetPnL:           c.NetPnL,
		ProfitFactor:     interfaces.ProfitFactor{Value: c.ProfitFactor, Infinite: c.ProfitFactorInfinite},
		AverageWin:       c.AverageWin,
		AverageLoss:      c.AverageLoss,
		LargestWin:       c.LargestWin,
		LargestLoss:      c.LargestLoss,
		AverageRR:        c.AverageRR,
		AverageRMultiple: c.AverageRMultiple,
		Expectancy:       c.Expectancy,
		MaxWinStreak:     c.MaxWinStreak,
		MaxLossStreak:    c.MaxLossStreak,
	}
}

func signalsToColumns(s interfaces.SignalStats) models.SignalColumns {
	return models.SignalColumns{
		SignalCount:     s.SignalCount,
		SignalWins:      s.SignalWins,
		SignalLosses:    s.SignalLosses,
		SignalBreakeven: s.SignalBreakeven,
		SignalPending:   s.SignalPending,
		SignalWinRate:   s.SignalWinRate,
		AvgConfidence:   s.AvgConfidence,
	}
}

func columnsToSignals(c models.SignalColumns) interfaces.SignalStats {
	return interfaces.SignalStats{
		SignalCount:     c.SignalCount,
		SignalWins:      c.SignalWins,
		SignalLosses:    c.SignalLosses,
		SignalBreakeven: c.SignalBreakeven,
		SignalPending:   c.SignalPending,
		SignalWinRate:   c.SignalWinRate,
		AvgConfidence:   c.AvgConfidence,
	}
}
