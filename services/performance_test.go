package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

func TestPeriodBounds(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	utc := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}

	tests := []struct {
		name       string
		period     interfaces.PeriodType
		at         time.Time
		start, end string
	}{
		{"late evening stays on its local day", interfaces.PeriodDaily, time.Date(2024, 3, 5, 23, 30, 0, 0, ny), "2024-03-05T05:00:00Z", "2024-03-06T05:00:00Z"},
		{"sunday belongs to the week starting monday", interfaces.PeriodWeekly, time.Date(2024, 3, 10, 12, 0, 0, 0, ny), "2024-03-04T05:00:00Z", "2024-03-11T04:00:00Z"},
		{"monday starts its own week", interfaces.PeriodWeekly, time.Date(2024, 3, 11, 0, 0, 0, 0, ny), "2024-03-11T04:00:00Z", "2024-03-18T04:00:00Z"},
		{"month spans the dst change", interfaces.PeriodMonthly, time.Date(2024, 3, 20, 9, 0, 0, 0, ny), "2024-03-01T05:00:00Z", "2024-04-01T04:00:00Z"},
		{"year", interfaces.PeriodYearly, time.Date(2024, 7, 4, 9, 0, 0, 0, ny), "2024-01-01T05:00:00Z", "2025-01-01T05:00:00Z"},
	}

	for _, tt := range tests {
		start, end, err := PeriodBounds(tt.period, tt.at, ny)
		require.NoError(t, err, tt.name)
		assert.True(t, utc(tt.start).Equal(start), "%s: start %s", tt.name, start)
		assert.True(t, utc(tt.end).Equal(end), "%s: end %s", tt.name, end)
	}

	start, end, err := PeriodBounds(interfaces.PeriodAllTime, time.Now(), ny)
	require.NoError(t, err)
	assert.True(t, end.After(start))

	_, _, err = PeriodBounds(interfaces.PeriodCustom, time.Now(), ny)
	assert.Equal(t, interfaces.KindValidation, interfaces.KindOf(err))
}

// tradeDay opens and closes a winner and a loser on the fixture's day
func tradeDay(t *testing.T, f *fixture) {
	t.Helper()
	win := f.open(t, longNQ("18000", "17990", "18025"))
	f.close(t, win.ID, "18025")
	loss := f.open(t, longNQ("18000", "17990", "18025"))
	f.close(t, loss.ID, "17995")
}

func TestRecomputeDaily(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tradeDay(t, f)

	report, err := f.performance.Recompute(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalTrades)
	assert.Equal(t, 1, report.Wins)
	assert.Equal(t, 1, report.Losses)
	assertDecimal(t, "0.5", report.WinRate)
	assertDecimal(t, "400", report.NetPnL)
	assertDecimal(t, "500", report.GrossProfit)
	assertDecimal(t, "-100", report.GrossLoss)
	assertDecimal(t, "5", report.ProfitFactor.Value)
	assertDecimal(t, "10000", report.StartBalance)
	assertDecimal(t, "10400", report.EndBalance)
	assertDecimal(t, "100", report.MaxDrawdown)

	stored, err := f.performance.Get(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)
	assertDecimal(t, "400", stored.NetPnL)

	sessions, err := f.performance.Sessions(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, interfaces.SessionNYAM, sessions[0].Session)
	assert.Equal(t, 2, sessions[0].TotalTrades)

	daily, err := f.performance.Daily(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, "2024-03-05", daily[0].Date)
	assertDecimal(t, "10400", daily[0].EndBalance)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tradeDay(t, f)

	for range 3 {
		_, err := f.performance.Recompute(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
		require.NoError(t, err)
	}
	n, err := f.storage.CountAggregates(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	setups, err := f.performance.Setups(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)
	require.Len(t, setups, 1)
	assert.Equal(t, 2, setups[0].TotalTrades)
}

func TestResolvedSignalCountsTowardSetupWinRate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	sig, err := f.signals.Record(f.ctx, fvgLong())
	require.NoError(t, err)
	_, err = f.signals.Resolve(f.ctx, sig.ID, d("18007.5"), d("150"))
	require.NoError(t, err)

	_, err = f.performance.Recompute(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)

	setups, err := f.performance.Setups(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)
	require.Len(t, setups, 1)
	assert.Equal(t, interfaces.SetupFVGFill, setups[0].SetupType)
	assert.Equal(t, 1, setups[0].Signals.SignalWins)
	assertDecimal(t, "1", setups[0].Signals.SignalWinRate)
}

func TestRecomputeCustomWindowValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	now := f.clock.Now()
	_, err := f.performance.Recompute(f.ctx, interfaces.PeriodCustom, now, now.Add(-time.Hour))
	assert.Equal(t, interfaces.KindValidation, interfaces.KindOf(err))

	_, err = f.performance.Recompute(f.ctx, "fortnightly", now, time.Time{})
	assert.Equal(t, interfaces.KindValidation, interfaces.KindOf(err))

	report, err := f.performance.Recompute(f.ctx, interfaces.PeriodCustom, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, report.TotalTrades)
}

func TestVerifyRepairsTamperedAggregate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tradeDay(t, f)

	// A window with no stored row is simply computed
	report, err := f.performance.Verify(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)
	assertDecimal(t, "400", report.NetPnL)

	_, err = f.performance.Verify(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)

	err = f.storage.DB().Model(&models.DBPerformanceAnalytics{}).
		Where("period_type = ?", string(interfaces.PeriodDaily)).
		Update("net_pnl", d("9999")).Error
	require.NoError(t, err)

	_, err = f.performance.Verify(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindAggregationInconsistency, interfaces.KindOf(err))

	repaired, err := f.performance.Get(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)
	assertDecimal(t, "400", repaired.NetPnL)
}

func TestRebuild(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tradeDay(t, f)

	written, err := f.performance.Rebuild(f.ctx)
	require.NoError(t, err)
	// day, week, month, year and all-time
	assert.Equal(t, 5, written)

	n, err := f.storage.CountAggregates(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	all, err := f.performance.Get(f.ctx, interfaces.PeriodAllTime, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalTrades)
	assertDecimal(t, "10400", all.EndBalance)
}

func TestRebuildWithoutActivity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	written, err := f.performance.Rebuild(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestRecomputeCurrent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tradeDay(t, f)

	reports, err := f.performance.RecomputeCurrent(f.ctx, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, reports, 5)
	for _, r := range reports {
		assert.Equal(t, 2, r.TotalTrades, r.PeriodType)
		assertDecimal(t, "400", r.NetPnL, r.PeriodType)
	}

	weekly, err := f.performance.List(f.ctx, interfaces.PeriodWeekly, 10)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
}

func TestRebuildFailureKeepsPreviousAggregates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tradeDay(t, f)

	_, err := f.performance.RecomputeCurrent(f.ctx, f.clock.Now())
	require.NoError(t, err)

	// Writing the per-day rows is the last step of the rebuild
	require.NoError(t, f.storage.DB().Migrator().DropTable(&models.DBDailyStats{}))

	_, err = f.performance.Rebuild(f.ctx)
	require.Error(t, err)

	n, err := f.storage.CountAggregates(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	for _, pt := range []interfaces.PeriodType{interfaces.PeriodDaily, interfaces.PeriodWeekly, interfaces.PeriodAllTime} {
		stored, err := f.performance.Get(f.ctx, pt, f.clock.Now(), time.Time{})
		require.NoError(t, err, pt)
		assertDecimal(t, "400", stored.NetPnL, pt)
	}
}

func TestVerifyDetectsSignalResolvedNextDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	detected := f.clock.Now()

	sig, err := f.signals.Record(f.ctx, fvgLong())
	require.NoError(t, err)
	_, err = f.performance.RecomputeCurrent(f.ctx, detected)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	_, err = f.signals.Resolve(f.ctx, sig.ID, d("18007.5"), d("150"))
	require.NoError(t, err)

	_, err = f.performance.Verify(f.ctx, interfaces.PeriodDaily, detected, time.Time{})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindAggregationInconsistency, interfaces.KindOf(err))
	assert.ErrorContains(t, err, "signal_wins")

	report, err := f.performance.Get(f.ctx, interfaces.PeriodDaily, detected, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Signals.SignalWins)
	assert.Zero(t, report.Signals.SignalPending)

	setups, err := f.performance.Setups(f.ctx, interfaces.PeriodDaily, detected, time.Time{})
	require.NoError(t, err)
	require.Len(t, setups, 1)
	assertDecimal(t, "1", setups[0].Signals.SignalWinRate)

	_, err = f.performance.Verify(f.ctx, interfaces.PeriodDaily, detected, time.Time{})
	require.NoError(t, err)
}

func TestPartialDailyWindowLeavesDayRowAlone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tradeDay(t, f)

	_, err := f.performance.Recompute(f.ctx, interfaces.PeriodDaily, f.clock.Now(), time.Time{})
	require.NoError(t, err)

	now := f.clock.Now()
	report, err := f.performance.Recompute(f.ctx, interfaces.PeriodDaily, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, report.TotalTrades)

	daily, err := f.performance.Daily(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, "2024-03-05", daily[0].Date)
	assert.Equal(t, 2, daily[0].TotalTrades)
	assertDecimal(t, "10400", daily[0].EndBalance)
}
