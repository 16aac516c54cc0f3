package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"ict-ledger/database"
	"ict-ledger/interfaces"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(dur)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	alerts []interfaces.Alert
}

func (r *recordingDispatcher) Dispatch(_ context.Context, alert interfaces.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingDispatcher) ofType(alertType string) []interfaces.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interfaces.Alert
	for _, a := range r.alerts {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

type stubPrices map[string]decimal.Decimal

func (s stubPrices) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := s[symbol]
	if !ok {
		return decimal.Zero, interfaces.NotFound("latest_price", "no price for %s", symbol)
	}
	return p, nil
}

type fixture struct {
	ctx         context.Context
	location    *time.Location
	clock       *testClock
	storage     *database.LocalStorage
	metrics     *Metrics
	alerts      *recordingDispatcher
	accounts    *AccountService
	ledger      *PositionLedger
	signals     *SignalLedger
	performance *PerformanceAggregator
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	limits    interfaces.AccountLimits
	ledger    LedgerConfig
	prices    interfaces.PriceSource
	startTime time.Time
}

func withLimits(l interfaces.AccountLimits) fixtureOption {
	return func(c *fixtureConfig) { c.limits = l }
}

func withPrices(p interfaces.PriceSource) fixtureOption {
	return func(c *fixtureConfig) { c.prices = p }
}

func withAutoClose() fixtureOption {
	return func(c *fixtureConfig) { c.ledger.AutoCloseOnLevels = true }
}

func defaultLimits() interfaces.AccountLimits {
	return interfaces.AccountLimits{
		MaxDailyLoss:             d("500"),
		MaxPositionRisk:          d("300"),
		MaxPortfolioHeat:         d("1000"),
		ConsecutiveLossThreshold: 3,
	}
}

// newFixture wires every service over a private in-memory database with a
// $10,000 account. The clock starts on Tuesday 2024-03-05 10:00 New York.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cfg := fixtureConfig{
		limits: defaultLimits(),
		ledger: LedgerConfig{
			Location:        loc,
			PointValues:     map[string]decimal.Decimal{"NQ": d("20"), "ES": d("50")},
			HaltOnDailyLoss: true,
			MaxRetries:      10,
		},
		startTime: time.Date(2024, 3, 5, 10, 0, 0, 0, loc),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := quietLogger()
	storage, err := database.Open(database.Config{Driver: "sqlite", Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	f := &fixture{
		ctx:      context.Background(),
		location: loc,
		clock:    &testClock{now: cfg.startTime},
		storage:  storage,
		metrics:  NewMetrics(),
		alerts:   &recordingDispatcher{},
	}
	accountStore := database.NewAccountStore(storage)

	f.accounts = NewAccountService(storage, accountStore, AccountServiceOptions{
		Alerts:     f.alerts,
		Metrics:    f.metrics,
		Clock:      f.clock.Now,
		Location:   loc,
		MaxRetries: 10,
		Logger:     logger,
	})
	f.ledger = NewPositionLedger(storage, accountStore, PositionLedgerOptions{
		Gate:    NewRiskGate(f.clock.Now),
		Alerts:  f.alerts,
		Prices:  cfg.prices,
		Metrics: f.metrics,
		Clock:   f.clock.Now,
		Config:  cfg.ledger,
		Logger:  logger,
	})
	f.signals = NewSignalLedger(storage, f.metrics, f.clock.Now, loc, logger)
	f.performance = NewPerformanceAggregator(storage, PerformanceOptions{
		Metrics:  f.metrics,
		Clock:    f.clock.Now,
		Location: loc,
		Logger:   logger,
	})

	_, err = f.accounts.Bootstrap(f.ctx, AccountDefaults{
		InitialBalance: d("10000"),
		Limits:         cfg.limits,
	})
	require.NoError(t, err)
	return f
}

// longNQ is a one-lot NQ long risking stopPoints * $20
func longNQ(entry, stop, target string) interfaces.PositionRequest {
	return interfaces.PositionRequest{
		Symbol:     "NQ",
		Side:       interfaces.SideLong,
		Contracts:  d("1"),
		EntryPrice: d(entry),
		StopLoss:   d(stop),
		TakeProfit: d(target),
		SetupType:  interfaces.SetupFVGFill,
	}
}

func (f *fixture) snapshot(t *testing.T) interfaces.AccountSnapshot {
	t.Helper()
	snap, err := f.accounts.Snapshot(f.ctx)
	require.NoError(t, err)
	return snap
}

func (f *fixture) open(t *testing.T, req interfaces.PositionRequest) *interfaces.Position {
	t.Helper()
	p, err := f.ledger.Open(f.ctx, req)
	require.NoError(t, err)
	return p
}

func (f *fixture) close(t *testing.T, id, price string) *interfaces.Position {
	t.Helper()
	f.clock.Advance(time.Minute)
	p, err := f.ledger.Close(f.ctx, id, d(price), time.Time{}, interfaces.CloseManual)
	require.NoError(t, err)
	return p
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !got.Equal(d(want)) {
		require.Failf(t, "decimal mismatch", "want %s, got %s %v", want, got.String(), msgAndArgs)
	}
}
