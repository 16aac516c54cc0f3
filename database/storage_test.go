package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

func openTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s, err := Open(Config{Driver: "sqlite", Path: ":memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAccount() models.DBAccountState {
	return models.DBAccountState{
		Balance:                  decimal.NewFromInt(10000),
		InitialBalance:           decimal.NewFromInt(10000),
		DailyDate:                "2024-03-05",
		MaxDailyLoss:             decimal.NewFromInt(500),
		MaxPositionRisk:          decimal.NewFromInt(300),
		MaxPortfolioHeat:         decimal.NewFromInt(1000),
		ConsecutiveLossThreshold: 3,
		CanTrade:                 true,
		HaltScope:                "none",
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "oracle"}, nil)
	assert.ErrorContains(t, err, "oracle")
}

func TestInMemoryDatabasesAreIsolated(t *testing.T) {
	t.Parallel()
	a := openTestStorage(t)
	b := openTestStorage(t)
	ctx := context.Background()

	_, created, err := NewAccountStore(a).Ensure(ctx, seedAccount())
	require.NoError(t, err)
	require.True(t, created)

	_, err = NewAccountStore(b).Current(ctx)
	assert.Equal(t, interfaces.KindNotFound, interfaces.KindOf(err))
	require.NoError(t, b.Ping(ctx))
}

func TestAccountStoreEnsureIsIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStorage(t)
	store := NewAccountStore(s)
	ctx := context.Background()

	first, created, err := store.Ensure(ctx, seedAccount())
	require.NoError(t, err)
	assert.True(t, created)
	assert.EqualValues(t, 1, first.Version)

	other := seedAccount()
	other.Balance = decimal.NewFromInt(1)
	second, created, err := store.Ensure(ctx, other)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Balance.Equal(decimal.NewFromInt(10000)))
}

func TestAccountStoreUpdateDetectsStaleVersion(t *testing.T) {
	t.Parallel()
	s := openTestStorage(t)
	store := NewAccountStore(s)
	ctx := context.Background()

	_, _, err := store.Ensure(ctx, seedAccount())
	require.NoError(t, err)

	a, err := store.Current(ctx)
	require.NoError(t, err)
	b, err := store.Current(ctx)
	require.NoError(t, err)

	a.Balance = decimal.NewFromInt(9800)
	require.NoError(t, store.Update(ctx, a))
	assert.EqualValues(t, 2, a.Version)

	b.Balance = decimal.NewFromInt(10500)
	err = store.Update(ctx, b)
	assert.Equal(t, interfaces.KindConcurrencyConflict, interfaces.KindOf(err))
	assert.ErrorIs(t, err, ErrStaleVersion)

	cur, err := store.Current(ctx)
	require.NoError(t, err)
	assert.True(t, cur.Balance.Equal(decimal.NewFromInt(9800)))
}

func TestAccountStoreTransactionRollsBack(t *testing.T) {
	t.Parallel()
	s := openTestStorage(t)
	store := NewAccountStore(s)
	ctx := context.Background()

	_, _, err := store.Ensure(ctx, seedAccount())
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx *gorm.DB) error {
		row, err := store.WithTx(tx).LockCurrent(ctx)
		if err != nil {
			return err
		}
		row.Balance = decimal.Zero
		if err := store.WithTx(tx).Update(ctx, row); err != nil {
			return err
		}
		return interfaces.ValidationError("test", "abort")
	})
	assert.Equal(t, interfaces.KindValidation, interfaces.KindOf(err))

	cur, err := store.Current(ctx)
	require.NoError(t, err)
	assert.True(t, cur.Balance.Equal(decimal.NewFromInt(10000)))
	assert.EqualValues(t, 1, cur.Version)
}

func testPosition(symbol string, risk int64, entry time.Time) *models.DBPosition {
	return &models.DBPosition{
		PositionID:      NewID(PrefixPosition),
		Symbol:          symbol,
		Side:            "long",
		Contracts:       decimal.NewFromInt(1),
		EntryPrice:      decimal.NewFromInt(18000),
		StopLoss:        decimal.NewFromInt(17990),
		TakeProfit:      decimal.NewFromInt(18025),
		PointValue:      decimal.NewFromInt(20),
		EntryTime:       entry,
		Status:          string(interfaces.StatusOpen),
		RiskAmount:      decimal.NewFromInt(risk),
		RewardAmount:    decimal.NewFromInt(risk * 2),
		RiskRewardRatio: decimal.NewFromInt(2),
	}
}

func TestPositionCloseOnlyOnce(t *testing.T) {
	t.Parallel()
	s := openTestStorage(t)
	ctx := context.Background()
	entry := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	a := testPosition("NQ", 200, entry)
	b := testPosition("ES", 150, entry.Add(time.Minute))
	require.NoError(t, s.SavePosition(ctx, a))
	require.NoError(t, s.SavePosition(ctx, b))

	heat, err := s.OpenRisk(ctx)
	require.NoError(t, err)
	assert.True(t, heat.Equal(decimal.NewFromInt(350)))

	exit := decimal.NewFromInt(18025)
	exitTime := entry.Add(time.Hour)
	pnl := decimal.NewFromInt(500)
	a.Status = string(interfaces.StatusTargetHit)
	a.CloseReason = string(interfaces.CloseTarget)
	a.ExitPrice, a.ExitTime, a.RealizedPnL = &exit, &exitTime, &pnl
	require.NoError(t, s.ClosePosition(ctx, a))

	err = s.ClosePosition(ctx, a)
	assert.Equal(t, interfaces.KindInvalidState, interfaces.KindOf(err))

	heat, err = s.OpenRisk(ctx)
	require.NoError(t, err)
	assert.True(t, heat.Equal(decimal.NewFromInt(150)))

	realized, err := s.SumRealized(ctx)
	require.NoError(t, err)
	assert.True(t, realized.Equal(pnl))

	closed, err := s.ClosedPositionsBetween(ctx, entry, entry.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, a.PositionID, closed[0].PositionID)

	open, err := s.ListPositions(ctx, PositionFilter{Status: string(interfaces.StatusOpen)})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "ES", open[0].Symbol)

	_, err = s.GetPosition(ctx, "pos_missing")
	assert.Equal(t, interfaces.KindNotFound, interfaces.KindOf(err))

	first, err := s.FirstActivity(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(entry))
}

func TestNewIDSortsInCreationOrder(t *testing.T) {
	t.Parallel()
	prev := NewID(PrefixSignal)
	for range 100 {
		next := NewID(PrefixSignal)
		assert.True(t, strings.HasPrefix(next, PrefixSignal))
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestAccountStoreEnsureLosesBootstrapRace(t *testing.T) {
	t.Parallel()
	s := openTestStorage(t)
	store := NewAccountStore(s)
	ctx := context.Background()

	// Another writer creates the current row between our lookup and insert
	rival := seedAccount()
	rival.IsCurrent = true
	rival.Balance = decimal.NewFromInt(25000)
	var rivalErr error
	raced := false
	err := s.DB().Callback().Create().Before("gorm:create").Register("test:rival_bootstrap", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		rivalErr = tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error
	})
	require.NoError(t, err)

	row, created, err := store.Ensure(ctx, seedAccount())
	require.NoError(t, err)
	require.NoError(t, rivalErr)
	assert.True(t, raced)
	assert.False(t, created)
	assert.Equal(t, rival.ID, row.ID)
	assert.True(t, row.Balance.Equal(decimal.NewFromInt(25000)))

	var n int64
	require.NoError(t, s.DB().Model(&models.DBAccountState{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestAccountBalanceKeepsFifteenSignificantDigits(t *testing.T) {
	t.Parallel()
	s := openTestStorage(t)
	store := NewAccountStore(s)
	ctx := context.Background()

	_, _, err := store.Ensure(ctx, seedAccount())
	require.NoError(t, err)

	row, err := store.Current(ctx)
	require.NoError(t, err)
	want := decimal.RequireFromString("123456789.123456")
	row.Balance = want
	row.DailyPnL = decimal.RequireFromString("-0.000001")
	require.NoError(t, store.Update(ctx, row))

	got, err := store.Current(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got.Balance), got.Balance.String())
	assert.True(t, decimal.RequireFromString("-0.000001").Equal(got.DailyPnL), got.DailyPnL.String())
}
