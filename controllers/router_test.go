package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ict-ledger/database"
	"ict-ledger/interfaces"
	"ict-ledger/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	storage, err := database.Open(database.Config{Driver: "sqlite", Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	metrics := services.NewMetrics()
	store := services.NewStoreDispatcher(storage)
	accountStore := database.NewAccountStore(storage)

	accounts := services.NewAccountService(storage, accountStore, services.AccountServiceOptions{
		Alerts:     store,
		Metrics:    metrics,
		MaxRetries: 5,
		Logger:     logger,
	})
	ledger := services.NewPositionLedger(storage, accountStore, services.PositionLedgerOptions{
		Gate:    services.NewRiskGate(nil),
		Alerts:  store,
		Metrics: metrics,
		Config: services.LedgerConfig{
			PointValues:     map[string]decimal.Decimal{"NQ": decimal.NewFromInt(20)},
			HaltOnDailyLoss: true,
			MaxRetries:      5,
		},
		Logger: logger,
	})

	_, err = accounts.Bootstrap(t.Context(), services.AccountDefaults{
		InitialBalance: decimal.NewFromInt(10000),
		Limits: interfaces.AccountLimits{
			MaxDailyLoss:             decimal.NewFromInt(500),
			MaxPositionRisk:          decimal.NewFromInt(300),
			MaxPortfolioHeat:         decimal.NewFromInt(1000),
			ConsecutiveLossThreshold: 3,
		},
	})
	require.NoError(t, err)

	return NewRouter(Deps{
		Storage:     storage,
		Accounts:    accounts,
		Ledger:      ledger,
		Signals:     services.NewSignalLedger(storage, metrics, nil, time.UTC, logger),
		Performance: services.NewPerformanceAggregator(storage, services.PerformanceOptions{Metrics: metrics, Logger: logger}),
		Strategies:  services.NewStrategyService(storage, logger),
		Alerts:      store,
		Activity:    services.NewActivityLogger(t.TempDir(), time.UTC, logger),
		Metrics:     metrics,
		Location:    time.UTC,
		Logger:      logger,
	})
}

func call(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func nqLong(stop string) gin.H {
	return gin.H{
		"symbol":      "NQ",
		"side":        "long",
		"contracts":   "1",
		"entry_price": "18000",
		"stop_loss":   stop,
		"take_profit": "18025",
		"setup_type":  "fvg_fill",
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w, env := call(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, env.Code)

	w, _ = call(t, r, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestOpenAndClosePosition(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w, env := call(t, r, http.MethodPost, "/api/v1/positions", nqLong("17990"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var position interfaces.Position
	require.NoError(t, json.Unmarshal(env.Data, &position))
	assert.True(t, position.RiskAmount.Equal(decimal.NewFromInt(200)))

	w, env = call(t, r, http.MethodGet, "/api/v1/positions/heat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "200")

	w, env = call(t, r, http.MethodPost, "/api/v1/positions/"+position.ID+"/close", gin.H{"exit_price": "18025", "reason": "target"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &position))
	assert.Equal(t, interfaces.StatusTargetHit, position.Status)

	w, env = call(t, r, http.MethodPost, "/api/v1/positions/"+position.ID+"/close", gin.H{"exit_price": "18030"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(interfaces.KindInvalidState), env.Kind)

	w, env = call(t, r, http.MethodGet, "/api/v1/account", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap interfaces.AccountSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Balance.Equal(decimal.NewFromInt(10500)))

	w, env = call(t, r, http.MethodGet, "/api/v1/alerts?unacked=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), interfaces.AlertPositionClosed)
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	// 20 points on NQ is $400, over the $300 per-position cap
	w, env := call(t, r, http.MethodPost, "/api/v1/positions", nqLong("17980"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(interfaces.KindValidation), env.Kind)
	assert.Contains(t, string(env.Data), "max_position_risk")

	w, env = call(t, r, http.MethodGet, "/api/v1/positions/pos_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, env.Code)

	w, _ = call(t, r, http.MethodPost, "/api/v1/positions", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, r, http.MethodGet, "/api/v1/performance?period=fortnightly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, r, http.MethodGet, "/api/v1/activity/2024-01-01", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHaltedAccountRejectsWithDecision(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w, env := call(t, r, http.MethodPost, "/api/v1/account/halt", gin.H{"reason": "news event"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snap interfaces.AccountSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.False(t, snap.CanTrade)

	w, env = call(t, r, http.MethodPost, "/api/v1/positions", nqLong("17990"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(interfaces.KindRiskRejection), env.Kind)
	var decision interfaces.Decision
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.False(t, decision.Approved)
	assert.Equal(t, services.RuleTradingHalted, decision.Rule)

	w, _ = call(t, r, http.MethodPost, "/api/v1/account/enable", gin.H{"reason": "all clear"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodPost, "/api/v1/positions", nqLong("17990"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignalLifecycle(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w, env := call(t, r, http.MethodPost, "/api/v1/signals", gin.H{
		"symbol":      "NQ",
		"signal_type": "long",
		"trigger":     "liquidity_sweep",
		"entry_price": "18000",
		"stop_loss":   "17990",
		"targets":     []string{"18030"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sig interfaces.Signal
	require.NoError(t, json.Unmarshal(env.Data, &sig))
	assert.Equal(t, interfaces.OutcomePending, sig.Outcome)

	path := "/api/v1/signals/" + sig.ID + "/resolve"
	w, env = call(t, r, http.MethodPost, path, gin.H{"exit_price": "18015", "pnl": "150"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &sig))
	assert.Equal(t, interfaces.OutcomeWin, sig.Outcome)

	w, env = call(t, r, http.MethodPost, path, gin.H{"exit_price": "18015", "pnl": "150"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(interfaces.KindAlreadyResolved), env.Kind)

	w, _ = call(t, r, http.MethodGet, "/api/v1/signals?outcome=win", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStrategyRoutes(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	w, _ := call(t, r, http.MethodPut, "/api/v1/strategies/sweeps", gin.H{
		"name":           "ignored",
		"kind":           "sweep_reversal",
		"enabled":        true,
		"sweep_reversal": gin.H{"sweep_ticks": 8, "require_divergence": true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := call(t, r, http.MethodGet, "/api/v1/strategies/sweeps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg interfaces.StrategyConfig
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.Equal(t, "sweeps", cfg.Name)
	require.NotNil(t, cfg.SweepReversal)
	assert.Equal(t, 8, cfg.SweepReversal.SweepTicks)

	w, _ = call(t, r, http.MethodPut, "/api/v1/strategies/broken", gin.H{"kind": "ict_scalp"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseTime(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got, err := parseTime("2024-03-05", ny)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, ny)))

	got, err = parseTime("2024-03-05T14:30:00Z", ny)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)))

	_, err = parseTime("yesterday", ny)
	assert.Equal(t, interfaces.KindValidation, interfaces.KindOf(err))
}
