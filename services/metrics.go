package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"ict-ledger/interfaces"
)

// Metrics holds the ledger's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PositionsOpened   prometheus.Counter
	PositionsClosed   *prometheus.CounterVec // status
	RiskRejections    *prometheus.CounterVec // rule
	SignalsRecorded   *prometheus.CounterVec // trigger
	SignalsResolved   *prometheus.CounterVec // outcome
	AggregationRuns   *prometheus.CounterVec // period_type
	AggregationErrors *prometheus.CounterVec // period_type
	HTTPRequests      *prometheus.CounterVec // method, path, status

	Balance       prometheus.Gauge
	DailyPnL      prometheus.Gauge
	PortfolioHeat prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.PositionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ictledger_positions_opened_total",
		Help: "Positions admitted by the risk gate",
	})
	m.PositionsClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ictledger_positions_closed_total",
		Help: "Positions closed, by terminal status",
	}, []string{"status"})
	m.RiskRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ictledger_risk_rejections_total",
		Help: "Opens rejected by the risk gate, by rule",
	}, []string{"rule"})
	m.SignalsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ictledger_signals_recorded_total",
		Help: "Signals recorded, by trigger",
	}, []string{"trigger"})
	m.SignalsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ictledger_signals_resolved_total",
		Help: "Signals resolved, by outcome",
	}, []string{"outcome"})
	m.AggregationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ictledger_aggregation_runs_total",
		Help: "Performance recomputations, by period type",
	}, []string{"period_type"})
	m.AggregationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ictledger_aggregation_failures_total",
		Help: "Failed performance recomputations, by period type",
	}, []string{"period_type"})
	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ictledger_http_requests_total",
		Help: "HTTP requests served",
	}, []string{"method", "path", "status"})

	m.Balance = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ictledger_account_balance",
		Help: "Current account balance",
	})
	m.DailyPnL = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ictledger_account_daily_pnl",
		Help: "Realized P&L for the current trading day",
	})
	m.PortfolioHeat = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ictledger_portfolio_heat",
		Help: "Sum of risk amounts across open positions",
	})

	reg.MustRegister(
		m.PositionsOpened, m.PositionsClosed, m.RiskRejections,
		m.SignalsRecorded, m.SignalsResolved,
		m.AggregationRuns, m.AggregationErrors, m.HTTPRequests,
		m.Balance, m.DailyPnL, m.PortfolioHeat,
	)
	return m
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is used by tests to gather values
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeAccount(acct interfaces.AccountSnapshot) {
	if m == nil {
		return
	}
	m.Balance.Set(acct.Balance.InexactFloat64())
	m.DailyPnL.Set(acct.DailyPnL.InexactFloat64())
}

func (m *Metrics) observeHeat(heat decimal.Decimal) {
	if m == nil {
		return
	}
	m.PortfolioHeat.Set(heat.InexactFloat64())
}

func (m *Metrics) positionOpened() {
	if m == nil {
		return
	}
	m.PositionsOpened.Inc()
}

func (m *Metrics) positionClosed(status interfaces.PositionStatus) {
	if m == nil {
		return
	}
	m.PositionsClosed.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) riskRejected(rule string) {
	if m == nil {
		return
	}
	m.RiskRejections.WithLabelValues(rule).Inc()
}

func (m *Metrics) signalRecorded(trigger interfaces.SetupType) {
	if m == nil {
		return
	}
	m.SignalsRecorded.WithLabelValues(string(trigger)).Inc()
}

func (m *Metrics) signalResolved(outcome interfaces.SignalOutcome) {
	if m == nil {
		return
	}
	m.SignalsResolved.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) aggregation(period interfaces.PeriodType, err error) {
	if m == nil {
		return
	}
	m.AggregationRuns.WithLabelValues(string(period)).Inc()
	if err != nil {
		m.AggregationErrors.WithLabelValues(string(period)).Inc()
	}
}

// ObserveRequest counts one HTTP request
func (m *Metrics) ObserveRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
}
