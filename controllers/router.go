package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ict-ledger/database"
	"ict-ledger/services"
)

// Deps are the services the HTTP API is built on
type Deps struct {
	Storage     *database.LocalStorage
	Accounts    *services.AccountService
	Ledger      *services.PositionLedger
	Signals     *services.SignalLedger
	Performance *services.PerformanceAggregator
	Strategies  *services.StrategyService
	Alerts      *services.StoreDispatcher
	Activity    *services.ActivityLogger
	Metrics     *services.Metrics
	Location    *time.Location
	Logger      *logrus.Logger
}

// NewRouter wires every controller under /api/v1 plus health and metrics
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(d.Logger), requestMetrics(d.Metrics))

	NewHealthController(d.Storage).Register(engine)
	if d.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := engine.Group("/api/v1")
	NewAccountController(d.Accounts, d.Location).Register(api)
	NewPositionController(d.Ledger).Register(api)
	NewSignalController(d.Signals, d.Location).Register(api)
	NewPerformanceController(d.Performance, d.Location, nil).Register(api)
	NewStrategyController(d.Strategies).Register(api)
	NewActivityController(d.Alerts, d.Activity).Register(api)
	return engine
}

// HealthController answers liveness and readiness probes
type HealthController struct {
	storage *database.LocalStorage
}

func NewHealthController(storage *database.LocalStorage) *HealthController {
	return &HealthController{storage: storage}
}

func (h *HealthController) Register(r gin.IRouter) {
	r.GET("/healthz", h.HandleHealthz)
	r.GET("/readyz", h.HandleReadyz)
}

func (h *HealthController) HandleHealthz(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok"})
}

func (h *HealthController) HandleReadyz(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, apiResponse{Code: http.StatusServiceUnavailable, Message: "storage not configured"})
		return
	}
	if err := h.storage.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, apiResponse{Code: http.StatusServiceUnavailable, Message: err.Error()})
		return
	}
	respondOK(c, gin.H{"status": "ready"})
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}

// requestMetrics counts requests by route template
func requestMetrics(m *services.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
	}
}
