package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ict-ledger/interfaces"
	"ict-ledger/services"
)

// SignalController records detector signals and their outcomes
type SignalController struct {
	signals  *services.SignalLedger
	location *time.Location
}

func NewSignalController(signals *services.SignalLedger, location *time.Location) *SignalController {
	return &SignalController{signals: signals, location: location}
}

func (sc *SignalController) Register(r gin.IRouter) {
	g := r.Group("/signals")
	g.POST("", sc.HandleRecordSignal)
	g.GET("", sc.HandleListSignals)
	g.GET("/:id", sc.HandleGetSignal)
	g.POST("/:id/resolve", sc.HandleResolveSignal)
}

// POST /api/v1/signals
func (sc *SignalController) HandleRecordSignal(c *gin.Context) {
	var req interfaces.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	signal, err := sc.signals.Record(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, signal)
}

// HandleListSignals lists signals newest first
// GET /api/v1/signals?symbol=NQ&trigger=fvg_fill&outcome=pending&since=2024-01-02&limit=50
func (sc *SignalController) HandleListSignals(c *gin.Context) {
	since, err := timeQuery(c, "since", sc.location)
	if err != nil {
		respondError(c, err)
		return
	}

	signals, err := sc.signals.List(c.Request.Context(), interfaces.SignalFilter{
		Symbol:  c.Query("symbol"),
		Trigger: interfaces.SetupType(c.Query("trigger")),
		Outcome: interfaces.SignalOutcome(c.Query("outcome")),
		Since:   since,
		Limit:   intQuery(c, "limit", 100),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":   len(signals),
		"signals": signals,
	})
}

// GET /api/v1/signals/:id
func (sc *SignalController) HandleGetSignal(c *gin.Context) {
	signal, err := sc.signals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, signal)
}

// HandleResolveSignal settles a pending signal; a second resolve answers 409
// POST /api/v1/signals/:id/resolve
func (sc *SignalController) HandleResolveSignal(c *gin.Context) {
	var req struct {
		ExitPrice decimal.Decimal `json:"exit_price"`
		PnL       decimal.Decimal `json:"pnl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	signal, err := sc.signals.Resolve(c.Request.Context(), c.Param("id"), req.ExitPrice, req.PnL)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, signal)
}
