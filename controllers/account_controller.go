package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"ict-ledger/interfaces"
	"ict-ledger/services"
)

// AccountController exposes the account state, halts and risk history
type AccountController struct {
	accounts *services.AccountService
	location *time.Location
}

func NewAccountController(accounts *services.AccountService, location *time.Location) *AccountController {
	return &AccountController{accounts: accounts, location: location}
}

func (ac *AccountController) Register(r gin.IRouter) {
	g := r.Group("/account")
	g.GET("", ac.HandleGetAccount)
	g.POST("/reset", ac.HandleResetDaily)
	g.POST("/halt", ac.HandleHalt)
	g.POST("/enable", ac.HandleEnable)
	g.PUT("/limits", ac.HandleUpdateLimits)

	r.GET("/risk-events", ac.HandleListRiskEvents)
	r.GET("/equity-curve", ac.HandleEquityCurve)
}

// HandleGetAccount returns the current account snapshot
// GET /api/v1/account
func (ac *AccountController) HandleGetAccount(c *gin.Context) {
	snap, err := ac.accounts.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snap)
}

// HandleResetDaily applies the daily reset if the trading day has rolled
// POST /api/v1/account/reset
func (ac *AccountController) HandleResetDaily(c *gin.Context) {
	snap, reset, err := ac.accounts.ResetDaily(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"account": snap,
		"reset":   reset,
	})
}

type haltRequest struct {
	Reason string               `json:"reason"`
	Scope  interfaces.HaltScope `json:"scope"`
}

// HandleHalt stops new entries
// POST /api/v1/account/halt
func (ac *AccountController) HandleHalt(c *gin.Context) {
	var req haltRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Scope == "" {
		req.Scope = interfaces.HaltHard
	}

	snap, err := ac.accounts.Halt(c.Request.Context(), req.Reason, req.Scope)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snap)
}

// HandleEnable lifts any halt
// POST /api/v1/account/enable
func (ac *AccountController) HandleEnable(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	snap, err := ac.accounts.Enable(c.Request.Context(), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snap)
}

// PUT /api/v1/account/limits
func (ac *AccountController) HandleUpdateLimits(c *gin.Context) {
	var limits interfaces.AccountLimits
	if err := c.ShouldBindJSON(&limits); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	snap, err := ac.accounts.UpdateLimits(c.Request.Context(), limits)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, snap)
}

// HandleListRiskEvents lists risk events, newest first
// GET /api/v1/risk-events?since=2024-01-02&limit=50
func (ac *AccountController) HandleListRiskEvents(c *gin.Context) {
	since, err := timeQuery(c, "since", ac.location)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := ac.accounts.RiskEvents(c.Request.Context(), since, intQuery(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// GET /api/v1/equity-curve?since=...&limit=...
func (ac *AccountController) HandleEquityCurve(c *gin.Context) {
	since, err := timeQuery(c, "since", ac.location)
	if err != nil {
		respondError(c, err)
		return
	}

	points, err := ac.accounts.EquityCurve(c.Request.Context(), since, intQuery(c, "limit", 500))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":  len(points),
		"points": points,
	})
}
