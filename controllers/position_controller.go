package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ict-ledger/interfaces"
	"ict-ledger/services"
)

// PositionController handles trade actions and position reads
type PositionController struct {
	ledger *services.PositionLedger
}

func NewPositionController(ledger *services.PositionLedger) *PositionController {
	return &PositionController{ledger: ledger}
}

func (pc *PositionController) Register(r gin.IRouter) {
	g := r.Group("/positions")
	g.POST("", pc.HandleOpenPosition)
	g.POST("/precheck", pc.HandlePrecheck)
	g.POST("/mark", pc.HandleMarkAll)
	g.GET("", pc.HandleListPositions)
	g.GET("/heat", pc.HandleOpenHeat)
	g.GET("/:id", pc.HandleGetPosition)
	g.POST("/:id/close", pc.HandleClosePosition)
	g.POST("/:id/mark", pc.HandleMarkPosition)
}

// HandleOpenPosition opens a position through the risk gate.
// A rejection answers 422 with the decision as data.
// POST /api/v1/positions
func (pc *PositionController) HandleOpenPosition(c *gin.Context) {
	var req interfaces.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	position, err := pc.ledger.Open(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, position)
}

// HandlePrecheck evaluates a request against the gate without opening it
// POST /api/v1/positions/precheck
func (pc *PositionController) HandlePrecheck(c *gin.Context) {
	var req interfaces.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	decision, err := pc.ledger.Precheck(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, decision)
}

// HandleGetPosition retrieves one position
// GET /api/v1/positions/:id
func (pc *PositionController) HandleGetPosition(c *gin.Context) {
	position, err := pc.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, position)
}

// HandleListPositions lists positions newest first
// GET /api/v1/positions?status=open&symbol=NQ&limit=50
func (pc *PositionController) HandleListPositions(c *gin.Context) {
	positions, err := pc.ledger.List(c.Request.Context(),
		interfaces.PositionStatus(c.Query("status")), c.Query("symbol"), intQuery(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":     len(positions),
		"positions": positions,
	})
}

// GET /api/v1/positions/heat
func (pc *PositionController) HandleOpenHeat(c *gin.Context) {
	heat, err := pc.ledger.OpenHeat(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"open_heat": heat})
}

type closeRequest struct {
	ExitPrice decimal.Decimal        `json:"exit_price"`
	ExitTime  *time.Time             `json:"exit_time,omitempty"`
	Reason    interfaces.CloseReason `json:"reason,omitempty"`
}

// HandleClosePosition closes an open position at the given price
// POST /api/v1/positions/:id/close
func (pc *PositionController) HandleClosePosition(c *gin.Context) {
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	var exitTime time.Time
	if req.ExitTime != nil {
		exitTime = *req.ExitTime
	}
	position, err := pc.ledger.Close(c.Request.Context(), c.Param("id"), req.ExitPrice, exitTime, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, position)
}

// HandleMarkPosition updates unrealized P&L from a supplied price
// POST /api/v1/positions/:id/mark
func (pc *PositionController) HandleMarkPosition(c *gin.Context) {
	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	unrealized, err := pc.ledger.MarkToMarket(c.Request.Context(), c.Param("id"), req.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"position_id":    c.Param("id"),
		"price":          req.Price,
		"unrealized_pnl": unrealized,
	})
}

// HandleMarkAll marks every open position against the price source
// POST /api/v1/positions/mark
func (pc *PositionController) HandleMarkAll(c *gin.Context) {
	summary, err := pc.ledger.MarkAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}
