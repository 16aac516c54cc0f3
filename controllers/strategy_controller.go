package controllers

import (
	"github.com/gin-gonic/gin"

	"ict-ledger/interfaces"
	"ict-ledger/services"
)

// StrategyController stores named strategy configurations
type StrategyController struct {
	strategies *services.StrategyService
}

func NewStrategyController(strategies *services.StrategyService) *StrategyController {
	return &StrategyController{strategies: strategies}
}

func (sc *StrategyController) Register(r gin.IRouter) {
	g := r.Group("/strategies")
	g.GET("", sc.HandleListStrategies)
	g.GET("/:name", sc.HandleGetStrategy)
	g.PUT("/:name", sc.HandleSaveStrategy)
}

func (sc *StrategyController) HandleListStrategies(c *gin.Context) {
	strategies, err := sc.strategies.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":      len(strategies),
		"strategies": strategies,
	})
}

func (sc *StrategyController) HandleGetStrategy(c *gin.Context) {
	cfg, err := sc.strategies.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, cfg)
}

// HandleSaveStrategy upserts a strategy; the path name wins over the body
// PUT /api/v1/strategies/:name
func (sc *StrategyController) HandleSaveStrategy(c *gin.Context) {
	var cfg interfaces.StrategyConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	cfg.Name = c.Param("name")

	saved, err := sc.strategies.Save(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, saved)
}
