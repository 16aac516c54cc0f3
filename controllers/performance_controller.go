package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"ict-ledger/interfaces"
	"ict-ledger/services"
)

// PerformanceController serves the aggregates and triggers recomputes
type PerformanceController struct {
	performance *services.PerformanceAggregator
	location    *time.Location
	clock       interfaces.Clock
}

func NewPerformanceController(performance *services.PerformanceAggregator, location *time.Location, clock interfaces.Clock) *PerformanceController {
	if clock == nil {
		clock = time.Now
	}
	return &PerformanceController{performance: performance, location: location, clock: clock}
}

func (pc *PerformanceController) Register(r gin.IRouter) {
	g := r.Group("/performance")
	g.GET("", pc.HandleGetPerformance)
	g.GET("/history", pc.HandleListPerformance)
	g.POST("/recompute", pc.HandleRecompute)
	g.POST("/verify", pc.HandleVerify)
	g.GET("/setups", pc.HandleSetups)
	g.GET("/sessions", pc.HandleSessions)
	g.GET("/daily", pc.HandleDaily)
}

// windowQuery resolves period/start/end query parameters. Calendar periods
// default to the window containing now; custom needs both bounds.
func (pc *PerformanceController) windowQuery(c *gin.Context) (interfaces.PeriodType, time.Time, time.Time, error) {
	raw := c.DefaultQuery("period", string(interfaces.PeriodAllTime))
	periodType, err := interfaces.ParsePeriodType(raw)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return pc.window(periodType, c.Query("start"), c.Query("end"))
}

func (pc *PerformanceController) window(periodType interfaces.PeriodType, rawStart, rawEnd string) (interfaces.PeriodType, time.Time, time.Time, error) {
	at := pc.clock()
	if rawStart != "" {
		t, err := parseTime(rawStart, pc.location)
		if err != nil {
			return "", time.Time{}, time.Time{}, err
		}
		at = t
	}

	if periodType == interfaces.PeriodCustom {
		if rawStart == "" || rawEnd == "" {
			return "", time.Time{}, time.Time{}, interfaces.ValidationError("performance_window", "custom period needs start and end")
		}
		end, err := parseTime(rawEnd, pc.location)
		if err != nil {
			return "", time.Time{}, time.Time{}, err
		}
		return periodType, at, end, nil
	}

	start, end, err := services.PeriodBounds(periodType, at, pc.location)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return periodType, start, end, nil
}

// HandleGetPerformance returns the stored aggregate for a window
// GET /api/v1/performance?period=weekly&start=2024-01-08
func (pc *PerformanceController) HandleGetPerformance(c *gin.Context) {
	periodType, start, end, err := pc.windowQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := pc.performance.Get(c.Request.Context(), periodType, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, report)
}

// GET /api/v1/performance/history?period=daily&limit=30
func (pc *PerformanceController) HandleListPerformance(c *gin.Context) {
	periodType, err := interfaces.ParsePeriodType(c.DefaultQuery("period", string(interfaces.PeriodDaily)))
	if err != nil {
		respondError(c, err)
		return
	}

	reports, err := pc.performance.List(c.Request.Context(), periodType, intQuery(c, "limit", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":   len(reports),
		"reports": reports,
	})
}

type windowRequest struct {
	Period string `json:"period"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

func (pc *PerformanceController) bindWindow(c *gin.Context) (interfaces.PeriodType, time.Time, time.Time, bool) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return "", time.Time{}, time.Time{}, false
	}
	if req.Period == "" {
		req.Period = string(interfaces.PeriodAllTime)
	}
	periodType, err := interfaces.ParsePeriodType(req.Period)
	if err != nil {
		respondError(c, err)
		return "", time.Time{}, time.Time{}, false
	}
	periodType, start, end, err := pc.window(periodType, req.Start, req.End)
	if err != nil {
		respondError(c, err)
		return "", time.Time{}, time.Time{}, false
	}
	return periodType, start, end, true
}

// HandleRecompute recomputes one window from the underlying rows
// POST /api/v1/performance/recompute
func (pc *PerformanceController) HandleRecompute(c *gin.Context) {
	periodType, start, end, ok := pc.bindWindow(c)
	if !ok {
		return
	}

	report, err := pc.performance.Recompute(c.Request.Context(), periodType, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, report)
}

// HandleVerify compares the stored aggregate with a fresh computation.
// A mismatch rebuilds every aggregate and answers 500.
// POST /api/v1/performance/verify
func (pc *PerformanceController) HandleVerify(c *gin.Context) {
	periodType, start, end, ok := pc.bindWindow(c)
	if !ok {
		return
	}

	report, err := pc.performance.Verify(c.Request.Context(), periodType, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, report)
}

// GET /api/v1/performance/setups?period=monthly&start=2024-01-01
func (pc *PerformanceController) HandleSetups(c *gin.Context) {
	periodType, start, end, err := pc.windowQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	setups, err := pc.performance.Setups(c.Request.Context(), periodType, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":  len(setups),
		"setups": setups,
	})
}

// GET /api/v1/performance/sessions?period=monthly&start=2024-01-01
func (pc *PerformanceController) HandleSessions(c *gin.Context) {
	periodType, start, end, err := pc.windowQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	sessions, err := pc.performance.Sessions(c.Request.Context(), periodType, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// GET /api/v1/performance/daily?limit=30
func (pc *PerformanceController) HandleDaily(c *gin.Context) {
	days, err := pc.performance.Daily(c.Request.Context(), intQuery(c, "limit", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count": len(days),
		"days":  days,
	})
}
