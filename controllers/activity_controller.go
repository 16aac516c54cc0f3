package controllers

import (
	"github.com/gin-gonic/gin"

	"ict-ledger/services"
)

// ActivityController serves stored alerts and the daily activity journal
type ActivityController struct {
	alerts         *services.StoreDispatcher
	activityLogger *services.ActivityLogger
}

// NewActivityController creates a new activity controller
func NewActivityController(alerts *services.StoreDispatcher, activityLogger *services.ActivityLogger) *ActivityController {
	return &ActivityController{
		alerts:         alerts,
		activityLogger: activityLogger,
	}
}

func (ac *ActivityController) Register(r gin.IRouter) {
	r.GET("/alerts", ac.HandleListAlerts)
	r.POST("/alerts/:id/ack", ac.HandleAcknowledgeAlert)
	r.GET("/activity", ac.HandleListActivityLogs)
	r.GET("/activity/:date", ac.HandleGetActivityByDate)
}

// HandleListAlerts returns stored alerts newest first
// GET /api/v1/alerts?unacked=true&limit=50
func (ac *ActivityController) HandleListAlerts(c *gin.Context) {
	unacked := c.Query("unacked") == "true"

	alerts, err := ac.alerts.List(c.Request.Context(), unacked, intQuery(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// POST /api/v1/alerts/:id/ack
func (ac *ActivityController) HandleAcknowledgeAlert(c *gin.Context) {
	if err := ac.alerts.Acknowledge(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"alert_id": c.Param("id"), "acknowledged": true})
}

// HandleGetActivityByDate returns the activity journal for a specific date
func (ac *ActivityController) HandleGetActivityByDate(c *gin.Context) {
	log, err := ac.activityLogger.GetLogForDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, log)
}

// HandleListActivityLogs returns list of available activity log dates
func (ac *ActivityController) HandleListActivityLogs(c *gin.Context) {
	dates, err := ac.activityLogger.ListAvailableLogs()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"dates": dates,
		"count": len(dates),
	})
}
