package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ict-ledger/interfaces"
)

// ActivityLogger journals alerts into one JSON file per trading day.
// It implements interfaces.AlertDispatcher.
type ActivityLogger struct {
	logger   *logrus.Logger
	logDir   string
	location *time.Location

	mu         sync.Mutex
	currentLog *DailyActivityLog
}

// DailyActivityLog represents a day's worth of ledger activity
type DailyActivityLog struct {
	Date            string             `json:"date"`
	SessionStart    time.Time          `json:"session_start"`
	LastUpdate      time.Time          `json:"last_update"`
	Summary         SessionSummary     `json:"summary"`
	Activities      []Activity         `json:"activities"`
	PositionsClosed []PositionActivity `json:"positions_closed"`
	RiskEvents      []Activity         `json:"risk_events"`
}

// SessionSummary provides high-level stats for the day
type SessionSummary struct {
	PositionsClosed int             `json:"positions_closed"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	BreakevenTrades int             `json:"breakeven_trades"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	LargestWin      decimal.Decimal `json:"largest_win"`
	LargestLoss     decimal.Decimal `json:"largest_loss"`
	EndingBalance   string          `json:"ending_balance,omitempty"`
	RiskEvents      int             `json:"risk_events"`
	HighPriority    int             `json:"high_priority_alerts"`
}

// Activity is a single journaled alert
type Activity struct {
	Timestamp  time.Time      `json:"timestamp"`
	AlertID    string         `json:"alert_id"`
	Type       string         `json:"type"`
	Priority   string         `json:"priority"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	PositionID string         `json:"position_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// PositionActivity records a closed position
type PositionActivity struct {
	Timestamp  time.Time       `json:"timestamp"`
	PositionID string          `json:"position_id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Status     string          `json:"status"`
	EntryPrice string          `json:"entry_price"`
	ExitPrice  string          `json:"exit_price"`
	PnL        decimal.Decimal `json:"pnl"`
	SetupType  string          `json:"setup_type,omitempty"`
}

// NewActivityLogger creates a new activity logger
func NewActivityLogger(logDir string, location *time.Location, logger *logrus.Logger) *ActivityLogger {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if location == nil {
		location = time.UTC
	}

	// Ensure log directory exists
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logger.WithError(err).Error("Failed to create activity log directory")
	}

	return &ActivityLogger{
		logger:   logger,
		logDir:   logDir,
		location: location,
	}
}

// Dispatch appends the alert to the journal of the day it was raised
func (al *ActivityLogger) Dispatch(_ context.Context, alert interfaces.Alert) error {
	al.mu.Lock()
	defer al.mu.Unlock()

	ts := alert.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	date := ts.In(al.location).Format(dayLayout)
	if err := al.openDay(date, ts); err != nil {
		return err
	}

	activity := Activity{
		Timestamp:  ts,
		AlertID:    alert.ID,
		Type:       alert.AlertType,
		Priority:   string(alert.Priority),
		Title:      alert.Title,
		Message:    alert.Message,
		PositionID: alert.RelatedPositionID,
		Details:    alert.Data,
	}
	log := al.currentLog
	log.Activities = append(log.Activities, activity)
	log.LastUpdate = ts
	if alert.Priority == interfaces.PriorityHigh {
		log.Summary.HighPriority++
	}

	switch alert.AlertType {
	case interfaces.AlertPositionClosed:
		al.recordClose(alert, ts)
	case interfaces.AlertRiskEvent:
		log.RiskEvents = append(log.RiskEvents, activity)
		log.Summary.RiskEvents++
	}

	al.logger.WithFields(logrus.Fields{
		"date":   date,
		"type":   alert.AlertType,
		"symbol": alert.Data["symbol"],
	}).Debug("Activity logged")

	return al.saveLog()
}

func (al *ActivityLogger) recordClose(alert interfaces.Alert, ts time.Time) {
	str := func(k string) string {
		if v, ok := alert.Data[k].(string); ok {
			return v
		}
		return ""
	}
	pnl, err := decimal.NewFromString(str("realized_pnl"))
	if err != nil {
		pnl = decimal.Zero
	}

	log := al.currentLog
	log.PositionsClosed = append(log.PositionsClosed, PositionActivity{
		Timestamp:  ts,
		PositionID: alert.RelatedPositionID,
		Symbol:     str("symbol"),
		Side:       str("side"),
		Status:     str("status"),
		EntryPrice: str("entry_price"),
		ExitPrice:  str("exit_price"),
		PnL:        pnl,
		SetupType:  str("setup_type"),
	})

	summary := &log.Summary
	summary.PositionsClosed++
	summary.TotalPnL = summary.TotalPnL.Add(pnl)
	if balance := str("balance"); balance != "" {
		summary.EndingBalance = balance
	}
	switch pnl.Sign() {
	case 1:
		summary.WinningTrades++
		if pnl.GreaterThan(summary.LargestWin) {
			summary.LargestWin = pnl
		}
	case -1:
		summary.LosingTrades++
		if pnl.LessThan(summary.LargestLoss) {
			summary.LargestLoss = pnl
		}
	default:
		summary.BreakevenTrades++
	}
}

// openDay makes the journal for date current, loading it from disk if it exists
func (al *ActivityLogger) openDay(date string, ts time.Time) error {
	if al.currentLog != nil && al.currentLog.Date == date {
		return nil
	}
	existing, err := al.GetLogForDate(date)
	if err == nil {
		al.currentLog = existing
		return nil
	}
	if !interfaces.IsKind(err, interfaces.KindNotFound) {
		return err
	}
	al.currentLog = &DailyActivityLog{
		Date:            date,
		SessionStart:    ts,
		Activities:      make([]Activity, 0),
		PositionsClosed: make([]PositionActivity, 0),
		RiskEvents:      make([]Activity, 0),
	}
	return nil
}

// GetLogForDate retrieves the log for a specific date
func (al *ActivityLogger) GetLogForDate(date string) (*DailyActivityLog, error) {
	if _, err := time.Parse(dayLayout, date); err != nil {
		return nil, interfaces.ValidationError("activity_log", "date must be YYYY-MM-DD, got %q", date)
	}
	filename := filepath.Join(al.logDir, fmt.Sprintf("activity_%s.json", date))

	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.NotFound("activity_log", "no activity log for %s", date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	var log DailyActivityLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse log: %w", err)
	}

	return &log, nil
}

// ListAvailableLogs returns the dates that have a journal, oldest first
func (al *ActivityLogger) ListAvailableLogs() ([]string, error) {
	files, err := os.ReadDir(al.logDir)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0)
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".json" {
			// activity_2025-11-17.json
			name := file.Name()
			if len(name) > 19 && name[:9] == "activity_" {
				dates = append(dates, name[9:len(name)-5])
			}
		}
	}
	sort.Strings(dates)

	return dates, nil
}

// saveLog saves the current log to disk
func (al *ActivityLogger) saveLog() error {
	if al.currentLog == nil {
		return fmt.Errorf("no active log to save")
	}

	filename := filepath.Join(al.logDir, fmt.Sprintf("activity_%s.json", al.currentLog.Date))

	data, err := json.MarshalIndent(al.currentLog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}

	return nil
}
