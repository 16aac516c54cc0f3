package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"gorm.io/datatypes"

	"ict-ledger/database"
	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// dispatchAlert notifies after a ledger commit. Failures are logged only.
func dispatchAlert(ctx context.Context, d interfaces.AlertDispatcher, alert interfaces.Alert, logger *logrus.Logger) {
	if d == nil {
		return
	}
	if alert.ID == "" {
		alert.ID = database.NewID(database.PrefixAlert)
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if err := d.Dispatch(ctx, alert); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"alert_id":   alert.ID,
			"alert_type": alert.AlertType,
		}).Error("Failed to dispatch alert")
	}
}

func riskEventAlert(ev *interfaces.RiskEvent) interfaces.Alert {
	priority := interfaces.PriorityLow
	switch ev.Severity {
	case interfaces.SeverityCritical:
		priority = interfaces.PriorityHigh
	case interfaces.SeverityWarning:
		priority = interfaces.PriorityMedium
	}
	return interfaces.Alert{
		Title:             "Risk event: " + strings.ReplaceAll(string(ev.Type), "_", " "),
		Message:           ev.ActionTaken,
		Priority:          priority,
		AlertType:         interfaces.AlertRiskEvent,
		RelatedPositionID: ev.PositionID,
		Data: map[string]any{
			"risk_event_id":   ev.ID,
			"type":            string(ev.Type),
			"severity":        string(ev.Severity),
			"triggered_value": ev.TriggeredValue.String(),
			"limit_value":     ev.LimitValue.String(),
			"symbol":          ev.Symbol,
			"balance":         ev.Account.Balance.String(),
			"daily_pnl":       ev.Account.DailyPnL.String(),
		},
		CreatedAt: ev.CreatedAt,
	}
}

func positionClosedAlert(p *interfaces.Position, acct interfaces.AccountSnapshot) interfaces.Alert {
	pnl := decimal.Zero
	if p.RealizedPnL != nil {
		pnl = *p.RealizedPnL
	}
	priority := interfaces.PriorityLow
	if !pnl.IsPositive() {
		priority = interfaces.PriorityMedium
	}
	exit := ""
	if p.ExitPrice != nil {
		exit = p.ExitPrice.String()
	}
	createdAt := time.Now().UTC()
	if p.ExitTime != nil {
		createdAt = *p.ExitTime
	}
	return interfaces.Alert{
		Title: fmt.Sprintf("%s %s %s", p.Symbol, strings.ToUpper(string(p.Side)), strings.ReplaceAll(string(p.Status), "_", " ")),
		Message: fmt.Sprintf("%s %s closed at %s for %s (balance %s)",
			p.Symbol, p.Side, exit, pnl.StringFixed(2), acct.Balance.StringFixed(2)),
		Priority:          priority,
		AlertType:         interfaces.AlertPositionClosed,
		RelatedPositionID: p.ID,
		Data: map[string]any{
			"symbol":             p.Symbol,
			"side":               string(p.Side),
			"status":             string(p.Status),
			"entry_price":        p.EntryPrice.String(),
			"exit_price":         exit,
			"realized_pnl":       pnl.String(),
			"outcome":            string(interfaces.OutcomeFromPnL(pnl)),
			"setup_type":         string(p.SetupType),
			"balance":            acct.Balance.String(),
			"daily_pnl":          acct.DailyPnL.String(),
			"consecutive_losses": acct.ConsecutiveLosses,
		},
		CreatedAt: createdAt,
	}
}

// StoreDispatcher persists alerts so the dashboard can list and acknowledge them
type StoreDispatcher struct {
	storage *database.LocalStorage
}

func NewStoreDispatcher(storage *database.LocalStorage) *StoreDispatcher {
	return &StoreDispatcher{storage: storage}
}

func (d *StoreDispatcher) Dispatch(ctx context.Context, alert interfaces.Alert) error {
	row := &models.DBAlert{
		AlertID:           alert.ID,
		Title:             alert.Title,
		Message:           alert.Message,
		Priority:          string(alert.Priority),
		AlertType:         alert.AlertType,
		RelatedPositionID: alert.RelatedPositionID,
		Data:              datatypes.JSONMap(alert.Data),
		Acknowledged:      alert.Acknowledged,
	}
	row.CreatedAt = alert.CreatedAt.UTC()
	return d.storage.SaveAlert(ctx, row)
}

// List returns stored alerts newest first
func (d *StoreDispatcher) List(ctx context.Context, unackedOnly bool, limit int) ([]interfaces.Alert, error) {
	rows, err := d.storage.ListAlerts(ctx, unackedOnly, limit)
	if err != nil {
		return nil, interfaces.Internal("list_alerts", err)
	}
	alerts := make([]interfaces.Alert, len(rows))
	for i, row := range rows {
		alerts[i] = dbToAlert(row)
	}
	return alerts, nil
}

// Acknowledge marks an alert as seen
func (d *StoreDispatcher) Acknowledge(ctx context.Context, alertID string) error {
	return interfaces.Internal("acknowledge_alert", d.storage.AcknowledgeAlert(ctx, alertID, time.Now()))
}

// LogDispatcher writes alerts to the process log
type LogDispatcher struct {
	logger *logrus.Logger
}

func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, alert interfaces.Alert) error {
	entry := d.logger.WithFields(logrus.Fields{
		"alert_id":    alert.ID,
		"alert_type":  alert.AlertType,
		"priority":    alert.Priority,
		"position_id": alert.RelatedPositionID,
	})
	switch alert.Priority {
	case interfaces.PriorityHigh:
		entry.Warn(alert.Title + ": " + alert.Message)
	default:
		entry.Info(alert.Title + ": " + alert.Message)
	}
	return nil
}

// SlackDispatcher posts alerts to a Slack incoming webhook
type SlackDispatcher struct {
	webhookURL  string
	minPriority interfaces.AlertPriority
	post        func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

func NewSlackDispatcher(webhookURL string, minPriority interfaces.AlertPriority) *SlackDispatcher {
	if minPriority == "" {
		minPriority = interfaces.PriorityLow
	}
	return &SlackDispatcher{
		webhookURL:  webhookURL,
		minPriority: minPriority,
		post:        slack.PostWebhookContext,
	}
}

var priorityRank = map[interfaces.AlertPriority]int{
	interfaces.PriorityLow:    0,
	interfaces.PriorityMedium: 1,
	interfaces.PriorityHigh:   2,
}

var priorityColor = map[interfaces.AlertPriority]string{
	interfaces.PriorityLow:    "good",
	interfaces.PriorityMedium: "warning",
	interfaces.PriorityHigh:   "danger",
}

func (d *SlackDispatcher) Dispatch(ctx context.Context, alert interfaces.Alert) error {
	if priorityRank[alert.Priority] < priorityRank[d.minPriority] {
		return nil
	}

	keys := make([]string, 0, len(alert.Data))
	for k := range alert.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]slack.AttachmentField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, slack.AttachmentField{
			Title: k,
			Value: fmt.Sprint(alert.Data[k]),
			Short: true,
		})
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Priority)), alert.Title),
		Attachments: []slack.Attachment{{
			Color:  priorityColor[alert.Priority],
			Text:   alert.Message,
			Fields: fields,
			Footer: alert.AlertType + " " + alert.ID,
		}},
	}
	if err := d.post(ctx, d.webhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// MultiDispatcher fans an alert out to every dispatcher and joins their errors
type MultiDispatcher []interfaces.AlertDispatcher

func (m MultiDispatcher) Dispatch(ctx context.Context, alert interfaces.Alert) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
