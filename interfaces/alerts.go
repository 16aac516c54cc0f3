package interfaces

import (
	"context"
	"time"
)

// AlertPriority orders alerts for the consumer
type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
)

// Alert types
const (
	AlertRiskEvent          = "risk_event"
	AlertPositionClosed     = "position_closed"
	// AlertUnrealizedDrawdown warns when open losses would breach the daily limit
	AlertUnrealizedDrawdown = "unrealized_drawdown"
)

// Alert is the notification payload handed to an AlertDispatcher
type Alert struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Message           string         `json:"message"`
	Priority          AlertPriority  `json:"priority"`
	AlertType         string         `json:"alert_type"`
	RelatedPositionID string         `json:"related_position_id,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	Acknowledged      bool           `json:"acknowledged"`
}

// AlertDispatcher is notified of risk events and position closes.
// Dispatch runs after the ledger commit; failures never undo ledger state.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert Alert) error
}
