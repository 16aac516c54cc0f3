package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ict-ledger/interfaces"
)

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, interfaces.Alert) error {
	return errors.New("webhook down")
}

func TestAlertDispatchFailureLeavesLedgerIntact(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.ledger.alerts = failingDispatcher{}

	p := f.open(t, longNQ("18000", "17990", "18025"))
	closed := f.close(t, p.ID, "17990")
	assert.Equal(t, interfaces.StatusClosed, closed.Status)
	assertDecimal(t, "9800", f.snapshot(t).Balance)
}

func TestStoreDispatcherListAndAcknowledge(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	store := NewStoreDispatcher(f.storage)

	at := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second"} {
		err := store.Dispatch(f.ctx, interfaces.Alert{
			ID:        []string{"alr_1", "alr_2"}[i],
			Title:     title,
			Priority:  interfaces.PriorityMedium,
			AlertType: interfaces.AlertRiskEvent,
			Data:      map[string]any{"symbol": "NQ"},
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	alerts, err := store.List(f.ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "second", alerts[0].Title)
	assert.Equal(t, "NQ", alerts[0].Data["symbol"])

	require.NoError(t, store.Acknowledge(f.ctx, "alr_1"))
	alerts, err = store.List(f.ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "alr_2", alerts[0].ID)

	err = store.Acknowledge(f.ctx, "alr_missing")
	assert.Equal(t, interfaces.KindNotFound, interfaces.KindOf(err))
}

func TestSlackDispatcherFiltersByPriority(t *testing.T) {
	t.Parallel()

	var posted []*slack.WebhookMessage
	d := NewSlackDispatcher("https://hooks.example/T000", interfaces.PriorityMedium)
	d.post = func(_ context.Context, url string, msg *slack.WebhookMessage) error {
		assert.Equal(t, "https://hooks.example/T000", url)
		posted = append(posted, msg)
		return nil
	}

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, interfaces.Alert{Title: "won", Priority: interfaces.PriorityLow}))
	assert.Empty(t, posted)

	require.NoError(t, d.Dispatch(ctx, interfaces.Alert{
		ID:        "alr_x",
		Title:     "Risk event: daily loss limit",
		Message:   "trading halted",
		Priority:  interfaces.PriorityHigh,
		AlertType: interfaces.AlertRiskEvent,
		Data:      map[string]any{"symbol": "NQ", "daily_pnl": "-600"},
	}))
	require.Len(t, posted, 1)
	msg := posted[0]
	assert.Equal(t, "[HIGH] Risk event: daily loss limit", msg.Text)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "danger", msg.Attachments[0].Color)
	require.Len(t, msg.Attachments[0].Fields, 2)
	assert.Equal(t, "daily_pnl", msg.Attachments[0].Fields[0].Title)

	d.post = func(context.Context, string, *slack.WebhookMessage) error { return errors.New("410 gone") }
	assert.Error(t, d.Dispatch(ctx, interfaces.Alert{Priority: interfaces.PriorityHigh}))
}

func TestMultiDispatcherJoinsErrors(t *testing.T) {
	t.Parallel()

	rec := &recordingDispatcher{}
	m := MultiDispatcher{failingDispatcher{}, nil, rec}
	err := m.Dispatch(context.Background(), interfaces.Alert{AlertType: interfaces.AlertPositionClosed})
	assert.ErrorContains(t, err, "webhook down")
	assert.Len(t, rec.ofType(interfaces.AlertPositionClosed), 1)
}

func TestRiskEventAlertPriority(t *testing.T) {
	t.Parallel()

	alert := riskEventAlert(&interfaces.RiskEvent{
		ID:             "rev_1",
		Type:           interfaces.RiskDailyLossLimit,
		Severity:       interfaces.SeverityCritical,
		TriggeredValue: d("600"),
		LimitValue:     d("500"),
	})
	assert.Equal(t, interfaces.PriorityHigh, alert.Priority)
	assert.Equal(t, interfaces.AlertRiskEvent, alert.AlertType)
	assert.Equal(t, "600", alert.Data["triggered_value"])
}
