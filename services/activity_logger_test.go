package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ict-ledger/interfaces"
)

func closedAlert(at time.Time, pnl string) interfaces.Alert {
	return interfaces.Alert{
		ID:                "alr_" + pnl,
		Title:             "NQ LONG closed",
		Priority:          interfaces.PriorityLow,
		AlertType:         interfaces.AlertPositionClosed,
		RelatedPositionID: "pos_1",
		Data: map[string]any{
			"symbol":       "NQ",
			"side":         "long",
			"status":       "closed",
			"realized_pnl": pnl,
			"balance":      "10100",
		},
		CreatedAt: at,
	}
}

func TestActivityLoggerJournalsByTradingDay(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	dir := t.TempDir()
	al := NewActivityLogger(dir, ny, quietLogger())
	ctx := context.Background()

	// 01:30 UTC on the 6th is still the 5th in New York
	late := time.Date(2024, 3, 6, 1, 30, 0, 0, time.UTC)
	require.NoError(t, al.Dispatch(ctx, closedAlert(late, "250")))
	require.NoError(t, al.Dispatch(ctx, closedAlert(late.Add(time.Minute), "-100")))
	require.NoError(t, al.Dispatch(ctx, interfaces.Alert{
		ID:        "alr_risk",
		Priority:  interfaces.PriorityHigh,
		AlertType: interfaces.AlertRiskEvent,
		CreatedAt: late.Add(2 * time.Minute),
	}))

	log, err := al.GetLogForDate("2024-03-05")
	require.NoError(t, err)
	assert.Len(t, log.Activities, 3)
	assert.Len(t, log.PositionsClosed, 2)
	assert.Len(t, log.RiskEvents, 1)
	assert.Equal(t, 2, log.Summary.PositionsClosed)
	assert.Equal(t, 1, log.Summary.WinningTrades)
	assert.Equal(t, 1, log.Summary.LosingTrades)
	assert.Equal(t, 1, log.Summary.HighPriority)
	assertDecimal(t, "150", log.Summary.TotalPnL)
	assertDecimal(t, "-100", log.Summary.LargestLoss)
	assert.Equal(t, "10100", log.Summary.EndingBalance)

	_, err = os.Stat(filepath.Join(dir, "activity_2024-03-05.json"))
	require.NoError(t, err)

	// A fresh logger resumes the existing journal
	again := NewActivityLogger(dir, ny, quietLogger())
	require.NoError(t, again.Dispatch(ctx, closedAlert(late.Add(time.Hour), "0")))
	log, err = again.GetLogForDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, 3, log.Summary.PositionsClosed)
	assert.Equal(t, 1, log.Summary.BreakevenTrades)

	require.NoError(t, again.Dispatch(ctx, closedAlert(late.Add(24*time.Hour), "10")))
	dates, err := again.ListAvailableLogs()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-05", "2024-03-06"}, dates)
}

func TestActivityLoggerGetLogErrors(t *testing.T) {
	t.Parallel()

	al := NewActivityLogger(t.TempDir(), time.UTC, quietLogger())

	_, err := al.GetLogForDate("03/05/2024")
	assert.Equal(t, interfaces.KindValidation, interfaces.KindOf(err))

	_, err = al.GetLogForDate("2024-03-05")
	assert.Equal(t, interfaces.KindNotFound, interfaces.KindOf(err))
}
