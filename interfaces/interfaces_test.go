package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to PositionStatus
		want     bool
	}{
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusStoppedOut, true},
		{StatusOpen, StatusTargetHit, true},
		{StatusOpen, StatusOpen, false},
		{StatusClosed, StatusOpen, false},
		{StatusStoppedOut, StatusClosed, false},
		{StatusTargetHit, StatusStoppedOut, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCloseReasonStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason CloseReason
		want   PositionStatus
		ok     bool
	}{
		{"", StatusClosed, true},
		{CloseManual, StatusClosed, true},
		{CloseStop, StatusStoppedOut, true},
		{CloseTarget, StatusTargetHit, true},
		{"liquidated", "", false},
	}
	for _, tt := range tests {
		got, ok := tt.reason.Status()
		assert.Equal(t, tt.ok, ok, string(tt.reason))
		assert.Equal(t, tt.want, got, string(tt.reason))
	}
}

func TestSideSign(t *testing.T) {
	t.Parallel()
	assert.True(t, SideLong.Valid())
	assert.False(t, Side("flat").Valid())
	assert.Equal(t, "1", SideLong.Sign().String())
	assert.Equal(t, "-1", SideShort.Sign().String())
}

func TestOutcomeFromPnL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, OutcomeWin, OutcomeFromPnL(decimal.NewFromInt(150)))
	assert.Equal(t, OutcomeLoss, OutcomeFromPnL(decimal.NewFromInt(-1)))
	assert.Equal(t, OutcomeBreakeven, OutcomeFromPnL(decimal.Zero))
}

func TestParsePeriodType(t *testing.T) {
	t.Parallel()

	p, err := ParsePeriodType(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, p)

	_, err = ParsePeriodType("hourly")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestProfitFactorJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(ProfitFactor{Infinite: true})
	require.NoError(t, err)
	assert.JSONEq(t, `"inf"`, string(b))

	b, err = json.Marshal(ProfitFactor{Value: decimal.RequireFromString("2.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `"2.5000"`, string(b))

	var pf ProfitFactor
	require.NoError(t, json.Unmarshal([]byte(`"inf"`), &pf))
	assert.True(t, pf.Infinite)
	require.NoError(t, json.Unmarshal([]byte(`"1.75"`), &pf))
	assert.False(t, pf.Infinite)
	assert.Equal(t, "1.75", pf.Value.String())
	assert.Error(t, json.Unmarshal([]byte(`3`), &pf))
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	decision := Decision{Approved: false, Rule: "portfolio_heat", Reason: "heat too high"}
	err := fmt.Errorf("open: %w", RiskRejection("open_position", decision))

	assert.Equal(t, KindRiskRejection, KindOf(err))
	assert.True(t, IsKind(err, KindRiskRejection))
	require.NotNil(t, DecisionOf(err))
	assert.Equal(t, "portfolio_heat", DecisionOf(err).Rule)
	assert.Contains(t, err.Error(), "heat too high")

	foreign := errors.New("disk full")
	assert.Equal(t, KindInternal, KindOf(foreign))
	assert.Nil(t, DecisionOf(foreign))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.False(t, IsKind(nil, KindInternal))

	wrapped := Internal("save", foreign)
	assert.Equal(t, KindInternal, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, foreign)
	assert.Nil(t, Internal("save", nil))

	nf := NotFound("get", "missing")
	assert.Same(t, nf, Internal("get", nf))
}
