package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ict-ledger/interfaces"
)

func TestStrategyServiceSaveAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := NewStrategyService(f.storage, quietLogger())

	saved, err := svc.Save(f.ctx, interfaces.StrategyConfig{
		Name:    " nq-fvg ",
		Kind:    interfaces.StrategyICTScalp,
		Enabled: true,
		ICTScalp: &interfaces.ICTScalpParams{
			MinGapTicks:   4,
			MinConfidence: d("60"),
			Sessions:      []interfaces.Session{interfaces.SessionNYAM},
			TargetR:       d("2"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "nq-fvg", saved.Name)
	require.NotNil(t, saved.ICTScalp)
	assert.Equal(t, 4, saved.ICTScalp.MinGapTicks)

	// Saving again by name replaces the variant
	_, err = svc.Save(f.ctx, interfaces.StrategyConfig{
		Name:       "nq-fvg",
		Kind:       interfaces.StrategyOrderBlock,
		OrderBlock: &interfaces.OrderBlockParams{LookbackBars: 20, MaxRetests: 1},
	})
	require.NoError(t, err)

	all, err := svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, interfaces.StrategyOrderBlock, all[0].Kind)
	assert.Nil(t, all[0].ICTScalp)
	assert.False(t, all[0].Enabled)

	_, err = svc.Get(f.ctx, "missing")
	assert.Equal(t, interfaces.KindNotFound, interfaces.KindOf(err))
}

func TestStrategyServiceRejectsMismatchedVariant(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := NewStrategyService(f.storage, quietLogger())

	tests := []interfaces.StrategyConfig{
		{Name: "", Kind: interfaces.StrategyICTScalp, ICTScalp: &interfaces.ICTScalpParams{}},
		{Name: "a", Kind: interfaces.StrategyICTScalp, OrderBlock: &interfaces.OrderBlockParams{}},
		{Name: "b", Kind: interfaces.StrategySweepReversal},
		{Name: "c", Kind: "grid", SweepReversal: &interfaces.SweepReversalParams{}},
		{
			Name: "d", Kind: interfaces.StrategyOrderBlock,
			OrderBlock:    &interfaces.OrderBlockParams{},
			SweepReversal: &interfaces.SweepReversalParams{},
		},
	}
	for i, cfg := range tests {
		_, err := svc.Save(f.ctx, cfg)
		assert.Equal(t, interfaces.KindValidation, interfaces.KindOf(err), "case %d", i)
	}
}
