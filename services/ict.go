package services

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ict-ledger/interfaces"
)

// Confluence weights, in points out of 100
var confluenceWeights = struct {
	fvg, orderBlock, sweep, divergence, structure, killzone, bias, orderFlow int64
}{
	fvg:        20,
	orderBlock: 20,
	sweep:      15,
	divergence: 10,
	structure:  15,
	killzone:   10,
	bias:       5,
	orderFlow:  5,
}

var maxConfidence = decimal.NewFromInt(100)

// ScoreConfluence turns the ICT elements a detector saw into a 0-100
// confidence. The higher-timeframe bias only counts when it agrees with side.
func ScoreConfluence(el interfaces.ICTElements, side interfaces.Side) decimal.Decimal {
	w := confluenceWeights
	var score int64
	if el.FairValueGap {
		score += w.fvg
	}
	if el.OrderBlock {
		score += w.orderBlock
	}
	if el.LiquiditySweep {
		score += w.sweep
	}
	if el.DeltaDivergence {
		score += w.divergence
	}
	if el.StructureShift {
		score += w.structure
	}
	if el.KillzoneAligned {
		score += w.killzone
	}
	if biasAgrees(el.HigherTimeframeBias, side) {
		score += w.bias
	}
	if el.OrderFlowConfirmed {
		score += w.orderFlow
	}
	return decimal.Min(decimal.NewFromInt(score), maxConfidence)
}

func biasAgrees(bias string, side interfaces.Side) bool {
	switch strings.ToLower(strings.TrimSpace(bias)) {
	case "bullish":
		return side == interfaces.SideLong
	case "bearish":
		return side == interfaces.SideShort
	}
	return false
}

// killzone is a session window in minutes after New York midnight
type killzone struct {
	session    interfaces.Session
	start, end int
}

var killzones = []killzone{
	{interfaces.SessionLondon, 2 * 60, 5 * 60},
	{interfaces.SessionNYAM, 7 * 60, 11 * 60},
	{interfaces.SessionNYLunch, 11 * 60, 13*60 + 30},
	{interfaces.SessionNYPM, 13*60 + 30, 16 * 60},
	{interfaces.SessionAsia, 20 * 60, 24 * 60},
}

// ClassifySession maps an instant to its ICT killzone. Windows are defined in
// New York time; loc is the fallback when that zone is unavailable.
func ClassifySession(t time.Time, loc *time.Location) interfaces.Session {
	ny := newYork(loc)
	local := t.In(ny)
	minute := local.Hour()*60 + local.Minute()
	for _, kz := range killzones {
		if minute >= kz.start && minute < kz.end {
			return kz.session
		}
	}
	return interfaces.SessionOffHours
}

var loadNewYork = sync.OnceValues(func() (*time.Location, error) {
	return time.LoadLocation("America/New_York")
})

func newYork(fallback *time.Location) *time.Location {
	if ny, err := loadNewYork(); err == nil {
		return ny
	}
	if fallback != nil {
		return fallback
	}
	return time.UTC
}
