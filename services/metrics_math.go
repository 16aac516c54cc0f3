package services

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// Aggregates are stored at this many decimal places
const statPrecision = 6

// tradeSample is what the aggregator needs from one closed position
type tradeSample struct {
	PnL        decimal.Decimal
	RiskAmount decimal.Decimal
	PlannedRR  decimal.Decimal
}

func sampleFromPosition(row *models.DBPosition) tradeSample {
	pnl := decimal.Zero
	if row.RealizedPnL != nil {
		pnl = *row.RealizedPnL
	}
	return tradeSample{PnL: pnl, RiskAmount: row.RiskAmount, PlannedRR: row.RiskRewardRatio}
}

// computeTradeStats summarises trades in close order. Breakevens count as
// trades but not in the win-rate denominator, and they do not break streaks.
// Losses are reported as negative amounts.
func computeTradeStats(trades []tradeSample) interfaces.TradeStats {
	s := interfaces.TradeStats{TotalTrades: len(trades)}

	var (
		rrSum, rMultipleSum decimal.Decimal
		rMultiples          int
		winStreak           int
		lossStreak          int
	)
	for _, t := range trades {
		s.NetPnL = s.NetPnL.Add(t.PnL)
		rrSum = rrSum.Add(t.PlannedRR)
		if t.RiskAmount.IsPositive() {
			rMultipleSum = rMultipleSum.Add(t.PnL.Div(t.RiskAmount))
			rMultiples++
		}

		switch t.PnL.Sign() {
		case 1:
			s.Wins++
			s.GrossProfit = s.GrossProfit.Add(t.PnL)
			if t.PnL.GreaterThan(s.LargestWin) {
				s.LargestWin = t.PnL
			}
			winStreak++
			lossStreak = 0
		case -1:
			s.Losses++
			s.GrossLoss = s.GrossLoss.Add(t.PnL)
			if t.PnL.LessThan(s.LargestLoss) {
				s.LargestLoss = t.PnL
			}
			lossStreak++
			winStreak = 0
		default:
			s.Breakevens++
		}
		s.MaxWinStreak = max(s.MaxWinStreak, winStreak)
		s.MaxLossStreak = max(s.MaxLossStreak, lossStreak)
	}

	s.WinRate = ratio(int64(s.Wins), int64(s.Wins+s.Losses))
	s.ProfitFactor = profitFactor(s.GrossProfit, s.GrossLoss)
	s.AverageWin = mean(s.GrossProfit, s.Wins)
	s.AverageLoss = mean(s.GrossLoss, s.Losses)
	s.AverageRR = mean(rrSum, s.TotalTrades)
	s.AverageRMultiple = mean(rMultipleSum, rMultiples)
	s.Expectancy = mean(s.NetPnL, s.TotalTrades)
	return s
}

// profitFactor is gross profit over |gross loss|, infinite when only
// profit exists and zero when neither does
func profitFactor(grossProfit, grossLoss decimal.Decimal) interfaces.ProfitFactor {
	if grossLoss.IsZero() {
		if grossProfit.IsPositive() {
			return interfaces.ProfitFactor{Infinite: true}
		}
		return interfaces.ProfitFactor{Value: decimal.Zero}
	}
	return interfaces.ProfitFactor{Value: grossProfit.DivRound(grossLoss.Abs(), statPrecision)}
}

func computeSignalStats(signals []*models.DBSignal) interfaces.SignalStats {
	s := interfaces.SignalStats{SignalCount: len(signals)}
	confidence := decimal.Zero
	for _, sig := range signals {
		confidence = confidence.Add(sig.Confidence)
		switch interfaces.SignalOutcome(sig.Outcome) {
		case interfaces.OutcomeWin:
			s.SignalWins++
		case interfaces.OutcomeLoss:
			s.SignalLosses++
		case interfaces.OutcomeBreakeven:
			s.SignalBreakeven++
		default:
			s.SignalPending++
		}
	}
	s.SignalWinRate = ratio(int64(s.SignalWins), int64(s.SignalWins+s.SignalLosses))
	s.AvgConfidence = mean(confidence, s.SignalCount)
	return s
}

// drawdown walks the balance path from start and returns the largest
// peak-to-trough fall, absolute and as a fraction of the peak
func drawdown(start decimal.Decimal, balances []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	peak := start
	maxDD, maxPct := decimal.Zero, decimal.Zero
	for _, b := range balances {
		if b.GreaterThan(peak) {
			peak = b
			continue
		}
		dd := peak.Sub(b)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			if peak.IsPositive() {
				maxPct = dd.DivRound(peak, statPrecision)
			}
		}
	}
	return maxDD, maxPct
}

// tradeReturns are per-trade returns: change over the balance before it
func tradeReturns(points []*models.DBEquityCurve) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if p.ChangeType != interfaces.EquityTradeClose {
			continue
		}
		before := p.Balance.Sub(p.ChangeAmount)
		if !before.IsPositive() {
			continue
		}
		out = append(out, p.ChangeAmount.Div(before).InexactFloat64())
	}
	return out
}

// sharpeSortino computes both ratios over per-trade excess returns. Fewer
// than two returns, or zero dispersion, yields zero rather than NaN or Inf.
func sharpeSortino(returns []float64, riskFree float64) (decimal.Decimal, decimal.Decimal) {
	if len(returns) < 2 {
		return decimal.Zero, decimal.Zero
	}
	excess := make(stats.Float64Data, len(returns))
	downside := make(stats.Float64Data, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFree
		downside[i] = math.Min(excess[i], 0)
	}

	avg, err := stats.Mean(excess)
	if err != nil {
		return decimal.Zero, decimal.Zero
	}

	sharpe := 0.0
	if sd, err := stats.StandardDeviationSample(excess); err == nil && sd > 0 {
		sharpe = avg / sd
	}

	sortino := 0.0
	if dd, err := stats.Mean(squares(downside)); err == nil && dd > 0 {
		sortino = avg / math.Sqrt(dd)
	}
	return finite(sharpe), finite(sortino)
}

func squares(xs stats.Float64Data) stats.Float64Data {
	out := make(stats.Float64Data, len(xs))
	for i, x := range xs {
		out[i] = x * x
	}
	return out
}

func finite(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f).Round(statPrecision)
}

func ratio(num, den int64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), statPrecision)
}

func mean(sum decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(int64(n)), statPrecision)
}
