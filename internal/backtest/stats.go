package backtest

import (
	"errors"
	"math"

	"index-systemv1/internal/model"
)

// Arithmetic errors. A zero-equity baseline is reported explicitly rather
// than letting NaN or Inf leak into the report; callers must be able to
// tell "no data" from "strategy lost everything".
var (
	ErrEmptyLedger  = errors.New("ledger is empty")
	ErrZeroBaseline = errors.New("starting equity is zero")
)

// tradingDaysPerYear annualizes the Sharpe ratio of daily returns.
const tradingDaysPerYear = 252

// ComputeReport reduces an equity curve and its executed trades to summary
// statistics.
//
// TradeCount counts executed entries; an open position at series end counts
// as a trade but not as a completed round trip. Win rate covers completed
// round trips only, compared at executed fill prices, and is nil when there
// are none. Max drawdown is reported as a positive magnitude and is exactly
// zero for a non-decreasing curve.
func ComputeReport(res Result) (model.Report, error) {
	if len(res.Ledger) == 0 {
		return model.Report{}, ErrEmptyLedger
	}
	base := res.Ledger[0].Equity
	if base == 0 {
		return model.Report{}, ErrZeroBaseline
	}
	last := res.Ledger[len(res.Ledger)-1].Equity

	rep := model.Report{
		TotalReturnPct: (last - base) / base * 100,
		TradeCount:     len(res.Trades),
	}

	peak := base
	maxDD := 0.0
	for _, e := range res.Ledger {
		if e.Equity > peak {
			peak = e.Equity
		}
		if dd := (peak - e.Equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	rep.MaxDrawdownPct = maxDD * 100

	wins, closed := 0, 0
	for _, t := range res.Trades {
		if t.Open {
			continue
		}
		closed++
		if t.ExitPrice > t.EntryPrice {
			wins++
		}
	}
	if closed > 0 {
		wr := float64(wins) / float64(closed) * 100
		rep.WinRatePct = &wr
	}

	if sr, ok := sharpe(res.Ledger); ok {
		rep.SharpeRatio = &sr
	}

	return rep, nil
}

// sharpe computes the annualized Sharpe ratio of daily equity returns with a
// zero risk-free rate. ok=false when fewer than two returns exist or the
// return variance is zero.
func sharpe(ledger []model.LedgerEntry) (float64, bool) {
	var returns []float64
	for i := 1; i < len(ledger); i++ {
		prev := ledger[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, (ledger[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0, false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0, false
	}

	return mean / std * math.Sqrt(tradingDaysPerYear), true
}
