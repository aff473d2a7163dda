package model

// Report summarizes one backtest equity curve.
//
// WinRatePct is nil when no round trip completed; a strategy that never
// closed a position is reported as "no trades", not as a 0% win rate.
// SharpeRatio is nil when fewer than two daily returns exist or the return
// variance is zero.
type Report struct {
	TotalReturnPct float64  `json:"total_return_pct"`
	MaxDrawdownPct float64  `json:"max_drawdown_pct"` // magnitude, >= 0
	TradeCount     int      `json:"trade_count"`
	WinRatePct     *float64 `json:"win_rate_pct,omitempty"`
	SharpeRatio    *float64 `json:"sharpe_ratio,omitempty"`
}
