package backtest

import (
	"index-systemv1/internal/model"
)

// Result is the full outcome of one simulated run: the day-by-day ledger
// (the equity curve) and the trades that actually executed.
type Result struct {
	Ledger []model.LedgerEntry `json:"ledger"`
	Trades []model.Trade       `json:"trades"`
}

// Simulate replays the series day by day under the given signal events and
// returns the ledger and executed trades.
//
// A signal raised at index i fills at index i+lag at that bar's close;
// a signal observed at the close of day i can only be acted on at the next
// available price, which is what removes look-ahead bias. Fills that would
// land past the end of the series are dropped. Fills that do not match the
// position state at execution time are dropped too: the state machine is
// enforced over the executed timeline, not the signaled one, because lag can
// collide adjacent signals.
//
// Every index gets a ledger entry regardless of trading activity, so the
// equity curve has one value per trading day.
func Simulate(series model.Series, signals []model.SignalEvent, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(series) == 0 {
		return Result{}, model.ErrEmptySeries
	}

	// Execution schedule: series index → signal kind. Signal indices are
	// strictly increasing and the lag is constant, so fill indices are unique.
	fills := make(map[int]model.SignalKind, len(signals))
	for _, sig := range signals {
		j := sig.Index + cfg.ExecutionLag
		if j >= len(series) {
			continue // too late to ever fill
		}
		fills[j] = sig.Kind
	}

	cash := cfg.StartingCapital
	shares := 0.0
	long := false

	ledger := make([]model.LedgerEntry, 0, len(series))
	var trades []model.Trade

	for i, p := range series {
		if kind, ok := fills[i]; ok {
			switch {
			case kind == model.SignalEnterLong && !long && p.Close > 0:
				shares = cash * (1 - cfg.CommissionRate) / p.Close
				cash = 0
				long = true
				trades = append(trades, model.Trade{
					EntryIndex: i,
					EntryPrice: p.Close,
					Shares:     shares,
					ExitIndex:  -1,
					Open:       true,
				})
			case kind == model.SignalExitToCash && long:
				cash = shares * p.Close * (1 - cfg.CommissionRate)
				shares = 0
				long = false
				t := &trades[len(trades)-1]
				t.ExitIndex = i
				t.ExitPrice = p.Close
				t.Open = false
			}
			// Anything else is a state mismatch after lag reordering, so it is dropped.
		}

		ledger = append(ledger, model.LedgerEntry{
			Index:  i,
			Date:   p.Date,
			Cash:   cash,
			Shares: shares,
			Equity: cash + shares*p.Close,
		})
	}

	return Result{Ledger: ledger, Trades: trades}, nil
}
