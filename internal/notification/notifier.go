// Package notification delivers pipeline alerts (run summaries, fresh
// crossover signals, failures) to external channels.
package notification

import (
	"context"
	"fmt"
	"log"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is one outbound notification. Message is the human-readable line;
// Symbol, Report and Signal carry the structured run data for receivers that
// want numbers instead of prose.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`

	Symbol string             `json:"symbol,omitempty"`
	Report *model.Report      `json:"report,omitempty"`
	Signal *model.SignalEvent `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// RunCompleted formats a finished pipeline run into an alert.
func RunCompleted(symbol string, cfg backtest.Config, rep model.Report) Alert {
	winRate := "n/a"
	if rep.WinRatePct != nil {
		winRate = fmt.Sprintf("%.1f%%", *rep.WinRatePct)
	}
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s daily run complete", symbol),
		Message: fmt.Sprintf("SMA %d/%d: return %.2f%%, max drawdown %.2f%%, %d trades, win rate %s",
			cfg.ShortWindow, cfg.LongWindow, rep.TotalReturnPct, rep.MaxDrawdownPct, rep.TradeCount, winRate),
		Symbol: symbol,
		Report: &rep,
	}
}

// FreshSignal formats a crossover that fired on the latest bar. These are the
// alerts worth waking up for.
func FreshSignal(symbol string, sig model.SignalEvent) Alert {
	action := "golden cross, entering long"
	if sig.Kind == model.SignalExitToCash {
		action = "death cross, exiting to cash"
	}
	return Alert{
		Level:   AlertWarning,
		Title:   fmt.Sprintf("%s signal on %s", symbol, sig.Date.Format("2006-01-02")),
		Message: action,
		Symbol:  symbol,
		Signal:  &sig,
	}
}

// RunFailed formats a pipeline failure.
func RunFailed(symbol string, err error) Alert {
	return Alert{
		Level:   AlertCritical,
		Title:   fmt.Sprintf("%s daily run failed", symbol),
		Message: err.Error(),
		Symbol:  symbol,
	}
}
