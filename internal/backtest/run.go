package backtest

import (
	"index-systemv1/internal/indicator"
	"index-systemv1/internal/model"
	"index-systemv1/internal/strategy"
)

// RunOutput carries every intermediate product of one full pipeline run, so
// callers (CLI, dashboard, sweep) can expose indicators and signals alongside
// the report without recomputing.
type RunOutput struct {
	Short   []indicator.Point   `json:"short"`
	Long    []indicator.Point   `json:"long"`
	Signals []model.SignalEvent `json:"signals"`
	Result  Result              `json:"result"`
	Report  model.Report        `json:"report"`
}

// Run executes the full pipeline for one series and configuration:
// indicators → signals → simulation → report. It validates the config and the
// series up front and fails fast; a failed run returns no partial output.
func Run(series model.Series, cfg Config) (*RunOutput, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	short := indicator.ComputeSMA(series, cfg.ShortWindow)
	long := indicator.ComputeSMA(series, cfg.LongWindow)

	signals, err := strategy.GenerateSignals(series, short, long)
	if err != nil {
		return nil, err
	}

	result, err := Simulate(series, signals, cfg)
	if err != nil {
		return nil, err
	}

	report, err := ComputeReport(result)
	if err != nil {
		return nil, err
	}

	return &RunOutput{
		Short:   short,
		Long:    long,
		Signals: signals,
		Result:  result,
		Report:  report,
	}, nil
}
