package dashboard

import (
	"errors"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/indicator"
	"index-systemv1/internal/model"
	"index-systemv1/internal/strategy"
	"index-systemv1/internal/sweep"
)

func isConfigError(err error) bool {
	return errors.Is(err, backtest.ErrBadWindow) ||
		errors.Is(err, backtest.ErrWindowOrder) ||
		errors.Is(err, backtest.ErrBadCapital) ||
		errors.Is(err, backtest.ErrBadLag) ||
		errors.Is(err, backtest.ErrBadCommission) ||
		errors.Is(err, indicator.ErrBadWindow) ||
		errors.Is(err, sweep.ErrEmptyGrid)
}

func isDataError(err error) bool {
	return errors.Is(err, model.ErrEmptySeries) ||
		errors.Is(err, model.ErrUnsortedSeries) ||
		errors.Is(err, model.ErrDuplicateDate) ||
		errors.Is(err, model.ErrNegativePrice) ||
		errors.Is(err, strategy.ErrLineMismatch)
}
