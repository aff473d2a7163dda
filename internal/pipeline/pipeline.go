// Package pipeline wires the daily run together: fetch new bars, land them
// in the warehouse and the local mirror, rerun the backtest over the full
// history, and fan the results out to the export file, the cache, the
// dashboard, and the notifier.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/dashboard"
	"index-systemv1/internal/ingest"
	"index-systemv1/internal/logger"
	"index-systemv1/internal/metrics"
	"index-systemv1/internal/model"
	"index-systemv1/internal/notification"
	"index-systemv1/internal/store/csvfile"
	"index-systemv1/internal/store/postgres"
	"index-systemv1/internal/store/rediscache"
	"index-systemv1/internal/store/sqlite"
)

// refetchOverlap re-requests a week of already-stored history on every run.
// Providers restate recent bars; the overlap lets the mirror converge while
// the warehouse's append-only insert ignores the duplicates.
const refetchOverlap = 7 * 24 * time.Hour

// Pipeline holds one run's dependencies. Warehouse, Mirror, Cache, Hub,
// Notifier and Metrics are all optional; nil skips that stage.
type Pipeline struct {
	Client    *ingest.Client
	Warehouse *postgres.Store
	Mirror    *sqlite.Writer
	Cache     *rediscache.Cache
	Hub       *dashboard.Hub
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics

	Symbol  string
	Cfg     backtest.Config
	CSVPath string
	CSVRows int

	Log *slog.Logger
}

// RunOnce executes one full daily run and returns the backtest output.
func (p *Pipeline) RunOnce(ctx context.Context) (*backtest.RunOutput, error) {
	start := time.Now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(p.Symbol, start))
	log := p.logger().With(logger.LogWithTrace(ctx)...)

	out, err := p.run(ctx, log)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.BacktestErrors.Inc()
		}
		p.notify(ctx, notification.RunFailed(p.Symbol, err))
		return nil, err
	}

	if p.Metrics != nil {
		p.Metrics.BacktestsTotal.Inc()
		p.Metrics.BacktestDur.Observe(time.Since(start).Seconds())
		p.Metrics.LastRunUnixTime.SetToCurrentTime()
	}
	log.Info("daily run complete",
		"symbol", p.Symbol,
		"total_return_pct", out.Report.TotalReturnPct,
		"trades", out.Report.TradeCount,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger) (*backtest.RunOutput, error) {
	fetched, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if p.Metrics != nil {
		p.Metrics.RowsIngested.Add(float64(len(fetched)))
	}

	series, err := p.land(ctx, log, fetched)
	if err != nil {
		return nil, err
	}

	out, err := backtest.Run(series, p.Cfg)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	p.publish(ctx, log, series, out)
	return out, nil
}

// fetch downloads bars from the provider, overlapping the stored history by
// refetchOverlap.
func (p *Pipeline) fetch(ctx context.Context) (model.Series, error) {
	var from time.Time
	if last, ok := p.lastStored(ctx); ok {
		from = last.Add(-refetchOverlap)
	}

	start := time.Now()
	if p.Metrics != nil {
		p.Metrics.FetchesTotal.Inc()
	}
	series, err := p.Client.FetchDaily(ctx, p.Symbol, from, time.Time{})
	if p.Metrics != nil {
		p.Metrics.FetchDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.FetchErrors.Inc()
		}
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return series, nil
}

func (p *Pipeline) lastStored(ctx context.Context) (time.Time, bool) {
	if p.Warehouse != nil {
		if last, ok, err := p.Warehouse.LastDate(ctx, p.Symbol); err == nil && ok {
			return last, true
		}
	}
	if p.Mirror != nil {
		if last, ok, err := p.Mirror.LastDate(p.Symbol); err == nil && ok {
			return last, true
		}
	}
	return time.Time{}, false
}

// land writes the fetched bars to the stores and returns the series the
// backtest should run over: the warehouse's full history when available,
// the mirror's full history otherwise. Only a store-less pipeline falls back
// to the fetch result; with an incremental fetch that would cover just the
// overlap window and the long SMA would never warm up.
func (p *Pipeline) land(ctx context.Context, log *slog.Logger, fetched model.Series) (model.Series, error) {
	if p.Mirror != nil {
		start := time.Now()
		if err := p.Mirror.UpsertPrices(p.Symbol, fetched); err != nil {
			return nil, fmt.Errorf("mirror: %w", err)
		}
		if p.Metrics != nil {
			p.Metrics.SQLiteCommitDur.Observe(time.Since(start).Seconds())
		}
	}

	if p.Warehouse == nil {
		if p.Mirror != nil {
			series, err := p.Mirror.ReadAll(p.Symbol)
			if err != nil {
				return nil, fmt.Errorf("mirror read: %w", err)
			}
			return series, nil
		}
		return fetched, nil
	}

	start := time.Now()
	appended, err := p.Warehouse.AppendNew(ctx, p.Symbol, fetched)
	if err != nil {
		return nil, fmt.Errorf("warehouse: %w", err)
	}
	if p.Metrics != nil {
		p.Metrics.PostgresAppendDur.Observe(time.Since(start).Seconds())
		p.Metrics.RowsAppended.Add(float64(appended))
	}
	log.Info("landed bars", "symbol", p.Symbol, "fetched", len(fetched), "appended", appended)

	series, err := p.Warehouse.ReadAll(ctx, p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("warehouse read: %w", err)
	}
	return series, nil
}

// publish fans the finished run out to every optional sink.
func (p *Pipeline) publish(ctx context.Context, log *slog.Logger, series model.Series, out *backtest.RunOutput) {
	if p.CSVPath != "" {
		if err := csvfile.Export(p.CSVPath, series, p.CSVRows); err != nil {
			log.Warn("csv export failed", "path", p.CSVPath, "error", err)
		} else if p.Metrics != nil {
			p.Metrics.CSVExportsTotal.Inc()
		}
	}

	if p.Mirror != nil {
		if err := p.Mirror.RecordRun(p.Symbol, p.Cfg, out.Report); err != nil {
			log.Warn("run journal failed", "error", err)
		}
	}

	if p.Cache != nil {
		p.Cache.SetReport(ctx, p.Symbol, p.Cfg, out.Report)
		if last, ok := series.Last(); ok {
			p.Cache.SetLatest(ctx, p.Symbol, last)
		}
	}

	if p.Hub != nil {
		p.Hub.BroadcastRun(p.Symbol, p.Cfg, out)
	}

	p.notify(ctx, notification.RunCompleted(p.Symbol, p.Cfg, out.Report))
	if sig, ok := freshSignal(series, out); ok {
		p.notify(ctx, notification.FreshSignal(p.Symbol, sig))
	}
}

// freshSignal reports a crossover that fired on the newest bar.
func freshSignal(series model.Series, out *backtest.RunOutput) (model.SignalEvent, bool) {
	if len(out.Signals) == 0 || len(series) == 0 {
		return model.SignalEvent{}, false
	}
	last := out.Signals[len(out.Signals)-1]
	if last.Index == len(series)-1 {
		return last, true
	}
	return model.SignalEvent{}, false
}

func (p *Pipeline) notify(ctx context.Context, alert notification.Alert) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Send(ctx, alert); err != nil {
		p.logger().Warn("notification failed", "title", alert.Title, "error", err)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
