// cmd/pipeline is the daily service: it fetches index bars, lands them in
// the warehouse and the local mirror, reruns the crossover backtest over the
// full history, and publishes the results. It runs once per trading day at
// the configured hour, or once immediately with --once.
//
// Usage:
//
//	go run ./cmd/pipeline            # scheduled daily runs
//	go run ./cmd/pipeline --once     # single run, then exit
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"index-systemv1/config"
	"index-systemv1/internal/ingest"
	"index-systemv1/internal/logger"
	"index-systemv1/internal/metrics"
	"index-systemv1/internal/notification"
	"index-systemv1/internal/pipeline"
	"index-systemv1/internal/schedule"
	"index-systemv1/internal/store/postgres"
	"index-systemv1/internal/store/rediscache"
	sqlitestore "index-systemv1/internal/store/sqlite"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	slg := logger.Init("pipeline", slog.LevelInfo)
	cfg := config.Load()

	btCfg := cfg.Backtest()
	if err := btCfg.Validate(); err != nil {
		log.Fatalf("[pipeline] invalid backtest config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slg.Info("shutdown signal received")
		cancel()
	}()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Local mirror ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	mirror, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[pipeline] sqlite init failed: %v", err)
	}
	defer mirror.Close()

	// ---- Warehouse (optional) ----
	var warehouse *postgres.Store
	if cfg.DatabaseURL != "" {
		warehouse, err = postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[pipeline] postgres init failed: %v", err)
		}
		defer warehouse.Close()
	} else {
		slg.Warn("DATABASE_URL not set, running without the warehouse")
	}

	// ---- Result cache (optional) ----
	var cache *rediscache.Cache
	if cfg.RedisAddr != "" {
		cache, err = rediscache.New(rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			slg.Warn("redis init failed, continuing without the cache", "error", err)
		} else {
			defer cache.Close()
		}
	}

	// ---- Liveness checks ----
	var pgDB *sql.DB
	if warehouse != nil {
		pgDB = warehouse.DB()
	}
	var rdb *goredis.Client
	if cache != nil {
		rdb = cache.Client()
	}
	health.StartLivenessChecker(ctx, pgDB, mirror.DB(), rdb, 15*time.Second)

	// ---- Notifier ----
	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.WebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
	}

	p := &pipeline.Pipeline{
		Client: ingest.NewClient(ingest.Options{
			BaseURL: cfg.ProviderBaseURL,
			Logger:  slg,
		}),
		Warehouse: warehouse,
		Mirror:    mirror,
		Cache:     cache,
		Notifier:  notifier,
		Metrics:   prom,
		Symbol:    cfg.Symbol,
		Cfg:       btCfg,
		CSVPath:   cfg.CSVExportPath,
		CSVRows:   cfg.CSVExportRows,
		Log:       slg,
	}

	runFn := func(ctx context.Context) error {
		_, err := p.RunOnce(ctx)
		if err == nil {
			health.SetLastRunAt(time.Now())
			prom.ScheduledRuns.Inc()
		}
		return err
	}

	if *once {
		if err := runFn(ctx); err != nil {
			log.Fatalf("[pipeline] run failed: %v", err)
		}
		return
	}

	slg.Info("starting scheduler",
		"symbol", cfg.Symbol,
		"run_at", time.Date(0, 1, 1, cfg.RunHour, cfg.RunMinute, 0, 0, schedule.ET).Format("15:04 MST"),
	)
	sched := &schedule.Scheduler{Hour: cfg.RunHour, Minute: cfg.RunMinute}
	sched.Run(ctx, runFn)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
}
