// cmd/dashboard serves the REST API and the websocket feed over the price
// mirror: /api/prices, /api/indicators, /api/signals, /api/backtest,
// /api/sweep, /api/runs and /ws.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"index-systemv1/config"
	"index-systemv1/internal/dashboard"
	"index-systemv1/internal/logger"
	"index-systemv1/internal/metrics"
	"index-systemv1/internal/store/rediscache"
	sqlitestore "index-systemv1/internal/store/sqlite"
)

func main() {
	slg := logger.Init("dashboard", slog.LevelInfo)
	cfg := config.Load()

	btCfg := cfg.Backtest()
	if err := btCfg.Validate(); err != nil {
		log.Fatalf("[dashboard] invalid backtest config: %v", err)
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

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[dashboard] sqlite open failed: %v", err)
	}
	defer reader.Close()

	hub := dashboard.NewHub()

	srv := &dashboard.Server{
		Hub:      hub,
		Prices:   reader,
		Runs:     reader,
		Metrics:  metrics.NewMetrics(),
		Symbol:   cfg.Symbol,
		Defaults: btCfg,
	}

	if cfg.RedisAddr != "" {
		cache, err := rediscache.New(rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			slg.Warn("redis init failed, serving without the cache", "error", err)
		} else {
			defer cache.Close()
			srv.Cache = cache
			go hub.RunPubSub(ctx, cache.Client(), cfg.Symbol)
		}
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:         cfg.DashboardAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slg.Info("dashboard listening", "addr", cfg.DashboardAddr, "symbol", cfg.Symbol)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[dashboard] server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slg.Error("shutdown failed", "error", err)
	}
	slg.Info("dashboard stopped")
}
