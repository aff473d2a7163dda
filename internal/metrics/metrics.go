package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	FetchesTotal    prometheus.Counter
	FetchErrors     prometheus.Counter
	FetchDur        prometheus.Histogram
	RowsIngested    prometheus.Counter
	RowsAppended    prometheus.Counter
	CSVExportsTotal prometheus.Counter

	BacktestsTotal  prometheus.Counter
	BacktestErrors  prometheus.Counter
	BacktestDur     prometheus.Histogram
	SweepCellsTotal prometheus.Counter

	SQLiteCommitDur   prometheus.Histogram
	PostgresAppendDur prometheus.Histogram
	CacheHitsTotal    *prometheus.CounterVec // labels: outcome=hit|miss

	WSClients       prometheus.Gauge
	ScheduledRuns   prometheus.Counter
	LastRunUnixTime prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_fetches_total",
			Help: "Total provider fetch attempts",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_fetch_errors_total",
			Help: "Provider fetches that failed after retries",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_fetch_duration_seconds",
			Help:    "Provider fetch latency including retries",
			Buckets: prometheus.DefBuckets,
		}),
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_rows_ingested_total",
			Help: "Rows surviving the cleaning stage",
		}),
		RowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_rows_appended_total",
			Help: "New rows appended to the warehouse",
		}),
		CSVExportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_csv_exports_total",
			Help: "CSV snapshot exports written",
		}),

		BacktestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_backtests_total",
			Help: "Backtest runs completed",
		}),
		BacktestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_backtest_errors_total",
			Help: "Backtest runs that failed validation or computation",
		}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_backtest_duration_seconds",
			Help:    "Full run latency (indicators through report)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		SweepCellsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_sweep_cells_total",
			Help: "Parameter sweep grid cells evaluated",
		}),

		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_sqlite_commit_duration_seconds",
			Help:    "SQLite batch commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		PostgresAppendDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_postgres_append_duration_seconds",
			Help:    "Warehouse append transaction latency",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_report_cache_requests_total",
			Help: "Report cache lookups by outcome",
		}, []string{"outcome"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_ws_clients",
			Help: "Connected dashboard WebSocket clients",
		}),
		ScheduledRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_scheduled_runs_total",
			Help: "Pipeline runs triggered by the scheduler",
		}),
		LastRunUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_last_run_timestamp_seconds",
			Help: "Unix time of the last completed pipeline run",
		}),
	}

	prometheus.MustRegister(
		m.FetchesTotal,
		m.FetchErrors,
		m.FetchDur,
		m.RowsIngested,
		m.RowsAppended,
		m.CSVExportsTotal,
		m.BacktestsTotal,
		m.BacktestErrors,
		m.BacktestDur,
		m.SweepCellsTotal,
		m.SQLiteCommitDur,
		m.PostgresAppendDur,
		m.CacheHitsTotal,
		m.WSClients,
		m.ScheduledRuns,
		m.LastRunUnixTime,
	)

	return m
}

// HealthStatus represents the pipeline's dependency health.
type HealthStatus struct {
	mu sync.RWMutex

	PostgresOK     bool      `json:"postgres_ok"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	RedisConnected bool      `json:"redis_connected"`
	LastRunAt      time.Time `json:"last_run_at"`

	PostgresLatencyMs float64   `json:"postgres_latency_ms"`
	SQLiteLatencyMs   float64   `json:"sqlite_latency_ms"`
	RedisLatencyMs    float64   `json:"redis_latency_ms"`
	LastCheckAt       time.Time `json:"last_check_at"`
	StartedAt         time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetLastRunAt(t time.Time) {
	h.mu.Lock()
	h.LastRunAt = t
	h.mu.Unlock()
}

// CheckPostgres pings the warehouse and records latency + connectivity.
func (h *HealthStatus) CheckPostgres(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.PostgresOK = err == nil
	h.PostgresLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the local mirror and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckRedis pings the cache and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies are
// skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, pg, lite *sql.DB, rdb *goredis.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if pg != nil {
					h.CheckPostgres(probeCtx, pg)
				}
				if lite != nil {
					h.CheckSQLite(probeCtx, lite)
				}
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.PostgresOK || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.PostgresOK && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}

	status := struct {
		Status            string  `json:"status"`
		Uptime            string  `json:"uptime"`
		PostgresOK        bool    `json:"postgres_ok"`
		PostgresLatencyMs float64 `json:"postgres_latency_ms"`
		SQLiteOK          bool    `json:"sqlite_ok"`
		SQLiteLatencyMs   float64 `json:"sqlite_latency_ms"`
		RedisConnected    bool    `json:"redis_connected"`
		RedisLatencyMs    float64 `json:"redis_latency_ms"`
		LastRunAt         string  `json:"last_run_at"`
		LastCheckAt       string  `json:"last_check_at"`
	}{
		Status:            overallStatus,
		Uptime:            time.Since(h.StartedAt).Round(time.Second).String(),
		PostgresOK:        h.PostgresOK,
		PostgresLatencyMs: h.PostgresLatencyMs,
		SQLiteOK:          h.SQLiteOK,
		SQLiteLatencyMs:   h.SQLiteLatencyMs,
		RedisConnected:    h.RedisConnected,
		RedisLatencyMs:    h.RedisLatencyMs,
		LastRunAt:         lastRun,
		LastCheckAt:       h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
