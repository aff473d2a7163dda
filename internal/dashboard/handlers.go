package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/indicator"
	"index-systemv1/internal/metrics"
	"index-systemv1/internal/model"
	"index-systemv1/internal/store/sqlite"
	"index-systemv1/internal/strategy"
	"index-systemv1/internal/sweep"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// PriceSource reads the stored daily series for a symbol.
type PriceSource interface {
	ReadAll(symbol string) (model.Series, error)
}

// RunHistory reads the journal of completed backtest runs.
type RunHistory interface {
	RecentRuns(limit int) ([]sqlite.RunRecord, error)
}

// ReportCache caches reports keyed by run parameters. Both methods must be
// safe to call concurrently.
type ReportCache interface {
	GetReport(ctx context.Context, symbol string, cfg backtest.Config) (model.Report, bool)
	SetReport(ctx context.Context, symbol string, cfg backtest.Config, rep model.Report)
}

// Server holds the dashboard's dependencies. Cache, Runs and Metrics are
// optional; nil disables the corresponding behavior.
type Server struct {
	Hub      *Hub
	Prices   PriceSource
	Runs     RunHistory
	Cache    ReportCache
	Metrics  *metrics.Metrics
	Symbol   string
	Defaults backtest.Config

	start time.Time
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.start = time.Now()

	if s.Metrics != nil {
		s.Hub.onCount = func(n int) { s.Metrics.WSClients.Set(float64(n)) }
	}

	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/prices", s.handlePrices)
	mux.HandleFunc("/api/indicators", s.handleIndicators)
	mux.HandleFunc("/api/signals", s.handleSignals)
	mux.HandleFunc("/api/backtest", s.handleBacktest)
	mux.HandleFunc("/api/sweep", s.handleSweep)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[dashboard] ws upgrade error: %v", err)
		return
	}

	client := newClient(s.Hub, conn)
	s.Hub.register(client)

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	series, err := s.Prices.ReadAll(s.symbol(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	limit := intParam(r, "limit", 0)
	if limit > 0 && limit < len(series) {
		series = series[len(series)-limit:]
	}
	json.NewEncoder(w).Encode(series)
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	windows := indicator.DefaultWindows
	if raw := r.URL.Query().Get("windows"); raw != "" {
		windows = nil
		for _, part := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "windows must be positive integers")
				return
			}
			windows = append(windows, n)
		}
	}

	eng, err := indicator.NewEngine(windows)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := s.Prices.ReadAll(s.symbol(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := series.Validate(); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"symbol":  s.symbol(r),
		"windows": eng.Windows(),
		"lines":   eng.Compute(series),
	})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	cfg, err := s.configFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := s.Prices.ReadAll(s.symbol(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := series.Validate(); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	short := indicator.ComputeSMA(series, cfg.ShortWindow)
	long := indicator.ComputeSMA(series, cfg.LongWindow)
	signals, err := strategy.GenerateSignals(series, short, long)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if signals == nil {
		signals = []model.SignalEvent{}
	}
	json.NewEncoder(w).Encode(signals)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	cfg, err := s.configFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	symbol := s.symbol(r)

	if s.Cache != nil {
		if rep, ok := s.Cache.GetReport(r.Context(), symbol, cfg); ok {
			if s.Metrics != nil {
				s.Metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
			}
			json.NewEncoder(w).Encode(map[string]any{"symbol": symbol, "config": cfg, "report": rep, "cached": true})
			return
		}
		if s.Metrics != nil {
			s.Metrics.CacheHitsTotal.WithLabelValues("miss").Inc()
		}
	}

	series, err := s.Prices.ReadAll(symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start := time.Now()
	out, err := backtest.Run(series, cfg)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.BacktestErrors.Inc()
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	if s.Metrics != nil {
		s.Metrics.BacktestsTotal.Inc()
		s.Metrics.BacktestDur.Observe(time.Since(start).Seconds())
	}
	if s.Cache != nil {
		s.Cache.SetReport(r.Context(), symbol, cfg, out.Report)
	}

	json.NewEncoder(w).Encode(map[string]any{
		"symbol":  symbol,
		"config":  cfg,
		"report":  out.Report,
		"signals": out.Signals,
		"trades":  out.Result.Trades,
		"ledger":  out.Result.Ledger,
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	shorts, err := windowList(r.URL.Query().Get("shorts"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "shorts: "+err.Error())
		return
	}
	longs, err := windowList(r.URL.Query().Get("longs"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "longs: "+err.Error())
		return
	}

	series, err := s.Prices.ReadAll(s.symbol(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	spec := sweep.Spec{ShortWindows: shorts, LongWindows: longs, Base: s.Defaults}
	outcomes, err := sweep.Run(r.Context(), series, spec)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if s.Metrics != nil {
		s.Metrics.SweepCellsTotal.Add(float64(len(outcomes)))
	}

	best, _ := sweep.Best(outcomes)
	json.NewEncoder(w).Encode(map[string]any{
		"symbol":   s.symbol(r),
		"outcomes": outcomes,
		"best":     best,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")

	if s.Runs == nil {
		json.NewEncoder(w).Encode([]sqlite.RunRecord{})
		return
	}
	limit := intParam(r, "limit", 20)
	runs, err := s.Runs.RecentRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []sqlite.RunRecord{}
	}
	json.NewEncoder(w).Encode(runs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"symbol":     s.Symbol,
		"ws_clients": s.Hub.ClientCount(),
		"uptime_sec": int64(time.Since(s.start).Seconds()),
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// symbol resolves the request's symbol, defaulting to the configured one.
func (s *Server) symbol(r *http.Request) string {
	if sym := r.URL.Query().Get("symbol"); sym != "" {
		return sym
	}
	return s.Symbol
}

// configFrom merges query overrides onto the configured defaults.
func (s *Server) configFrom(r *http.Request) (backtest.Config, error) {
	cfg := s.Defaults
	q := r.URL.Query()

	var err error
	if cfg.ShortWindow, err = overrideInt(q.Get("short"), cfg.ShortWindow); err != nil {
		return cfg, err
	}
	if cfg.LongWindow, err = overrideInt(q.Get("long"), cfg.LongWindow); err != nil {
		return cfg, err
	}
	if raw := q.Get("capital"); raw != "" {
		if cfg.StartingCapital, err = strconv.ParseFloat(raw, 64); err != nil {
			return cfg, err
		}
	}
	if cfg.ExecutionLag, err = overrideInt(q.Get("lag"), cfg.ExecutionLag); err != nil {
		return cfg, err
	}
	if raw := q.Get("commission"); raw != "" {
		if cfg.CommissionRate, err = strconv.ParseFloat(raw, 64); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func overrideInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func windowList(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return def
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps engine errors to HTTP codes: bad parameters are the
// caller's fault, bad data is ours.
func statusFor(err error) int {
	switch {
	case isConfigError(err):
		return http.StatusBadRequest
	case isDataError(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
