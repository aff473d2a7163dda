package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"
)

func TestRunCompletedFormatting(t *testing.T) {
	wr := 66.7
	cfg := backtest.Config{ShortWindow: 50, LongWindow: 200}
	rep := model.Report{TotalReturnPct: 12.345, MaxDrawdownPct: 4.2, TradeCount: 3, WinRatePct: &wr}

	a := RunCompleted("^GSPC", cfg, rep)
	if a.Level != AlertInfo {
		t.Errorf("level = %s, want INFO", a.Level)
	}
	for _, want := range []string{"50/200", "12.35%", "3 trades", "66.7%"} {
		if !strings.Contains(a.Message, want) {
			t.Errorf("message %q missing %q", a.Message, want)
		}
	}

	rep.WinRatePct = nil
	if a := RunCompleted("^GSPC", cfg, rep); !strings.Contains(a.Message, "n/a") {
		t.Errorf("message %q should report win rate n/a", a.Message)
	}
}

func TestFreshSignalFormatting(t *testing.T) {
	d := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	enter := FreshSignal("^GSPC", model.SignalEvent{Date: d, Kind: model.SignalEnterLong})
	if !strings.Contains(enter.Message, "entering long") || !strings.Contains(enter.Title, "2026-03-03") {
		t.Errorf("unexpected alert: %+v", enter)
	}

	exit := FreshSignal("^GSPC", model.SignalEvent{Date: d, Kind: model.SignalExitToCash})
	if !strings.Contains(exit.Message, "exiting to cash") {
		t.Errorf("unexpected alert: %+v", exit)
	}
}

func TestRunFailed(t *testing.T) {
	a := RunFailed("^GSPC", errors.New("provider unreachable"))
	if a.Level != AlertCritical || !strings.Contains(a.Message, "provider unreachable") {
		t.Errorf("unexpected alert: %+v", a)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := backtest.Config{ShortWindow: 50, LongWindow: 200}
	rep := model.Report{TotalReturnPct: 12.5, TradeCount: 3}

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), RunCompleted("^GSPC", cfg, rep)); err != nil {
		t.Fatal(err)
	}
	if got["level"] != "INFO" || got["symbol"] != "^GSPC" {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["sent_at"]; !ok {
		t.Error("payload missing sent_at")
	}
	report, ok := got["report"].(map[string]any)
	if !ok {
		t.Fatalf("payload carries no structured report: %v", got)
	}
	if report["total_return_pct"] != 12.5 {
		t.Errorf("report = %v", report)
	}
}

func TestWebhookNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{}); err == nil {
		t.Error("non-2xx status accepted")
	}
}
