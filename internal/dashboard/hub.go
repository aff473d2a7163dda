// Package dashboard serves the REST and WebSocket surface of the pipeline:
// stored prices, on-demand backtests, indicator lines, signal history, and a
// live push channel for pipeline run results.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"index-systemv1/internal/backtest"
)

// Hub manages WebSocket clients and fans pipeline events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	lastRun json.RawMessage // most recent run envelope, replayed to new clients

	// onCount, when set, observes the client count after every connect and
	// disconnect. Set it before serving; it is not synchronized afterwards.
	onCount func(n int)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// RunPubSub subscribes to the live price channel and forwards updates to all
// clients. Blocks until ctx is cancelled. A nil client disables the loop.
func (h *Hub) RunPubSub(ctx context.Context, rdb *goredis.Client, symbol string) {
	if rdb == nil {
		return
	}
	sub := rdb.Subscribe(ctx, "pub:price:"+symbol)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			envelope, _ := json.Marshal(map[string]any{
				"type":   "price",
				"symbol": symbol,
				"data":   json.RawMessage(msg.Payload),
				"ts":     time.Now().UTC().Format(time.RFC3339Nano),
			})
			h.broadcast(envelope)
		}
	}
}

// BroadcastRun pushes a completed pipeline run to every connected client and
// keeps it as the initial state for clients that connect later.
func (h *Hub) BroadcastRun(symbol string, cfg backtest.Config, out *backtest.RunOutput) {
	envelope, err := json.Marshal(map[string]any{
		"type":    "run",
		"symbol":  symbol,
		"config":  cfg,
		"report":  out.Report,
		"signals": out.Signals,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[dashboard] marshal run envelope: %v", err)
		return
	}

	h.mu.Lock()
	h.lastRun = envelope
	h.mu.Unlock()

	h.broadcast(envelope)
}

func (h *Hub) broadcast(envelope []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
			// slow client, drop rather than stall the hub
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	if h.onCount != nil {
		h.onCount(count)
	}
	log.Printf("[dashboard] ws client connected (%d total)", count)
}

// RemoveClient removes a client from the hub. Removing a client twice is a
// no-op.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	removed := false
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		removed = true
	}
	count := len(h.clients)
	h.mu.Unlock()
	if removed && h.onCount != nil {
		h.onCount(count)
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) initialState() json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastRun
}
