// Package rediscache caches backtest reports and the latest price snapshot
// in Redis, fronted by a circuit breaker. The cache is strictly optional:
// every error degrades to a miss and the pipeline recomputes.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"
)

const defaultTTL = 30 * time.Minute

// Config configures the cache connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // zero means defaultTTL
}

// Cache is a Redis-backed result cache. One Cache is safe for concurrent use.
type Cache struct {
	client  *goredis.Client
	breaker *CircuitBreaker
	ttl     time.Duration
}

// New connects and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	cb := NewCircuitBreaker(5, 10*time.Second)
	cb.OnStateChange = func(from, to State) {
		log.Printf("[rediscache] breaker %s -> %s", from, to)
	}

	log.Printf("[rediscache] connected to %s", cfg.Addr)
	return &Cache{client: client, breaker: cb, ttl: ttl}, nil
}

// Client returns the underlying client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// reportKey pins a cache entry to the exact run parameters, so a config
// change can never serve a stale report.
func reportKey(symbol string, cfg backtest.Config) string {
	return fmt.Sprintf("report:%s:%d:%d:%g:%d:%g",
		symbol, cfg.ShortWindow, cfg.LongWindow, cfg.StartingCapital, cfg.ExecutionLag, cfg.CommissionRate)
}

// GetReport returns the cached report for (symbol, cfg). ok=false on a miss
// or any cache failure.
func (c *Cache) GetReport(ctx context.Context, symbol string, cfg backtest.Config) (model.Report, bool) {
	var raw string
	err := c.breaker.Execute(func() error {
		var err error
		raw, err = c.client.Get(ctx, reportKey(symbol, cfg)).Result()
		return err
	})
	if err != nil {
		if err != goredis.Nil && err != ErrCircuitOpen {
			log.Printf("[rediscache] get report: %v", err)
		}
		return model.Report{}, false
	}

	var rep model.Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		log.Printf("[rediscache] corrupt report entry, dropping: %v", err)
		c.client.Del(ctx, reportKey(symbol, cfg))
		return model.Report{}, false
	}
	return rep, true
}

// SetReport caches a report for (symbol, cfg) with the configured TTL.
// Failures are logged and swallowed.
func (c *Cache) SetReport(ctx context.Context, symbol string, cfg backtest.Config, rep model.Report) {
	data, err := json.Marshal(rep)
	if err != nil {
		log.Printf("[rediscache] marshal report: %v", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, reportKey(symbol, cfg), data, c.ttl).Err()
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[rediscache] set report: %v", err)
	}
}

// SetLatest caches the newest bar for a symbol and publishes it for live
// subscribers.
func (c *Cache) SetLatest(ctx context.Context, symbol string, p model.PricePoint) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	err = c.breaker.Execute(func() error {
		pipe := c.client.Pipeline()
		pipe.Set(ctx, "price:latest:"+symbol, data, c.ttl)
		pipe.Publish(ctx, "pub:price:"+symbol, data)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[rediscache] set latest: %v", err)
	}
}

// GetLatest returns the cached newest bar for a symbol.
func (c *Cache) GetLatest(ctx context.Context, symbol string) (model.PricePoint, bool) {
	var raw string
	err := c.breaker.Execute(func() error {
		var err error
		raw, err = c.client.Get(ctx, "price:latest:"+symbol).Result()
		return err
	})
	if err != nil {
		return model.PricePoint{}, false
	}
	var p model.PricePoint
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return model.PricePoint{}, false
	}
	return p, true
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
