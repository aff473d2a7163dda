package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"index-systemv1/internal/backtest"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Data
	Symbol          string
	ProviderBaseURL string

	// Infrastructure
	DatabaseURL   string
	SQLitePath    string
	CSVExportPath string
	CSVExportRows int
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string
	DashboardAddr string
	WebhookURL    string

	// Daily schedule (ET)
	RunHour   int
	RunMinute int

	// Backtest parameters
	ShortWindow     int
	LongWindow      int
	StartingCapital float64
	ExecutionLag    int
	CommissionRate  float64

	// Indicator windows (comma-separated, e.g. "20,50,100,200")
	SMAWindows string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is merged in first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	return &Config{
		Symbol:          getEnv("SYMBOL", "^GSPC"),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://query1.finance.yahoo.com"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/prices.db"),
		CSVExportPath: getEnv("CSV_EXPORT_PATH", "data/latest.csv"),
		CSVExportRows: getEnvInt("CSV_EXPORT_ROWS", 100),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8080"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),

		RunHour:   getEnvInt("RUN_HOUR", 8),
		RunMinute: getEnvInt("RUN_MINUTE", 0),

		ShortWindow:     getEnvInt("SHORT_WINDOW", 50),
		LongWindow:      getEnvInt("LONG_WINDOW", 200),
		StartingCapital: getEnvFloat("STARTING_CAPITAL", 100_000),
		ExecutionLag:    getEnvInt("EXECUTION_LAG", 1),
		CommissionRate:  getEnvFloat("COMMISSION_RATE", 0),

		SMAWindows: getEnv("SMA_WINDOWS", "20,50,100,200"),
	}
}

// Backtest assembles the run parameters.
func (c *Config) Backtest() backtest.Config {
	return backtest.Config{
		ShortWindow:     c.ShortWindow,
		LongWindow:      c.LongWindow,
		StartingCapital: c.StartingCapital,
		ExecutionLag:    c.ExecutionLag,
		CommissionRate:  c.CommissionRate,
	}
}

// ParseWindows parses SMAWindows into a slice of window lengths, skipping
// invalid entries.
func (c *Config) ParseWindows() []int {
	parts := strings.Split(c.SMAWindows, ",")
	windows := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			log.Printf("[config] skipping invalid SMA window: %q", p)
			continue
		}
		windows = append(windows, n)
	}
	return windows
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] %s=%q is not a number, using %g", key, v, fallback)
		return fallback
	}
	return f
}
