package app

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration from env.
type Config struct {
	DataDir   string `env:"DATA_DIR" envDefault:"data"`
	Source    string `env:"DATA_SOURCE" envDefault:"dukascopy"`
	RulesFile string `env:"COVERAGE_RULES" envDefault:"config/coverage.yaml"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"` // debug | info | warn | error

	// HistoryCap bounds the completed-bar ring per (symbol, timeframe).
	HistoryCap int `env:"BAR_HISTORY_CAP" envDefault:"1000"`

	// Index scans sample domain stats above this file size.
	SampleThresholdBytes int64 `env:"INDEX_SAMPLE_THRESHOLD" envDefault:"8388608"`
	SampleRows           int   `env:"INDEX_SAMPLE_ROWS" envDefault:"10000"`

	BuildWorkers int `env:"BUILD_WORKERS" envDefault:"4"`
}

// LoadConfig reads config from a .env file (if present) and the
// environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return &cfg, nil
}

// IndexDir returns the directory holding persisted index artifacts.
func (c *Config) IndexDir() string { return filepath.Join(c.DataDir, "index") }

// TickIndexPath returns the tick index artifact path.
func (c *Config) TickIndexPath() string { return filepath.Join(c.IndexDir(), "ticks.parquet") }

// BarIndexPath returns the bar index artifact path.
func (c *Config) BarIndexPath() string { return filepath.Join(c.IndexDir(), "bars.parquet") }

// CoverageCacheDir returns the coverage cache artifact root.
func (c *Config) CoverageCacheDir() string {
	return filepath.Join(c.DataDir, "cache", "coverage")
}

// DiscoveryCacheDir returns the discovery cache artifact root.
func (c *Config) DiscoveryCacheDir() string {
	return filepath.Join(c.DataDir, "cache", "discovery")
}
