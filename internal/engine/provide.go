package engine

import (
	"log/slog"

	"fx-data/internal/app"
	"fx-data/internal/coverage"
	"fx-data/internal/slogx"
)

// ProvideConfig loads config from environment (for Wire).
func ProvideConfig() (*app.Config, error) {
	return app.LoadConfig()
}

// ProvideLogger creates the process logger from config (for Wire).
func ProvideLogger(cfg *app.Config) *slog.Logger {
	return slogx.NewDefault(cfg.LogLevel)
}

// ProvideRules loads and validates the gap-classification rules file
// (for Wire).
func ProvideRules(cfg *app.Config) (*coverage.Rules, error) {
	return coverage.LoadRules(cfg.RulesFile)
}

// ProvideAnalyzer creates the coverage analyzer (for Wire).
func ProvideAnalyzer(rules *coverage.Rules, logger *slog.Logger) (*coverage.Analyzer, error) {
	return coverage.NewAnalyzer(rules, logger)
}
