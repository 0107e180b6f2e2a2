//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"fx-data/internal/engine"
)

// InitializeEngine builds the engine (config, rules, indices, caches)
// via Wire. The engine is the single composition root; nothing else
// holds global state.
func InitializeEngine() (*engine.Engine, error) {
	wire.Build(
		engine.ProvideConfig,
		engine.ProvideLogger,
		engine.ProvideRules,
		engine.ProvideAnalyzer,
		engine.NewEngine,
	)
	return nil, nil
}
