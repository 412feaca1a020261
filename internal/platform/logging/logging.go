// Package logging builds the process-wide zap logger from configuration.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment mirrors internal/config.Environment without importing it, to
// avoid a dependency cycle (config needs a logger before the full Config is
// built during bootstrap).
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// New builds a *zap.Logger appropriate for env: console-encoded and debug
// level in development, JSON and info level otherwise.
func New(env Environment, levelOverride string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == Production || env == Staging {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if levelOverride != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(levelOverride)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// Nop returns a logger that discards everything, used by tests and by
// constructors that accept a nil logger.
func Nop() *zap.Logger { return zap.NewNop() }
