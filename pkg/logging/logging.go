// Package logging builds the engine's zap logger and provides sanitizers for
// values that may carry database credentials.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New constructs a zap logger for the given environment. "local" and
// "development" get the human-readable development config, everything else
// gets production JSON output.
func New(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	switch env {
	case "local", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
