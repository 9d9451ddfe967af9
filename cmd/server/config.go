package main

import (
	"fmt"
	"log/slog"

	"github.com/lexigo/wordbook-worker/internal/config"
	"github.com/lexigo/wordbook-worker/internal/platform/logger"
)

// loadConfig loads and validates the application configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger configures the process-wide structured logger.
func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return log, nil
}
