package app

import (
	"context"
	"fmt"
	"os"

	"doodba-operator/internal/config"
	"doodba-operator/pkg/logging"
)

// Application bootstraps and runs the operator.
//
// Initialization happens in two phases:
//  1. Bootstrap: load configuration, initialize logging, create services
//  2. Execution: verify the CRD, then run the reconcile manager and the
//     metrics endpoint until the context ends
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates a new application instance with the provided
// configuration, connecting to the cluster from the environment.
func NewApplication(cfg *Config) (*Application, error) {
	if err := prepare(cfg); err != nil {
		return nil, err
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{config: cfg, services: services}, nil
}

// prepare loads and validates the configuration and sets up logging.
func prepare(cfg *Config) error {
	logging.InitForCLI(logging.LevelInfo, os.Stdout)

	if cfg.OperatorConfig == nil {
		opCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
			return fmt.Errorf("failed to load configuration from path %s: %w", cfg.ConfigPath, err)
		}
		cfg.OperatorConfig = &opCfg
	}

	cfg.Overrides.apply(cfg.OperatorConfig)
	if errs := config.Validate(*cfg.OperatorConfig, "command line"); errs.HasErrors() {
		return fmt.Errorf("invalid configuration: %w", errs)
	}

	logging.SetLevel(logLevel(cfg))
	return nil
}

func logLevel(cfg *Config) logging.LogLevel {
	if cfg.Debug {
		return logging.LevelDebug
	}
	level, err := logging.ParseLevel(cfg.OperatorConfig.LogLevel)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// Run executes the operator until ctx is cancelled.
//
// It returns ErrCRDNotQueryable when the Doodba CRD cannot be listed, and
// nil after a graceful shutdown.
func (a *Application) Run(ctx context.Context) error {
	return runOperator(ctx, a.config, a.services)
}
