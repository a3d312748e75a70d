// Package main implements the entry point for the glossa API server,
// which turns confirmed gaze fixations into translations and tracks how
// well each owner remembers what they have read.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/fennwick/glossa-api/internal/config"
	"github.com/fennwick/glossa-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command instead of the server: up, down, status, version, reset, create")
	migrateArg := flag.String("migrate-name", "",
		"name for 'create' migration command")
	flag.Parse()

	if err := run(*migrateCmd, *migrateArg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// run loads configuration, sets up logging, and either executes a migration
// command or starts the HTTP server.
func run(migrateCmd, migrateArg string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("database_configured", cfg.Database.URL != ""))

	if migrateCmd != "" {
		return runMigrations(cfg, appLogger, migrateCmd, migrateArg)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return err
	}

	return nil
}
