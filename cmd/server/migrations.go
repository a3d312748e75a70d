package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"

	"github.com/fennwick/glossa-api/internal/config"
)

const migrationsDir = "migrations"

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level without exiting; the error propagates back to
// main, which owns process exit.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}

// findMigrationsDir locates the migrations directory relative to the working
// directory, walking up so the command works from subdirectories too.
func findMigrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, migrationsDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found from working directory")
		}
		dir = parent
	}
}

// runMigrations executes a goose migration command against the configured
// database.
func runMigrations(cfg *config.Config, logger *slog.Logger, command, arg string) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("migrations require a database URL")
	}

	dirPath, err := findMigrationsDir()
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database connection", "error", err)
		}
	}()

	goose.SetLogger(&slogGooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	logger.Info("running migration command",
		slog.String("command", command),
		slog.String("dir", dirPath))

	switch command {
	case "up":
		err = goose.Up(db, dirPath)
	case "down":
		err = goose.Down(db, dirPath)
	case "reset":
		err = goose.Reset(db, dirPath)
	case "status":
		err = goose.Status(db, dirPath)
	case "version":
		err = goose.Version(db, dirPath)
	case "create":
		if arg == "" {
			return fmt.Errorf("create requires -migrate-name")
		}
		err = goose.Create(db, dirPath, arg, "sql")
	default:
		return fmt.Errorf("unknown migration command: %q", command)
	}

	if err != nil {
		return fmt.Errorf("migration command %q failed: %w", command, err)
	}

	logger.Info("migration command completed", slog.String("command", command))
	return nil
}
