// Package cli provides common initialization shared by cmd/ledger and
// cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expenses/internal/log"
	"expenses/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger creates the process logger and installs it as the slog default.
func SetupLogger(level slog.Level, component string, out io.Writer) *log.Logger {
	logger := log.New(log.Config{Level: level, Component: component, Output: out})
	log.SetDefault(logger)
	return logger
}

// OpenSQLite opens and migrates the database at dbPath.
func OpenSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return repo, nil
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
