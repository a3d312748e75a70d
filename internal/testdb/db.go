// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database: connection management via DATABASE_URL, one-time
// schema migration, and per-test transaction isolation.
package testdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

var migrationsRunOnce sync.Once

// testGooseLogger keeps goose quiet during tests, routing output through
// t.Log so failures stay readable.
type testGooseLogger struct {
	t *testing.T
}

func (l *testGooseLogger) Printf(format string, v ...interface{}) {
	if l.t != nil {
		l.t.Log("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
	}
}

func (l *testGooseLogger) Fatalf(format string, v ...interface{}) {
	if l.t != nil {
		l.t.Fatal("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
	}
}

// GetTestDB opens a connection to the integration test database. It skips
// the calling test when DATABASE_URL is not set.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open test database connection")
	require.NoError(t, db.Ping(), "Failed to ping test database")

	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

// SetupTestDatabaseSchema applies the project's migrations to the test
// database. Migrations run once per test binary; later calls are no-ops.
func SetupTestDatabaseSchema(t *testing.T, db *sql.DB) {
	t.Helper()

	migrationsRunOnce.Do(func() {
		dir, err := findMigrationsDir()
		require.NoError(t, err, "Failed to locate migrations directory")

		goose.SetLogger(&testGooseLogger{t: t})
		require.NoError(t, goose.SetDialect("postgres"))
		require.NoError(t, goose.Up(db, dir), "Failed to apply migrations")
	})
}

// WithTx runs fn inside a transaction that is rolled back afterwards, so
// tests never leak state into the shared database.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin test transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// findMigrationsDir walks up from this source file to the repository root
// and returns the migrations directory.
func findMigrationsDir() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to determine caller location")
	}

	dir := filepath.Dir(thisFile)
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("migrations directory not found above %s", filepath.Dir(thisFile))
		}
		dir = parent
	}
}
