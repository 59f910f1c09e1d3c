package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/governed-notebook/config"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver for local data stores
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	driver string
	logger *zap.Logger
}

// ResolveDriver picks the database/sql driver for a connection string and
// returns the source name to hand to it.
func ResolveDriver(dsn string) (driver, source string) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		return DriverSQLite, strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "file:"):
		return DriverSQLite, dsn
	default:
		return DriverPostgres, dsn
	}
}

// NewDB opens a connection pool. No connection is made until first use, so
// an unreachable store surfaces on the first query rather than here.
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, source := ResolveDriver(cfg.DSN())

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("database pool configured",
		zap.String("driver", driver),
		zap.String("connection", cfg.LogString()))

	return &DB{DB: db, driver: driver, logger: logger}, nil
}

// Wrap adapts an existing pool, typically a sqlmock connection in tests
func Wrap(db *sql.DB, driver string, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{DB: db, driver: driver, logger: logger}
}

// Driver returns the database/sql driver name in use
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Debug("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}
