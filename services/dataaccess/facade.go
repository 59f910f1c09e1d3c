// Package dataaccess is the only sanctioned path from a notebook session to
// the governed data store. Statements are checked by sqlguard before any
// connection is taken, and results come back as guarded frames.
package dataaccess

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/upb/governed-notebook/config"
	"github.com/upb/governed-notebook/internal/frame"
	"github.com/upb/governed-notebook/internal/observability"
	"github.com/upb/governed-notebook/internal/sqlguard"
	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/repositories/sqldb"
	"github.com/upb/governed-notebook/services"
	"go.uber.org/zap"
)

// DefaultLimit applies when a convenience query gets a limit of zero or less
const DefaultLimit = 100

// Tables reachable through the convenience queries
const (
	CustomersTable    = "customers_anonymized"
	TransactionsTable = "transactions_anonymized"
	StatisticsTable   = "customer_statistics"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// Options configure a facade
type Options struct {
	Session models.SessionContext
	Guard   models.ExportGuard
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Notices receives one status line per successful query, usually the
	// cell output. Nil discards them.
	Notices io.Writer
}

// Facade runs read-only queries for one session
type Facade struct {
	db      *sqldb.DB
	session models.SessionContext
	guard   models.ExportGuard
	logger  *zap.Logger
	metrics *observability.Metrics
	notices io.Writer
}

// Open builds a facade over the store in cfg. A missing connection string is
// a ConfigurationError; reachability is only checked on first query.
func Open(cfg *config.DatabaseConfig, opts Options) (*Facade, error) {
	if cfg == nil || cfg.ConnectionString == "" {
		return nil, services.ErrMissingDataStore
	}
	db, err := sqldb.NewDB(*cfg, opts.Logger)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeConfiguration, "failed to open data store", err)
	}
	return New(db, opts), nil
}

// New builds a facade over an open pool
func New(db *sqldb.DB, opts Options) *Facade {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notices := opts.Notices
	if notices == nil {
		notices = io.Discard
	}
	return &Facade{
		db:      db,
		session: opts.Session,
		guard:   opts.Guard,
		logger:  observability.ForSession(logger, opts.Session),
		metrics: opts.Metrics,
		notices: notices,
	}
}

// Query validates statement, runs it on a scoped connection and returns the
// rows as a frame bound to the session guard.
func (f *Facade) Query(ctx context.Context, statement string, args ...any) (*frame.Frame, error) {
	if err := sqlguard.Validate(statement); err != nil {
		f.metrics.RecordQuery(resultRejected)
		f.logger.Warn("query rejected",
			zap.String("sql", statement),
			zap.Any("reason", services.GetErrorDetails(err)["reason"]))
		return nil, err
	}

	start := time.Now()
	result, err := f.run(ctx, statement, args)
	if err != nil {
		f.metrics.RecordQuery(resultFailed)
		f.logger.Error("query failed", zap.String("sql", statement), zap.Error(err))
		return nil, services.WrapStoreUnavailable("query failed", err)
	}

	f.metrics.RecordQuery(resultOK)
	f.logger.Info("query executed",
		zap.String("sql", statement),
		zap.Int("rows", result.Len()),
		zap.Duration("duration", time.Since(start)))
	fmt.Fprintf(f.notices, "query returned %d rows\n", result.Len())
	return result, nil
}

func (f *Facade) run(ctx context.Context, statement string, args []any) (*frame.Frame, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return frame.FromRows(rows, f.guard)
}

// Customers returns up to limit rows of the anonymized customer table
func (f *Facade) Customers(ctx context.Context, limit int) (*frame.Frame, error) {
	return f.Query(ctx, limitedSelect(CustomersTable, limit))
}

// Transactions returns up to limit rows of the anonymized transaction table
func (f *Facade) Transactions(ctx context.Context, limit int) (*frame.Frame, error) {
	return f.Query(ctx, limitedSelect(TransactionsTable, limit))
}

// Statistics returns the aggregate customer statistics
func (f *Facade) Statistics(ctx context.Context) (*frame.Frame, error) {
	return f.Query(ctx, "SELECT * FROM "+StatisticsTable)
}

// HealthCheck pings the data store
func (f *Facade) HealthCheck(ctx context.Context) error {
	return f.db.HealthCheck(ctx)
}

// Close releases the pool
func (f *Facade) Close() error {
	return f.db.Close()
}

func limitedSelect(table string, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit)
}
