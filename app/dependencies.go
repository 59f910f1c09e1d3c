package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/upb/governed-notebook/config"
	"github.com/upb/governed-notebook/internal/kernel"
	"github.com/upb/governed-notebook/internal/observability"
	"github.com/upb/governed-notebook/middleware"
	"github.com/upb/governed-notebook/repositories"
	"github.com/upb/governed-notebook/repositories/sqldb"
	"github.com/upb/governed-notebook/services/audit"
	"go.uber.org/zap"
)

// Dependencies holds everything one kernel process needs. It is the single
// wiring point between configuration and the session.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Audit store, nil when AUDIT_DB_CONNECTION is unset
	AuditDB   *sqldb.DB
	AuditLogs repositories.ExecutionLogRepository
	Sink      *audit.Sink
	History   *audit.History

	Session        *kernel.Session
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies opens the stores and starts the session. Cell output is
// mirrored to stdout when it is not nil.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout io.Writer) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	if err := deps.initAudit(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	if err := deps.initSession(cfg, stdout); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to start kernel session: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Bool("audit_enabled", deps.AuditDB != nil))
	return deps, nil
}

// initAudit opens the audit store. An unreachable store is not fatal: the
// tracer logs and counts failed appends.
func (d *Dependencies) initAudit(ctx context.Context, cfg *config.Config) error {
	if !cfg.AuditEnabled() {
		d.Logger.Warn("audit store not configured, execution tracing disabled")
		return nil
	}

	db, err := sqldb.NewDB(*cfg.AuditDatabase, d.Logger)
	if err != nil {
		return err
	}
	if err := db.HealthCheck(ctx); err != nil {
		d.Logger.Warn("audit store unreachable at startup", zap.Error(err))
	}

	d.AuditDB = db
	d.AuditLogs = sqldb.NewExecutionLogRepository(db, d.Logger)
	d.Sink = audit.NewSink(d.AuditLogs, d.Logger)
	d.History = audit.NewHistory(d.AuditLogs)
	return nil
}

func (d *Dependencies) initSession(cfg *config.Config, stdout io.Writer) error {
	opts := kernel.Options{
		Session:           cfg.Session,
		DataStore:         cfg.DataDatabase,
		AuditWriteTimeout: cfg.Kernel.AuditWriteTimeout,
		Stdout:            stdout,
		Logger:            d.Logger,
		Metrics:           d.Metrics,
	}
	// a nil *audit.Sink must not become a non-nil interface
	if d.Sink != nil {
		opts.Sink = d.Sink
	}

	session, err := kernel.NewSession(opts)
	if err != nil {
		return err
	}
	d.Session = session
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.TokenSecret == "" {
		d.Logger.Warn("KERNEL_TOKEN_SECRET not set, gateway rejects every request")
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(
		middleware.NewHMACValidator(cfg.Auth.TokenSecret),
		d.Session.Identity().Username,
		d.Logger,
	)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Session != nil {
		if err := d.Session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close session: %w", err))
		}
	}

	if d.AuditDB != nil {
		if err := d.AuditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit store: %w", err))
		} else {
			d.Logger.Info("audit store connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
