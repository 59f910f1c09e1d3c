// Package tracer turns each executed unit into an execution record. The
// kernel calls BeforeUnit when a unit starts and AfterUnit when it ends.
package tracer

import (
	"context"
	"sync"
	"time"

	"github.com/upb/governed-notebook/internal/observability"
	"github.com/upb/governed-notebook/models"
	"go.uber.org/zap"
)

// DefaultWriteTimeout bounds one audit append
const DefaultWriteTimeout = 5 * time.Second

// Appender receives finished records
type Appender interface {
	Append(ctx context.Context, record *models.ExecutionRecord) error
}

// Cycle is the state captured when a unit starts
type Cycle struct {
	Code      string
	StartedAt time.Time
}

// Tracer numbers units and appends one record per completed unit
type Tracer struct {
	session      models.SessionContext
	sink         Appender
	logger       *zap.Logger
	metrics      *observability.Metrics
	writeTimeout time.Duration

	mu       sync.Mutex
	sequence int64
}

// New creates a tracer for session. Numbering starts at zero.
func New(session models.SessionContext, sink Appender, logger *zap.Logger, metrics *observability.Metrics, writeTimeout time.Duration) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Tracer{
		session:      session,
		sink:         sink,
		logger:       observability.ForSession(logger, session),
		metrics:      metrics,
		writeTimeout: writeTimeout,
	}
}

// BeforeUnit starts a cycle for code
func (t *Tracer) BeforeUnit(code string) *Cycle {
	return &Cycle{Code: code, StartedAt: time.Now()}
}

// AfterUnit closes c and appends its record. Store failures are logged and
// counted but never returned, and the sequence advances either way. A nil
// cycle records nothing. The append ignores cancellation of ctx so that an
// interrupted unit is still recorded.
func (t *Tracer) AfterUnit(ctx context.Context, c *Cycle, execErr error) *models.ExecutionRecord {
	if c == nil {
		return nil
	}
	duration := time.Since(c.StartedAt)

	t.mu.Lock()
	cell := t.sequence
	t.sequence++
	t.mu.Unlock()

	record := models.NewExecutionRecord(t.session, cell, c.Code, duration, execErr)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.writeTimeout)
	defer cancel()

	if err := t.sink.Append(writeCtx, record); err != nil {
		t.metrics.RecordAuditFailure()
		t.logger.Warn("failed to record execution",
			zap.Int64("cell_number", cell),
			zap.Error(err))
		return record
	}

	t.logger.Debug("execution recorded",
		zap.Int64("cell_number", cell),
		zap.String("status", string(record.Status)),
		zap.Int64("execution_time_ms", record.ExecutionTimeMs))
	return record
}

// Sequence returns the number the next unit will get
func (t *Tracer) Sequence() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sequence
}
