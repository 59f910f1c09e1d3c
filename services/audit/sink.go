// Package audit records executed units in the audit store and serves the
// per-user execution history read from it.
package audit

import (
	"context"

	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/repositories"
	"github.com/upb/governed-notebook/services"
	"go.uber.org/zap"
)

// Sink appends execution records synchronously. There is no buffer: a record
// that fails to write is lost.
type Sink struct {
	writer repositories.ExecutionLogWriter
	logger *zap.Logger
}

// NewSink creates a sink writing through writer
func NewSink(writer repositories.ExecutionLogWriter, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{writer: writer, logger: logger}
}

// Append writes one record. Store failures come back as StoreUnavailable.
func (s *Sink) Append(ctx context.Context, record *models.ExecutionRecord) error {
	if err := s.writer.Append(ctx, record); err != nil {
		return services.WrapStoreUnavailable("failed to append execution record", err)
	}

	s.logger.Debug("execution record appended",
		zap.String("id", record.ID.String()),
		zap.Int64("cell_number", record.CellNumber))
	return nil
}
