package repositories

import (
	"context"

	"github.com/upb/governed-notebook/models"
)

// ExecutionLogWriter is the write side of the audit store. Append is
// one synchronous, independent write.
type ExecutionLogWriter interface {
	// Append inserts one record and commits it
	Append(ctx context.Context, record *models.ExecutionRecord) error
}

// ExecutionLogReader is the read side of the audit store. Every query is
// scoped to one username.
type ExecutionLogReader interface {
	// ListByUsername returns summaries, newest first
	ListByUsername(ctx context.Context, username string, limit, offset int) ([]*models.ExecutionLogSummary, error)

	// Search returns records whose code contains text (case-insensitive)
	Search(ctx context.Context, username, text string, limit int) ([]*models.ExecutionRecord, error)

	// Stats aggregates the user's whole history
	Stats(ctx context.Context, username string) (*models.UsageStats, error)

	// DailyStats aggregates per day over the last days days
	DailyStats(ctx context.Context, username string, days int) ([]*models.DailyStats, error)
}

// ExecutionLogRepository handles execution log data operations
type ExecutionLogRepository interface {
	ExecutionLogWriter
	ExecutionLogReader
}
