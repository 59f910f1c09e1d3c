package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/repositories"
	"go.uber.org/zap"
)

const (
	codePreviewChars  = 100
	errorPreviewChars = 200
)

// ExecutionLogRepository implements repositories.ExecutionLogRepository on
// the code_execution_logs table.
type ExecutionLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewExecutionLogRepository creates a new execution log repository
func NewExecutionLogRepository(db *DB, logger *zap.Logger) repositories.ExecutionLogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionLogRepository{db: db, logger: logger}
}

// Append writes one record on its own connection and transaction. The
// connection goes back to the pool on every path.
func (r *ExecutionLogRepository) Append(ctx context.Context, record *models.ExecutionRecord) (err error) {
	query := `
		INSERT INTO code_execution_logs (
			id, username, session_id, cell_number, code,
			execution_time_ms, status, error_message, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, query,
		record.ID,
		record.Username,
		record.SessionID,
		record.CellNumber,
		record.Code,
		record.ExecutionTimeMs,
		string(record.Status),
		record.ErrorMessage,
		record.ExecutedAt,
	); err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit execution log: %w", err)
	}

	r.logger.Debug("execution log inserted",
		zap.String("id", record.ID.String()),
		zap.Int64("cell_number", record.CellNumber),
		zap.String("status", string(record.Status)))
	return nil
}

// ListByUsername returns execution summaries, newest first
func (r *ExecutionLogRepository) ListByUsername(ctx context.Context, username string, limit, offset int) ([]*models.ExecutionLogSummary, error) {
	query := `
		SELECT id, timestamp, cell_number, LEFT(code, $4), execution_time_ms, status, LEFT(error_message, $5)
		FROM code_execution_logs
		WHERE username = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, username, limit, offset, codePreviewChars, errorPreviewChars)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ExecutionLogSummary
	for rows.Next() {
		var (
			s      models.ExecutionLogSummary
			status string
			errMsg sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.CellNumber, &s.CodePreview, &s.ExecutionTimeMs, &status, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}
		s.Status = models.ExecutionStatus(status)
		if errMsg.Valid {
			s.ErrorPreview = &errMsg.String
		}
		logs = append(logs, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return logs, nil
}

// Search returns full records whose code contains text, case-insensitively
func (r *ExecutionLogRepository) Search(ctx context.Context, username, text string, limit int) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, username, session_id, cell_number, code, execution_time_ms, status, error_message, timestamp
		FROM code_execution_logs
		WHERE username = $1 AND code ILIKE $2
		ORDER BY timestamp DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, username, "%"+text+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search execution logs: %w", err)
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		var (
			rec    models.ExecutionRecord
			status string
			errMsg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.SessionID, &rec.CellNumber, &rec.Code,
			&rec.ExecutionTimeMs, &status, &errMsg, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}
		rec.Status = models.ExecutionStatus(status)
		if errMsg.Valid {
			rec.ErrorMessage = &errMsg.String
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return records, nil
}

// Stats aggregates the whole execution history of a user
func (r *ExecutionLogRepository) Stats(ctx context.Context, username string) (*models.UsageStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN DATE(timestamp) = CURRENT_DATE THEN 1 END),
			COUNT(CASE WHEN status = 'error' THEN 1 END),
			COALESCE(AVG(execution_time_ms), 0),
			MAX(timestamp)
		FROM code_execution_logs
		WHERE username = $1
	`

	var (
		stats models.UsageStats
		last  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&stats.TotalExecutions,
		&stats.TodayExecutions,
		&stats.TotalErrors,
		&stats.AvgExecutionTimeMs,
		&last,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute execution stats: %w", err)
	}

	if last.Valid {
		t := last.Time
		stats.LastExecution = &t
	}
	stats.ComputeSuccessRate()
	return &stats, nil
}

// DailyStats aggregates per calendar day over the last days days, newest first
func (r *ExecutionLogRepository) DailyStats(ctx context.Context, username string, days int) ([]*models.DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) AS day,
			COUNT(*),
			COUNT(CASE WHEN status = 'success' THEN 1 END),
			COUNT(CASE WHEN status = 'error' THEN 1 END),
			COALESCE(AVG(execution_time_ms), 0)
		FROM code_execution_logs
		WHERE username = $1 AND timestamp >= CURRENT_DATE - make_interval(days => $2)
		GROUP BY day
		ORDER BY day DESC
	`

	rows, err := r.db.QueryContext(ctx, query, username, days)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily stats: %w", err)
	}
	defer rows.Close()

	var out []*models.DailyStats
	for rows.Next() {
		var d models.DailyStats
		if err := rows.Scan(&d.Date, &d.Executions, &d.SuccessCount, &d.ErrorCount, &d.AvgTimeMs); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		out = append(out, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return out, nil
}
