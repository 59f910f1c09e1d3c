package sqldb

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const auditSchema = `
	CREATE TABLE IF NOT EXISTS code_execution_logs (
		id UUID PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		session_id VARCHAR(255) NOT NULL,
		cell_number BIGINT NOT NULL,
		code TEXT NOT NULL,
		execution_time_ms BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL CHECK (status IN ('success', 'error')),
		error_message TEXT,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_code_execution_logs_username ON code_execution_logs(username);
	CREATE INDEX IF NOT EXISTS idx_code_execution_logs_user_time ON code_execution_logs(username, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_code_execution_logs_session ON code_execution_logs(session_id);
	CREATE INDEX IF NOT EXISTS idx_code_execution_logs_status ON code_execution_logs(status);
`

// InitAuditSchema creates the execution log table and its indexes
func (db *DB) InitAuditSchema(ctx context.Context) error {
	if db.driver != DriverPostgres {
		return fmt.Errorf("audit schema requires a postgres store, got %s", db.driver)
	}
	if _, err := db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	db.logger.Info("audit schema initialized successfully", zap.String("table", "code_execution_logs"))
	return nil
}
