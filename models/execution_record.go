package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the outcome of one execution unit
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusError   ExecutionStatus = "error"
)

// ExecutionRecord is the audit row written for one executed cell.
// It is assembled in full before being handed to the sink and is never
// modified afterwards.
type ExecutionRecord struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Username        string          `json:"username" db:"username"`
	SessionID       string          `json:"session_id" db:"session_id"`
	CellNumber      int64           `json:"cell_number" db:"cell_number"`
	Code            string          `json:"code" db:"code"`
	ExecutionTimeMs int64           `json:"execution_time_ms" db:"execution_time_ms"`
	Status          ExecutionStatus `json:"status" db:"status"`
	ErrorMessage    *string         `json:"error_message,omitempty" db:"error_message"`
	ExecutedAt      time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the ExecutionRecord model
func (ExecutionRecord) TableName() string {
	return "code_execution_logs"
}

// NewExecutionRecord builds a finalized record. A nil execErr yields a
// success outcome; otherwise the outcome is error and the stringified error
// becomes the error message.
func NewExecutionRecord(session SessionContext, cellNumber int64, code string, duration time.Duration, execErr error) *ExecutionRecord {
	rec := &ExecutionRecord{
		ID:              uuid.New(),
		Username:        session.Username,
		SessionID:       session.SessionName,
		CellNumber:      cellNumber,
		Code:            code,
		ExecutionTimeMs: duration.Milliseconds(),
		Status:          ExecutionStatusSuccess,
		ExecutedAt:      time.Now().UTC(),
	}
	if execErr != nil {
		msg := execErr.Error()
		rec.Status = ExecutionStatusError
		rec.ErrorMessage = &msg
	}
	return rec
}

// IsError reports whether the unit failed
func (r *ExecutionRecord) IsError() bool {
	return r.Status == ExecutionStatusError
}

// ExecutionLogSummary is the read-side projection of a record, with code and
// error truncated for listing.
type ExecutionLogSummary struct {
	ID              uuid.UUID       `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	CellNumber      int64           `json:"cell_number"`
	CodePreview     string          `json:"code_preview"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	Status          ExecutionStatus `json:"status"`
	ErrorPreview    *string         `json:"error_preview,omitempty"`
}

// UsageStats aggregates a user's execution history
type UsageStats struct {
	TotalExecutions    int64      `json:"total_executions"`
	TodayExecutions    int64      `json:"today_executions"`
	TotalErrors        int64      `json:"total_errors"`
	SuccessRate        float64    `json:"success_rate"`
	AvgExecutionTimeMs float64    `json:"avg_execution_time_ms"`
	LastExecution      *time.Time `json:"last_execution,omitempty"`
}

// ComputeSuccessRate fills SuccessRate as a percentage rounded to one decimal
func (s *UsageStats) ComputeSuccessRate() {
	rate := float64(s.TotalExecutions-s.TotalErrors) / float64(max(s.TotalExecutions, 1)) * 100
	s.SuccessRate = float64(int64(rate*10+0.5)) / 10
}

// DailyStats is one row of per-day execution counts
type DailyStats struct {
	Date         time.Time `json:"date"`
	Executions   int64     `json:"executions"`
	SuccessCount int64     `json:"success_count"`
	ErrorCount   int64     `json:"error_count"`
	AvgTimeMs    float64   `json:"avg_time_ms"`
}
