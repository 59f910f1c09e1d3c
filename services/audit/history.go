package audit

import (
	"context"
	"strings"

	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/repositories"
	"github.com/upb/governed-notebook/services"
)

const (
	DefaultPageSize  = 50
	MaxPageSize      = 500
	MinSearchLength  = 2
	DefaultStatsDays = 7
	MaxStatsDays     = 365
)

// History serves a user's execution history. Every read is scoped to the
// username it is given.
type History struct {
	reader repositories.ExecutionLogReader
}

// NewHistory creates a history service over reader
func NewHistory(reader repositories.ExecutionLogReader) *History {
	return &History{reader: reader}
}

// List returns one page of execution summaries, newest first
func (h *History) List(ctx context.Context, username string, limit, offset int) ([]*models.ExecutionLogSummary, error) {
	if offset < 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "offset must not be negative", nil).WithDetail("offset", offset)
	}
	logs, err := h.reader.ListByUsername(ctx, username, clampPage(limit), offset)
	if err != nil {
		return nil, services.WrapStoreUnavailable("failed to list execution logs", err)
	}
	return logs, nil
}

// Search finds records whose code contains text
func (h *History) Search(ctx context.Context, username, text string, limit int) ([]*models.ExecutionRecord, error) {
	text = strings.TrimSpace(text)
	if len(text) < MinSearchLength {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "search text must be at least 2 characters", nil)
	}
	records, err := h.reader.Search(ctx, username, text, clampPage(limit))
	if err != nil {
		return nil, services.WrapStoreUnavailable("failed to search execution logs", err)
	}
	return records, nil
}

// Stats returns aggregate usage for username
func (h *History) Stats(ctx context.Context, username string) (*models.UsageStats, error) {
	stats, err := h.reader.Stats(ctx, username)
	if err != nil {
		return nil, services.WrapStoreUnavailable("failed to compute usage stats", err)
	}
	return stats, nil
}

// Daily returns per-day counts over the last days days
func (h *History) Daily(ctx context.Context, username string, days int) ([]*models.DailyStats, error) {
	switch {
	case days <= 0:
		days = DefaultStatsDays
	case days > MaxStatsDays:
		days = MaxStatsDays
	}
	daily, err := h.reader.DailyStats(ctx, username, days)
	if err != nil {
		return nil, services.WrapStoreUnavailable("failed to compute daily stats", err)
	}
	return daily, nil
}

func clampPage(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
