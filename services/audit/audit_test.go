package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/governed-notebook/models"
	"github.com/upb/governed-notebook/services"
)

// MockExecutionLogRepository is a mock implementation of ExecutionLogRepository
type MockExecutionLogRepository struct {
	mock.Mock
}

func (m *MockExecutionLogRepository) Append(ctx context.Context, record *models.ExecutionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockExecutionLogRepository) ListByUsername(ctx context.Context, username string, limit, offset int) ([]*models.ExecutionLogSummary, error) {
	args := m.Called(ctx, username, limit, offset)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.ExecutionLogSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExecutionLogRepository) Search(ctx context.Context, username, text string, limit int) ([]*models.ExecutionRecord, error) {
	args := m.Called(ctx, username, text, limit)
	if records := args.Get(0); records != nil {
		return records.([]*models.ExecutionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExecutionLogRepository) Stats(ctx context.Context, username string) (*models.UsageStats, error) {
	args := m.Called(ctx, username)
	if stats := args.Get(0); stats != nil {
		return stats.(*models.UsageStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExecutionLogRepository) DailyStats(ctx context.Context, username string, days int) ([]*models.DailyStats, error) {
	args := m.Called(ctx, username, days)
	if daily := args.Get(0); daily != nil {
		return daily.([]*models.DailyStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRecord() *models.ExecutionRecord {
	return models.NewExecutionRecord(models.NewSessionContext("alice", "s1"), 0, "1 + 1", time.Millisecond, nil)
}

func TestSink_Append(t *testing.T) {
	repo := new(MockExecutionLogRepository)
	rec := newRecord()
	repo.On("Append", mock.Anything, rec).Return(nil)

	err := NewSink(repo, nil).Append(context.Background(), rec)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSink_AppendWrapsStoreFailure(t *testing.T) {
	repo := new(MockExecutionLogRepository)
	cause := errors.New("connection refused")
	repo.On("Append", mock.Anything, mock.Anything).Return(cause)

	err := NewSink(repo, nil).Append(context.Background(), newRecord())

	require.Error(t, err)
	assert.True(t, services.IsStoreUnavailableError(err))
	assert.ErrorIs(t, err, cause)
	repo.AssertNumberOfCalls(t, "Append", 1)
}

func TestHistory_ListClampsLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default", 0, DefaultPageSize},
		{"negative", -3, DefaultPageSize},
		{"within bounds", 20, 20},
		{"capped", 10_000, MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockExecutionLogRepository)
			repo.On("ListByUsername", mock.Anything, "alice", tt.wantLimit, 0).
				Return([]*models.ExecutionLogSummary{}, nil)

			_, err := NewHistory(repo).List(context.Background(), "alice", tt.limit, 0)

			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestHistory_ListRejectsNegativeOffset(t *testing.T) {
	repo := new(MockExecutionLogRepository)

	_, err := NewHistory(repo).List(context.Background(), "alice", 10, -1)

	assert.True(t, services.IsValidationError(err))
	repo.AssertNotCalled(t, "ListByUsername", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHistory_SearchRequiresTwoCharacters(t *testing.T) {
	repo := new(MockExecutionLogRepository)
	h := NewHistory(repo)

	for _, text := range []string{"", "a", "  b  "} {
		_, err := h.Search(context.Background(), "alice", text, 10)
		assert.True(t, services.IsValidationError(err), "text %q", text)
	}
	repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	repo.On("Search", mock.Anything, "alice", "Query", 10).Return([]*models.ExecutionRecord{newRecord()}, nil)
	records, err := h.Search(context.Background(), "alice", " Query ", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestHistory_StatsStoreFailure(t *testing.T) {
	repo := new(MockExecutionLogRepository)
	repo.On("Stats", mock.Anything, "alice").Return(nil, errors.New("timeout"))

	_, err := NewHistory(repo).Stats(context.Background(), "alice")

	assert.True(t, services.IsStoreUnavailableError(err))
}

func TestHistory_DailyDefaultsDays(t *testing.T) {
	repo := new(MockExecutionLogRepository)
	repo.On("DailyStats", mock.Anything, "alice", DefaultStatsDays).Return([]*models.DailyStats{}, nil)
	repo.On("DailyStats", mock.Anything, "alice", MaxStatsDays).Return([]*models.DailyStats{}, nil)

	h := NewHistory(repo)
	_, err := h.Daily(context.Background(), "alice", 0)
	require.NoError(t, err)
	_, err = h.Daily(context.Background(), "alice", 9999)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}
