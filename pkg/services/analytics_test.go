package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics_Usage(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := newStore(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	sessions := []struct {
		at     time.Time
		status models.SessionStatus
	}{
		{day.Add(9 * time.Hour), models.SessionCompleted},
		{day.Add(9*time.Hour + 30*time.Minute), models.SessionFailed},
		{day.Add(14 * time.Hour), models.SessionPaused},
		{day.Add(26 * time.Hour), models.SessionRunning},
		{day.Add(-time.Hour), models.SessionCompleted},
	}

	for i, s := range sessions {
		require.NoError(t, store.Executions().SaveSession(ctx, &models.ExecutionSession{
			ID:         fmt.Sprintf("session-%d", i),
			WorkflowID: "wf",
			Status:     s.status,
			CreatedAt:  s.at,
		}))
	}

	service := services.NewAnalytics(store.Executions())

	daily, err := service.Usage(ctx, day, day.Add(48*time.Hour), services.GranularityDay)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, models.UsageBucket{Start: day, Total: 3, Completed: 1, Failed: 1, Paused: 1}, daily[0])
	assert.Equal(t, models.UsageBucket{Start: day.Add(24 * time.Hour), Total: 1, Running: 1}, daily[1])

	hourly, err := service.Usage(ctx, day, day.Add(24*time.Hour), services.GranularityHour)
	require.NoError(t, err)
	require.Len(t, hourly, 24)
	assert.Equal(t, 2, hourly[9].Total)
	assert.Equal(t, 1, hourly[14].Total)
	assert.Equal(t, 0, hourly[0].Total)
}

func TestAnalytics_UsageValidation(t *testing.T) {
	t.Parallel()

	service := services.NewAnalytics(newStore(t).Executions())
	now := time.Now()

	_, err := service.Usage(t.Context(), now, now.Add(-time.Hour), "")
	assert.ErrorIs(t, err, services.ErrInvalidTimeRange)

	_, err = service.Usage(t.Context(), now.Add(-time.Hour), now, "week")
	assert.ErrorIs(t, err, services.ErrInvalidGranularity)

	_, err = service.Usage(t.Context(), now.AddDate(-1, 0, 0), now, services.GranularityHour)
	assert.ErrorIs(t, err, services.ErrInvalidTimeRange)
}
