package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

// Granularity of usage buckets.
const (
	GranularityDay  = "day"
	GranularityHour = "hour"
)

const maxUsageBuckets = 24 * 93

// Analytics aggregates execution history.
type Analytics struct {
	executions persistence.ExecutionRepository
}

func NewAnalytics(executions persistence.ExecutionRepository) *Analytics {
	return &Analytics{executions: executions}
}

// Usage counts sessions created in [from, to) per bucket. Every bucket in the
// range is returned, empty ones included.
func (a *Analytics) Usage(ctx context.Context, from, to time.Time, granularity string) ([]models.UsageBucket, error) {
	const op = "Usage"

	step, err := bucketSize(granularity)
	if err != nil {
		return nil, err
	}

	from, to = from.UTC(), to.UTC()
	if !to.After(from) {
		return nil, NewValidationError(op, "end_date must be after start_date", ErrInvalidTimeRange)
	}

	first := from.Truncate(step)
	if to.Sub(first)/step > maxUsageBuckets {
		return nil, NewValidationError(op, "time range has too many buckets", ErrInvalidTimeRange)
	}

	sessions, err := a.executions.SessionsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	var buckets []models.UsageBucket

	index := make(map[time.Time]int)

	for start := first; start.Before(to); start = start.Add(step) {
		index[start] = len(buckets)
		buckets = append(buckets, models.UsageBucket{Start: start})
	}

	for _, session := range sessions {
		i, ok := index[session.CreatedAt.UTC().Truncate(step)]
		if !ok {
			continue
		}

		bucket := &buckets[i]
		bucket.Total++

		switch session.Status {
		case models.SessionCompleted:
			bucket.Completed++
		case models.SessionFailed:
			bucket.Failed++
		case models.SessionPaused:
			bucket.Paused++
		case models.SessionPending, models.SessionRunning:
			bucket.Running++
		}
	}

	return buckets, nil
}

func bucketSize(granularity string) (time.Duration, error) {
	switch granularity {
	case "", GranularityDay:
		return 24 * time.Hour, nil
	case GranularityHour:
		return time.Hour, nil
	default:
		return 0, NewValidationError("Usage", fmt.Sprintf("invalid granularity '%s'", granularity), ErrInvalidGranularity)
	}
}
