package dedup_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/dedup"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock {
	return &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func ptr(t time.Time) *time.Time { return &t }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func memory() *dedup.MemoryStore {
	return dedup.NewMemoryStore(dedup.DefaultWindow, dedup.DefaultRetention, 0)
}

func change(ts *time.Time, sig string) *models.Change {
	return &models.Change{
		Provider:         models.ProviderGoogleDrive,
		ChangeType:       models.ChangeFolderCreated,
		ResourceIdentity: "file-1",
		Timestamp:        ts,
		Signature:        sig,
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	older := now.Add(-time.Hour)

	tests := []struct {
		name     string
		existing *models.DedupeRecord
		in       dedup.Incoming
		now      time.Time
		want     bool
	}{
		{"no record", nil, dedup.Incoming{}, now, true},
		{"newer timestamp", &models.DedupeRecord{ProcessedAt: now, LastChangeTimestamp: &older}, dedup.Incoming{Timestamp: ptr(now)}, now, true},
		{"same timestamp", &models.DedupeRecord{ProcessedAt: now, LastChangeTimestamp: &older}, dedup.Incoming{Timestamp: ptr(older)}, now, false},
		{"same timestamp after window", &models.DedupeRecord{ProcessedAt: now, LastChangeTimestamp: &older}, dedup.Incoming{Timestamp: ptr(older)}, now.Add(time.Hour), false},
		{"stored without timestamp", &models.DedupeRecord{ProcessedAt: now}, dedup.Incoming{Timestamp: ptr(older)}, now, true},
		{"different signature", &models.DedupeRecord{ProcessedAt: now, ContentSignature: "a"}, dedup.Incoming{Signature: "b"}, now, true},
		{"same signature in window", &models.DedupeRecord{ProcessedAt: now, ContentSignature: "a"}, dedup.Incoming{Signature: "a"}, now.Add(time.Minute), false},
		{"same signature after window", &models.DedupeRecord{ProcessedAt: now, ContentSignature: "a"}, dedup.Incoming{Signature: "a"}, now.Add(6 * time.Minute), true},
		{"nothing in window", &models.DedupeRecord{ProcessedAt: now}, dedup.Incoming{}, now.Add(4 * time.Minute), false},
		{"nothing after window", &models.DedupeRecord{ProcessedAt: now}, dedup.Incoming{}, now.Add(5 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			accept, next := dedup.Decide("k", tt.existing, tt.in, tt.now, dedup.DefaultWindow)
			assert.Equal(t, tt.want, accept)

			if accept {
				require.NotNil(t, next)
				assert.Equal(t, "k", next.Key)
				assert.Equal(t, tt.now, next.ProcessedAt)
			} else {
				assert.Nil(t, next)
			}
		})
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	a := dedup.Key("wf-1", "file-1", models.ChangeCreated)
	assert.Len(t, a, 32)
	assert.Equal(t, a, dedup.Key("wf-1", "file-1", models.ChangeCreated))
	assert.NotEqual(t, a, dedup.Key("wf-2", "file-1", models.ChangeCreated))
	assert.NotEqual(t, a, dedup.Key("wf-1", "file-1", models.ChangeUpdated))
	assert.NotEqual(t, dedup.Key("wf", "1file", ""), dedup.Key("wf1", "file", ""))
}

func TestDeduplicator_IdenticalDeliveries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newClock()
	d := dedup.NewDeduplicator(memory(), discard(), dedup.WithClock(clk.Now))

	ts := clk.now.Add(-time.Second)
	accepted := 0

	for range 5 {
		reservation, err := d.Accept(ctx, "wf-1", change(&ts, "sig"))
		require.NoError(t, err)

		if reservation != nil {
			accepted++
		}

		clk.Advance(30 * time.Second)
	}

	assert.Equal(t, 1, accepted)

	clk.Advance(time.Hour)

	reservation, err := d.Accept(ctx, "wf-1", change(&ts, "sig"))
	require.NoError(t, err)
	assert.Nil(t, reservation, "a redelivery after the window without a newer timestamp is rejected")

	newer := ts.Add(time.Second)
	reservation, err = d.Accept(ctx, "wf-1", change(&newer, "sig"))
	require.NoError(t, err)
	assert.NotNil(t, reservation)

	reservation, err = d.Accept(ctx, "wf-2", change(&ts, "sig"))
	require.NoError(t, err)
	assert.NotNil(t, reservation, "keys are per workflow")
}

func TestDeduplicator_Rollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newClock()
	d := dedup.NewDeduplicator(memory(), discard(), dedup.WithClock(clk.Now))

	first := clk.now.Add(-time.Minute)
	reservation, err := d.Accept(ctx, "wf-1", change(&first, ""))
	require.NoError(t, err)
	require.NotNil(t, reservation)

	second := clk.now
	reservation, err = d.Accept(ctx, "wf-1", change(&second, ""))
	require.NoError(t, err)
	require.NotNil(t, reservation)

	require.NoError(t, d.Rollback(ctx, reservation))

	again, err := d.Accept(ctx, "wf-1", change(&second, ""))
	require.NoError(t, err)
	assert.NotNil(t, again, "rollback restores the previous record")

	stale, err := d.Accept(ctx, "wf-1", change(&first, ""))
	require.NoError(t, err)
	assert.Nil(t, stale)

	require.NoError(t, d.Rollback(ctx, nil))
}

func TestDeduplicator_RollbackKeepsNewerWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newClock()
	d := dedup.NewDeduplicator(memory(), discard(), dedup.WithClock(clk.Now))

	first := clk.now
	reservation, err := d.Accept(ctx, "wf-1", change(&first, ""))
	require.NoError(t, err)

	newer := first.Add(time.Minute)
	_, err = d.Accept(ctx, "wf-1", change(&newer, ""))
	require.NoError(t, err)

	require.NoError(t, d.Rollback(ctx, reservation))

	dup, err := d.Accept(ctx, "wf-1", change(&newer, ""))
	require.NoError(t, err)
	assert.Nil(t, dup, "rolling back an older reservation must not erase a newer record")
}

func TestMemoryStore_CollectsOldRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newClock()
	store := dedup.NewMemoryStore(dedup.DefaultWindow, dedup.DefaultRetention, 3)
	d := dedup.NewDeduplicator(store, discard(), dedup.WithClock(clk.Now))

	for _, id := range []string{"a", "b", "c"} {
		_, err := d.Accept(ctx, id, change(nil, ""))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, store.Len())

	clk.Advance(10 * time.Minute)

	_, err := d.Accept(ctx, "d", change(nil, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CollectsAtMostOncePerHalfWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newClock()
	store := dedup.NewMemoryStore(10*time.Minute, time.Hour, 2)
	d := dedup.NewDeduplicator(store, discard(), dedup.WithClock(clk.Now))

	accept := func(workflowID string) {
		t.Helper()

		reservation, err := d.Accept(ctx, workflowID, change(nil, ""))
		require.NoError(t, err)
		require.NotNil(t, reservation)
	}

	accept("a")
	clk.Advance(9 * time.Minute)
	accept("b")
	accept("c")
	assert.Equal(t, 3, store.Len(), "nothing is old enough at the first pass")

	clk.Advance(2 * time.Minute)
	accept("d")
	assert.Equal(t, 4, store.Len(), "a is stale but the last pass was two minutes ago")

	clk.Advance(5 * time.Minute)
	accept("e")
	assert.Equal(t, 4, store.Len(), "only a is older than the window")
}

func TestMemoryStore_ConcurrentAcceptIsExclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newClock()
	d := dedup.NewDeduplicator(memory(), discard(), dedup.WithClock(clk.Now))
	ts := clk.now.Add(-time.Second)

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		start    = make(chan struct{})
	)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			reservation, err := d.Accept(ctx, "wf-1", change(&ts, "sig"))
			if !assert.NoError(t, err) {
				return
			}

			if reservation != nil {
				accepted.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}
