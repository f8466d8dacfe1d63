package dedup_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/dedup"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisStore(t *testing.T) *dedup.RedisStore {
	t.Helper()

	url := os.Getenv("DEDUP_REDIS_URL")
	if url == "" {
		t.Skip("DEDUP_REDIS_URL not set")
	}

	store, err := dedup.NewRedisStoreFromURL(url, time.Minute)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRedisStore_ConcurrentAcceptIsExclusive(t *testing.T) {
	store := redisStore(t)
	ctx := context.Background()
	workflowID := uuid.NewString()
	ts := time.Now().UTC()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			d := dedup.NewDeduplicator(store, discard())

			reservation, err := d.Accept(ctx, workflowID, change(&ts, "sig"))
			if err == nil && reservation != nil {
				accepted.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}

func TestRedisStore_Rollback(t *testing.T) {
	store := redisStore(t)
	ctx := context.Background()
	workflowID := uuid.NewString()
	ts := time.Now().UTC()

	d := dedup.NewDeduplicator(store, discard())

	reservation, err := d.Accept(ctx, workflowID, change(&ts, ""))
	require.NoError(t, err)
	require.NotNil(t, reservation)

	require.NoError(t, d.Rollback(ctx, reservation))

	again, err := d.Accept(ctx, workflowID, change(&ts, ""))
	require.NoError(t, err)
	assert.NotNil(t, again)
}
