package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "chainreact:dedup:"
	redisRetries   = 10
)

// ErrContention is returned when a key kept changing under every retry.
var ErrContention = errors.New("dedup record changed concurrently")

// RedisStore shares dedup records between processor instances. Each decision
// runs inside WATCH/MULTI so two instances cannot both accept the same change.
type RedisStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRedisStore creates a store on client. Records expire after retention.
func NewRedisStore(client redis.UniversalClient, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

// NewRedisStoreFromURL parses a redis:// URL.
func NewRedisStoreFromURL(url string, retention time.Duration) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewRedisStore(redis.NewClient(options), retention), nil
}

func (s *RedisStore) Apply(ctx context.Context, key string, fn func(existing *models.DedupeRecord) (*models.DedupeRecord, bool)) (bool, error) {
	redisKey := redisKeyPrefix + key

	var accepted bool

	txf := func(tx *redis.Tx) error {
		existing, err := s.load(ctx, tx, redisKey)
		if err != nil {
			return err
		}

		next, write := fn(existing)
		accepted = write

		if !write {
			return nil
		}

		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, data, s.retention)

			return nil
		})

		return err
	}

	if err := s.watch(ctx, redisKey, txf); err != nil {
		return false, err
	}

	return accepted, nil
}

func (s *RedisStore) Restore(ctx context.Context, key string, written, previous *models.DedupeRecord) error {
	redisKey := redisKeyPrefix + key

	return s.watch(ctx, redisKey, func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, redisKey)
		if err != nil {
			return err
		}

		if !current.Same(written) {
			return nil
		}

		var data []byte

		if previous != nil {
			if data, err = json.Marshal(previous); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if previous == nil {
				pipe.Del(ctx, redisKey)
			} else {
				pipe.Set(ctx, redisKey, data, s.retention)
			}

			return nil
		})

		return err
	})
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) watch(ctx context.Context, redisKey string, txf func(tx *redis.Tx) error) error {
	for range redisRetries {
		err := s.client.Watch(ctx, txf, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return fmt.Errorf("redis dedup transaction: %w", err)
		}

		return nil
	}

	return ErrContention
}

func (s *RedisStore) load(ctx context.Context, tx *redis.Tx, redisKey string) (*models.DedupeRecord, error) {
	data, err := tx.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var record models.DedupeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("corrupt dedup record %s: %w", redisKey, err)
	}

	return &record, nil
}
