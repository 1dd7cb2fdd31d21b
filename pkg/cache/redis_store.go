package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const scanBatchSize = 200

type redisStore struct {
	client rueidis.Client
}

// NewRedisStore wraps an existing rueidis client. The store does not own the
// client's lifecycle beyond Close.
func NewRedisStore(client rueidis.Client) Store {
	return &redisStore{client: client}
}

// DialRedis connects with exponential backoff, giving up after maxElapsed.
func DialRedis(ctx context.Context, opt rueidis.ClientOption, maxElapsed time.Duration, logger *zap.Logger) (rueidis.Client, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed

	var client rueidis.Client
	operation := func() error {
		c, err := rueidis.NewClient(opt)
		if err != nil {
			return err
		}
		client = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("redis connection failed, retrying",
			zap.Error(err),
			zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Do(ctx, s.client.B().Del().Key(keys...).Build()).Error()
}

// DeletePrefix walks the keyspace with SCAN so large namespaces never block
// the server the way KEYS would.
func (s *redisStore) DeletePrefix(ctx context.Context, prefix string) error {
	cursor := uint64(0)
	for {
		entry, err := s.client.Do(ctx,
			s.client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(scanBatchSize).Build(),
		).AsScanEntry()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if err := s.Delete(ctx, entry.Elements...); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

func (s *redisStore) Kind() string { return "redis" }

func (s *redisStore) Close() { s.client.Close() }
