package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yferras/clinic-api/internal/repository"
)

// releaseScript deletes the lock only when the stored token still
// matches the caller's. Doing the compare and the delete in one script
// keeps a holder from releasing a lock that expired and was re-acquired
// by another request.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type slotLockStore struct {
	client *redis.Client
	logger *zerolog.Logger
}

type Config struct {
	URL          string        `yaml:"url" mapstructure:"url"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

func NewSlotLockStore(cfg Config, logger *zerolog.Logger) (repository.SlotLockStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = cfg.MaxRetries
	opts.MinRetryBackoff = cfg.RetryBackoff
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &slotLockStore{client: client, logger: logger}, nil
}

func (s *slotLockStore) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	return ok, nil
}

func (s *slotLockStore) ReadToken(ctx context.Context, key string) (string, error) {
	token, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read slot lock token: %w", err)
	}
	return token, nil
}

func (s *slotLockStore) ReleaseIfToken(ctx context.Context, key, token string) error {
	released, err := releaseScript.Run(ctx, s.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	if released == 0 {
		// Lock expired or changed hands; nothing to clean up.
		s.logger.Debug().Str("key", key).Msg("slot lock already released or re-acquired")
	}
	return nil
}
