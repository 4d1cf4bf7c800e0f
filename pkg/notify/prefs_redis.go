package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPreferenceStoreConfig configures the redis-backed preference store.
// Preferences are owned by the CRUD backend, which projects them into redis
// hashes; this service only reads them.
type RedisPreferenceStoreConfig struct {
	URL              string
	Prefix           string
	OperationTimeout time.Duration
	MaxConns         int
}

// RedisPreferenceStore reads per-user notification preferences from redis.
type RedisPreferenceStore struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewRedisPreferenceStore creates a redis-backed preference store.
func NewRedisPreferenceStore(cfg RedisPreferenceStoreConfig) (*RedisPreferenceStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.MaxConns > 0 {
		opts.PoolSize = cfg.MaxConns
	}

	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "notify:prefs"
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 3 * time.Second
	}

	return &RedisPreferenceStore{
		client:    redis.NewClient(opts),
		prefix:    prefix,
		opTimeout: cfg.OperationTimeout,
	}, nil
}

// Get reads the user's preference hash. A missing hash yields defaults.
func (s *RedisPreferenceStore) Get(ctx context.Context, userID string) (Preferences, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	fields, err := s.client.HGetAll(cctx, s.key(userID)).Result()
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences for %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return DefaultPreferences(), nil
	}

	prefs := Preferences{
		ListUpdates: fields["list_updates"],
		QuietStart:  fields["quiet_start"],
		QuietEnd:    fields["quiet_end"],
	}
	if prefs.ListUpdates == "" {
		prefs.ListUpdates = ListUpdatesAlways
	}
	return prefs, nil
}

// Ping verifies redis connectivity, for health checks.
func (s *RedisPreferenceStore) Ping(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.client.Ping(cctx).Err()
}

// Close closes the redis client.
func (s *RedisPreferenceStore) Close() error {
	return s.client.Close()
}

func (s *RedisPreferenceStore) key(userID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, userID)
}
