package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"
)

// redisStore shares division snapshots between dashboard instances.
type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func openRedisStore(ctx context.Context, addr string, ttl time.Duration) (*redisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisStore{rdb: rdb, ttl: ttl}, nil
}

func snapshotKey(eventID, divisionID int) string {
	return fmt.Sprintf("division-stats:%d:%d", eventID, divisionID)
}

func (s *redisStore) Load(ctx context.Context, eventID, divisionID int) (*DivisionStats, error) {
	key := snapshotKey(eventID, divisionID)
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %q: %w", key, err)
	}
	var out DivisionStats
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return &out, nil
}

func (s *redisStore) Save(ctx context.Context, stats *DivisionStats) error {
	key := snapshotKey(stats.EventID, stats.DivisionID)
	b, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// openStore picks the snapshot tier named by cfg.Store; "memory" means none.
func openStore(ctx context.Context, cfg Config) (SnapshotStore, error) {
	switch cfg.Store {
	case "sqlite":
		s, err := openSQLiteStore(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := openRedisStore(ctx, cfg.RedisAddr, cfg.RedisTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}
