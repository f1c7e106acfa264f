package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/indexer-coordinator/engine/internal/models"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

const (
	keySnapshot = "project:%s:metadata"
	keyLogs     = "project:%s:logs"

	// MaxLogEntries caps the per-project log list.
	MaxLogEntries = 100
)

// Cache stores the latest metadata snapshot and recent log lines per project.
type Cache interface {
	Get(ctx context.Context, projectID string) (*models.Metadata, error)
	Set(ctx context.Context, projectID string, m *models.Metadata) error
	Delete(ctx context.Context, projectID string) error
	AppendLog(ctx context.Context, projectID, line string) error
	Logs(ctx context.Context, projectID string, limit int) ([]models.LogEntry, error)
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a Cache whose snapshots expire after ttl.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached snapshot, or nil without error when none is cached.
func (c *redisCache) Get(ctx context.Context, projectID string) (*models.Metadata, error) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(keySnapshot, projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "read metadata cache failed")
	}
	var m models.Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "decode cached metadata failed")
	}
	return &m, nil
}

func (c *redisCache) Set(ctx context.Context, projectID string, m *models.Metadata) error {
	b, err := json.Marshal(m)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode metadata failed")
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(keySnapshot, projectID), b, c.ttl).Err(); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "write metadata cache failed")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, projectID string) error {
	err := c.rdb.Del(ctx, fmt.Sprintf(keySnapshot, projectID), fmt.Sprintf(keyLogs, projectID)).Err()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "clear metadata cache failed")
	}
	return nil
}

// AppendLog pushes line to the front of the project's log list, keeping MaxLogEntries.
func (c *redisCache) AppendLog(ctx context.Context, projectID, line string) error {
	key := fmt.Sprintf(keyLogs, projectID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, line)
		pipe.LTrim(ctx, key, 0, MaxLogEntries-1)
		return nil
	})
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "append project log failed")
	}
	return nil
}

// Logs returns up to limit lines, newest first.
func (c *redisCache) Logs(ctx context.Context, projectID string, limit int) ([]models.LogEntry, error) {
	if limit <= 0 || limit > MaxLogEntries {
		limit = MaxLogEntries
	}
	lines, err := c.rdb.LRange(ctx, fmt.Sprintf(keyLogs, projectID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "read project logs failed")
	}
	out := make([]models.LogEntry, len(lines))
	for i, l := range lines {
		out[i] = models.LogEntry{Log: l}
	}
	return out, nil
}
