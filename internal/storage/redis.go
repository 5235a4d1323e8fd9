package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/constraint/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	runKeyPrefix = "run:"
	recentKey    = "runs:recent"
)

// RedisStorage implements the Storage interface using Redis.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is either a
// redis:// URL or a bare host:port address. Runs expire after ttl; zero
// keeps them forever.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		opt, err = redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
	}

	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
		ttl:    ttl,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Run operations

func runKey(id uuid.UUID) string {
	return runKeyPrefix + id.String()
}

func (r *RedisStorage) SaveRun(ctx context.Context, run *storage.Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	data, err := json.Marshal(run)
	if err != nil {
		r.logger.Error("Failed to marshal run", "run_id", run.ID, "error", err)
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, runKey(run.ID), data, r.ttl)
	pipe.LRem(ctx, recentKey, 0, run.ID.String())
	pipe.LPush(ctx, recentKey, run.ID.String())
	pipe.LTrim(ctx, recentKey, 0, storage.RecentRunsLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save run", "run_id", run.ID, "error", err)
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	data, err := r.client.Get(ctx, runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Run not found", "run_id", id)
			return nil, nil
		}
		r.logger.Error("Failed to load run", "run_id", id, "error", err)
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var run storage.Run
	if err := json.Unmarshal(data, &run); err != nil {
		r.logger.Error("Failed to unmarshal run", "run_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

func (r *RedisStorage) DeleteRun(ctx context.Context, id uuid.UUID) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, runKey(id))
	pipe.LRem(ctx, recentKey, 0, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete run", "run_id", id, "error", err)
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// RecentRuns lists the newest run IDs. IDs whose run has expired are
// skipped.
func (r *RedisStorage) RecentRuns(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 || limit > storage.RecentRunsLimit {
		limit = storage.RecentRunsLimit
	}
	vals, err := r.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(vals))
	for _, v := range vals {
		id, err := uuid.Parse(v)
		if err != nil {
			r.logger.Warn("Skipping malformed run id", "value", v)
			continue
		}
		n, err := r.client.Exists(ctx, runKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check run: %w", err)
		}
		if n == 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
