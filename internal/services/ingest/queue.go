package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const QueueKey = "category_import:queue"

var ErrQueueClosed = errors.New("queue closed")

// Queue hands import ids from the HTTP layer to the worker.
type Queue interface {
	Enqueue(ctx context.Context, importID uuid.UUID) error
	Dequeue(ctx context.Context) (uuid.UUID, error)
}

// MemoryQueue is an in-process queue used when no Redis is configured.
type MemoryQueue struct {
	ch chan uuid.UUID
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{ch: make(chan uuid.UUID, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, importID uuid.UUID) error {
	select {
	case q.ch <- importID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	select {
	case id, ok := <-q.ch:
		if !ok {
			return uuid.Nil, ErrQueueClosed
		}
		return id, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (q *MemoryQueue) Close() {
	close(q.ch)
}

// RedisQueue is a list-backed queue shared by every server instance.
type RedisQueue struct {
	rdb *redis.Client
	key string
	// BLPop timeout; bounds how long Dequeue ignores a cancelled context.
	wait time.Duration
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: QueueKey, wait: 5 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, importID uuid.UUID) error {
	if err := q.rdb.RPush(ctx, q.key, importID.String()).Err(); err != nil {
		return fmt.Errorf("failed to enqueue import: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	for {
		res, err := q.rdb.BLPop(ctx, q.wait, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return uuid.Nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("redis BLPop failed: %w", err)
		}
		if len(res) < 2 {
			continue
		}
		id, err := uuid.Parse(res[1])
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid import id %q on queue: %w", res[1], err)
		}
		return id, nil
	}
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
