package ingest

import (
	"context"
	"encoding/json"

	"category-import-backend/internal/services/importer"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher forwards batch lifecycle events to Redis pub/sub, one
// channel per event name. Publish failures are logged and dropped.
type RedisPublisher struct {
	rdb redisPublisher
}

func NewRedisPublisher(rdb redisPublisher) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) BeforeBatchImport(ctx context.Context, ev importer.BatchEvent) {
	p.publish(ctx, ev)
}

func (p *RedisPublisher) AfterBatchImport(ctx context.Context, ev importer.BatchEvent) {
	p.publish(ctx, ev)
}

func (p *RedisPublisher) BatchImportFailed(ctx context.Context, ev importer.BatchEvent) {
	p.publish(ctx, ev)
}

func (p *RedisPublisher) publish(ctx context.Context, ev importer.BatchEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		zap.L().Warn("failed to encode batch event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, ev.Name, payload).Err(); err != nil {
		zap.L().Warn("failed to publish batch event",
			zap.String("event", ev.Name),
			zap.String("batch_id", ev.BatchID.String()),
			zap.Error(err),
		)
	}
}
