package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const TreeLockKey = "category_import:tree_lock"

// TreeLock serializes work on the category tree across processes. The
// returned release func is safe to call more than once.
type TreeLock interface {
	Lock(ctx context.Context) (release func(), err error)
}

const (
	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	refreshScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("pexpire", KEYS[1], ARGV[2]) else return 0 end`
)

type redisLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLock is a SET NX PX lock owned by a random token. While held it is
// refreshed every third of its ttl, so a crashed holder frees the tree
// after at most one ttl.
type RedisLock struct {
	rdb   redisLocker
	key   string
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLock(rdb redisLocker) *RedisLock {
	return &RedisLock{rdb: rdb, key: TreeLockKey, ttl: 30 * time.Second, retry: 250 * time.Millisecond}
}

// Lock blocks until the lock is acquired or ctx is done.
func (l *RedisLock) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire tree lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire tree lock: %w", ctx.Err())
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := l.rdb.Eval(context.Background(), releaseScript, []string{l.key}, token).Err(); err != nil {
				zap.L().Warn("failed to release tree lock", zap.String("key", l.key), zap.Error(err))
			}
		})
	}, nil
}

func (l *RedisLock) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := l.rdb.Eval(context.Background(), refreshScript, []string{l.key}, token, l.ttl.Milliseconds()).Int()
			if err != nil {
				zap.L().Warn("failed to refresh tree lock", zap.String("key", l.key), zap.Error(err))
				continue
			}
			if n == 0 {
				zap.L().Error("tree lock expired while held", zap.String("key", l.key))
				return
			}
		}
	}
}
