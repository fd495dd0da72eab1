package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const LeaseKeyPrefix = "guildpay:lease:"

// Lease keeps two worker processes from calling out for the same row at the same time.
type Lease interface {
	// Acquire returns ok=false when another holder owns the row.
	Acquire(ctx context.Context, queue, id string) (release func(), ok bool, err error)
}

// NoopLease always grants.
type NoopLease struct{}

func (NoopLease) Acquire(ctx context.Context, queue, id string) (func(), bool, error) {
	return func() {}, true, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLease struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLease(client *redis.Client, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLease{client: client, ttl: ttl}
}

func LeaseKey(queue, id string) string {
	return fmt.Sprintf("%s%s:%s", LeaseKeyPrefix, queue, id)
}

func (l *RedisLease) Acquire(ctx context.Context, queue, id string) (func(), bool, error) {
	key := LeaseKey(queue, id)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return func() {}, false, err
	}
	if !ok {
		return func() {}, false, nil
	}
	release := func() {
		_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
