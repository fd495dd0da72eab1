package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
)

const isolatedJobQueueTestRedisDB = 14

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := env.GetEnv("CACHE_HOST", "localhost") + ":" + env.GetEnv("CACHE_PORT", "6379")
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       isolatedJobQueueTestRedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint at %s (%v)", addr, err)
	}
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLeaseExcludesSecondHolder(t *testing.T) {
	client := newTestRedis(t)
	lease := NewRedisLease(client, time.Minute)
	ctx := context.Background()

	release, ok, err := lease.Acquire(ctx, QueuePayouts, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lease.Acquire(ctx, QueuePayouts, "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := lease.Acquire(ctx, QueuePayouts, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisStatsCounts(t *testing.T) {
	client := newTestRedis(t)
	stats := NewRedisStats(client)
	ctx := context.Background()

	stats.Incr(ctx, QueuePayouts, OutcomeAdvanced)
	stats.Incr(ctx, QueuePayouts, OutcomeAdvanced)
	stats.Incr(ctx, QueueRoleGrants, OutcomeFailed)

	snap, err := stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap["payouts:advanced"])
	assert.Equal(t, int64(1), snap["role_grants:failed"])
}

func TestLeaseKey(t *testing.T) {
	assert.Equal(t, "guildpay:lease:payouts:abc", LeaseKey(QueuePayouts, "abc"))
}
