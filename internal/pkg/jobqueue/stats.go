package jobqueue

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

const JobStatsKey = "guildpay:jobstats"

const (
	OutcomeAdvanced = "advanced"
	OutcomeRetry    = "retry"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeWaiting  = "waiting"
)

// Stats counts per-queue row outcomes.
type Stats interface {
	Incr(ctx context.Context, queue, outcome string)
	Snapshot(ctx context.Context) (map[string]int64, error)
}

type RedisStats struct {
	client *redis.Client
}

func NewRedisStats(client *redis.Client) *RedisStats {
	return &RedisStats{client: client}
}

func (s *RedisStats) Incr(ctx context.Context, queue, outcome string) {
	_ = s.client.HIncrBy(ctx, JobStatsKey, queue+":"+outcome, 1).Err()
}

func (s *RedisStats) Snapshot(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

// MemoryStats keeps counters in process, for single-process setups and tests.
type MemoryStats struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{counts: map[string]int64{}}
}

func (s *MemoryStats) Incr(ctx context.Context, queue, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[queue+":"+outcome]++
}

func (s *MemoryStats) Snapshot(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out, nil
}
