// Package ratelimit counts requests per key (client IP or user id) and says
// whether one more is allowed.
//
// Two limiters exist: Memory, a per-process sliding window, and Redis, a
// fixed window shared by every instance behind a load balancer.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is a sliding-window limiter kept in process memory.
type Memory struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

var _ Limiter = (*Memory)(nil)

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.window)

	// Timestamps are appended in order, so expired ones form a prefix.
	requests := m.requests[key]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= m.limit {
		m.requests[key] = requests
		return false, nil
	}
	m.requests[key] = append(requests, now)
	return true, nil
}

// Sweep drops keys with no request inside the window.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.window)
	for key, requests := range m.requests {
		if len(requests) == 0 || !requests[len(requests)-1].After(cutoff) {
			delete(m.requests, key)
		}
	}
}

// Redis counts requests in fixed windows with INCR + EXPIRE.
type Redis struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

var _ Limiter = (*Redis)(nil)

func NewRedis(client redis.Cmdable, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "rl:",
		now:    time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := r.now().UnixNano() / int64(r.window)
	k := r.prefix + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= r.limit, nil
}
