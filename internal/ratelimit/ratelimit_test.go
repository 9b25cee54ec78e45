package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMemory_SlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemory(2, time.Minute)
	m.now = clock.now
	ctx := context.Background()

	allowed := func(key string) bool {
		ok, err := m.Allow(ctx, key)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, allowed("a"))
	clock.t = clock.t.Add(30 * time.Second)
	assert.True(t, allowed("a"))
	assert.False(t, allowed("a"), "third request inside the window")
	assert.True(t, allowed("b"), "keys are independent")

	// The first request leaves the window; one slot frees up.
	clock.t = clock.t.Add(31 * time.Second)
	assert.True(t, allowed("a"))
	assert.False(t, allowed("a"))
}

func TestMemory_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := NewMemory(5, time.Minute)
	m.now = clock.now

	_, _ = m.Allow(context.Background(), "old")
	clock.t = clock.t.Add(2 * time.Minute)
	_, _ = m.Allow(context.Background(), "new")

	m.Sweep()
	assert.NotContains(t, m.requests, "old")
	assert.Contains(t, m.requests, "new")
}

// Needs a server: REDIS_TEST_URL=redis://localhost:6379/0
func TestRedis_FixedWindow(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	r := NewRedis(client, 2, time.Minute)
	r.prefix = "rl-test:" + xid.New().String() + ":"
	clock := &fakeClock{t: time.Unix(0, 0).Add(10 * time.Minute)}
	r.now = clock.now
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := r.Allow(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "request %d", i+1)
	}

	clock.t = clock.t.Add(time.Minute)
	ok, err := r.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "next window starts fresh")
}
