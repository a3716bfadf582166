package api

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter(t *testing.T) {
	t.Parallel()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLimiter(rdb, 3, time.Hour)
	user := "user-" + uuid.NewString()

	for i := range 3 {
		ok, err := l.Allow(t.Context(), user)
		require.NoError(t, err)
		require.True(t, ok, "call %d", i+1)
	}

	ok, err := l.Allow(t.Context(), user)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = l.Allow(t.Context(), "other-"+user)
	require.NoError(t, err)
	require.True(t, ok)
}
