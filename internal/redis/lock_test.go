package redisclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr(), "", "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockKeys(t *testing.T) {
	d := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "lock:slot:2025-03-10:09:00 AM", SlotLockKey(d, "09:00 AM"))
	assert.Equal(t, "lock:sweep:2025-03-10", SweepLockKey(d))
}

func TestRedisLockerReleasesAfterRun(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, 5*time.Second)
	key := SlotLockKey(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "09:00 AM")

	err := l.WithLock(context.Background(), key, func(ctx context.Context) error {
		assert.True(t, mr.Exists(key))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
}

func TestRedisLockerContention(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedisLocker(client, 5*time.Second)

	err := l.WithLock(context.Background(), "lock:test", func(ctx context.Context) error {
		inner := l.WithLock(ctx, "lock:test", func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestRedisLockerPropagatesError(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, 5*time.Second)
	boom := errors.New("boom")

	err := l.WithLock(context.Background(), "lock:test", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lock:test"))
}

func TestRedisLockerDoesNotReleaseForeignToken(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, time.Second)

	err := l.WithLock(context.Background(), "lock:test", func(context.Context) error {
		// simulate expiry and another holder taking over
		mr.Del("lock:test")
		require.NoError(t, mr.Set("lock:test", "other-holder"))
		return nil
	})
	require.NoError(t, err)

	v, err := mr.Get("lock:test")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", v)
}

func TestRedisLockerUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, time.Second)
	mr.Close()

	err := l.WithLock(context.Background(), "lock:test", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
}

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker()

	var running, acquired, rejected atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "k", func(context.Context) error {
				acquired.Add(1)
				assert.Equal(t, int32(1), running.Add(1))
				<-release
				running.Add(-1)
				return nil
			})
			if errors.Is(err, ErrLockNotAcquired) {
				rejected.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return rejected.Load() == 7 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())

	// free again once released
	require.NoError(t, l.WithLock(context.Background(), "k", func(context.Context) error { return nil }))
}
