package intake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryLocker_SerializesSameKey(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "telegram:42")
	require.NoError(t, err)

	// другой ключ не блокируется
	other, err := l.Lock(ctx, "telegram:43")
	require.NoError(t, err)
	other()

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "telegram:42")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	again, err := l.Lock(ctx, "telegram:42")
	require.NoError(t, err)
	again()
	assert.Empty(t, l.locks)
}

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(client, ttl, zap.NewNop())
	l.retry = 5 * time.Millisecond
	return l, srv
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, srv := newTestRedisLocker(t, time.Minute)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "telegram:42")
	require.NoError(t, err)
	assert.True(t, srv.Exists("helpdesk:intake:telegram:42"))
	assert.Equal(t, time.Minute, srv.TTL("helpdesk:intake:telegram:42"))

	other, err := l.Lock(ctx, "telegram:43")
	require.NoError(t, err)
	other()

	unlock()
	assert.False(t, srv.Exists("helpdesk:intake:telegram:42"))
}

func TestRedisLocker_SecondLockWaitsForUnlock(t *testing.T) {
	l, _ := newTestRedisLocker(t, time.Minute)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "telegram:42")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(ctx, "telegram:42")
		if assert.NoError(t, err) {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second lock not acquired after unlock")
	}
}

func TestRedisLocker_ContextCancelledWhileWaiting(t *testing.T) {
	l, _ := newTestRedisLocker(t, time.Minute)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "telegram:42")
	require.NoError(t, err)
	defer unlock()

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "telegram:42")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	l, srv := newTestRedisLocker(t, time.Second)
	ctx := context.Background()
	key := "helpdesk:intake:telegram:42"

	stale, err := l.Lock(ctx, "telegram:42")
	require.NoError(t, err)
	staleToken, err := srv.Get(key)
	require.NoError(t, err)

	// первый владелец завис дольше TTL, ключ забирает другой
	srv.FastForward(2 * time.Second)
	require.False(t, srv.Exists(key))
	fresh, err := l.Lock(ctx, "telegram:42")
	require.NoError(t, err)
	freshToken, err := srv.Get(key)
	require.NoError(t, err)
	require.NotEqual(t, staleToken, freshToken)

	stale()
	got, err := srv.Get(key)
	require.NoError(t, err)
	assert.Equal(t, freshToken, got)

	fresh()
	assert.False(t, srv.Exists(key))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	l, srv := newTestRedisLocker(t, time.Minute)
	srv.Close()

	_, err := l.Lock(context.Background(), "telegram:42")
	assert.Error(t, err)
}

func TestProcess_ConcurrentFirstContactWithRedisLock(t *testing.T) {
	gw := newTestGateway(t)
	l, _ := newTestRedisLocker(t, time.Minute)
	a := NewAdapter(model.ChannelTelegram, gw, nil, l, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Process(ctx, annMessage("Help"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := gw.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	comments, err := gw.ListComments(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Len(t, comments, 5)
}
