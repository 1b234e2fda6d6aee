package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
)

func TestMutex_LockUnlock(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("job-42", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))
	assert.True(t, mr.Exists("contractlens:lock:job-42"))

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("contractlens:lock:job-42"))
}

func TestMutex_Contention(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	first := factory.NewMutex("job-1", WithRetryCount(1), WithRetryDelay(10*time.Millisecond))
	second := factory.NewMutex("job-1", WithRetryCount(2), WithRetryDelay(10*time.Millisecond))

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorContains(t, second.Lock(ctx), "failed to acquire lock")

	// The loser cannot release the winner's lease.
	assert.Error(t, second.Unlock(ctx))
	require.NoError(t, first.Unlock(ctx))

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock(ctx))
}

func TestMutex_Expires(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	first := factory.NewMutex("job-2", WithLockTTL(time.Second))
	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	second := factory.NewMutex("job-2")
	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Error(t, first.Unlock(ctx))
}

func TestMutex_Extend(t *testing.T) {
	client, mr := newTestClient(t)
	lock := NewLockFactory(client, nil).NewMutex("job-3", WithLockTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, lock.Lock(ctx))
	ok, err := lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("contractlens:lock:job-3"))
	require.NoError(t, lock.Unlock(ctx))

	ok, err = lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutex_LockRespectsContext(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)

	holder := factory.NewMutex("job-4")
	require.NoError(t, holder.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	waiter := factory.NewMutex("job-4", WithRetryDelay(10*time.Millisecond), WithRetryCount(100))
	assert.ErrorIs(t, waiter.Lock(ctx), context.DeadlineExceeded)
}

func TestMutex_WatchdogStopsOnUnlock(t *testing.T) {
	client, _ := newTestClient(t)
	lock := NewLockFactory(client, nil).NewMutex("job-5",
		WithLockTTL(300*time.Millisecond), WithWatchdog(true), WithWatchdogInterval(20*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, lock.Lock(ctx))
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, lock.Unlock(ctx))
}

//Personal.AI order the ending
