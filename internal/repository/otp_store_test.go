package repository

import (
	"context"
	"testing"
	"time"

	"tasktracker/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseOTPStore(t *testing.T, store OTPStore) {
	ctx := context.Background()
	key := NewOTPKey(" A@X.com", models.RoleUser, models.PurposeLogin)
	other := NewOTPKey("a@x.com", models.RoleUser, models.PurposeReset)
	expires := time.Now().Add(time.Minute).UTC().Truncate(time.Second)

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, key, OTPRecord{Code: "111111", ExpiresAt: expires}, time.Minute))
	require.NoError(t, store.Put(ctx, key, OTPRecord{Code: "222222", ExpiresAt: expires}, time.Minute))

	rec, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "222222", rec.Code, "a new issuance overwrites the previous code")
	assert.True(t, expires.Equal(rec.ExpiresAt))

	_, ok, err = store.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok, "purposes never share a record")

	require.NoError(t, store.Delete(ctx, key))
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPKey_String(t *testing.T) {
	assert.Equal(t, "a@x.com:admin:reset", NewOTPKey("A@x.com ", models.RoleAdmin, models.PurposeReset).String())
}

func TestMemoryOTPStore(t *testing.T) {
	exerciseOTPStore(t, NewMemoryOTPStore())
}

func TestMemoryOTPStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOTPStore()
	now := time.Now()
	require.NoError(t, store.Put(ctx, NewOTPKey("old@x.com", models.RoleUser, models.PurposeLogin), OTPRecord{Code: "1", ExpiresAt: now.Add(-time.Second)}, 0))
	require.NoError(t, store.Put(ctx, NewOTPKey("new@x.com", models.RoleUser, models.PurposeLogin), OTPRecord{Code: "2", ExpiresAt: now.Add(time.Minute)}, 0))

	assert.Equal(t, 1, store.Sweep(now))
	assert.Equal(t, 1, store.Len())
}

func TestRedisOTPStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.Run("redis", "7-alpine", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	var client *redis.Client
	require.NoError(t, pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: resource.GetHostPort("6379/tcp")})
		return client.Ping(context.Background()).Err()
	}))
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisOTPStore(client)
	exerciseOTPStore(t, store)

	key := NewOTPKey("ttl@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, store.Put(context.Background(), key, OTPRecord{Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}, time.Minute))
	ttl, err := client.TTL(context.Background(), "tasktracker:otp:"+key.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute, "key outlives the code by the grace period")
}
