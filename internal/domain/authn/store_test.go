package authn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_TakeIsSingleUse(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	got, err = s.Take(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	_, err = s.Take(ctx, "k")
	assert.True(t, errors.Is(err, ErrMissing))
	_, err = s.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestRedisStore_Expiry(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("k"))
	mr.FastForward(61 * time.Second)

	_, err := s.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestRedisStore_Delete(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()
	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissing))
}

func TestMemoryStore_ExpiryAndTake(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 2*time.Minute))
	assert.Equal(t, 2, s.Len())

	now = now.Add(time.Minute)
	_, err := s.Get(ctx, "a")
	assert.True(t, errors.Is(err, ErrMissing), "entry expires at its deadline")
	assert.Equal(t, 1, s.Len())

	got, err := s.Take(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
	_, err = s.Take(ctx, "b")
	assert.True(t, errors.Is(err, ErrMissing))
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'z'
	got, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
}
