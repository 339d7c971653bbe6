package redisslot_test

import (
	"context"
	"testing"
	"time"

	"github.com/AndrewDonelson/savestate/internal/redisslot"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts redisslot.Options) (*redisslot.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	opts.Client = client
	store := redisslot.New(opts)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisslot_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, redisslot.Options{})

	require.NoError(t, s.Save(ctx, "Alice", 0, []byte{0x81, 0xa1, 'x'}))
	b, ok, err := s.Load(ctx, "Alice", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x81, 0xa1, 'x'}, b)
	assert.True(t, mr.Exists("savestate:slot:0:Alice"))
}

func TestRedisslot_Miss(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, redisslot.Options{})

	_, ok, err := s.Load(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), s.Stats().Misses)
}

func TestRedisslot_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, redisslot.Options{KeyPrefix: "game1"})

	require.NoError(t, s.Save(ctx, "Bob", 2, []byte("b")))
	assert.True(t, mr.Exists("game1:slot:2:Bob"))
}

func TestRedisslot_ExistsDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, redisslot.Options{})

	require.NoError(t, s.Save(ctx, "Bob", 0, []byte("b")))
	ok, err := s.Exists(ctx, "Bob", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "Bob", 0))
	ok, err = s.Exists(ctx, "Bob", 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Delete(ctx, "Bob", 0))
}

func TestRedisslot_List(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, redisslot.Options{})

	for _, n := range []string{"Carol", "Alice", "Bob"} {
		require.NoError(t, s.Save(ctx, n, 0, []byte(n)))
	}
	require.NoError(t, s.Save(ctx, "Other", 1, []byte("o")))

	names, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)
}

func TestRedisslot_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, redisslot.Options{TTL: time.Minute})

	require.NoError(t, s.Save(ctx, "Temp", 0, []byte("t")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Load(ctx, "Temp", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisslot_ServerDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, redisslot.Options{})
	mr.Close()

	assert.Error(t, s.Save(ctx, "A", 0, []byte("a")))
	_, _, err := s.Load(ctx, "A", 0)
	assert.Error(t, err)
	_, err = s.Exists(ctx, "A", 0)
	assert.Error(t, err)
	_, err = s.List(ctx, 0)
	assert.Error(t, err)
	assert.Error(t, s.Ping(ctx))
}

func TestRedisslot_Ping(t *testing.T) {
	s, _ := newTestStore(t, redisslot.Options{})
	assert.NoError(t, s.Ping(context.Background()))
}

func TestRedisslot_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, redisslot.Options{})

	sub := s.Subscribe(ctx, "savestate:test")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, "savestate:test", []byte("hello")))
	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
