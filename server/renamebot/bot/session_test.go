package bot

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"renamer/server/records/domain"
)

func TestMemorySessionTakeOnce(t *testing.T) {
	s := NewMemorySessionStore(8, time.Hour)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, Session{OwnerID: 1, MessageID: 5, Kind: domain.KindVideo}, time.Minute))

	sess, found, err := s.Take(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 5, sess.MessageID)
	require.False(t, sess.CreatedAt.IsZero())

	_, found, err = s.Take(ctx, 1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemorySessionExpiry(t *testing.T) {
	s := NewMemorySessionStore(8, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Session{OwnerID: 1}, 15*time.Minute))
	now = now.Add(16 * time.Minute)
	_, found, err := s.Take(ctx, 1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemorySessionReplacesPrevious(t *testing.T) {
	s := NewMemorySessionStore(8, time.Hour)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, Session{OwnerID: 1, MessageID: 1}, time.Minute))
	require.NoError(t, s.Put(ctx, Session{OwnerID: 1, MessageID: 2}, time.Minute))

	sess, _, err := s.Take(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, sess.MessageID)
}

type fakeRedis struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) GetDel(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(f.data, key)
	return redis.NewStringResult(v, nil)
}

func TestRedisSessionStore(t *testing.T) {
	rdb := &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
	s := &RedisSessionStore{rdb: rdb}
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Session{OwnerID: 77, ChatID: 77, MessageID: 3, FileName: "x.mkv"}, 15*time.Minute))
	require.Equal(t, 15*time.Minute, rdb.ttl["renamer:session:77"])

	sess, found, err := s.Take(ctx, 77)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "x.mkv", sess.FileName)

	_, found, err = s.Take(ctx, 77)
	require.NoError(t, err)
	require.False(t, found)
}
