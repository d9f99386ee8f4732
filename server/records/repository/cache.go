package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	commonlog "renamer/server/common/log"
	"renamer/server/records/domain"
)

const cacheKeyPrefix = "renamer:record:"

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedStore reads through Redis in front of another Store. Records are
// immutable so entries never need invalidation, only expiry.
type CachedStore struct {
	next Store
	rdb  kv
	ttl  time.Duration
}

func NewCachedStore(next Store, rdb kv, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) Lookup(ctx context.Context, token string) (domain.MediaRecord, error) {
	key := cacheKeyPrefix + token
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var rec domain.MediaRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			return rec, nil
		}
		commonlog.Warnf("drop corrupt cached record token=%s", token)
	} else if !errors.Is(err, redis.Nil) {
		commonlog.Warnf("redis get record token=%s: %v", token, err)
	}

	rec, err := s.next.Lookup(ctx, token)
	if err != nil {
		return domain.MediaRecord{}, err
	}
	s.store(ctx, rec)
	return rec, nil
}

func (s *CachedStore) Insert(ctx context.Context, rec domain.MediaRecord) error {
	if err := s.next.Insert(ctx, rec); err != nil {
		return err
	}
	s.store(ctx, rec)
	return nil
}

func (s *CachedStore) store(ctx context.Context, rec domain.MediaRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, cacheKeyPrefix+rec.Token, raw, s.ttl).Err(); err != nil {
		commonlog.Warnf("redis set record token=%s: %v", rec.Token, err)
	}
}
