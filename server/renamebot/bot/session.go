package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"renamer/server/records/domain"
)

// Session is a file waiting for its new name.
type Session struct {
	OwnerID   int64            `json:"owner_id"`
	ChatID    int64            `json:"chat_id"`
	MessageID int              `json:"message_id"`
	Kind      domain.MediaKind `json:"kind"`
	FileName  string           `json:"file_name"`
	FileSize  int64            `json:"file_size"`
	PromptID  int              `json:"prompt_id"`
	CreatedAt time.Time        `json:"created_at"`
}

// SessionStore holds at most one pending session per owner. Take reads and
// deletes atomically.
type SessionStore interface {
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Take(ctx context.Context, ownerID int64) (Session, bool, error)
}

const sessionKeyPrefix = "renamer:session:"

type redisKV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

type RedisSessionStore struct {
	rdb redisKV
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (s *RedisSessionStore) Put(ctx context.Context, sess Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.OwnerID), raw, ttl).Err()
}

func (s *RedisSessionStore) Take(ctx context.Context, ownerID int64) (Session, bool, error) {
	raw, err := s.rdb.GetDel(ctx, sessionKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func sessionKey(ownerID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(ownerID, 10)
}

// MemorySessionStore is the single-process store used when Redis is off.
type MemorySessionStore struct {
	mu  sync.Mutex
	lru *expirable.LRU[int64, memoryEntry]
	now func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemorySessionStore bounds entries by count and by maxTTL; Put may ask
// for a shorter ttl.
func NewMemorySessionStore(maxSize int, maxTTL time.Duration) *MemorySessionStore {
	return &MemorySessionStore{lru: expirable.NewLRU[int64, memoryEntry](maxSize, nil, maxTTL), now: time.Now}
}

func (s *MemorySessionStore) Put(ctx context.Context, sess Session, ttl time.Duration) error {
	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(sess.OwnerID, memoryEntry{session: sess, expiresAt: now.Add(ttl)})
	return nil
}

func (s *MemorySessionStore) Take(ctx context.Context, ownerID int64) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.lru.Peek(ownerID)
	if !ok {
		return Session{}, false, nil
	}
	s.lru.Remove(ownerID)
	if !s.now().Before(entry.expiresAt) {
		return Session{}, false, nil
	}
	return entry.session, true, nil
}
