package telegram

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gotd/td/session"
	bolt "go.etcd.io/bbolt"
)

var (
	sessionBucket = []byte("session")
	peersBucket   = []byte("peers")
	sessionKey    = []byte("mtproto")
)

// Storage keeps the MTProto session and the channel access hashes in one Bolt
// file so a restart neither re-authenticates nor re-resolves the bin channel.
type Storage struct {
	db *bolt.DB
}

type peerEntry struct {
	AccessHash int64     `json:"access_hash"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func OpenStorage(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		var err error
		if err == nil {
			_, err = tx.CreateBucketIfNotExists(sessionBucket)
		}
		if err == nil {
			_, err = tx.CreateBucketIfNotExists(peersBucket)
		}
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure bolt buckets: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) LoadSession(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(sessionBucket).Get(sessionKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, session.ErrNotFound
	}
	return data, nil
}

func (s *Storage) StoreSession(ctx context.Context, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(sessionKey, data)
	})
}

func (s *Storage) AccessHash(channelID int64) (int64, bool, error) {
	var (
		entry peerEntry
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(peersBucket).Get(id2key(channelID))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return 0, false, err
	}
	return entry.AccessHash, found, nil
}

func (s *Storage) SetAccessHash(channelID, accessHash int64) error {
	raw, err := json.Marshal(peerEntry{AccessHash: accessHash, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(peersBucket).Put(id2key(channelID), raw)
	})
}

func id2key(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}
