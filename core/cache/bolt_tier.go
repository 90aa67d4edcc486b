package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketVideos  = []byte("videos")
	bucketQueries = []byte("queries")
)

// BoltTier is the persistent key-value tier, backed by a single bbolt file
// with one bucket per entity kind.
type BoltTier struct {
	db *bolt.DB
}

// OpenBoltTier opens (or creates) the persistent tier at path.
func OpenBoltTier(path string) (*BoltTier, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt tier: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketVideos, bucketQueries} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}

	return &BoltTier{db: db}, nil
}

func (t *BoltTier) Name() string { return "bolt" }

func bucketFor(kind Kind) []byte {
	if kind == KindVideoStatus {
		return bucketVideos
	}
	return bucketQueries
}

func (t *BoltTier) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	var raw []byte
	err := t.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketFor(key.Kind)).Get([]byte(key.String())); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt get %s: %w", key, err)
	}
	if raw == nil {
		return nil, false, nil
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	entry.Key = key
	entry.Tier = t.Name()
	return &entry, true, nil
}

func (t *BoltTier) Set(ctx context.Context, key Key, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("bolt marshal %s: %w", key, err)
	}
	err = t.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFor(key.Kind)).Put([]byte(key.String()), raw)
	})
	if err != nil {
		return fmt.Errorf("bolt set %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (t *BoltTier) Close() error { return t.db.Close() }
