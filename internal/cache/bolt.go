package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "lookups"

// entry wraps a cached value with its expiry
type entry struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// BoltCache is a single-file local cache for workstation runs
type BoltCache struct {
	db     *bolt.DB
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

// NewBoltCache opens (creating if needed) the cache file at path.
// A zero ttl means entries never expire.
func NewBoltCache(path string, ttl time.Duration, logger *logrus.Logger) (*BoltCache, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt cache path missing")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	logger.WithField("path", path).Debug("bolt cache opened")
	return &BoltCache{db: db, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Get implements Cache
func (c *BoltCache) Get(_ context.Context, key string, target interface{}) (bool, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		// Copy out: the slice is only valid inside the transaction
		if v := bucket.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("bolt get failed for key %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached entry for key %s: %w", key, err)
	}
	if !e.ExpiresAt.IsZero() && c.now().After(e.ExpiresAt) {
		c.logger.WithField("key", key).Debug("cache entry expired")
		return false, nil
	}

	if err := json.Unmarshal(e.Value, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}
	return true, nil
}

// Set implements Cache
func (c *BoltCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	e := entry{Value: raw}
	if c.ttl > 0 {
		e.ExpiresAt = c.now().Add(c.ttl)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

// Clear implements Cache
func (c *BoltCache) Clear(_ context.Context) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Close implements Cache
func (c *BoltCache) Close() error {
	return c.db.Close()
}
