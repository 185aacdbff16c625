// Package cache keeps tracker responses on disk so repeated runs over the
// same project do not refetch unchanged pages.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// entry is the stored value: the raw body plus when it was fetched.
type entry struct {
	StoredAt time.Time `json:"stored_at"`
	Body     []byte    `json:"body"`
}

// Manager is a bbolt-backed response cache with a fixed time-to-live.
// A nil *Manager is a valid cache that never hits.
type Manager struct {
	db     *bolt.DB
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

// Open opens (or creates) the cache file at path.
func Open(path string, ttl time.Duration, logger *logrus.Logger) (*Manager, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", path, err)
	}

	return &Manager{db: db, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Get returns the cached body for key in bucket if it is younger than the TTL.
func (m *Manager) Get(bucket, key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}

	var e entry
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		data := b.Get([]byte(key))
		if data == nil {
			return bolt.ErrBucketNotFound
		}
		return json.Unmarshal(data, &e)
	})
	if err != nil {
		return nil, false
	}

	if m.ttl > 0 && m.now().Sub(e.StoredAt) > m.ttl {
		m.logger.WithFields(logrus.Fields{"bucket": bucket, "key": key}).Debug("cache entry expired")
		return nil, false
	}
	return e.Body, true
}

// Set stores body under key in bucket.
func (m *Manager) Set(bucket, key string, body []byte) error {
	if m == nil {
		return nil
	}

	data, err := json.Marshal(entry{StoredAt: m.now(), Body: body})
	if err != nil {
		return err
	}
	return m.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

// Clear drops every bucket.
func (m *Manager) Clear() error {
	if m == nil {
		return nil
	}

	m.logger.Info("clearing response cache")
	return m.db.Update(func(tx *bolt.Tx) error {
		var names [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the cache file.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.db.Close()
}
