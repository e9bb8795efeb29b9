package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBucket = "session"

// Bolt persists session keys in a single BoltDB bucket on local disk. It is safe
// for concurrent use, including Close racing other calls.
type Bolt struct {
	mu     sync.RWMutex
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (or creates) the database file at path and ensures the bucket exists.
func OpenBolt(path, bucket string) (*Bolt, error) {
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db, bucket: []byte(bucket)}, nil
}

// handle returns the open database with the read lock held. release must be called
// when ok is true.
func (b *Bolt) handle() (db *bolt.DB, release func(), ok bool) {
	if b == nil {
		return nil, nil, false
	}
	b.mu.RLock()
	if b.db == nil {
		b.mu.RUnlock()
		return nil, nil, false
	}
	return b.db, b.mu.RUnlock, true
}

func (b *Bolt) Get(_ context.Context, key string) (string, bool, error) {
	db, release, ok := b.handle()
	if !ok {
		return "", false, ErrClosed
	}
	defer release()

	var (
		value string
		found bool
	)
	err := db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(b.bucket).Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	return value, found, err
}

func (b *Bolt) Set(_ context.Context, key, value string) error {
	db, release, ok := b.handle()
	if !ok {
		return ErrClosed
	}
	defer release()
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), []byte(value))
	})
}

func (b *Bolt) Remove(_ context.Context, keys ...string) error {
	db, release, ok := b.handle()
	if !ok {
		return ErrClosed
	}
	defer release()
	return db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.bucket)
		for _, k := range keys {
			if err := bk.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close waits for in-flight calls and closes the file. Later calls return ErrClosed.
func (b *Bolt) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
