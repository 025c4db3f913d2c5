// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package bolt provides a storage.Storage kept in a bbolt database file.
//
// The database is opened for the duration of each operation only, so several
// processes on the same host can share one file the way browser windows of
// one origin share their local storage.  Watch reports the changes other
// processes make to the file.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	bolt "go.etcd.io/bbolt"

	"github.com/henrjk/connect-js/storage"
)

const (
	defaultBucket   = "anvil.connect"
	defaultTimeout  = 5 * time.Second
	defaultDebounce = 100 * time.Millisecond
)

// Storage is a storage.Storage and storage.Watcher backed by bbolt.
type Storage struct {
	path     string
	bucket   []byte
	timeout  time.Duration
	debounce time.Duration
	logger   hclog.Logger

	// known is the content of the bucket as last written or observed by
	// this process.  Watch only reports differences from it.
	mu    sync.Mutex
	known map[string]string
}

var (
	_ storage.Storage = (*Storage)(nil)
	_ storage.Watcher = (*Storage)(nil)
)

// New creates the database file at path if needed and returns a Storage for
// it.  Supported options: WithBucket, WithTimeout, WithDebounce, WithLogger.
func New(path string, opt ...Option) (*Storage, error) {
	const op = "bolt.New"
	if path == "" {
		return nil, fmt.Errorf("%s: missing path: %w", op, storage.ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s := &Storage{
		path:     path,
		bucket:   []byte(opts.withBucket),
		timeout:  opts.withTimeout,
		debounce: opts.withDebounce,
		logger:   opts.withLogger,
	}
	err := s.update(func(b *bolt.Bucket) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	known, err := s.snapshot()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.known = known
	return s, nil
}

// Path returns the database file.
func (s *Storage) Path() string { return s.path }

// Get implements storage.Storage.
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	const op = "bolt.(Storage).Get"
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var (
		value string
		found bool
	)
	err := s.view(func(b *bolt.Bucket) error {
		if v := b.Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return "", fmt.Errorf("%s: %q: %w", op, key, storage.ErrNotFound)
	}
	return value, nil
}

// Set implements storage.Storage.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	const op = "bolt.(Storage).Set"
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, storage.ErrInvalidParameter)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err := s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	s.known[key] = value
	s.mu.Unlock()
	return nil
}

// Delete implements storage.Storage.
func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "bolt.(Storage).Delete"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err := s.update(func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.mu.Lock()
	delete(s.known, key)
	s.mu.Unlock()
	return nil
}

var errMissingBucket = errors.New("missing bucket")

func (s *Storage) open(readOnly bool) (*bolt.DB, error) {
	return bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.timeout, ReadOnly: readOnly})
}

func (s *Storage) view(fn func(*bolt.Bucket) error) error {
	db, err := s.open(true)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return errMissingBucket
		}
		return fn(b)
	})
}

func (s *Storage) update(fn func(*bolt.Bucket) error) error {
	db, err := s.open(false)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func (s *Storage) snapshot() (map[string]string, error) {
	values := map[string]string{}
	err := s.view(func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			if v != nil {
				values[string(k)] = string(v)
			}
			return nil
		})
	})
	return values, err
}
