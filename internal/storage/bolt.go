/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const recordBucket = "records"

// Bolt is a Store backed by a BoltDB file.
type Bolt struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create %s bucket: %w", recordBucket, err)
	}

	return &Bolt{db: db}, nil
}

func (s *Bolt) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Bolt) Save(ctx context.Context, key string, value any) error {
	if err := s.ready(ctx, key); err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordBucket)).Put([]byte(key), payload)
	})
}

func (s *Bolt) Load(ctx context.Context, key string, value any) (bool, error) {
	if err := s.ready(ctx, key); err != nil {
		return false, err
	}

	var payload []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		// Bolt only guarantees the slice for the life of the transaction.
		if v := tx.Bucket([]byte(recordBucket)).Get([]byte(key)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if payload == nil {
		return false, nil
	}

	if err := json.Unmarshal(payload, value); err != nil {
		return false, nil
	}

	return true, nil
}

func (s *Bolt) Remove(ctx context.Context, key string) error {
	if err := s.ready(ctx, key); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordBucket)).Delete([]byte(key))
	})
}

func (s *Bolt) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})

	return keys, err
}

// Purge removes matching keys in a single transaction.
func (s *Bolt) Purge(ctx context.Context, prefix string, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))

		var doomed [][]byte
		err := bucket.ForEach(func(k, _ []byte) error {
			if matches(string(k), prefix, keys) {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range doomed {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Bolt) ready(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("storage key is required")
	}
	return nil
}
