/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package storage holds small JSON records between page loads of the moderator console.
//
// Nothing here is meant to outlive a game: callers purge their keys when the
// console is hidden or the game is reset.
package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrNotConfigured = errors.New("storage is not configured")

// Store is a key-value store of JSON-encoded values.
type Store interface {
	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value any) error
	// Load decodes the value under key into value. A missing or undecodable
	// record reports false with a nil error.
	Load(ctx context.Context, key string, value any) (bool, error)
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Purge removes every key starting with prefix, plus each key listed in keys.
func Purge(ctx context.Context, s Store, prefix string, keys ...string) error {
	all, err := s.Keys(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range all {
		if !matches(key, prefix, keys) {
			continue
		}
		if err := s.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func matches(key, prefix string, keys []string) bool {
	if prefix != "" && strings.HasPrefix(key, prefix) {
		return true
	}
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
