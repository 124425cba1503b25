/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is a Store that keeps records in process memory.
type Memory struct {
	records map[string][]byte
	mu      sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string][]byte),
	}
}

func (s *Memory) Save(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = payload

	return nil
}

func (s *Memory) Load(ctx context.Context, key string, value any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	payload, ok := s.records[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(payload, value); err != nil {
		return false, nil
	}

	return true, nil
}

func (s *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)

	return nil
}

func (s *Memory) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}

	return keys, nil
}

func (s *Memory) Purge(ctx context.Context, prefix string, keys ...string) error {
	return Purge(ctx, s, prefix, keys...)
}

