// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// redisslot.go — Redis-backed save slot store. Each slot is one string key
// holding the encoded save-game container; listing walks the key space with
// SCAN so it is safe against large production instances.

// Package redisslot provides the Redis save slot backend.
package redisslot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces slot keys when no prefix is configured.
const DefaultKeyPrefix = "savestate"

// Options configures a Store.
type Options struct {
	Client    redis.UniversalClient
	KeyPrefix string
	// TTL expires idle slots; 0 keeps them forever.
	TTL time.Duration
}

// Store is the Redis slot adapter.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	hits      atomic.Int64
	misses    atomic.Int64
}

// New creates a Store.
func New(opts Options) *Store {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &Store{client: opts.Client, keyPrefix: opts.KeyPrefix, ttl: opts.TTL}
}

// userPrefix is the key prefix shared by every slot of one user index.
func (s *Store) userPrefix(userIndex int) string {
	return s.keyPrefix + ":slot:" + strconv.Itoa(userIndex) + ":"
}

// key returns the Redis key for a slot.
func (s *Store) key(slot string, userIndex int) string {
	return s.userPrefix(userIndex) + slot
}

// Save writes data under slot/userIndex.
func (s *Store) Save(ctx context.Context, slot string, userIndex int, data []byte) error {
	k := s.key(slot, userIndex)
	if err := s.client.Set(ctx, k, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisslot set %s: %w", k, err)
	}
	return nil
}

// Load reads the bytes stored under slot/userIndex.
func (s *Store) Load(ctx context.Context, slot string, userIndex int) ([]byte, bool, error) {
	k := s.key(slot, userIndex)
	b, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redisslot get %s: %w", k, err)
	}
	s.hits.Add(1)
	return b, true, nil
}

// Exists reports whether slot/userIndex is stored.
func (s *Store) Exists(ctx context.Context, slot string, userIndex int) (bool, error) {
	k := s.key(slot, userIndex)
	n, err := s.client.Exists(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redisslot exists %s: %w", k, err)
	}
	return n > 0, nil
}

// Delete removes slot/userIndex.
func (s *Store) Delete(ctx context.Context, slot string, userIndex int) error {
	k := s.key(slot, userIndex)
	if err := s.client.Del(ctx, k).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisslot delete %s: %w", k, err)
	}
	return nil
}

// List returns the sorted slot names stored for userIndex using SCAN.
func (s *Store) List(ctx context.Context, userIndex int) ([]string, error) {
	prefix := s.userPrefix(userIndex)
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redisslot scan: %w", err)
		}
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(out)
	return out, nil
}

// Publish sends payload on channel.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription to channel.
func (s *Store) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return s.client.Subscribe(ctx, channel)
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Stats holds hit and miss counts.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
