// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// memslot.go — sharded, concurrent in-memory slot store. Used on its own as
// a process-local backend and in front of a durable backend as the
// write-through slot cache.

// Package memslot provides the in-memory save slot store.
package memslot

import (
	"container/list"
	"context"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

const numShards = 64

// Options configures a Store.
type Options struct {
	// MaxEntries bounds the number of slots held per shard; 0 is unbounded.
	// The least recently used slot is dropped when a shard is full.
	MaxEntries int
	OnEvict    func(slot string, userIndex int)
}

type entry struct {
	key       string
	slot      string
	userIndex int
	data      []byte
	elem      *list.Element
}

type shard struct {
	mu         sync.Mutex
	items      map[string]*entry
	lru        *list.List
	maxEntries int
	onEvict    func(slot string, userIndex int)
}

// Store is the sharded in-memory slot store.
type Store struct {
	shards [numShards]*shard
	hits   atomic.Int64
	misses atomic.Int64
	closed atomic.Bool
}

// New creates a Store.
func New(opts Options) *Store {
	s := &Store{}
	for i := 0; i < numShards; i++ {
		s.shards[i] = &shard{
			items:      make(map[string]*entry),
			lru:        list.New(),
			maxEntries: opts.MaxEntries,
			onEvict:    opts.OnEvict,
		}
	}
	return s
}

// Key joins a slot name and user index into the store key.
func Key(slot string, userIndex int) string {
	return strconv.Itoa(userIndex) + "/" + slot
}

func (s *Store) getShard(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%numShards]
}

// Save stores a copy of data under slot/userIndex.
func (s *Store) Save(_ context.Context, slot string, userIndex int, data []byte) error {
	key := Key(slot, userIndex)
	buf := append([]byte(nil), data...)
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.items[key]; ok {
		e.data = buf
		sh.lru.MoveToFront(e.elem)
		return nil
	}
	if sh.maxEntries > 0 && len(sh.items) >= sh.maxEntries {
		sh.evict()
	}
	e := &entry{key: key, slot: slot, userIndex: userIndex, data: buf}
	e.elem = sh.lru.PushFront(e)
	sh.items[key] = e
	return nil
}

// Load returns a copy of the bytes stored under slot/userIndex.
func (s *Store) Load(_ context.Context, slot string, userIndex int) ([]byte, bool, error) {
	key := Key(slot, userIndex)
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.items[key]
	if !ok {
		s.misses.Add(1)
		return nil, false, nil
	}
	sh.lru.MoveToFront(e.elem)
	s.hits.Add(1)
	return append([]byte(nil), e.data...), true, nil
}

// Exists reports whether slot/userIndex is held.
func (s *Store) Exists(_ context.Context, slot string, userIndex int) (bool, error) {
	key := Key(slot, userIndex)
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.items[key]
	return ok, nil
}

// Delete removes slot/userIndex. Deleting a missing slot is not an error.
func (s *Store) Delete(_ context.Context, slot string, userIndex int) error {
	key := Key(slot, userIndex)
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.items[key]; ok {
		sh.remove(e, false)
	}
	return nil
}

// List returns the sorted slot names stored for userIndex.
func (s *Store) List(_ context.Context, userIndex int) ([]string, error) {
	prefix := strconv.Itoa(userIndex) + "/"
	var out []string
	for i := 0; i < numShards; i++ {
		sh := s.shards[i]
		sh.mu.Lock()
		for k, e := range sh.items {
			if strings.HasPrefix(k, prefix) {
				out = append(out, e.slot)
			}
		}
		sh.mu.Unlock()
	}
	sort.Strings(out)
	return out, nil
}

// Flush removes every slot.
func (s *Store) Flush() {
	for i := 0; i < numShards; i++ {
		sh := s.shards[i]
		sh.mu.Lock()
		sh.items = make(map[string]*entry)
		sh.lru.Init()
		sh.mu.Unlock()
	}
}

// Stats holds hit/miss/entry counts.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	var total int64
	for i := 0; i < numShards; i++ {
		sh := s.shards[i]
		sh.mu.Lock()
		total += int64(len(sh.items))
		sh.mu.Unlock()
	}
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load(), Entries: total}
}

// Close releases all held slots. It is safe to call more than once.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.Flush()
	}
	return nil
}

func (sh *shard) evict() {
	if back := sh.lru.Back(); back != nil {
		sh.remove(back.Value.(*entry), true)
	}
}

func (sh *shard) remove(e *entry, evicted bool) {
	delete(sh.items, e.key)
	if e.elem != nil {
		sh.lru.Remove(e.elem)
	}
	if evicted && sh.onEvict != nil {
		sh.onEvict(e.slot, e.userIndex)
	}
}
