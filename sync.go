// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// sync.go — cross-instance slot cache invalidation over Redis pub/sub.
// Every System sharing a Redis tier drops its cached copy of a slot when
// another System writes or deletes it.

package savestate

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndrewDonelson/savestate/internal/memslot"
	"github.com/AndrewDonelson/savestate/internal/redisslot"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultInvalidationChannel is the pub/sub channel used when
// RedisConfig.InvalidationChannel is empty.
const DefaultInvalidationChannel = "savestate:invalidate"

// invalidationMsg is the pub/sub payload.
type invalidationMsg struct {
	Slot      string `json:"slot"`
	UserIndex int    `json:"user_index"`
	Op        string `json:"op"` // "save" | "delete"
	Origin    string `json:"origin"`
}

// slotSync publishes slot changes and evicts slots changed elsewhere.
type slotSync struct {
	bus      *redisslot.Store
	cache    *memslot.Store
	channel  string
	origin   string
	logger   Logger
	received atomic.Int64
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func newSlotSync(bus *redisslot.Store, cache *memslot.Store, channel string, logger Logger) *slotSync {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	return &slotSync{
		bus:     bus,
		cache:   cache,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// start subscribes before returning so that changes published after New
// are never missed. A failed subscription is retried in the background.
func (ss *slotSync) start() {
	sub, err := ss.subscribe()
	if err != nil {
		ss.logger.Warn("savestate: invalidation subscribe failed", "channel", ss.channel, "error", err)
	}
	ss.wg.Add(1)
	go ss.loop(sub)
}

func (ss *slotSync) stop() {
	close(ss.stopCh)
	ss.wg.Wait()
}

func (ss *slotSync) publish(ctx context.Context, slot string, userIndex int, op string) {
	b, _ := json.Marshal(invalidationMsg{Slot: slot, UserIndex: userIndex, Op: op, Origin: ss.origin})
	if err := ss.bus.Publish(ctx, ss.channel, b); err != nil {
		ss.logger.Warn("savestate: invalidation publish failed", "slot", slot, "error", err)
	}
}

func (ss *slotSync) subscribe() (*redis.PubSub, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := ss.bus.Subscribe(context.Background(), ss.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return sub, nil
}

func (ss *slotSync) loop(sub *redis.PubSub) {
	defer ss.wg.Done()
	for {
		if sub != nil {
			stopped := ss.consume(sub)
			_ = sub.Close()
			if stopped {
				return
			}
		}
		select {
		case <-ss.stopCh:
			return
		case <-time.After(500 * time.Millisecond):
		}
		var err error
		if sub, err = ss.subscribe(); err != nil {
			ss.logger.Warn("savestate: invalidation resubscribe failed", "channel", ss.channel, "error", err)
		}
	}
}

// consume handles messages until the subscription closes or stop is
// called; it reports true for the latter.
func (ss *slotSync) consume(sub *redis.PubSub) bool {
	msgCh := sub.Channel()
	for {
		select {
		case <-ss.stopCh:
			return true
		case msg, ok := <-msgCh:
			if !ok {
				return false
			}
			ss.handle(msg.Payload)
		}
	}
}

func (ss *slotSync) handle(payload string) {
	var msg invalidationMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		ss.logger.Warn("savestate: malformed invalidation message", "payload", payload, "error", err)
		return
	}
	if msg.Origin == ss.origin {
		return
	}
	_ = ss.cache.Delete(context.Background(), msg.Slot, msg.UserIndex)
	ss.received.Add(1)
	ss.logger.Debug("savestate: slot invalidated", "slot", msg.Slot, "user_index", msg.UserIndex, "op", msg.Op)
}
