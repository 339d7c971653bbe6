// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// persist.go — slot routing across the storage tiers (in-memory cache,
// Redis, durable SQL backend) and the slot envelope that records which
// codec wrote a save game.

package savestate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AndrewDonelson/savestate/internal/codec"
	"github.com/AndrewDonelson/savestate/internal/memslot"
	"github.com/vmihailenco/msgpack/v5"
)

// Backend stores encoded save games keyed by slot name and user index.
// Implementations must be safe for concurrent use.
type Backend interface {
	Save(ctx context.Context, slot string, userIndex int, data []byte) error
	// Load reports found=false, with a nil error, when the slot is empty.
	Load(ctx context.Context, slot string, userIndex int) (data []byte, found bool, err error)
	Exists(ctx context.Context, slot string, userIndex int) (bool, error)
	Delete(ctx context.Context, slot string, userIndex int) error
	// List returns the sorted slot names stored for userIndex.
	List(ctx context.Context, userIndex int) ([]string, error)
	Close() error
}

// ────────────────────────────────────────────────────────────────────────────
// Envelope
// ────────────────────────────────────────────────────────────────────────────

// slotEnvelope wraps an encoded save game with the name of its codec so a
// slot can be read back whatever the current configuration.
type slotEnvelope struct {
	Codec   string    `msgpack:"codec"`
	SavedAt time.Time `msgpack:"saved_at"`
	Body    []byte    `msgpack:"body"`
}

// EncodeSaveGame serializes sg with c into a slot payload.
func EncodeSaveGame(c Codec, sg *SaveGame) ([]byte, error) {
	if sg == nil {
		return nil, ErrNilSaveGame
	}
	if c == nil {
		c = codec.Default
	}
	body, err := c.Marshal(sg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	b, err := msgpack.Marshal(slotEnvelope{Codec: c.Name(), SavedAt: sg.SavedAt, Body: body})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return b, nil
}

// DecodeSaveGame reads a slot payload written by EncodeSaveGame.
func DecodeSaveGame(data []byte) (*SaveGame, error) {
	var env slotEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	c, err := codec.ByName(env.Codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	sg := &SaveGame{}
	if err := c.Unmarshal(env.Body, sg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if sg.References == nil {
		sg.References = make(map[string]*ReferenceContainer)
	}
	return sg, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Router
// ────────────────────────────────────────────────────────────────────────────

// slotRouter fronts the configured tiers. Reads go cache -> shared ->
// durable and back-fill the upper tiers; writes go durable -> shared ->
// cache. With no durable or shared tier the cache is the store.
type slotRouter struct {
	cache   *memslot.Store
	shared  Backend // Redis
	durable Backend // Postgres, SQLite or caller supplied
	logger  Logger
	metrics Recorder
}

func (r *slotRouter) tiers() []Backend {
	out := make([]Backend, 0, 2)
	if r.shared != nil {
		out = append(out, r.shared)
	}
	if r.durable != nil {
		out = append(out, r.durable)
	}
	return out
}

// authoritative is the lowest configured tier.
func (r *slotRouter) authoritative() Backend {
	if r.durable != nil {
		return r.durable
	}
	if r.shared != nil {
		return r.shared
	}
	return r.cache
}

func (r *slotRouter) load(ctx context.Context, slot string, userIndex int) ([]byte, bool, error) {
	if b, ok, _ := r.cache.Load(ctx, slot, userIndex); ok {
		r.metrics.RecordLoad(slot, true)
		return b, true, nil
	}

	var firstErr error
	if r.shared != nil {
		b, ok, err := r.shared.Load(ctx, slot, userIndex)
		switch {
		case err != nil:
			r.logger.Warn("savestate: shared tier load failed", "slot", slot, "error", err)
			firstErr = err
		case ok:
			_ = r.cache.Save(ctx, slot, userIndex, b)
			r.metrics.RecordLoad(slot, true)
			return b, true, nil
		}
	}

	if r.durable != nil {
		b, ok, err := r.durable.Load(ctx, slot, userIndex)
		if err != nil {
			r.metrics.RecordError("load")
			return nil, false, err
		}
		if ok {
			if r.shared != nil {
				if err := r.shared.Save(ctx, slot, userIndex, b); err != nil {
					r.logger.Warn("savestate: shared tier back-fill failed", "slot", slot, "error", err)
				}
			}
			_ = r.cache.Save(ctx, slot, userIndex, b)
			r.metrics.RecordLoad(slot, true)
			return b, true, nil
		}
		firstErr = nil
	}

	if firstErr != nil {
		r.metrics.RecordError("load")
		return nil, false, firstErr
	}
	r.metrics.RecordLoad(slot, false)
	return nil, false, nil
}

func (r *slotRouter) save(ctx context.Context, slot string, userIndex int, data []byte) error {
	if r.durable != nil {
		if err := r.durable.Save(ctx, slot, userIndex, data); err != nil {
			r.metrics.RecordError("save")
			return err
		}
	}
	if r.shared != nil {
		if err := r.shared.Save(ctx, slot, userIndex, data); err != nil {
			if r.durable == nil {
				r.metrics.RecordError("save")
				return err
			}
			r.logger.Warn("savestate: shared tier write failed", "slot", slot, "error", err)
			_ = r.shared.Delete(ctx, slot, userIndex)
		}
	}
	if err := r.cache.Save(ctx, slot, userIndex, data); err != nil {
		return err
	}
	r.metrics.RecordSave(slot)
	return nil
}

func (r *slotRouter) exists(ctx context.Context, slot string, userIndex int) (bool, error) {
	if ok, _ := r.cache.Exists(ctx, slot, userIndex); ok {
		return true, nil
	}
	var lastErr error
	for _, t := range r.tiers() {
		ok, err := t.Exists(ctx, slot, userIndex)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, lastErr
}

func (r *slotRouter) delete(ctx context.Context, slot string, userIndex int) error {
	var errs []error
	for _, t := range r.tiers() {
		if err := t.Delete(ctx, slot, userIndex); err != nil {
			errs = append(errs, err)
		}
	}
	_ = r.cache.Delete(ctx, slot, userIndex)
	return errors.Join(errs...)
}

func (r *slotRouter) list(ctx context.Context, userIndex int) ([]string, error) {
	return r.authoritative().List(ctx, userIndex)
}

func (r *slotRouter) close() error {
	var errs []error
	for _, t := range r.tiers() {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = r.cache.Close()
	return errors.Join(errs...)
}
