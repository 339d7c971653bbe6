// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// system.go — System is the main entry point: it owns the class registry,
// the slot router, the latent action manager and the ambient components,
// and exposes save game retrieval and flushing.

package savestate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndrewDonelson/savestate/internal/memslot"
	"github.com/AndrewDonelson/savestate/internal/pgslot"
	"github.com/AndrewDonelson/savestate/internal/redisslot"
	"github.com/AndrewDonelson/savestate/internal/sqliteslot"
	"github.com/redis/go-redis/v9"
)

// ────────────────────────────────────────────────────────────────────────────
// Stats
// ────────────────────────────────────────────────────────────────────────────

type systemStats struct {
	Saves   atomic.Int64
	Loads   atomic.Int64
	Deletes atomic.Int64
	Errors  atomic.Int64
}

// Stats is the snapshot returned by System.Stats().
type Stats struct {
	Saves         int64
	Loads         int64
	Deletes       int64
	Errors        int64
	ActiveActions int
	CachedSlots   int64
	// Invalidations counts cached slots dropped because another System
	// changed them.
	Invalidations int64
}

// ────────────────────────────────────────────────────────────────────────────
// System
// ────────────────────────────────────────────────────────────────────────────

// System saves and restores persistent objects for any number of players.
// At most one save or load pass runs per slot at a time; the System itself
// is safe for concurrent use.
type System struct {
	cfg     Config
	classes *ClassRegistry
	router  *slotRouter
	actions *ActionManager
	sync    *slotSync
	passes  sync.Map // passKey -> struct{}
	stats   systemStats
	metrics Recorder
	logger  Logger
	closed  atomic.Bool
}

// New creates a System from cfg. Slot tiers are opened in the order Redis,
// then the durable tier (cfg.Backend, Postgres or SQLite, first set wins).
// With Redis configured the System also subscribes to slot invalidations.
func New(cfg Config) (*System, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &System{
		cfg:     cfg,
		classes: NewClassRegistry(),
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}

	r := &slotRouter{logger: cfg.Logger, metrics: cfg.Metrics}

	// Shared tier
	var bus *redisslot.Store
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		bus = redisslot.New(redisslot.Options{
			Client:    client,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
		r.shared = bus
	}

	// Durable tier
	switch {
	case cfg.Backend != nil:
		r.durable = cfg.Backend
	case cfg.Postgres.DSN != "":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err := pgslot.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.Table, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
		cancel()
		if err != nil {
			closeTier(r.shared)
			return nil, fmt.Errorf("savestate: postgres: %w", err)
		}
		r.durable = store
	case cfg.SQLitePath != "":
		store, err := sqliteslot.Open(cfg.SQLitePath)
		if err != nil {
			closeTier(r.shared)
			return nil, fmt.Errorf("savestate: sqlite: %w", err)
		}
		r.durable = store
	}

	// Cache. It is unbounded when it is the only store.
	maxEntries := cfg.CacheEntries
	if r.shared == nil && r.durable == nil {
		maxEntries = 0
	}
	r.cache = memslot.New(memslot.Options{
		MaxEntries: maxEntries,
		OnEvict: func(slot string, userIndex int) {
			cfg.Logger.Debug("savestate: slot evicted from cache", "slot", slot, "user_index", userIndex)
		},
	})
	s.router = r

	if bus != nil {
		s.sync = newSlotSync(bus, r.cache, cfg.Redis.InvalidationChannel, cfg.Logger)
		s.sync.start()
	}
	s.actions = newActionManager(s)

	cfg.Logger.Info("savestate: system started",
		"redis", cfg.Redis.Addr != "",
		"durable", r.durable != nil,
		"codec", cfg.Codec.Name(),
	)
	return s, nil
}

func closeTier(b Backend) {
	if b != nil {
		_ = b.Close()
	}
}

// RegisterClass registers model's type under name so records of that class
// can be respawned. An empty name uses the struct type name.
func (s *System) RegisterClass(name string, model Object) error {
	c, err := s.classes.Register(name, model)
	if err != nil {
		return err
	}
	s.logger.Debug("savestate: class registered", "class", c.Name, "actor", c.IsActor())
	return nil
}

// Classes returns the class registry.
func (s *System) Classes() *ClassRegistry { return s.classes }

// Actions returns the latent load action manager.
func (s *System) Actions() *ActionManager { return s.actions }

// Logger returns the configured logger.
func (s *System) Logger() Logger { return s.logger }

// ────────────────────────────────────────────────────────────────────────────
// Save games
// ────────────────────────────────────────────────────────────────────────────

// GetSaveGame loads the save game stored in the slot named playerName. A
// new, empty save game is returned when the slot does not exist; nothing is
// written until Flush.
func (s *System) GetSaveGame(ctx context.Context, playerName string) (*SaveGame, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	if !ValidPlayerName(playerName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlayerName, playerName)
	}
	start := time.Now()
	s.stats.Loads.Add(1)
	defer func() { s.metrics.RecordLatency("load", time.Since(start)) }()

	data, found, err := s.router.load(ctx, playerName, s.cfg.UserIndex)
	if err != nil {
		s.stats.Errors.Add(1)
		return nil, fmt.Errorf("savestate: load slot %s: %w", playerName, err)
	}
	if !found {
		s.logger.Debug("savestate: creating save game", "player", playerName)
		return NewSaveGame(playerName, s.cfg.UserIndex), nil
	}
	sg, err := DecodeSaveGame(data)
	if err != nil {
		s.stats.Errors.Add(1)
		s.metrics.RecordError("decode")
		return nil, err
	}
	if sg.PlayerName == "" {
		sg.PlayerName = playerName
	}
	if sg.SlotName == "" {
		sg.SlotName = playerName
	}
	sg.UserIndex = s.cfg.UserIndex
	return sg, nil
}

// Flush writes sg to its slot. Flushing is never implicit outside the
// Save and DirectSave helpers.
func (s *System) Flush(ctx context.Context, sg *SaveGame) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if sg == nil {
		return ErrNilSaveGame
	}
	if !ValidPlayerName(sg.SlotName) {
		return fmt.Errorf("%w: slot %q", ErrInvalidPlayerName, sg.SlotName)
	}
	start := time.Now()
	sg.SavedAt = s.cfg.Clock.Now()

	data, err := EncodeSaveGame(s.cfg.Codec, sg)
	if err != nil {
		s.stats.Errors.Add(1)
		s.metrics.RecordError("encode")
		return err
	}
	if err := s.router.save(ctx, sg.SlotName, sg.UserIndex, data); err != nil {
		s.stats.Errors.Add(1)
		return fmt.Errorf("savestate: write slot %s: %w", sg.SlotName, err)
	}
	s.stats.Saves.Add(1)
	if s.sync != nil {
		s.sync.publish(ctx, sg.SlotName, sg.UserIndex, "save")
	}
	s.metrics.RecordLatency("save", time.Since(start))
	s.logger.Debug("savestate: save game flushed",
		"player", sg.PlayerName,
		"levels", sg.LevelsNum(),
		"bytes", len(data),
	)

	if h := s.cfg.Hooks.AfterSave; h != nil {
		s.runHook("after_save", func() { h(ctx, sg) })
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Pass guard
// ────────────────────────────────────────────────────────────────────────────

// passKey identifies the slot a pass works on.
type passKey struct {
	slot      string
	userIndex int
}

func keyOf(sg *SaveGame) passKey {
	slot := sg.SlotName
	if slot == "" {
		slot = sg.PlayerName
	}
	return passKey{slot: slot, userIndex: sg.UserIndex}
}

// beginPass claims sg and its slot for one save or load pass. A second
// pass over the same slot fails with ErrPassInFlight even when it works on
// a different SaveGame instance.
func (s *System) beginPass(sg *SaveGame) error {
	key := keyOf(sg)
	if _, held := s.passes.LoadOrStore(key, struct{}{}); held {
		s.logger.Warn("savestate: pass rejected, slot busy", "slot", key.slot, "user_index", key.userIndex)
		return fmt.Errorf("%w: slot %q", ErrPassInFlight, key.slot)
	}
	if err := sg.beginPass(); err != nil {
		s.passes.Delete(key)
		return err
	}
	return nil
}

// endPass releases the claims taken by beginPass.
func (s *System) endPass(sg *SaveGame) {
	s.passes.Delete(keyOf(sg))
	sg.endPass()
}

// passHeld reports whether a pass holds the slot of playerName.
func (s *System) passHeld(playerName string) bool {
	_, held := s.passes.Load(passKey{slot: playerName, userIndex: s.cfg.UserIndex})
	return held
}

// SaveGameExists reports whether a slot exists for playerName.
func (s *System) SaveGameExists(ctx context.Context, playerName string) (bool, error) {
	if s.closed.Load() {
		return false, ErrUnavailable
	}
	if !ValidPlayerName(playerName) {
		return false, fmt.Errorf("%w: %q", ErrInvalidPlayerName, playerName)
	}
	return s.router.exists(ctx, playerName, s.cfg.UserIndex)
}

// DeleteSaveGame removes the slot for playerName from every tier.
func (s *System) DeleteSaveGame(ctx context.Context, playerName string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if !ValidPlayerName(playerName) {
		return fmt.Errorf("%w: %q", ErrInvalidPlayerName, playerName)
	}
	s.stats.Deletes.Add(1)
	if err := s.router.delete(ctx, playerName, s.cfg.UserIndex); err != nil {
		s.stats.Errors.Add(1)
		return err
	}
	if s.sync != nil {
		s.sync.publish(ctx, playerName, s.cfg.UserIndex, "delete")
	}
	s.logger.Info("savestate: save game deleted", "player", playerName)
	return nil
}

// ListSaveGames returns the sorted slot names for the configured user index.
func (s *System) ListSaveGames(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	return s.router.list(ctx, s.cfg.UserIndex)
}

// Stats returns a snapshot of runtime counters.
func (s *System) Stats() Stats {
	var invalidations int64
	if s.sync != nil {
		invalidations = s.sync.received.Load()
	}
	return Stats{
		Saves:         s.stats.Saves.Load(),
		Loads:         s.stats.Loads.Load(),
		Deletes:       s.stats.Deletes.Load(),
		Errors:        s.stats.Errors.Load(),
		ActiveActions: s.actions.Len(),
		CachedSlots:   s.router.cache.Stats().Entries,
		Invalidations: invalidations,
	}
}

// Close aborts in-flight load actions and releases every slot tier.
func (s *System) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.actions.AbortAll()
	if s.sync != nil {
		s.sync.stop()
	}
	err := s.router.close()
	s.logger.Info("savestate: system closed")
	return err
}

// ────────────────────────────────────────────────────────────────────────────
// Notifications
// ────────────────────────────────────────────────────────────────────────────

// runHook calls fn, converting a panic into a logged ErrHookPanic.
func (s *System) runHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.stats.Errors.Add(1)
			s.metrics.RecordError("hook")
			s.logger.Error("savestate: hook failed", "hook", name, "error", fmt.Errorf("%w: %v", ErrHookPanic, r))
		}
	}()
	fn()
}

func (s *System) notifySaved(obj Object) {
	if p, ok := obj.(Persistent); ok {
		s.runHook("on_save_complete", p.OnSaveComplete)
	}
}

func (s *System) notifyLoaded(obj Object) {
	if p, ok := obj.(Persistent); ok {
		s.runHook("on_load_complete", p.OnLoadComplete)
	}
}
