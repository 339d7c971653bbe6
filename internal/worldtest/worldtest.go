// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// worldtest.go — in-memory World, PlayerController and Logger used by tests
// and examples.

// Package worldtest provides an in-memory engine world for exercising the
// save system without a running engine.
package worldtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AndrewDonelson/savestate"
)

// ErrNameInUse is returned when a live object already holds the name.
var ErrNameInUse = errors.New("worldtest: name already in use")

// ────────────────────────────────────────────────────────────────────────────
// World
// ────────────────────────────────────────────────────────────────────────────

// World is an in-memory savestate.World. Destroy removes an object from
// every lookup immediately; CollectGarbage drops the destroyed instances.
// It also implements savestate.PlayerStartFinder and savestate.LevelOpener.
type World struct {
	mu      sync.Mutex
	level   string
	byName  map[string]savestate.Object
	order   []string
	rooted  map[savestate.Object]bool
	pending []savestate.Object
	seq     int

	// PlayerStart is returned by FindPlayerStart when non-nil.
	PlayerStart *savestate.Transform

	gcRuns    int
	destroyed []string
	opened    []string
}

// New returns an empty world with level loaded.
func New(level string) *World {
	return &World{
		level:  level,
		byName: make(map[string]savestate.Object),
		rooted: make(map[savestate.Object]bool),
	}
}

// CurrentLevel implements savestate.World.
func (w *World) CurrentLevel() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.level
}

// SetLevel switches the current level without touching live objects.
func (w *World) SetLevel(level string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.level = level
}

// Objects implements savestate.World.
func (w *World) Objects() []savestate.Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []savestate.Object
	for _, name := range w.order {
		obj := w.byName[name]
		if _, isActor := obj.(savestate.Actor); !isActor {
			out = append(out, obj)
		}
	}
	return out
}

// Actors implements savestate.World.
func (w *World) Actors() []savestate.Actor {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []savestate.Actor
	for _, name := range w.order {
		if a, ok := w.byName[name].(savestate.Actor); ok {
			out = append(out, a)
		}
	}
	return out
}

// FindObject implements savestate.World.
func (w *World) FindObject(name string) (savestate.Object, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	obj, ok := w.byName[name]
	return obj, ok
}

// NewObject implements savestate.World. An empty name is generated.
func (w *World) NewObject(obj savestate.Object, name string, outer savestate.Object) error {
	return w.register(obj, name, outer, nil)
}

// SpawnActor implements savestate.World. The actor's outer is its owner.
func (w *World) SpawnActor(a savestate.Actor, t savestate.Transform, name string, owner savestate.Object) error {
	return w.register(a, name, owner, func() { a.SetTransform(t) })
}

func (w *World) register(obj savestate.Object, name string, outer savestate.Object, init func()) error {
	setter, ok := obj.(savestate.IdentitySetter)
	if !ok {
		return fmt.Errorf("worldtest: %T cannot be named", obj)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "" {
		w.seq++
		name = fmt.Sprintf("%T_%d", obj, w.seq)
	}
	if _, exists := w.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrNameInUse, name)
	}
	setter.SetIdentity(name, outer)
	if init != nil {
		init()
	}
	w.byName[name] = obj
	w.order = append(w.order, name)
	return nil
}

// Destroy implements savestate.World.
func (w *World) Destroy(obj savestate.Object) {
	w.mu.Lock()
	defer w.mu.Unlock()
	name := obj.ObjectName()
	if w.byName[name] != obj {
		return
	}
	delete(w.byName, name)
	for i, n := range w.order {
		if n == name {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	delete(w.rooted, obj)
	w.pending = append(w.pending, obj)
	w.destroyed = append(w.destroyed, name)
}

// CollectGarbage implements savestate.World.
func (w *World) CollectGarbage() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = nil
	w.gcRuns++
}

// IsRooted implements savestate.World.
func (w *World) IsRooted(obj savestate.Object) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rooted[obj]
}

// AddToRoot implements savestate.World.
func (w *World) AddToRoot(obj savestate.Object) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rooted[obj] = true
}

// RemoveFromRoot implements savestate.World.
func (w *World) RemoveFromRoot(obj savestate.Object) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.rooted, obj)
}

// FindPlayerStart implements savestate.PlayerStartFinder.
func (w *World) FindPlayerStart(savestate.PlayerController) (savestate.Transform, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.PlayerStart == nil {
		return savestate.Transform{}, false
	}
	return *w.PlayerStart, true
}

// OpenLevel implements savestate.LevelOpener. Live objects are kept.
func (w *World) OpenLevel(level, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.level = level
	w.opened = append(w.opened, level)
	return nil
}

// GCRuns is the number of CollectGarbage calls.
func (w *World) GCRuns() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gcRuns
}

// Destroyed lists the names passed to Destroy, in order.
func (w *World) Destroyed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.destroyed...)
}

// Opened lists the levels passed to OpenLevel, in order.
func (w *World) Opened() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.opened...)
}

// Len is the number of live objects and actors.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byName)
}

// ────────────────────────────────────────────────────────────────────────────
// Controller
// ────────────────────────────────────────────────────────────────────────────

// Controller is a minimal savestate.PlayerController.
type Controller struct {
	savestate.ObjectBase
	pawn savestate.Pawn
}

// NewController returns a controller named name possessing nothing.
func NewController(name string) *Controller {
	c := &Controller{}
	c.SetIdentity(name, nil)
	return c
}

// Pawn returns the possessed pawn, or nil.
func (c *Controller) Pawn() savestate.Pawn { return c.pawn }

// Possess takes control of p, releasing the current pawn first.
func (c *Controller) Possess(p savestate.Pawn) {
	c.UnPossess()
	if p == nil {
		return
	}
	c.pawn = p
	p.SetController(c)
}

// UnPossess releases the current pawn.
func (c *Controller) UnPossess() {
	if c.pawn == nil {
		return
	}
	c.pawn.SetController(nil)
	c.pawn = nil
}

// ────────────────────────────────────────────────────────────────────────────
// Logger
// ────────────────────────────────────────────────────────────────────────────

// Entry is one message captured by Logger.
type Entry struct {
	Level string
	Msg   string
	KV    []any
}

// Logger is a savestate.Logger that keeps every message.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *Logger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, KV: kv})
}

func (l *Logger) Info(msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.add("error", msg, kv) }
func (l *Logger) Debug(msg string, kv ...any) { l.add("debug", msg, kv) }

// Entries returns the captured messages at level, or all when level is "".
func (l *Logger) Entries(level string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
