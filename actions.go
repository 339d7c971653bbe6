// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// actions.go — the latent action manager: registers load actions by key,
// rejects duplicates and steps every live action on each host tick.

package savestate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AndrewDonelson/savestate/internal/clock"
	"github.com/google/uuid"
)

// ActionKey identifies a latent action: the object waiting on it and an id
// unique to the call site.
type ActionKey struct {
	Target string
	ID     uuid.UUID
}

// NewActionKey returns a key for target with a fresh random id.
func NewActionKey(target string) ActionKey {
	return ActionKey{Target: target, ID: uuid.New()}
}

func (k ActionKey) String() string {
	return k.Target + "/" + k.ID.String()
}

// ActionManager owns the in-flight load actions. The host drives it by
// calling Tick (or Update) once per frame.
type ActionManager struct {
	mu      sync.Mutex
	actions map[ActionKey]*LoadAction
	order   []ActionKey
	ticker  *clock.Ticker
}

func newActionManager(s *System) *ActionManager {
	return &ActionManager{
		actions: make(map[ActionKey]*LoadAction),
		ticker:  clock.NewTicker(s.cfg.Clock),
	}
}

// add registers a under its key. An action already registered under the key
// is left untouched and ErrActionInFlight is returned.
func (m *ActionManager) add(a *LoadAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.actions[a.key]; exists {
		return fmt.Errorf("%w: %s", ErrActionInFlight, a.key)
	}
	m.actions[a.key] = a
	m.order = append(m.order, a.key)
	return nil
}

// Find returns the action registered under key.
func (m *ActionManager) Find(key ActionKey) (*LoadAction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[key]
	return a, ok
}

// Len is the number of registered actions.
func (m *ActionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions)
}

// Update advances every action by one transition in registration order and
// drops the ones that finished. It returns the number still registered.
func (m *ActionManager) Update(dt time.Duration) int {
	for _, a := range m.snapshot() {
		if a.Update(dt) {
			m.remove(a.key)
		}
	}
	return m.Len()
}

// Tick calls Update with the time elapsed since the previous Tick.
func (m *ActionManager) Tick() int {
	return m.Update(m.ticker.Tick())
}

// Abort aborts and drops the action registered under key.
func (m *ActionManager) Abort(key ActionKey) bool {
	a, ok := m.Find(key)
	if !ok {
		return false
	}
	aborted := a.Abort()
	m.remove(key)
	return aborted
}

// AbortAll aborts and drops every registered action.
func (m *ActionManager) AbortAll() {
	for _, a := range m.snapshot() {
		a.Abort()
		m.remove(a.key)
	}
}

func (m *ActionManager) snapshot() []*LoadAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*LoadAction, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.actions[k])
	}
	return out
}

func (m *ActionManager) remove(key ActionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actions[key]; !ok {
		return
	}
	delete(m.actions, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Latent load
// ────────────────────────────────────────────────────────────────────────────

// LoadGameByPlayerName registers a latent load of playerName's save game
// into w under key. The action advances on ActionManager ticks and onDone
// fires once it finishes, failed or not. Nothing is registered when the
// arguments are invalid, an action already holds key, or another pass holds
// the player's slot (ErrPassInFlight).
func (s *System) LoadGameByPlayerName(ctx context.Context, w World, key ActionKey, playerName string, pc PlayerController, onDone func(*SaveGame, error)) (*LoadAction, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	if !ValidPlayerName(playerName) {
		s.logger.Warn("savestate: load rejected", "player", playerName, "error", ErrInvalidPlayerName)
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlayerName, playerName)
	}
	if isNil(w) {
		return nil, ErrNilWorld
	}
	if isNil(pc) {
		return nil, ErrNilController
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a := &LoadAction{
		sys:        s,
		ctx:        ctx,
		key:        key,
		world:      w,
		playerName: playerName,
		pc:         pc,
		onDone:     onDone,
		state:      StateInitializing,
	}
	if err := s.actions.add(a); err != nil {
		s.logger.Warn("savestate: load action already registered", "action", key.String(), "player", playerName)
		return nil, err
	}
	if s.passHeld(playerName) {
		s.actions.remove(key)
		s.logger.Warn("savestate: load rejected, slot busy", "action", key.String(), "player", playerName)
		return nil, fmt.Errorf("%w: slot %q", ErrPassInFlight, playerName)
	}
	s.logger.Debug("savestate: load action registered", "action", key.String(), "player", playerName)
	return a, nil
}
