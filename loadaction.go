// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// loadaction.go — the latent load-by-player-name state machine. Each
// Update advances at most one state so the side effects of a state are
// visible to the host for a full tick before the next one runs.

package savestate

import (
	"context"
	"sync"
	"time"
)

// LoadState is the state of a LoadAction.
type LoadState int

const (
	// StateInitializing retrieves or creates the save game and suppresses
	// reference population.
	StateInitializing LoadState = iota
	// StateRetrieving waits for Config.SettleDelay to elapse.
	StateRetrieving
	// StateLoadingActorData parks the pawn and restores the current level.
	StateLoadingActorData
	// StateLoadingPlayerData restores the pawn and player objects.
	StateLoadingPlayerData
	// StateCompleted is terminal. Err reports whether the load failed.
	StateCompleted
	// StateAborted is terminal, reached through Abort.
	StateAborted
)

func (s LoadState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRetrieving:
		return "retrieving"
	case StateLoadingActorData:
		return "loading_actor_data"
	case StateLoadingPlayerData:
		return "loading_player_data"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen from s.
func (s LoadState) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// LoadAction loads a player's save game into a world over several ticks.
// Create one with System.LoadGameByPlayerName.
type LoadAction struct {
	sys        *System
	ctx        context.Context
	key        ActionKey
	world      World
	playerName string
	pc         PlayerController
	onDone     func(*SaveGame, error)

	mu       sync.Mutex
	state    LoadState
	sg       *SaveGame
	holdsSG  bool
	elapsed  time.Duration
	err      error
	finished bool
	stepping bool
}

// Key returns the key the action is registered under.
func (a *LoadAction) Key() ActionKey { return a.key }

// PlayerName returns the player whose save game is loaded.
func (a *LoadAction) PlayerName() string { return a.playerName }

// State returns the current state.
func (a *LoadAction) State() LoadState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the failure that ended the action, or nil.
func (a *LoadAction) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// SaveGame returns the save game being loaded; nil before it is retrieved.
func (a *LoadAction) SaveGame() *SaveGame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sg
}

// Done reports whether the action reached a terminal state.
func (a *LoadAction) Done() bool { return a.State().Terminal() }

// Update advances the action by one transition, dt being the time elapsed
// since the previous Update. It reports whether the action is done. The
// state body runs without the action's lock, so callbacks invoked by the
// load may query or abort the action; an Update issued from inside such a
// callback does nothing.
func (a *LoadAction) Update(dt time.Duration) bool {
	a.mu.Lock()
	if a.stepping || a.state.Terminal() {
		done := a.state.Terminal()
		a.mu.Unlock()
		return done
	}
	a.stepping = true
	from := a.state
	a.mu.Unlock()

	next, err := a.step(from, dt)

	a.mu.Lock()
	a.stepping = false
	applied := !a.state.Terminal()
	if applied {
		a.state = next
		if err != nil {
			a.err = err
		}
	}
	to := a.state
	notify := a.settle()
	a.mu.Unlock()

	if applied && from != to {
		a.sys.stateChanged(a.key, from, to)
	}
	if notify {
		a.sys.loadFinished(a)
	}
	return to.Terminal()
}

// step runs the body of state from and returns the state to move to. Only
// the goroutine that set a.stepping calls it.
func (a *LoadAction) step(from LoadState, dt time.Duration) (LoadState, error) {
	switch from {
	case StateInitializing:
		return a.initialize()
	case StateRetrieving:
		a.elapsed += dt
		if a.elapsed >= a.sys.cfg.SettleDelay {
			return StateLoadingActorData, nil
		}
		return StateRetrieving, nil
	case StateLoadingActorData:
		if !isNil(a.pc) {
			a.sys.parkPawn(a.pc)
		}
		a.sys.loadPersistentActors(a.world, a.sg)
		return StateLoadingPlayerData, nil
	case StateLoadingPlayerData:
		return StateCompleted, a.sys.loadPlayerData(a.world, a.sg, a.pc)
	}
	return from, nil
}

// Abort stops the action. The callback fires with ErrAborted, once the
// running state body returns if Abort is called from inside it. It reports
// false when the action had already finished.
func (a *LoadAction) Abort() bool {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return false
	}
	from := a.state
	a.state = StateAborted
	a.err = ErrAborted
	notify := a.settle()
	a.mu.Unlock()

	a.sys.stateChanged(a.key, from, StateAborted)
	if notify {
		a.sys.loadFinished(a)
	}
	return true
}

// initialize runs the Initializing state. A failure ends the action.
func (a *LoadAction) initialize() (LoadState, error) {
	sg, err := a.sys.GetSaveGame(a.ctx, a.playerName)
	if err != nil {
		return StateCompleted, err
	}
	if err := a.sys.beginPass(sg); err != nil {
		return StateCompleted, err
	}
	sg.SetPopulationSuppressed(true)

	a.mu.Lock()
	a.sg = sg
	a.holdsSG = true
	a.mu.Unlock()
	return StateRetrieving, nil
}

// settle releases the save game once the action is terminal and reports
// whether completion still has to be announced. Nothing is released while a
// state body is running. Callers hold a.mu.
func (a *LoadAction) settle() bool {
	if !a.state.Terminal() || a.finished || a.stepping {
		return false
	}
	a.finished = true
	if a.holdsSG {
		a.sys.endPass(a.sg)
		a.holdsSG = false
	}
	return true
}

// ────────────────────────────────────────────────────────────────────────────
// Notifications
// ────────────────────────────────────────────────────────────────────────────

func (s *System) stateChanged(key ActionKey, from, to LoadState) {
	s.metrics.RecordLoadState(to.String())
	s.logger.Debug("savestate: load state changed", "action", key.String(), "from", from.String(), "state", to.String())
	if h := s.cfg.Hooks.OnStateChange; h != nil {
		s.runHook("on_state_change", func() { h(key, from, to) })
	}
}

func (s *System) loadFinished(a *LoadAction) {
	a.mu.Lock()
	sg, err := a.sg, a.err
	a.mu.Unlock()

	if err != nil {
		s.stats.Errors.Add(1)
		s.metrics.RecordError("load_action")
		s.logger.Warn("savestate: load action failed", "action", a.key.String(), "player", a.playerName, "error", err)
	} else {
		s.logger.Info("savestate: load action completed", "action", a.key.String(), "player", a.playerName)
	}
	if a.onDone != nil {
		s.runHook("load_callback", func() { a.onDone(sg, err) })
	}
	if h := s.cfg.Hooks.AfterLoad; h != nil {
		s.runHook("after_load", func() { h(sg, err) })
	}
}
