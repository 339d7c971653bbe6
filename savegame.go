// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// savegame.go — the per-player save game container: level buckets, player
// and autosaved object records, the reference-container table, and the
// transient state that coordinates a single save or load pass.

package savestate

import (
	"sync/atomic"
	"time"
)

// Scope selects one of the two player object record arrays.
type Scope int

const (
	// ScopePlayer holds records the game adds explicitly.
	ScopePlayer Scope = iota
	// ScopeAutosaved holds player-linked objects captured by every player
	// save. It is rebuilt from scratch on each save.
	ScopeAutosaved
)

func (s Scope) String() string {
	if s == ScopeAutosaved {
		return "autosaved"
	}
	return "player"
}

// SaveGame is the root aggregate written to a save slot. The exported
// fields are persisted; everything else lives only for the current pass.
// A SaveGame must not be used by two passes at once.
type SaveGame struct {
	PlayerName  string                         `msgpack:"player_name" json:"player_name"`
	SlotName    string                         `msgpack:"slot_name" json:"slot_name"`
	UserIndex   int                            `msgpack:"user_index" json:"user_index"`
	Stale       bool                           `msgpack:"stale" json:"stale"`
	SavedAt     time.Time                      `msgpack:"saved_at" json:"saved_at"`
	Player      ActorRecord                    `msgpack:"player" json:"player"`
	LastLevel   string                         `msgpack:"last_level" json:"last_level"`
	Levels      []LevelBucket                  `msgpack:"levels" json:"levels"`
	Objects     []ObjectRecord                 `msgpack:"objects" json:"objects"`
	AutoObjects []ObjectRecord                 `msgpack:"auto_objects" json:"auto_objects"`
	References  map[string]*ReferenceContainer `msgpack:"references" json:"references"`

	suppressPopulation bool
	playerObjects      []Object
	playerPawn         Pawn
	busy               atomic.Bool
}

// NewSaveGame returns an empty save game for playerName stored in the slot
// of the same name.
func NewSaveGame(playerName string, userIndex int) *SaveGame {
	return &SaveGame{
		PlayerName: playerName,
		SlotName:   playerName,
		UserIndex:  userIndex,
		References: make(map[string]*ReferenceContainer),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Level buckets
// ────────────────────────────────────────────────────────────────────────────

// ContainsLevel returns the index of the bucket for level, or -1.
func (sg *SaveGame) ContainsLevel(level string) int {
	for i := range sg.Levels {
		if sg.Levels[i].Level == level {
			return i
		}
	}
	return -1
}

// GetLevel returns a copy of the bucket at i, or a bucket whose Level is
// NoneName when i is out of range.
func (sg *SaveGame) GetLevel(i int) LevelBucket {
	if i < 0 || i >= len(sg.Levels) {
		return LevelBucket{Level: NoneName}
	}
	return sg.Levels[i].clone()
}

// AddOrReplaceLevel stores b, replacing any bucket with the same level.
func (sg *SaveGame) AddOrReplaceLevel(b LevelBucket) {
	if i := sg.ContainsLevel(b.Level); i >= 0 {
		sg.Levels[i] = b
		return
	}
	sg.Levels = append(sg.Levels, b)
}

// LevelsNum is the number of level buckets.
func (sg *SaveGame) LevelsNum() int { return len(sg.Levels) }

// ────────────────────────────────────────────────────────────────────────────
// Player object records
// ────────────────────────────────────────────────────────────────────────────

func (sg *SaveGame) scope(s Scope) *[]ObjectRecord {
	if s == ScopeAutosaved {
		return &sg.AutoObjects
	}
	return &sg.Objects
}

// ContainsObject returns the index of the record called name in scope, or -1.
func (sg *SaveGame) ContainsObject(name string, s Scope) int {
	for i, r := range *sg.scope(s) {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// GetObject returns the record at i in scope, or a record whose Name is
// NoneName when i is out of range.
func (sg *SaveGame) GetObject(i int, s Scope) ObjectRecord {
	arr := *sg.scope(s)
	if i < 0 || i >= len(arr) {
		return noneObject
	}
	return arr[i]
}

// AddOrReplaceObject stores r in scope, replacing a record with the same name.
func (sg *SaveGame) AddOrReplaceObject(r ObjectRecord, s Scope) {
	arr := sg.scope(s)
	if i := sg.ContainsObject(r.Name, s); i >= 0 {
		(*arr)[i] = r
		return
	}
	*arr = append(*arr, r)
}

// SavedObjectsNum is the number of records in scope.
func (sg *SaveGame) SavedObjectsNum(s Scope) int { return len(*sg.scope(s)) }

// SavedObjects returns a copy of the records in scope.
func (sg *SaveGame) SavedObjects(s Scope) []ObjectRecord {
	return append([]ObjectRecord(nil), *sg.scope(s)...)
}

// ClearAutosaved empties the autosaved scope only.
func (sg *SaveGame) ClearAutosaved() { sg.AutoObjects = nil }

// ────────────────────────────────────────────────────────────────────────────
// Pass state
// ────────────────────────────────────────────────────────────────────────────

// SetPopulationSuppressed turns PopulateReferenceMap into a no-op while on.
// Loads set it until player data is back, since the targets of player
// references do not exist before that.
func (sg *SaveGame) SetPopulationSuppressed(on bool) { sg.suppressPopulation = on }

// PopulationSuppressed reports the suppression flag.
func (sg *SaveGame) PopulationSuppressed() bool { return sg.suppressPopulation }

// PlayerPawn is the pawn restored by the last player load, or nil.
func (sg *SaveGame) PlayerPawn() Pawn { return sg.playerPawn }

// PlayerObjects are the player objects restored by the last player load.
func (sg *SaveGame) PlayerObjects() []Object {
	return append([]Object(nil), sg.playerObjects...)
}

// ReferenceContainerFor returns the container recorded for owner.
func (sg *SaveGame) ReferenceContainerFor(owner string) (*ReferenceContainer, bool) {
	c, ok := sg.References[owner]
	return c, ok
}

// beginPass claims the save game for one save or load pass and clears the
// restored-player transients of the previous pass.
func (sg *SaveGame) beginPass() error {
	if !sg.busy.CompareAndSwap(false, true) {
		return ErrPassInFlight
	}
	sg.playerObjects = nil
	sg.playerPawn = nil
	return nil
}

// endPass releases the claim taken by beginPass.
func (sg *SaveGame) endPass() { sg.busy.Store(false) }

// InPass reports whether a save or load pass currently holds sg.
func (sg *SaveGame) InPass() bool { return sg.busy.Load() }
