// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// world.go — the host engine boundary: object lifecycle, live-object
// enumeration and level queries, plus the persistent-object query built on
// top of them.

package savestate

import (
	"reflect"
	"strings"
)

// NoneName is the identity of "nothing": an unset actor record, a missing
// level bucket, an invalid player name.
const NoneName = "None"

// World is the live engine world a save or load pass runs against. It is
// passed explicitly to every operation.
//
// Destroy must remove the object from FindObject, Objects and Actors before
// it returns, so that a new object can be created under the same name right
// away. CollectGarbage reclaims whatever Destroy left behind.
type World interface {
	// CurrentLevel is the identity of the loaded level.
	CurrentLevel() string
	// Objects lists live non-actor objects.
	Objects() []Object
	// Actors lists live actors.
	Actors() []Actor
	// FindObject looks up a live object or actor by stable name.
	FindObject(name string) (Object, bool)
	// NewObject registers obj under name inside outer. A nil outer places
	// the object at the world root.
	NewObject(obj Object, name string, outer Object) error
	// SpawnActor places a in the world at t under name. owner may be nil.
	SpawnActor(a Actor, t Transform, name string, owner Object) error
	Destroy(obj Object)
	CollectGarbage()
	IsRooted(obj Object) bool
	AddToRoot(obj Object)
	RemoveFromRoot(obj Object)
}

// PlayerStartFinder is implemented by worlds that can choose a spawn point
// for a player entering the level.
type PlayerStartFinder interface {
	FindPlayerStart(pc PlayerController) (Transform, bool)
}

// LevelOpener is implemented by worlds that can travel to another level.
type LevelOpener interface {
	OpenLevel(level, options string) error
}

// PersistentObjects splits the live persistent objects of w. Non-actor
// objects are split by IsLinkedToPlayer; every persistent actor is a map
// actor.
func PersistentObjects(w World) (playerLinked, mapLinked []Persistent, mapActors []Actor) {
	for _, obj := range w.Objects() {
		if _, isActor := obj.(Actor); isActor {
			continue
		}
		p, ok := obj.(Persistent)
		if !ok || isNil(p) {
			continue
		}
		if p.IsLinkedToPlayer() {
			playerLinked = append(playerLinked, p)
		} else {
			mapLinked = append(mapLinked, p)
		}
	}
	for _, a := range w.Actors() {
		if _, ok := a.(Persistent); ok && !isNil(a) {
			mapActors = append(mapActors, a)
		}
	}
	return playerLinked, mapLinked, mapActors
}

// ValidPlayerName reports whether name can key a save slot.
func ValidPlayerName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && name != NoneName
}

// isNil reports whether v is nil or an interface holding a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
