// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// rehydrate.go — reference rehydration. References between persistent
// objects are recorded by name on save, bound to the equivalent live objects
// once they exist again, and written back into the owning fields.

package savestate

import (
	"sort"

	"github.com/AndrewDonelson/savestate/internal/archive"
)

// SaveReferencesOf records the references obj holds in its saved fields,
// replacing anything recorded for obj before. References to actors and
// components are skipped; those come back through spawn identity. When obj
// holds no qualifying reference its container is removed. It returns the
// number of references recorded.
//
// obj must be Persistent or a player-controlled pawn; anything else is
// ignored.
func (sg *SaveGame) SaveReferencesOf(obj Object) int {
	if CapabilityOf(obj) == CapabilityNone {
		return 0
	}
	owner := obj.ObjectName()
	c := NewReferenceContainer()
	for _, ref := range archive.References(obj) {
		if isActorOrComponent(ref.Target) {
			continue
		}
		c.RecordReference(ref.Property, ref.Target.ObjectName())
	}
	if c.Len() == 0 {
		delete(sg.References, owner)
		return 0
	}
	if sg.References == nil {
		sg.References = make(map[string]*ReferenceContainer)
	}
	sg.References[owner] = c
	return c.Len()
}

// RestoreReferencesIn assigns the live references bound by
// PopulateReferenceMap into obj's fields and returns how many were set.
// Properties that no longer exist on obj, or whose target was not found,
// are left untouched. The capability precondition of SaveReferencesOf
// applies.
func (sg *SaveGame) RestoreReferencesIn(obj Object) int {
	if CapabilityOf(obj) == CapabilityNone {
		return 0
	}
	c, ok := sg.References[obj.ObjectName()]
	if !ok {
		return 0
	}
	n := 0
	for _, prop := range c.Keys() {
		target, ok := c.Find(prop)
		if !ok {
			continue
		}
		if archive.SetReference(obj, prop, target) {
			n++
		}
	}
	return n
}

// PopulateReferenceMap binds every recorded reference whose target is a
// live persistent object in w. Only non-actor objects are bound. Previously
// bound references are dropped first. It does nothing while population is
// suppressed or when no references are recorded, and returns the number of
// properties bound.
func (sg *SaveGame) PopulateReferenceMap(w World) int {
	if sg.suppressPopulation || len(sg.References) == 0 || isNil(w) {
		return 0
	}

	owners := make([]string, 0, len(sg.References))
	for owner := range sg.References {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	// referenced name -> owners that recorded it
	index := make(map[string][]string)
	for _, owner := range owners {
		c := sg.References[owner]
		c.ResetReferences()
		for _, name := range c.Names() {
			index[name] = append(index[name], owner)
		}
	}

	playerLinked, mapLinked, _ := PersistentObjects(w)
	live := make([]Persistent, 0, len(playerLinked)+len(mapLinked))
	live = append(live, playerLinked...)
	live = append(live, mapLinked...)

	bound := 0
	for _, obj := range live {
		name := obj.ObjectName()
		for _, owner := range index[name] {
			c := sg.References[owner]
			if !c.ContainsName(name) {
				continue
			}
			bound += c.ResolveAndBind(name, obj)
			sg.References[owner] = c
		}
	}
	return bound
}

// restorePlayerReferences rebuilds references in the restored pawn and
// player objects, calling loaded on each afterwards.
func (sg *SaveGame) restorePlayerReferences(loaded func(Object)) {
	if !isNil(sg.playerPawn) {
		sg.RestoreReferencesIn(sg.playerPawn)
		if loaded != nil {
			loaded(sg.playerPawn)
		}
	}
	for _, obj := range sg.playerObjects {
		sg.RestoreReferencesIn(obj)
		if loaded != nil {
			loaded(obj)
		}
	}
}
