// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// load.go — the load pass: destroys the live instances a save game is about
// to replace, respawns objects, actors, the player pawn and player objects
// from their records, and rebuilds references between them.

package savestate

import (
	"context"
	"fmt"
)

// LoadPersistentActors restores the current level from sg. Live map-linked
// objects and actors named in the level's bucket are destroyed, then the
// bucket's objects and actors are respawned (objects first) and their
// references rebuilt. When sg has no bucket for the level nothing is
// destroyed or respawned, but the reference map is still rebuilt.
func (s *System) LoadPersistentActors(w World, sg *SaveGame) error {
	if err := checkPass(w, sg); err != nil {
		return err
	}
	if err := s.beginPass(sg); err != nil {
		return err
	}
	defer s.endPass(sg)
	s.loadPersistentActors(w, sg)
	return nil
}

// LoadPlayerData restores the player pawn and the autosaved player objects
// from sg and possesses the new pawn with pc. It does nothing when sg holds
// no player record.
func (s *System) LoadPlayerData(w World, sg *SaveGame, pc PlayerController) error {
	if err := checkPass(w, sg); err != nil {
		return err
	}
	if isNil(pc) {
		return ErrNilController
	}
	if err := s.beginPass(sg); err != nil {
		return err
	}
	defer s.endPass(sg)
	return s.loadPlayerData(w, sg, pc)
}

// LoadGameByObject restores the current level and then the player from an
// already retrieved save game, in a single pass.
func (s *System) LoadGameByObject(w World, sg *SaveGame, pc PlayerController) error {
	if err := checkPass(w, sg); err != nil {
		return err
	}
	if isNil(pc) {
		return ErrNilController
	}
	if err := s.beginPass(sg); err != nil {
		return err
	}
	defer s.endPass(sg)

	s.parkPawn(pc)
	sg.SetPopulationSuppressed(true)
	s.loadPersistentActors(w, sg)
	return s.loadPlayerData(w, sg, pc)
}

// LoadPersistentActorsByPlayerName restores the current level from the save
// game of playerName.
func (s *System) LoadPersistentActorsByPlayerName(ctx context.Context, w World, playerName string) (*SaveGame, error) {
	sg, err := s.GetSaveGame(ctx, playerName)
	if err != nil {
		return nil, err
	}
	if err := s.LoadPersistentActors(w, sg); err != nil {
		return nil, err
	}
	return sg, nil
}

// LoadLastKnownLevel opens the level playerName last saved in. It reports
// false when no bucket exists for that level. w must implement LevelOpener.
func (s *System) LoadLastKnownLevel(ctx context.Context, w World, playerName, options string) (bool, error) {
	if isNil(w) {
		return false, ErrNilWorld
	}
	opener, ok := w.(LevelOpener)
	if !ok {
		return false, fmt.Errorf("%w: world cannot open levels", ErrUnsupported)
	}
	sg, err := s.GetSaveGame(ctx, playerName)
	if err != nil {
		return false, err
	}
	if sg.LastLevel == "" || sg.ContainsLevel(sg.LastLevel) < 0 {
		return false, nil
	}
	if err := opener.OpenLevel(sg.LastLevel, options); err != nil {
		return false, fmt.Errorf("savestate: open level %s: %w", sg.LastLevel, err)
	}
	s.logger.Info("savestate: opened last known level", "player", playerName, "level", sg.LastLevel)
	return true, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Pass bodies
// ────────────────────────────────────────────────────────────────────────────

// parkPawn moves pc's pawn to the holding location so nothing restored
// interacts with it before it is replaced.
func (s *System) parkPawn(pc PlayerController) {
	if pawn := pc.Pawn(); !isNil(pawn) {
		SetLocation(pawn, *s.cfg.HoldingLocation)
	}
}

func (s *System) loadPersistentActors(w World, sg *SaveGame) {
	level := w.CurrentLevel()
	bucket := sg.GetLevel(sg.ContainsLevel(level))
	if bucket.IsNone() {
		s.logger.Debug("savestate: no saved data for level", "player", sg.PlayerName, "level", level)
		s.finishLevelLoad(w, sg, nil)
		return
	}

	// Phase 1: remove the instances about to be replaced from every lookup.
	_, mapLinked, mapActors := PersistentObjects(w)
	for _, obj := range mapLinked {
		if bucket.ContainsObject(obj.ObjectName()) {
			destroy(w, obj)
		}
	}
	for _, a := range mapActors {
		if bucket.ContainsActor(a.ObjectName()) {
			destroy(w, a)
		}
	}
	// Phase 2: reclaim.
	w.CollectGarbage()

	loaded := make([]Object, 0, len(bucket.Objects)+len(bucket.Actors))
	for _, rec := range bucket.Objects {
		var outer Object
		if rec.Outer != "" {
			outer, _ = w.FindObject(rec.Outer)
		}
		obj, err := s.respawnObject(w, rec, outer)
		if err != nil {
			s.logger.Warn("savestate: object not restored", "level", level, "object", rec.Name, "error", err)
			continue
		}
		loaded = append(loaded, obj)
	}
	for _, rec := range bucket.Actors {
		a, err := s.respawnActor(w, rec, rec.Transform, nil)
		if err != nil {
			s.logger.Warn("savestate: actor not restored", "level", level, "object", rec.Name, "error", err)
			continue
		}
		loaded = append(loaded, a)
	}

	s.finishLevelLoad(w, sg, loaded)

	s.logger.Debug("savestate: level restored",
		"player", sg.PlayerName,
		"level", level,
		"restored", len(loaded),
	)
}

// finishLevelLoad rebuilds the reference map and the references of the
// objects just respawned. Level restore is the last step of a load that
// skipped player population, so player references are restored here in
// that case, whether or not the level had saved data.
func (s *System) finishLevelLoad(w World, sg *SaveGame, loaded []Object) {
	wasSuppressed := sg.PopulationSuppressed()
	sg.SetPopulationSuppressed(false)
	sg.PopulateReferenceMap(w)
	if wasSuppressed {
		sg.restorePlayerReferences(s.notifyLoaded)
	}
	for _, obj := range loaded {
		sg.RestoreReferencesIn(obj)
		s.notifyLoaded(obj)
	}
}

func (s *System) loadPlayerData(w World, sg *SaveGame, pc PlayerController) error {
	if !sg.Player.IsSet() {
		s.logger.Debug("savestate: no saved player data", "player", sg.PlayerName)
		return nil
	}

	// Phase 1: the current pawn, anything squatting on its saved name and
	// the live player objects that have autosaved records.
	old := pc.Pawn()
	pc.UnPossess()
	if !isNil(old) {
		destroy(w, old)
	}
	if other, ok := w.FindObject(sg.Player.Name); ok {
		destroy(w, other)
	}
	if sg.SavedObjectsNum(ScopeAutosaved) > 0 {
		playerLinked, _, _ := PersistentObjects(w)
		for _, obj := range playerLinked {
			if sg.ContainsObject(obj.ObjectName(), ScopeAutosaved) >= 0 {
				destroy(w, obj)
			}
		}
	}
	// Phase 2
	w.CollectGarbage()

	t := IdentityTransform()
	switch {
	case sg.LastLevel == w.CurrentLevel():
		t = sg.Player.Transform
	default:
		if finder, ok := w.(PlayerStartFinder); ok {
			if start, found := finder.FindPlayerStart(pc); found {
				t = start
			}
		}
	}

	a, err := s.respawnActor(w, sg.Player, t, pc)
	if err != nil {
		return fmt.Errorf("savestate: player pawn: %w", err)
	}
	pawn, ok := a.(Pawn)
	if !ok {
		w.Destroy(a)
		return fmt.Errorf("%w: class %s is not a pawn", ErrInvalidModel, sg.Player.Class)
	}
	pc.Possess(pawn)

	restored := make([]Object, 0, sg.SavedObjectsNum(ScopeAutosaved))
	for _, rec := range sg.SavedObjects(ScopeAutosaved) {
		var outer Object
		if rec.Outer != "" {
			outer, _ = w.FindObject(rec.Outer)
		}
		if isNil(outer) {
			s.logger.Warn("savestate: outer not found, using player controller",
				"player", sg.PlayerName, "object", rec.Name, "outer", rec.Outer)
			outer = pc
		}
		obj, err := s.respawnObject(w, rec, outer)
		if err != nil {
			s.logger.Warn("savestate: player object not restored", "player", sg.PlayerName, "object", rec.Name, "error", err)
			continue
		}
		restored = append(restored, obj)
	}

	sg.playerPawn = pawn
	sg.playerObjects = restored

	sg.SetPopulationSuppressed(false)
	sg.PopulateReferenceMap(w)
	sg.restorePlayerReferences(s.notifyLoaded)

	s.logger.Debug("savestate: player restored",
		"player", sg.PlayerName,
		"level", w.CurrentLevel(),
		"objects", len(restored),
	)
	return nil
}

// destroy removes obj from the root set and the world.
func destroy(w World, obj Object) {
	if w.IsRooted(obj) {
		w.RemoveFromRoot(obj)
	}
	w.Destroy(obj)
}

func (s *System) respawnObject(w World, rec ObjectRecord, outer Object) (Object, error) {
	c, err := s.classes.Get(rec.Class)
	if err != nil {
		return nil, err
	}
	if c.IsActor() {
		return nil, fmt.Errorf("%w: class %s is an actor", ErrInvalidModel, rec.Class)
	}
	obj := c.New()
	if err := w.NewObject(obj, rec.Name, outer); err != nil {
		return nil, err
	}
	s.applyData(w, obj, rec.Data)
	if rec.Rooted {
		w.AddToRoot(obj)
	}
	return obj, nil
}

func (s *System) respawnActor(w World, rec ActorRecord, t Transform, owner Object) (Actor, error) {
	c, err := s.classes.Get(rec.Class)
	if err != nil {
		return nil, err
	}
	if !c.IsActor() {
		return nil, fmt.Errorf("%w: class %s is not an actor", ErrInvalidModel, rec.Class)
	}
	a := c.New().(Actor)
	if err := w.SpawnActor(a, t, rec.Name, owner); err != nil {
		return nil, err
	}
	s.applyData(w, a, rec.Data)
	return a, nil
}
