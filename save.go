// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// save.go — the save pass: snapshots map-linked objects and actors into the
// current level's bucket, snapshots the player pawn and player-linked
// objects, records references, and flushes.

package savestate

import (
	"context"
	"fmt"
)

// SavePersistentActors snapshots every map-linked persistent object and
// every persistent actor of the current level into sg. A bucket already
// saved for the level has its arrays cleared first; records of other
// levels are never touched. sg is not flushed.
func (s *System) SavePersistentActors(w World, sg *SaveGame) error {
	if err := checkPass(w, sg); err != nil {
		return err
	}
	if err := s.beginPass(sg); err != nil {
		return err
	}
	defer s.endPass(sg)
	s.savePersistentActors(w, sg)
	return nil
}

// SavePlayerData snapshots pawn as the player record and every live
// player-linked object into the autosaved scope, which is rebuilt from
// scratch. sg is not flushed.
func (s *System) SavePlayerData(w World, pawn Pawn, sg *SaveGame) error {
	if err := checkPass(w, sg); err != nil {
		return err
	}
	if isNil(pawn) {
		return fmt.Errorf("%w: pawn", ErrNilObject)
	}
	if err := s.beginPass(sg); err != nil {
		return err
	}
	defer s.endPass(sg)
	return s.savePlayerData(w, pawn, sg)
}

// DirectSave snapshots the player data of pc's pawn and the current level
// into sg and flushes it.
func (s *System) DirectSave(ctx context.Context, w World, sg *SaveGame, pc PlayerController) error {
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

	if pawn := pc.Pawn(); !isNil(pawn) {
		if err := s.savePlayerData(w, pawn, sg); err != nil {
			return err
		}
	} else {
		s.logger.Warn("savestate: controller has no pawn, player data not saved", "player", sg.PlayerName)
	}
	s.savePersistentActors(w, sg)
	return s.Flush(ctx, sg)
}

// Save fetches or creates the save game for playerName, snapshots player
// and level data, and flushes it.
func (s *System) Save(ctx context.Context, w World, playerName string, pc PlayerController) (*SaveGame, error) {
	sg, err := s.GetSaveGame(ctx, playerName)
	if err != nil {
		return nil, err
	}
	if err := s.DirectSave(ctx, w, sg, pc); err != nil {
		return nil, err
	}
	return sg, nil
}

// DirectSavePersistentActors saves only the current level for playerName.
func (s *System) DirectSavePersistentActors(ctx context.Context, w World, playerName string) (*SaveGame, error) {
	sg, err := s.GetSaveGame(ctx, playerName)
	if err != nil {
		return nil, err
	}
	if err := s.SavePersistentActors(w, sg); err != nil {
		return nil, err
	}
	if err := s.Flush(ctx, sg); err != nil {
		return nil, err
	}
	return sg, nil
}

// DirectSavePlayerData saves only the player data of pc's pawn for
// playerName.
func (s *System) DirectSavePlayerData(ctx context.Context, w World, playerName string, pc PlayerController) (*SaveGame, error) {
	if isNil(pc) {
		return nil, ErrNilController
	}
	sg, err := s.GetSaveGame(ctx, playerName)
	if err != nil {
		return nil, err
	}
	if err := s.SavePlayerData(w, pc.Pawn(), sg); err != nil {
		return nil, err
	}
	if err := s.Flush(ctx, sg); err != nil {
		return nil, err
	}
	return sg, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Pass bodies
// ────────────────────────────────────────────────────────────────────────────

func checkPass(w World, sg *SaveGame) error {
	if isNil(w) {
		return ErrNilWorld
	}
	if sg == nil {
		return ErrNilSaveGame
	}
	return nil
}

func (s *System) savePersistentActors(w World, sg *SaveGame) {
	level := w.CurrentLevel()
	_, mapLinked, mapActors := PersistentObjects(w)

	bucket := LevelBucket{Level: level}
	existed := false
	if i := sg.ContainsLevel(level); i >= 0 {
		bucket = sg.GetLevel(i)
		bucket.clear()
		existed = true
	}

	// Objects before actors, matching respawn order.
	for _, obj := range mapLinked {
		rec, err := s.objectRecord(w, obj)
		if err != nil {
			s.logger.Warn("savestate: object skipped", "level", level, "object", obj.ObjectName(), "error", err)
			continue
		}
		bucket.Objects = append(bucket.Objects, rec)
		bucket.SavedObjects = append(bucket.SavedObjects, rec.Name)
		sg.SaveReferencesOf(obj)
		s.notifySaved(obj)
	}
	for _, a := range mapActors {
		rec, err := s.actorRecord(a)
		if err != nil {
			s.logger.Warn("savestate: actor skipped", "level", level, "object", a.ObjectName(), "error", err)
			continue
		}
		bucket.Actors = append(bucket.Actors, rec)
		bucket.SavedActors = append(bucket.SavedActors, rec.Name)
		sg.SaveReferencesOf(a)
		s.notifySaved(a)
	}

	if !existed && len(bucket.Objects) == 0 && len(bucket.Actors) == 0 {
		return
	}
	sg.AddOrReplaceLevel(bucket)
	s.logger.Debug("savestate: level saved",
		"player", sg.PlayerName,
		"level", level,
		"objects", len(bucket.Objects),
		"actors", len(bucket.Actors),
	)
}

func (s *System) savePlayerData(w World, pawn Pawn, sg *SaveGame) error {
	rec, err := s.actorRecord(pawn)
	if err != nil {
		return fmt.Errorf("savestate: player pawn: %w", err)
	}
	sg.Player = rec
	sg.SaveReferencesOf(pawn)
	sg.LastLevel = w.CurrentLevel()

	sg.ClearAutosaved()
	playerLinked, _, _ := PersistentObjects(w)
	for _, obj := range playerLinked {
		rec, err := s.objectRecord(w, obj)
		if err != nil {
			s.logger.Warn("savestate: player object skipped", "player", sg.PlayerName, "object", obj.ObjectName(), "error", err)
			continue
		}
		sg.AddOrReplaceObject(rec, ScopeAutosaved)
		sg.SaveReferencesOf(obj)
		s.notifySaved(obj)
	}
	s.notifySaved(pawn)

	s.logger.Debug("savestate: player saved",
		"player", sg.PlayerName,
		"level", sg.LastLevel,
		"objects", sg.SavedObjectsNum(ScopeAutosaved),
	)
	return nil
}
