// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// archive.go — object <-> byte payload helpers and the record builders used
// by the save and load passes.

package savestate

import (
	"fmt"

	"github.com/AndrewDonelson/savestate/internal/archive"
)

// SerializeObject flattens the saved fields of obj. References to other
// objects are written as their stable names.
func SerializeObject(obj Object) ([]byte, error) {
	if isNil(obj) {
		return nil, ErrNilObject
	}
	b, err := archive.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncodeFailed, obj.ObjectName(), err)
	}
	return b, nil
}

// DeserializeObject writes data into obj. Referenced objects are looked up
// by name in w; a nil w leaves every reference unset. Fields that no longer
// exist or changed type are skipped.
func DeserializeObject(w World, obj Object, data []byte) error {
	_, err := deserialize(w, obj, data)
	return err
}

func deserialize(w World, obj Object, data []byte) (archive.Report, error) {
	if isNil(obj) {
		return archive.Report{}, ErrNilObject
	}
	var r archive.Resolver
	if !isNil(w) {
		r = archive.ResolverFunc(func(name string) (any, bool) {
			o, ok := w.FindObject(name)
			return o, ok
		})
	}
	rep, err := archive.Decode(obj, data, r)
	if err != nil {
		return rep, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, obj.ObjectName(), err)
	}
	return rep, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Record builders
// ────────────────────────────────────────────────────────────────────────────

func (s *System) actorRecord(a Actor) (ActorRecord, error) {
	c, err := s.classes.ClassOf(a)
	if err != nil {
		return ActorRecord{}, err
	}
	data, err := SerializeObject(a)
	if err != nil {
		return ActorRecord{}, err
	}
	return ActorRecord{
		Class:     c.Name,
		Transform: a.Transform(),
		Name:      a.ObjectName(),
		Data:      data,
	}, nil
}

func (s *System) objectRecord(w World, obj Object) (ObjectRecord, error) {
	c, err := s.classes.ClassOf(obj)
	if err != nil {
		return ObjectRecord{}, err
	}
	data, err := SerializeObject(obj)
	if err != nil {
		return ObjectRecord{}, err
	}
	rec := ObjectRecord{
		Class:  c.Name,
		Name:   obj.ObjectName(),
		Data:   data,
		Rooted: w.IsRooted(obj),
	}
	if outer := obj.Outer(); !isNil(outer) {
		rec.Outer = outer.ObjectName()
	}
	return rec, nil
}

// applyData decodes data into obj and logs what could not be applied.
func (s *System) applyData(w World, obj Object, data []byte) {
	rep, err := deserialize(w, obj, data)
	if err != nil {
		s.logger.Warn("savestate: restore payload failed", "object", obj.ObjectName(), "error", err)
		return
	}
	if len(rep.Skipped) > 0 {
		s.logger.Debug("savestate: fields skipped on restore", "object", obj.ObjectName(), "fields", rep.Skipped)
	}
	if len(rep.Unresolved) > 0 {
		s.logger.Debug("savestate: references unresolved on restore", "object", obj.ObjectName(), "fields", rep.Unresolved)
	}
}
