// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// archive.go — flatten/unflatten of live objects into portable byte
// payloads. Object references are written as stable names and resolved by
// name on the way back in; everything else is MessagePack per field.

// Package archive implements the object byte codec used by save records.
package archive

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotStruct is returned when the target is not a non-nil pointer to a struct.
var ErrNotStruct = errors.New("archive: target must be a non-nil pointer to a struct")

// Resolver looks up a live object by stable name.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name string) (any, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(name string) (any, bool) { return f(name) }

const (
	entryValue uint8 = iota
	entryRef
	entryRefList
)

// entry is one archived field.
type entry struct {
	Name  string             `msgpack:"n"`
	Kind  uint8              `msgpack:"k"`
	Ref   string             `msgpack:"r,omitempty"`
	Refs  []string           `msgpack:"rs,omitempty"`
	Value msgpack.RawMessage `msgpack:"v,omitempty"`
}

// Report summarises what Decode did with each archived field.
type Report struct {
	Applied    []string
	Skipped    []string // unknown, transient now, type changed or undecodable
	Unresolved []string // references whose target is not live
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, ErrNotStruct
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, ErrNotStruct
	}
	return rv, nil
}

// Encode flattens every saved field of v (a pointer to a struct).
func Encode(v any) ([]byte, error) {
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}
	layout, err := LayoutOf(rv.Type())
	if err != nil {
		return nil, err
	}
	entries := make([]entry, 0, len(layout.Fields))
	for _, f := range layout.SavedFields() {
		fv := rv.FieldByIndex(f.Index)
		e := entry{Name: f.Name}
		switch f.Kind {
		case KindReference:
			e.Kind = entryRef
			e.Ref = nameOf(fv)
		case KindReferenceList:
			e.Kind = entryRefList
			e.Refs = make([]string, fv.Len())
			for i := 0; i < fv.Len(); i++ {
				e.Refs[i] = nameOf(fv.Index(i))
			}
		default:
			b, err := msgpack.Marshal(fv.Interface())
			if err != nil {
				return nil, fmt.Errorf("archive: encode field %s: %w", f.Name, err)
			}
			e.Kind = entryValue
			e.Value = b
		}
		entries = append(entries, e)
	}
	return msgpack.Marshal(entries)
}

// Decode writes the archived fields in data into v. Fields that no longer
// exist, are no longer saved or fail to decode are skipped; the rest are
// still applied. An error is returned only when v is unusable or data is not
// an archive at all.
func Decode(v any, data []byte, r Resolver) (Report, error) {
	var rep Report
	rv, err := structValue(v)
	if err != nil {
		return rep, err
	}
	if len(data) == 0 {
		return rep, nil
	}
	layout, err := LayoutOf(rv.Type())
	if err != nil {
		return rep, err
	}
	var entries []entry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return rep, fmt.Errorf("archive: corrupt payload: %w", err)
	}
	for _, e := range entries {
		f, ok := layout.Field(e.Name)
		if !ok || !f.Saved() {
			rep.Skipped = append(rep.Skipped, e.Name)
			continue
		}
		fv := rv.FieldByIndex(f.Index)
		switch {
		case e.Kind == entryValue && f.Kind == KindValue:
			ptr := reflect.New(f.Type)
			if err := msgpack.Unmarshal(e.Value, ptr.Interface()); err != nil {
				rep.Skipped = append(rep.Skipped, e.Name)
				continue
			}
			fv.Set(ptr.Elem())
		case e.Kind == entryRef && f.Kind == KindReference:
			target, ok := resolve(r, e.Ref, f.Type)
			fv.Set(target)
			if !ok {
				rep.Unresolved = append(rep.Unresolved, e.Name)
			}
		case e.Kind == entryRefList && f.Kind == KindReferenceList:
			list := reflect.MakeSlice(f.Type, len(e.Refs), len(e.Refs))
			missing := false
			for i, name := range e.Refs {
				target, ok := resolve(r, name, f.Type.Elem())
				list.Index(i).Set(target)
				missing = missing || !ok
			}
			fv.Set(list)
			if missing {
				rep.Unresolved = append(rep.Unresolved, e.Name)
			}
		default:
			rep.Skipped = append(rep.Skipped, e.Name)
			continue
		}
		rep.Applied = append(rep.Applied, e.Name)
	}
	return rep, nil
}

// resolve returns the live object called name converted to t, or the zero
// value of t. A nil reference (empty name) counts as resolved.
func resolve(r Resolver, name string, t reflect.Type) (reflect.Value, bool) {
	zero := reflect.Zero(t)
	if name == "" {
		return zero, true
	}
	if r == nil {
		return zero, false
	}
	obj, ok := r.Resolve(name)
	if !ok || obj == nil {
		return zero, false
	}
	ov := reflect.ValueOf(obj)
	if !ov.Type().AssignableTo(t) {
		return zero, false
	}
	return ov, true
}

// Ref is one direct object reference held by a saved field.
type Ref struct {
	Property string
	Target   Named
}

// References lists the saved, non-nil, direct reference fields of v in
// declaration order. Reference lists are not included.
func References(v any) []Ref {
	rv, err := structValue(v)
	if err != nil {
		return nil
	}
	layout, err := LayoutOf(rv.Type())
	if err != nil {
		return nil
	}
	var out []Ref
	for _, f := range layout.SavedFields() {
		if f.Kind != KindReference {
			continue
		}
		fv := rv.FieldByIndex(f.Index)
		if nameOf(fv) == "" {
			continue
		}
		target := fv
		if target.Kind() == reflect.Interface {
			target = target.Elem()
		}
		out = append(out, Ref{Property: f.Name, Target: target.Interface().(Named)})
	}
	return out
}

// SetReference assigns target to the saved reference field called property.
// It reports false when the field is gone, no longer saved, not a reference
// or not assignable from target.
func SetReference(v any, property string, target any) bool {
	if target == nil {
		return false
	}
	rv, err := structValue(v)
	if err != nil {
		return false
	}
	layout, err := LayoutOf(rv.Type())
	if err != nil {
		return false
	}
	f, ok := layout.Field(property)
	if !ok || !f.Saved() || f.Kind != KindReference {
		return false
	}
	tv := reflect.ValueOf(target)
	if !tv.Type().AssignableTo(f.Type) {
		return false
	}
	rv.FieldByIndex(f.Index).Set(tv)
	return true
}
