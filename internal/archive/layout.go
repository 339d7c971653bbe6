// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// layout.go — struct introspection for the object archive: `save` tag
// parsing, embedded struct flattening, reference-field detection and a
// per-type layout cache.

package archive

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TagName is the struct tag consulted for persistence flags.
//
//	Health  int       `save:"persist"`
//	Target  *Chest    `save:"persist"`
//	Scratch int       `save:"persist,transient"` // never written
//	Cache   []byte    `save:"-"`
const TagName = "save"

// Named is implemented by every live engine object. A field whose type
// implements Named is archived as the target's stable name.
type Named interface {
	ObjectName() string
}

var namedType = reflect.TypeOf((*Named)(nil)).Elem()

// FieldKind classifies how a field is archived.
type FieldKind int

const (
	KindValue         FieldKind = iota // msgpack-encoded value
	KindReference                      // direct pointer/interface to a live object
	KindReferenceList                  // slice of references
)

// Field describes one struct field derived from reflection.
type Field struct {
	Name      string
	Index     []int
	Type      reflect.Type
	Kind      FieldKind
	Persist   bool
	Transient bool
}

// Saved reports whether the field takes part in archiving.
func (f Field) Saved() bool { return f.Persist && !f.Transient }

// Layout is the flattened field list of a struct type.
type Layout struct {
	Type   reflect.Type
	Fields []Field
	byName map[string]int
}

// Field returns the field called name.
func (l *Layout) Field(name string) (Field, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Field{}, false
	}
	return l.Fields[i], true
}

// SavedFields returns the fields that are archived, in declaration order.
func (l *Layout) SavedFields() []Field {
	out := make([]Field, 0, len(l.Fields))
	for _, f := range l.Fields {
		if f.Saved() {
			out = append(out, f)
		}
	}
	return out
}

var layouts sync.Map // reflect.Type -> *Layout

// LayoutOf returns the cached layout for t. Pointer types are dereferenced;
// the underlying type must be a struct.
func LayoutOf(t reflect.Type) (*Layout, error) {
	if t == nil {
		return nil, fmt.Errorf("archive: nil type")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("archive: %s is not a struct", t)
	}
	if l, ok := layouts.Load(t); ok {
		return l.(*Layout), nil
	}
	l := &Layout{Type: t, byName: make(map[string]int)}
	flattenStruct(t, l)
	actual, _ := layouts.LoadOrStore(t, l)
	return actual.(*Layout), nil
}

// candidate is a struct field seen while walking embedded structs. Fields
// that are never archived still take part in name resolution.
type candidate struct {
	field reflect.StructField
	index []int
	skip  bool
}

// flattenStruct lists the fields of t and of its embedded structs. A name
// declared at several depths resolves to the shallowest declaration, as a
// Go selector does; a name declared more than once at that depth is
// ambiguous and left out.
func flattenStruct(t reflect.Type, l *Layout) {
	var cands []candidate
	collectFields(t, nil, &cands)

	type dominant struct{ depth, count, at int }
	best := make(map[string]*dominant, len(cands))
	for i, c := range cands {
		depth := len(c.index)
		b, ok := best[c.field.Name]
		switch {
		case !ok || depth < b.depth:
			best[c.field.Name] = &dominant{depth: depth, count: 1, at: i}
		case depth == b.depth:
			b.count++
		}
	}

	for i, c := range cands {
		if b := best[c.field.Name]; c.skip || b.at != i || b.count > 1 {
			continue
		}
		fd := Field{
			Name:  c.field.Name,
			Index: c.index,
			Type:  c.field.Type,
			Kind:  kindOf(c.field.Type),
		}
		for _, part := range strings.Split(c.field.Tag.Get(TagName), ",") {
			switch strings.TrimSpace(part) {
			case "persist":
				fd.Persist = true
			case "transient":
				fd.Transient = true
			}
		}
		l.byName[fd.Name] = len(l.Fields)
		l.Fields = append(l.Fields, fd)
	}
}

func collectFields(t reflect.Type, prefix []int, out *[]candidate) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			// The embedded struct's own name can hide deeper fields too.
			*out = append(*out, candidate{field: f, index: index, skip: true})
			collectFields(f.Type, index, out)
			continue
		}
		skip := !f.IsExported() || f.Tag.Get(TagName) == "-"
		*out = append(*out, candidate{field: f, index: index, skip: skip})
	}
}

func kindOf(t reflect.Type) FieldKind {
	if isReferenceType(t) {
		return KindReference
	}
	if t.Kind() == reflect.Slice && isReferenceType(t.Elem()) {
		return KindReferenceList
	}
	return KindValue
}

func isReferenceType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface:
		return t.Implements(namedType)
	}
	return false
}

// nameOf returns the stable name held by a reference value, or "" for nil.
func nameOf(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return ""
	}
	n, ok := v.Interface().(Named)
	if !ok {
		return ""
	}
	return n.ObjectName()
}
