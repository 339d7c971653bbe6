// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// class.go — the class registry: maps the class identity stored in records
// to a Go type so objects and actors can be recreated on load.

package savestate

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/AndrewDonelson/savestate/internal/archive"
)

// Class is one registered object type.
type Class struct {
	Name       string
	structType reflect.Type
	layout     *archive.Layout
}

// New allocates a zero instance of the class.
func (c *Class) New() Object {
	return reflect.New(c.structType).Interface().(Object)
}

// IsActor reports whether instances of the class are actors.
func (c *Class) IsActor() bool {
	return reflect.PointerTo(c.structType).Implements(actorType)
}

// SavedFields lists the names of the fields written to records.
func (c *Class) SavedFields() []string {
	fields := c.layout.SavedFields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

var (
	objectType = reflect.TypeOf((*Object)(nil)).Elem()
	actorType  = reflect.TypeOf((*Actor)(nil)).Elem()
)

// ClassRegistry holds all registered classes. It is safe for concurrent use.
type ClassRegistry struct {
	mu     sync.RWMutex
	byName map[string]*Class
	byType map[reflect.Type]*Class
}

// NewClassRegistry returns an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		byName: make(map[string]*Class),
		byType: make(map[reflect.Type]*Class),
	}
}

// Register records model's type under name. model must be a non-nil pointer
// to a struct whose pointer implements Object. An empty name uses the struct
// type name.
func (r *ClassRegistry) Register(name string, model Object) (*Class, error) {
	if isNil(model) {
		return nil, ErrInvalidModel
	}
	t := reflect.TypeOf(model)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct || !t.Implements(objectType) {
		return nil, ErrInvalidModel
	}
	structType := t.Elem()
	layout, err := archive.LayoutOf(structType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if name == "" {
		name = structType.Name()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrClassDuplicate, name)
	}
	if prev, exists := r.byType[structType]; exists {
		return nil, fmt.Errorf("%w: %s already registered as %s", ErrClassDuplicate, structType, prev.Name)
	}
	c := &Class{Name: name, structType: structType, layout: layout}
	r.byName[name] = c
	r.byType[structType] = c
	return c, nil
}

// Get returns the class registered under name.
func (r *ClassRegistry) Get(name string) (*Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return c, nil
}

// ClassOf returns the class of a live object.
func (r *ClassRegistry) ClassOf(obj Object) (*Class, error) {
	if isNil(obj) {
		return nil, ErrNilObject
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, t)
	}
	return c, nil
}

// Names returns every registered class name, sorted.
func (r *ClassRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
