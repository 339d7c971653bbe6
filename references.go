// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// references.go — per-owner reference container. The recorded bindings
// (property -> referenced object name) are persisted; the live references
// bound to those properties during a load pass are not.

package savestate

// Binding records that Property held a reference to the object named Object.
type Binding struct {
	Property string `msgpack:"property" json:"property"`
	Object   string `msgpack:"object" json:"object"`
}

// ReferenceContainer tracks the object references held by one owner.
type ReferenceContainer struct {
	Bindings []Binding `msgpack:"bindings" json:"bindings"`

	// transient, rebuilt by PopulateReferenceMap
	refs  map[string]Object
	bound []string
}

// NewReferenceContainer returns an empty container.
func NewReferenceContainer() *ReferenceContainer {
	return &ReferenceContainer{}
}

// RecordReference notes that property referenced the object called name.
// Recording a property again replaces its previous target.
func (c *ReferenceContainer) RecordReference(property, name string) {
	for i := range c.Bindings {
		if c.Bindings[i].Property == property {
			c.Bindings[i].Object = name
			return
		}
	}
	c.Bindings = append(c.Bindings, Binding{Property: property, Object: name})
}

// ResolveAndBind binds live under every property recorded for name and
// returns how many properties were bound.
func (c *ReferenceContainer) ResolveAndBind(name string, live Object) int {
	if isNil(live) {
		return 0
	}
	n := 0
	for _, b := range c.Bindings {
		if b.Object != name {
			continue
		}
		if c.refs == nil {
			c.refs = make(map[string]Object)
		}
		if _, seen := c.refs[b.Property]; !seen {
			c.bound = append(c.bound, b.Property)
		}
		c.refs[b.Property] = live
		n++
	}
	return n
}

// Find returns the live reference bound to property.
func (c *ReferenceContainer) Find(property string) (Object, bool) {
	obj, ok := c.refs[property]
	return obj, ok
}

// Keys lists the properties holding a live reference, in bind order.
func (c *ReferenceContainer) Keys() []string {
	return append([]string(nil), c.bound...)
}

// Properties lists every recorded property, in record order.
func (c *ReferenceContainer) Properties() []string {
	out := make([]string, len(c.Bindings))
	for i, b := range c.Bindings {
		out[i] = b.Property
	}
	return out
}

// Names lists the distinct referenced object names, in record order.
func (c *ReferenceContainer) Names() []string {
	seen := make(map[string]struct{}, len(c.Bindings))
	out := make([]string, 0, len(c.Bindings))
	for _, b := range c.Bindings {
		if _, dup := seen[b.Object]; dup {
			continue
		}
		seen[b.Object] = struct{}{}
		out = append(out, b.Object)
	}
	return out
}

// PropertyFor returns the first property recorded for name.
func (c *ReferenceContainer) PropertyFor(name string) (string, bool) {
	for _, b := range c.Bindings {
		if b.Object == name {
			return b.Property, true
		}
	}
	return "", false
}

// PropertiesFor returns every property recorded for name.
func (c *ReferenceContainer) PropertiesFor(name string) []string {
	var out []string
	for _, b := range c.Bindings {
		if b.Object == name {
			out = append(out, b.Property)
		}
	}
	return out
}

// ContainsName reports whether any property referenced name.
func (c *ReferenceContainer) ContainsName(name string) bool {
	_, ok := c.PropertyFor(name)
	return ok
}

// Len is the number of recorded bindings.
func (c *ReferenceContainer) Len() int { return len(c.Bindings) }

// LenBound is the number of properties holding a live reference.
func (c *ReferenceContainer) LenBound() int { return len(c.bound) }

// ResetReferences drops every live reference. Recorded bindings are kept.
func (c *ReferenceContainer) ResetReferences() {
	c.refs = nil
	c.bound = nil
}
