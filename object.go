// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// object.go — the engine object model consumed by the save system: objects,
// actors, components, pawns and controllers, the Persistent capability and
// its inert defaults, and the transform types carried by actor records.

package savestate

// ────────────────────────────────────────────────────────────────────────────
// Transform
// ────────────────────────────────────────────────────────────────────────────

// Vector is a world-space position or scale.
type Vector struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
	Z float64 `msgpack:"z" json:"z"`
}

// Add returns v+o.
func (v Vector) Add(o Vector) Vector { return Vector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Rotator is an orientation in degrees.
type Rotator struct {
	Pitch float64 `msgpack:"pitch" json:"pitch"`
	Yaw   float64 `msgpack:"yaw" json:"yaw"`
	Roll  float64 `msgpack:"roll" json:"roll"`
}

// Transform is an actor's world transform.
type Transform struct {
	Location Vector  `msgpack:"location" json:"location"`
	Rotation Rotator `msgpack:"rotation" json:"rotation"`
	Scale    Vector  `msgpack:"scale" json:"scale"`
}

// IdentityTransform is the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: Vector{X: 1, Y: 1, Z: 1}}
}

// At returns the identity transform moved to loc.
func At(loc Vector) Transform {
	t := IdentityTransform()
	t.Location = loc
	return t
}

// ────────────────────────────────────────────────────────────────────────────
// Objects
// ────────────────────────────────────────────────────────────────────────────

// Object is any live engine object. ObjectName is the stable name used to
// refer to it across a save/reload boundary; Outer is the object it is
// nested inside (nil for the world root).
type Object interface {
	ObjectName() string
	Outer() Object
}

// IdentitySetter is implemented by objects whose name and outer the world
// assigns when it creates them.
type IdentitySetter interface {
	SetIdentity(name string, outer Object)
}

// ObjectBase provides Object and IdentitySetter for embedding.
type ObjectBase struct {
	name  string
	outer Object
}

// ObjectName returns the stable name.
func (o *ObjectBase) ObjectName() string { return o.name }

// Outer returns the owning object.
func (o *ObjectBase) Outer() Object { return o.outer }

// SetIdentity assigns the stable name and outer.
func (o *ObjectBase) SetIdentity(name string, outer Object) {
	o.name = name
	o.outer = outer
}

// Actor is a spawnable, world-placed object with a transform.
type Actor interface {
	Object
	Transform() Transform
	SetTransform(Transform)
}

// ActorBase provides Actor for embedding.
type ActorBase struct {
	ObjectBase
	transform Transform
}

// Transform returns the actor's world transform.
func (a *ActorBase) Transform() Transform { return a.transform }

// SetTransform moves the actor.
func (a *ActorBase) SetTransform(t Transform) { a.transform = t }

// SetLocation moves a to loc keeping rotation and scale.
func SetLocation(a Actor, loc Vector) {
	t := a.Transform()
	t.Location = loc
	a.SetTransform(t)
}

// Component is an object attached to an actor.
type Component interface {
	Object
	OwningActor() Actor
}

// ComponentBase provides Component for embedding. The owning actor is the
// component's outer.
type ComponentBase struct {
	ObjectBase
}

// OwningActor returns the outer when it is an actor.
func (c *ComponentBase) OwningActor() Actor {
	a, _ := c.Outer().(Actor)
	return a
}

// Pawn is an actor that a controller can possess.
type Pawn interface {
	Actor
	Controller() PlayerController
	SetController(PlayerController)
}

// PawnBase provides Pawn for embedding.
type PawnBase struct {
	ActorBase
	controller PlayerController
}

// Controller returns the possessing controller, or nil.
func (p *PawnBase) Controller() PlayerController { return p.controller }

// SetController is called by the controller on possess and unpossess.
func (p *PawnBase) SetController(pc PlayerController) { p.controller = pc }

// PlayerController drives a pawn on behalf of a player.
type PlayerController interface {
	Object
	Pawn() Pawn
	Possess(Pawn)
	UnPossess()
}

// ────────────────────────────────────────────────────────────────────────────
// Persistent capability
// ────────────────────────────────────────────────────────────────────────────

// Persistent marks an object or actor as taking part in save/load.
type Persistent interface {
	Object
	// IsLinkedToPlayer reports whether the object travels with the player
	// rather than belonging to the current level.
	IsLinkedToPlayer() bool
	// OnSaveComplete fires right after the object's snapshot is taken.
	OnSaveComplete()
	// OnLoadComplete fires after the object is restored and its references
	// are rebuilt.
	OnLoadComplete()
}

// PersistentBase provides inert Persistent defaults for embedding. The
// object belongs to the level.
type PersistentBase struct{}

func (PersistentBase) IsLinkedToPlayer() bool { return false }
func (PersistentBase) OnSaveComplete()        {}
func (PersistentBase) OnLoadComplete()        {}

// PlayerLinkedBase is PersistentBase for objects that travel with the player.
type PlayerLinkedBase struct{ PersistentBase }

func (PlayerLinkedBase) IsLinkedToPlayer() bool { return true }

// Capability classifies what a save or restore operation may do with an
// object.
type Capability int

const (
	CapabilityNone       Capability = iota
	CapabilityPersistent            // implements Persistent
	CapabilityPlayerPawn            // a pawn possessed by a player controller
)

func (c Capability) String() string {
	switch c {
	case CapabilityPersistent:
		return "persistent"
	case CapabilityPlayerPawn:
		return "player-pawn"
	}
	return "none"
}

// CapabilityOf classifies obj. Persistent takes precedence over
// CapabilityPlayerPawn.
func CapabilityOf(obj Object) Capability {
	if isNil(obj) {
		return CapabilityNone
	}
	if _, ok := obj.(Persistent); ok {
		return CapabilityPersistent
	}
	if p, ok := obj.(Pawn); ok && !isNil(p.Controller()) {
		return CapabilityPlayerPawn
	}
	return CapabilityNone
}

// isActorOrComponent reports whether references to obj are left to spawn
// identity instead of the reference container.
func isActorOrComponent(obj any) bool {
	switch obj.(type) {
	case Actor, Component:
		return true
	}
	return false
}
