// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// records.go — plain snapshot records stored in a save game: one per actor,
// one per non-actor object, and the per-level bucket grouping them.

package savestate

// ActorRecord is a snapshot of one actor, sufficient to respawn and refill it.
type ActorRecord struct {
	Class     string    `msgpack:"class" json:"class"`
	Transform Transform `msgpack:"transform" json:"transform"`
	Name      string    `msgpack:"name" json:"name"`
	Data      []byte    `msgpack:"data" json:"data"`
}

// IsSet reports whether the record holds an actor.
func (r ActorRecord) IsSet() bool {
	return r.Name != "" && r.Name != NoneName
}

// ObjectRecord is a snapshot of one non-actor object. Outer is the stable
// name of the owning object; empty means the world root.
type ObjectRecord struct {
	Class  string `msgpack:"class" json:"class"`
	Name   string `msgpack:"name" json:"name"`
	Data   []byte `msgpack:"data" json:"data"`
	Rooted bool   `msgpack:"rooted" json:"rooted"`
	Outer  string `msgpack:"outer,omitempty" json:"outer,omitempty"`
}

// IsSet reports whether the record holds an object.
func (r ObjectRecord) IsSet() bool {
	return r.Name != "" && r.Name != NoneName
}

var noneObject = ObjectRecord{Name: NoneName}

// LevelBucket holds every record saved for one level. SavedActors and
// SavedObjects name what was live at the last save of the level; only those
// are destroyed before the level is restored.
type LevelBucket struct {
	Level        string         `msgpack:"level" json:"level"`
	SavedActors  []string       `msgpack:"saved_actors" json:"saved_actors"`
	SavedObjects []string       `msgpack:"saved_objects" json:"saved_objects"`
	Actors       []ActorRecord  `msgpack:"actors" json:"actors"`
	Objects      []ObjectRecord `msgpack:"objects" json:"objects"`
}

// IsNone reports whether b is the "no bucket" sentinel.
func (b LevelBucket) IsNone() bool {
	return b.Level == "" || b.Level == NoneName
}

// ContainsActor reports whether an actor called name was saved in the level.
func (b LevelBucket) ContainsActor(name string) bool {
	return containsName(b.SavedActors, name)
}

// ContainsObject reports whether an object called name was saved in the level.
func (b LevelBucket) ContainsObject(name string) bool {
	return containsName(b.SavedObjects, name)
}

// clear empties the record arrays and keeps the level identity.
func (b *LevelBucket) clear() {
	b.SavedActors = nil
	b.SavedObjects = nil
	b.Actors = nil
	b.Objects = nil
}

func (b LevelBucket) clone() LevelBucket {
	return LevelBucket{
		Level:        b.Level,
		SavedActors:  append([]string(nil), b.SavedActors...),
		SavedObjects: append([]string(nil), b.SavedObjects...),
		Actors:       append([]ActorRecord(nil), b.Actors...),
		Objects:      append([]ObjectRecord(nil), b.Objects...),
	}
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
