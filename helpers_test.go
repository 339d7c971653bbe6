package savestate_test

import (
	"testing"

	"github.com/AndrewDonelson/savestate"
	"github.com/AndrewDonelson/savestate/internal/worldtest"
	"github.com/stretchr/testify/require"
)

// ── test models ───────────────────────────────────────────────────────────────

// Chest is a map-linked persistent object.
type Chest struct {
	savestate.ObjectBase
	savestate.PersistentBase
	Gold int `save:"persist"`

	loads int
}

func (c *Chest) OnLoadComplete() { c.loads++ }

// Lamp is a map-linked persistent object that points at a chest.
type Lamp struct {
	savestate.ObjectBase
	savestate.PersistentBase
	On      bool   `save:"persist"`
	Chest   *Chest `save:"persist"`
	Scratch int    `save:"persist,transient"`
	Cache   string

	saves int
	loads int
}

func (l *Lamp) OnSaveComplete() { l.saves++ }
func (l *Lamp) OnLoadComplete() { l.loads++ }

// Owner is a player-linked object with one object reference, one actor
// reference and one component reference.
type Owner struct {
	savestate.ObjectBase
	savestate.PlayerLinkedBase
	Target *Chest `save:"persist"`
	Guard  *Door  `save:"persist"`
	Light  *Bulb  `save:"persist"`
	Score  int    `save:"persist"`
	Notes  []byte `save:"persist"`

	Other *Chest

	loads int
}

func (o *Owner) OnLoadComplete() { o.loads++ }

// Door is a persistent actor.
type Door struct {
	savestate.ActorBase
	savestate.PersistentBase
	Open bool  `save:"persist"`
	Lamp *Lamp `save:"persist"`

	saves int
	loads int
}

func (d *Door) OnSaveComplete() { d.saves++ }
func (d *Door) OnLoadComplete() { d.loads++ }

// Bulb is a component attached to an actor.
type Bulb struct {
	savestate.ComponentBase
	Watts int `save:"persist"`
}

// Hero is the player pawn. It is not Persistent; it takes part in reference
// saving only while possessed.
type Hero struct {
	savestate.PawnBase
	Health int    `save:"persist"`
	Pack   *Owner `save:"persist"`
}

// Plain implements Object and nothing else.
type Plain struct {
	savestate.ObjectBase
	Target *Chest `save:"persist"`
}

// ── helpers ───────────────────────────────────────────────────────────────────

func newSystem(t *testing.T, mutate ...func(*savestate.Config)) *savestate.System {
	t.Helper()
	cfg := savestate.Config{}
	for _, m := range mutate {
		m(&cfg)
	}
	sys, err := savestate.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { sys.Close() })
	registerClasses(t, sys)
	return sys
}

func registerClasses(t *testing.T, sys *savestate.System) {
	t.Helper()
	require.NoError(t, sys.RegisterClass("Chest", &Chest{}))
	require.NoError(t, sys.RegisterClass("Lamp", &Lamp{}))
	require.NoError(t, sys.RegisterClass("Owner", &Owner{}))
	require.NoError(t, sys.RegisterClass("Door", &Door{}))
	require.NoError(t, sys.RegisterClass("Hero", &Hero{}))
}

func newObject[T savestate.Object](t *testing.T, w *worldtest.World, obj T, name string, outer savestate.Object) T {
	t.Helper()
	require.NoError(t, w.NewObject(obj, name, outer))
	return obj
}

func spawn[T savestate.Actor](t *testing.T, w *worldtest.World, a T, name string, at savestate.Vector) T {
	t.Helper()
	require.NoError(t, w.SpawnActor(a, savestate.At(at), name, nil))
	return a
}

func find[T savestate.Object](t *testing.T, w *worldtest.World, name string) T {
	t.Helper()
	obj, ok := w.FindObject(name)
	require.True(t, ok, "object %s not live", name)
	v, ok := obj.(T)
	require.True(t, ok, "object %s is %T", name, obj)
	return v
}

// scene is a small level: a chest, a lamp pointing at it, a door pointing
// at the lamp, a possessed hero and a player-linked owner pointing at the
// chest.
type scene struct {
	w     *worldtest.World
	pc    *worldtest.Controller
	hero  *Hero
	chest *Chest
	lamp  *Lamp
	door  *Door
	owner *Owner
}

func newScene(t *testing.T) *scene {
	t.Helper()
	w := worldtest.New("Dungeon")
	pc := worldtest.NewController("PC0")

	s := &scene{w: w, pc: pc}
	s.chest = newObject(t, w, &Chest{Gold: 50}, "Chest3", nil)
	s.lamp = newObject(t, w, &Lamp{On: true, Chest: s.chest}, "Lamp1", nil)
	s.door = spawn(t, w, &Door{Open: true, Lamp: s.lamp}, "Door7", savestate.Vector{X: 10, Y: 20})
	s.hero = &Hero{Health: 80}
	require.NoError(t, w.SpawnActor(s.hero, savestate.At(savestate.Vector{X: 1, Y: 2, Z: 3}), "Hero", pc))
	pc.Possess(s.hero)
	s.owner = newObject(t, w, &Owner{Target: s.chest, Score: 7}, "Backpack", s.hero)
	s.hero.Pack = s.owner
	w.AddToRoot(s.owner)
	return s
}
