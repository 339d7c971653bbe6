package savestate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AndrewDonelson/savestate"
	"github.com/AndrewDonelson/savestate/internal/clock"
	"github.com/AndrewDonelson/savestate/internal/worldtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend fails every read.
type failingBackend struct{ err error }

func (b failingBackend) Save(context.Context, string, int, []byte) error { return b.err }
func (b failingBackend) Load(context.Context, string, int) ([]byte, bool, error) {
	return nil, false, b.err
}
func (b failingBackend) Exists(context.Context, string, int) (bool, error) { return false, b.err }
func (b failingBackend) Delete(context.Context, string, int) error         { return b.err }
func (b failingBackend) List(context.Context, int) ([]string, error)       { return nil, b.err }
func (b failingBackend) Close() error                                      { return nil }

type doneRecorder struct {
	calls int
	sg    *savestate.SaveGame
	err   error
}

func (d *doneRecorder) fn(sg *savestate.SaveGame, err error) {
	d.calls++
	d.sg, d.err = sg, err
}

// Beacon is a map-linked object that runs onBeaconLoaded when restored.
type Beacon struct {
	savestate.ObjectBase
	savestate.PersistentBase
	Lit bool `save:"persist"`
}

var onBeaconLoaded func()

func (b *Beacon) OnLoadComplete() {
	if onBeaconLoaded != nil {
		onBeaconLoaded()
	}
}

// beaconScene is savedScene plus a saved beacon whose load callback is cb.
func beaconScene(t *testing.T, sys *savestate.System, cb func()) *scene {
	t.Helper()
	require.NoError(t, sys.RegisterClass("Beacon", &Beacon{}))
	s := newScene(t)
	newObject(t, s.w, &Beacon{Lit: true}, "Beacon1", nil)
	_, err := sys.Save(context.Background(), s.w, "Alice", s.pc)
	require.NoError(t, err)
	onBeaconLoaded = cb
	t.Cleanup(func() { onBeaconLoaded = nil })
	return s
}

// savedScene saves a scene for Alice and then disturbs the live values.
func savedScene(t *testing.T, sys *savestate.System) *scene {
	t.Helper()
	s := newScene(t)
	_, err := sys.Save(context.Background(), s.w, "Alice", s.pc)
	require.NoError(t, err)
	s.lamp.On = false
	s.hero.Health = 1
	return s
}

// ── state machine ─────────────────────────────────────────────────────────────

func TestLoadAction_FourTransitions(t *testing.T) {
	var states []savestate.LoadState
	sys := newSystem(t, func(c *savestate.Config) {
		c.Hooks.OnStateChange = func(_ savestate.ActionKey, _, to savestate.LoadState) {
			states = append(states, to)
		}
	})
	s := savedScene(t, sys)
	done := &doneRecorder{}

	a, err := sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, done.fn)
	require.NoError(t, err)
	assert.Equal(t, savestate.StateInitializing, a.State())
	assert.Equal(t, 1, sys.Actions().Len())

	// 1: save game retrieved, population suppressed
	assert.Equal(t, 1, sys.Actions().Update(0))
	assert.Equal(t, savestate.StateRetrieving, a.State())
	sg := a.SaveGame()
	require.NotNil(t, sg)
	assert.True(t, sg.InPass())
	assert.True(t, sg.PopulationSuppressed())
	assert.False(t, find[*Lamp](t, s.w, "Lamp1").On, "world untouched before settling")

	// 2: settle delay of zero elapses after one tick
	sys.Actions().Update(0)
	assert.Equal(t, savestate.StateLoadingActorData, a.State())

	// 3: pawn parked, level restored
	sys.Actions().Update(0)
	assert.Equal(t, savestate.StateLoadingPlayerData, a.State())
	assert.Equal(t, savestate.DefaultHoldingLocation, s.hero.Transform().Location)
	assert.True(t, find[*Lamp](t, s.w, "Lamp1").On)
	assert.Same(t, s.hero, s.pc.Pawn())
	assert.Equal(t, 0, done.calls)

	// 4: player restored, action done
	assert.Equal(t, 0, sys.Actions().Update(0))
	assert.Equal(t, savestate.StateCompleted, a.State())
	assert.True(t, a.Done())
	assert.NoError(t, a.Err())

	hero := find[*Hero](t, s.w, "Hero")
	assert.NotSame(t, s.hero, hero)
	assert.Equal(t, 80, hero.Health)
	assert.Same(t, hero, s.pc.Pawn())
	assert.Equal(t, savestate.Vector{X: 1, Y: 2, Z: 3}, hero.Transform().Location)
	assert.Same(t, find[*Owner](t, s.w, "Backpack"), hero.Pack)

	assert.Equal(t, 1, done.calls)
	assert.Same(t, sg, done.sg)
	assert.NoError(t, done.err)
	assert.False(t, sg.InPass())
	assert.False(t, sg.PopulationSuppressed())

	assert.Equal(t, []savestate.LoadState{
		savestate.StateRetrieving,
		savestate.StateLoadingActorData,
		savestate.StateLoadingPlayerData,
		savestate.StateCompleted,
	}, states)

	sys.Actions().Update(0)
	assert.Equal(t, 1, done.calls)
}

func TestLoadAction_SettleDelay(t *testing.T) {
	sys := newSystem(t, func(c *savestate.Config) { c.SettleDelay = 100 * time.Millisecond })
	s := savedScene(t, sys)

	a, err := sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	require.NoError(t, err)

	sys.Actions().Update(0)
	sys.Actions().Update(40 * time.Millisecond)
	sys.Actions().Update(40 * time.Millisecond)
	assert.Equal(t, savestate.StateRetrieving, a.State())
	sys.Actions().Update(20 * time.Millisecond)
	assert.Equal(t, savestate.StateLoadingActorData, a.State())
}

func TestLoadAction_TickUsesClock(t *testing.T) {
	mock := clock.NewMock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	sys := newSystem(t, func(c *savestate.Config) {
		c.Clock = mock
		c.SettleDelay = time.Second
	})
	s := savedScene(t, sys)

	a, err := sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	require.NoError(t, err)

	sys.Actions().Tick()
	sys.Actions().Tick()
	assert.Equal(t, savestate.StateRetrieving, a.State())
	mock.Advance(time.Second)
	sys.Actions().Tick()
	assert.Equal(t, savestate.StateLoadingActorData, a.State())
}

func TestLoadAction_NewPlayerLoadsNothing(t *testing.T) {
	sys := newSystem(t)
	s := newScene(t)
	done := &doneRecorder{}

	_, err := sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Bob", s.pc, done.fn)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		sys.Actions().Update(0)
	}
	require.Equal(t, 1, done.calls)
	assert.NoError(t, done.err)
	assert.Equal(t, "Bob", done.sg.PlayerName)
	assert.Same(t, s.hero, s.pc.Pawn())
	assert.Empty(t, s.w.Destroyed())
}

// ── registration ──────────────────────────────────────────────────────────────

func TestLoadAction_DuplicateKeyRejected(t *testing.T) {
	sys := newSystem(t)
	s := savedScene(t, sys)
	key := savestate.NewActionKey("menu")

	first, err := sys.LoadGameByPlayerName(context.Background(), s.w, key, "Alice", s.pc, nil)
	require.NoError(t, err)
	sys.Actions().Update(0)

	second, err := sys.LoadGameByPlayerName(context.Background(), s.w, key, "Alice", s.pc, nil)
	assert.ErrorIs(t, err, savestate.ErrActionInFlight)
	assert.Nil(t, second)

	got, ok := sys.Actions().Find(key)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, savestate.StateRetrieving, first.State())
	assert.Equal(t, 1, sys.Actions().Len())

	// Same target, different id: allowed.
	_, err = sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Bob", s.pc, nil)
	assert.NoError(t, err)
}

func TestLoadAction_InvalidArgumentsRegisterNothing(t *testing.T) {
	sys := newSystem(t)
	s := newScene(t)
	key := savestate.NewActionKey("menu")
	ctx := context.Background()

	_, err := sys.LoadGameByPlayerName(ctx, s.w, key, "", s.pc, nil)
	assert.ErrorIs(t, err, savestate.ErrInvalidPlayerName)
	_, err = sys.LoadGameByPlayerName(ctx, s.w, key, "None", s.pc, nil)
	assert.ErrorIs(t, err, savestate.ErrInvalidPlayerName)
	_, err = sys.LoadGameByPlayerName(ctx, nil, key, "Alice", s.pc, nil)
	assert.ErrorIs(t, err, savestate.ErrNilWorld)
	_, err = sys.LoadGameByPlayerName(ctx, s.w, key, "Alice", nil, nil)
	assert.ErrorIs(t, err, savestate.ErrNilController)

	assert.Equal(t, 0, sys.Actions().Len())
}

func TestLoadAction_NilContext(t *testing.T) {
	sys := newSystem(t)
	s := newScene(t)
	//nolint:staticcheck // a nil context is accepted
	a, err := sys.LoadGameByPlayerName(nil, s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	require.NoError(t, err)
	sys.Actions().Update(0)
	assert.Equal(t, savestate.StateRetrieving, a.State())
}

// ── failure and abort ─────────────────────────────────────────────────────────

func TestLoadAction_PassExclusive(t *testing.T) {
	sys := newSystem(t)
	s := savedScene(t, sys)

	a, err := sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	require.NoError(t, err)
	sys.Actions().Update(0)

	sg := a.SaveGame()
	assert.ErrorIs(t, sys.SavePersistentActors(s.w, sg), savestate.ErrPassInFlight)
	assert.ErrorIs(t, sys.LoadGameByObject(s.w, sg, s.pc), savestate.ErrPassInFlight)
}

func TestLoadAction_SlotExclusiveAcrossInstances(t *testing.T) {
	sys := newSystem(t)
	s := savedScene(t, sys)
	ctx := context.Background()

	a, err := sys.LoadGameByPlayerName(ctx, s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	require.NoError(t, err)
	sys.Actions().Update(0)
	require.Equal(t, savestate.StateRetrieving, a.State())

	_, err = sys.Save(ctx, s.w, "Alice", s.pc)
	assert.ErrorIs(t, err, savestate.ErrPassInFlight)
	_, err = sys.DirectSavePersistentActors(ctx, s.w, "Alice")
	assert.ErrorIs(t, err, savestate.ErrPassInFlight)
	_, err = sys.DirectSavePlayerData(ctx, s.w, "Alice", s.pc)
	assert.ErrorIs(t, err, savestate.ErrPassInFlight)
	_, err = sys.LoadPersistentActorsByPlayerName(ctx, s.w, "Alice")
	assert.ErrorIs(t, err, savestate.ErrPassInFlight)

	other := savestate.NewSaveGame("Alice", 0)
	assert.ErrorIs(t, sys.LoadGameByObject(s.w, other, s.pc), savestate.ErrPassInFlight)
	assert.False(t, other.InPass())

	second, err := sys.LoadGameByPlayerName(ctx, s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	assert.ErrorIs(t, err, savestate.ErrPassInFlight)
	assert.Nil(t, second)
	assert.Equal(t, 1, sys.Actions().Len())

	// Other slots are unaffected.
	_, err = sys.Save(ctx, s.w, "Bob", s.pc)
	assert.NoError(t, err)

	for sys.Actions().Update(0) > 0 {
	}
	assert.NoError(t, a.Err())
	_, err = sys.Save(ctx, s.w, "Alice", s.pc)
	assert.NoError(t, err, "slot released once the load finished")
}

func TestLoadAction_QueuedLoadsForOneSlot(t *testing.T) {
	sys := newSystem(t)
	s := savedScene(t, sys)
	ctx := context.Background()
	done := &doneRecorder{}

	first, err := sys.LoadGameByPlayerName(ctx, s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	require.NoError(t, err)
	second, err := sys.LoadGameByPlayerName(ctx, s.w, savestate.NewActionKey("hud"), "Alice", s.pc, done.fn)
	require.NoError(t, err, "neither holds the slot before its first tick")

	assert.Equal(t, 1, sys.Actions().Update(0))
	assert.Equal(t, savestate.StateRetrieving, first.State())
	assert.Equal(t, savestate.StateCompleted, second.State())
	assert.ErrorIs(t, second.Err(), savestate.ErrPassInFlight)
	require.Equal(t, 1, done.calls)
	assert.True(t, first.SaveGame().InPass(), "the failed load leaves the first claim alone")
}

func TestLoadAction_ReentrantCallback(t *testing.T) {
	sys := newSystem(t)
	var (
		a    *savestate.LoadAction
		seen []savestate.LoadState
	)
	s := beaconScene(t, sys, func() {
		seen = append(seen, a.State())
		assert.False(t, a.Update(0), "nested update does nothing")
		assert.False(t, a.Done())
	})
	done := &doneRecorder{}

	var err error
	a, err = sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, done.fn)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		sys.Actions().Update(0)
	}

	assert.Equal(t, []savestate.LoadState{savestate.StateLoadingActorData}, seen)
	assert.Equal(t, savestate.StateCompleted, a.State())
	assert.NoError(t, a.Err())
	assert.Equal(t, 1, done.calls)
	assert.True(t, find[*Beacon](t, s.w, "Beacon1").Lit)
}

func TestLoadAction_AbortFromCallback(t *testing.T) {
	var states []savestate.LoadState
	sys := newSystem(t, func(c *savestate.Config) {
		c.Hooks.OnStateChange = func(_ savestate.ActionKey, _, to savestate.LoadState) {
			states = append(states, to)
		}
	})
	key := savestate.NewActionKey("menu")
	s := beaconScene(t, sys, func() {
		assert.True(t, sys.Actions().Abort(key))
	})
	done := &doneRecorder{}

	a, err := sys.LoadGameByPlayerName(context.Background(), s.w, key, "Alice", s.pc, done.fn)
	require.NoError(t, err)
	sys.Actions().Update(0)
	sg := a.SaveGame()
	sys.Actions().Update(0)
	assert.Equal(t, 0, sys.Actions().Update(0))

	assert.Equal(t, savestate.StateAborted, a.State())
	assert.ErrorIs(t, a.Err(), savestate.ErrAborted)
	require.Equal(t, 1, done.calls)
	assert.ErrorIs(t, done.err, savestate.ErrAborted)
	assert.False(t, sg.InPass())
	assert.Equal(t, 0, sys.Actions().Len())
	assert.Same(t, s.hero, s.pc.Pawn(), "player data never loaded")
	assert.Equal(t, []savestate.LoadState{
		savestate.StateRetrieving,
		savestate.StateLoadingActorData,
		savestate.StateAborted,
	}, states)

	assert.NoError(t, sys.Close())
}

func TestLoadAction_RetrievalFailure(t *testing.T) {
	boom := errors.New("disk gone")
	log := &worldtest.Logger{}
	sys := newSystem(t, func(c *savestate.Config) {
		c.Backend = failingBackend{err: boom}
		c.Logger = log
	})
	s := newScene(t)
	done := &doneRecorder{}

	a, err := sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, done.fn)
	require.NoError(t, err)

	assert.Equal(t, 0, sys.Actions().Update(0))
	assert.Equal(t, savestate.StateCompleted, a.State())
	assert.ErrorIs(t, a.Err(), boom)
	require.Equal(t, 1, done.calls)
	assert.Nil(t, done.sg)
	assert.ErrorIs(t, done.err, boom)
	assert.Empty(t, s.w.Destroyed())
	assert.NotEmpty(t, log.Entries("warn"))
}

func TestLoadAction_Abort(t *testing.T) {
	var afterLoadErr error
	sys := newSystem(t, func(c *savestate.Config) {
		c.Hooks.AfterLoad = func(_ *savestate.SaveGame, err error) { afterLoadErr = err }
	})
	s := savedScene(t, sys)
	done := &doneRecorder{}
	key := savestate.NewActionKey("menu")

	a, err := sys.LoadGameByPlayerName(context.Background(), s.w, key, "Alice", s.pc, done.fn)
	require.NoError(t, err)
	sys.Actions().Update(0)
	sg := a.SaveGame()

	assert.True(t, sys.Actions().Abort(key))
	assert.Equal(t, savestate.StateAborted, a.State())
	assert.ErrorIs(t, a.Err(), savestate.ErrAborted)
	assert.ErrorIs(t, afterLoadErr, savestate.ErrAborted)
	require.Equal(t, 1, done.calls)
	assert.ErrorIs(t, done.err, savestate.ErrAborted)
	assert.False(t, sg.InPass())
	assert.Equal(t, 0, sys.Actions().Len())

	assert.False(t, a.Abort())
	assert.False(t, sys.Actions().Abort(key))
	a.Update(0)
	assert.Equal(t, savestate.StateAborted, a.State())
	assert.Equal(t, 1, done.calls)
	assert.False(t, find[*Lamp](t, s.w, "Lamp1").On, "aborted before touching the world")
}

func TestLoadAction_CloseAbortsInFlight(t *testing.T) {
	sys, err := savestate.New(savestate.Config{})
	require.NoError(t, err)
	registerClasses(t, sys)
	s := savedScene(t, sys)
	done := &doneRecorder{}

	_, err = sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, done.fn)
	require.NoError(t, err)
	require.NoError(t, sys.Close())

	assert.Equal(t, 1, done.calls)
	assert.ErrorIs(t, done.err, savestate.ErrAborted)
	_, err = sys.LoadGameByPlayerName(context.Background(), s.w, savestate.NewActionKey("menu"), "Alice", s.pc, nil)
	assert.ErrorIs(t, err, savestate.ErrUnavailable)
}

func TestLoadState_String(t *testing.T) {
	assert.Equal(t, "loading_actor_data", savestate.StateLoadingActorData.String())
	assert.Equal(t, "unknown", savestate.LoadState(42).String())
	assert.True(t, savestate.StateAborted.Terminal())
	assert.False(t, savestate.StateRetrieving.Terminal())
}

func TestActionKey_String(t *testing.T) {
	k := savestate.NewActionKey("menu")
	assert.Equal(t, "menu/"+k.ID.String(), k.String())
	assert.NotEqual(t, k, savestate.NewActionKey("menu"))
}
