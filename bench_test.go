package savestate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/AndrewDonelson/savestate"
	"github.com/AndrewDonelson/savestate/internal/worldtest"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func benchNewSystem(b *testing.B) *savestate.System {
	b.Helper()
	sys, err := savestate.New(savestate.Config{})
	if err != nil {
		b.Fatal(err)
	}
	for name, model := range map[string]savestate.Object{
		"Chest": &Chest{}, "Lamp": &Lamp{}, "Door": &Door{}, "Hero": &Hero{}, "Owner": &Owner{},
	} {
		if err := sys.RegisterClass(name, model); err != nil {
			b.Fatal(err)
		}
	}
	return sys
}

// benchWorld builds a level of n chests, n lamps pointing at them and n
// doors pointing at the lamps.
func benchWorld(b *testing.B, n int) *worldtest.World {
	b.Helper()
	w := worldtest.New("Bench")
	for i := 0; i < n; i++ {
		chest := &Chest{Gold: i}
		lamp := &Lamp{On: true, Chest: chest}
		door := &Door{Lamp: lamp}
		if err := w.NewObject(chest, fmt.Sprintf("Chest%d", i), nil); err != nil {
			b.Fatal(err)
		}
		if err := w.NewObject(lamp, fmt.Sprintf("Lamp%d", i), nil); err != nil {
			b.Fatal(err)
		}
		if err := w.SpawnActor(door, savestate.IdentityTransform(), fmt.Sprintf("Door%d", i), nil); err != nil {
			b.Fatal(err)
		}
	}
	return w
}

// ── benchmarks ────────────────────────────────────────────────────────────────

func BenchmarkSavePersistentActors_100(b *testing.B) {
	sys := benchNewSystem(b)
	defer sys.Close()
	w := benchWorld(b, 100)
	sg := savestate.NewSaveGame("Bench", 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := sys.SavePersistentActors(w, sg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoadPersistentActors_100(b *testing.B) {
	sys := benchNewSystem(b)
	defer sys.Close()
	w := benchWorld(b, 100)
	sg := savestate.NewSaveGame("Bench", 0)
	if err := sys.SavePersistentActors(w, sg); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := sys.LoadPersistentActors(w, sg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFlushAndGet(b *testing.B) {
	sys := benchNewSystem(b)
	defer sys.Close()
	w := benchWorld(b, 50)
	sg := savestate.NewSaveGame("Bench", 0)
	if err := sys.SavePersistentActors(w, sg); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := sys.Flush(ctx, sg); err != nil {
			b.Fatal(err)
		}
		if _, err := sys.GetSaveGame(ctx, "Bench"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSerializeObject(b *testing.B) {
	w := benchWorld(b, 1)
	obj, _ := w.FindObject("Lamp0")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := savestate.SerializeObject(obj); err != nil {
			b.Fatal(err)
		}
	}
}
