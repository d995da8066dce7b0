package entitystore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/entitystore"
	"reelsmith/internal/film"
	"reelsmith/internal/services"
)

func TestReplaceIsWholesale(t *testing.T) {
	store := entitystore.New(film.Chapter{ID: "ch-1"})
	first := film.Collection{Stage: film.StageCharacter, Characters: []film.Character{{ID: "a"}, {ID: "b"}}}
	if err := store.Replace(first); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	second := film.Collection{Stage: film.StageCharacter, Characters: []film.Character{{ID: "c"}}}
	if err := store.Replace(second); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	chars := store.Snapshot().Characters
	if len(chars) != 1 || chars[0].ID != "c" {
		t.Fatalf("expected wholesale replace, got %+v", chars)
	}
	if store.Version() != 2 {
		t.Fatalf("Version = %d, want 2", store.Version())
	}
}

func TestReplaceTouchesOnlyItsSlice(t *testing.T) {
	store := entitystore.New(film.Chapter{ID: "ch-1"})
	_ = store.Replace(film.Collection{Stage: film.StageScene, Script: &film.Script{ID: "s", Scenes: []film.Scene{{ID: "sc"}}}})
	_ = store.Replace(film.Collection{Stage: film.StageShot, Shots: []film.Shot{{ID: "sh", SceneID: "sc"}}})
	_ = store.Replace(film.Empty(film.StageTransition))

	snap := store.Snapshot()
	if snap.ScriptID() != "s" || len(snap.Shots()) != 1 {
		t.Fatalf("unrelated slices changed: %+v", snap)
	}
}

func TestReplaceRejectsStageWithoutSlice(t *testing.T) {
	store := entitystore.New(film.Chapter{})
	err := store.Replace(film.Empty(film.StageAssembly))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.Version() != 0 {
		t.Fatal("rejected replace must not bump version")
	}
}

func TestSnapshotDoesNotAliasStore(t *testing.T) {
	store := entitystore.New(film.Chapter{})
	chars := []film.Character{{ID: "a"}}
	_ = store.Replace(film.Collection{Stage: film.StageCharacter, Characters: chars})
	chars[0].AvatarRef = "mutated"

	snap := store.Snapshot()
	snap.Characters[0].Name = "mutated"
	if got := store.Snapshot().Characters[0]; got.AvatarRef != "" || got.Name != "" {
		t.Fatalf("store aliased caller memory: %+v", got)
	}
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	store := entitystore.New(film.Chapter{ID: "ch-1"})
	var mu sync.Mutex
	var seen []int
	unsubscribe := store.Subscribe(func(s film.Snapshot) {
		mu.Lock()
		seen = append(seen, len(s.Characters))
		mu.Unlock()
	})

	_ = store.Replace(film.Collection{Stage: film.StageCharacter, Characters: []film.Character{{ID: "a"}}})
	_ = store.Replace(film.Collection{Stage: film.StageCharacter, Characters: []film.Character{{ID: "a"}, {ID: "b"}}})
	unsubscribe()
	_ = store.Replace(film.Empty(film.StageCharacter))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected notifications: %v", seen)
	}
}

func TestListenerMayReplaceFromCallback(t *testing.T) {
	store := entitystore.New(film.Chapter{ID: "ch-1"})
	var versions []uint64
	store.Subscribe(func(s film.Snapshot) {
		versions = append(versions, s.Version)
		if len(s.Transitions) == 0 {
			_ = store.Replace(film.Collection{Stage: film.StageTransition, Transitions: []film.Transition{{ID: "tr-1"}}})
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.Replace(film.Collection{Stage: film.StageCharacter, Characters: []film.Character{{ID: "a"}}})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Replace from a listener blocked")
	}

	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("unexpected deliveries %v", versions)
	}
	if got := store.Snapshot(); len(got.Transitions) != 1 || len(got.Characters) != 1 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}
