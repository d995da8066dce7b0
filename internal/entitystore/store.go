// Package entitystore caches one chapter's domain collections in memory.
//
// Each collection is replaced wholesale from the external Source; nothing is
// merged, so a slice always reflects a single fetch. Readers receive deep-copy
// snapshots and never observe a partially applied update.
package entitystore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"reelsmith/internal/film"
	"reelsmith/internal/services"
)

// Source is the external entity store.
type Source interface {
	// FetchEntities returns the children of parentID for stage. A parent with
	// no children yields an empty collection, not an error.
	FetchEntities(ctx context.Context, stage film.Stage, parentID string) (film.Collection, error)
	// DeleteEntity removes one entity. Deleting a missing entity is an error.
	DeleteEntity(ctx context.Context, stage film.Stage, id string) error
	// UpdateEntity applies patch to one entity. Updating a missing entity is
	// an error.
	UpdateEntity(ctx context.Context, stage film.Stage, id string, patch film.Patch) error
}

// Store holds the chapter's script, characters, shots and transitions.
type Store struct {
	mu          sync.RWMutex
	chapter     film.Chapter
	script      *film.Script
	characters  []film.Character
	shots       []film.Shot
	transitions []film.Transition
	version     uint64

	notifyMu  sync.Mutex
	listeners map[int]func(film.Snapshot)
	nextID    int
	delivered atomic.Uint64
}

// New returns an empty store for chapter.
func New(chapter film.Chapter) *Store {
	return &Store{chapter: chapter, listeners: make(map[int]func(film.Snapshot))}
}

// Chapter returns the chapter the store caches.
func (s *Store) Chapter() film.Chapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chapter
}

// Replace swaps the slice selected by c.Stage for a copy of c and notifies
// subscribers.
func (s *Store) Replace(c film.Collection) error {
	next := c.Clone()
	s.mu.Lock()
	switch c.Stage {
	case film.StageCharacter:
		s.characters = next.Characters
	case film.StageScene:
		s.script = next.Script
	case film.StageShot, film.StageKeyframe:
		s.shots = next.Shots
	case film.StageTransition:
		s.transitions = next.Transitions
	default:
		s.mu.Unlock()
		return services.Wrap(services.ErrValidation, c.Stage.String(), "replace", fmt.Sprintf("stage %v has no entity slice", c.Stage), nil)
	}
	s.version++
	s.mu.Unlock()

	s.notify()
	return nil
}

// Snapshot returns an immutable copy of every collection.
func (s *Store) Snapshot() film.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := film.NewSnapshot(s.chapter, s.script, s.characters, s.shots, s.transitions)
	snap.Version = s.version
	return snap
}

// Version increments on every Replace.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn to receive a snapshot after every Replace. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(film.Snapshot)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.listeners, id)
	}
}

// notify delivers the current snapshot to every listener. No lock is held
// while listeners run, so a listener may call Replace. A delivery whose
// version is not newer than one already started is dropped; listeners still
// compare Snapshot.Version when they need strict ordering.
func (s *Store) notify() {
	snap := s.Snapshot()
	for {
		last := s.delivered.Load()
		if snap.Version <= last {
			return
		}
		if s.delivered.CompareAndSwap(last, snap.Version) {
			break
		}
	}

	s.notifyMu.Lock()
	listeners := make([]func(film.Snapshot), 0, len(s.listeners))
	for _, id := range slices.Sorted(maps.Keys(s.listeners)) {
		listeners = append(listeners, s.listeners[id])
	}
	s.notifyMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
