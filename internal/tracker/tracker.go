// Package tracker records which entities currently have a generation job in
// flight, per pipeline stage. It enforces at most one in-flight job per
// (stage, id) pair.
package tracker

import (
	"slices"
	"sync"

	"reelsmith/internal/film"
)

// BatchKey is the reserved id used for stage-wide batch jobs. Backend ids are
// UUIDs, so the angle brackets keep it distinct from any real entity.
const BatchKey = "<batch>"

// Tracker is safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	busy map[film.Stage]map[string]struct{}
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{busy: make(map[film.Stage]map[string]struct{})}
}

// TryBegin marks id busy for stage. It returns false, changing nothing, when
// the pair is already busy.
func (t *Tracker) TryBegin(stage film.Stage, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.busy[stage]
	if !ok {
		set = make(map[string]struct{})
		t.busy[stage] = set
	}
	if _, exists := set[id]; exists {
		return false
	}
	set[id] = struct{}{}
	return true
}

// End clears the pair. Ending an idle pair is a no-op.
func (t *Tracker) End(stage film.Stage, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.busy[stage]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.busy, stage)
	}
}

// Busy reports whether the pair has a job in flight.
func (t *Tracker) Busy(stage film.Stage, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.busy[stage][id]
	return ok
}

// Batching reports whether a batch job is in flight for stage.
func (t *Tracker) Batching(stage film.Stage) bool {
	return t.Busy(stage, BatchKey)
}

// InFlight returns the busy ids of stage in sorted order, including BatchKey
// when a batch is running.
func (t *Tracker) InFlight(stage film.Stage) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.busy[stage]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Total returns the number of busy pairs across all stages.
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, set := range t.busy {
		n += len(set)
	}
	return n
}
