package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/services"
)

// Backend is an in-memory generation backend and entity source. Jobs stay
// pending until a test settles them with Succeed or Fail.
type Backend struct {
	mu sync.Mutex

	scripts     map[string]film.Script
	characters  map[string][]film.Character
	shots       map[string][]film.Shot
	transitions map[string][]film.Transition

	jobs     map[string]*fakeJob
	jobOrder []string
	requests []jobs.Request

	submitErr error
	fetchErr  error
	statusErr error
	fetches   int
}

type fakeJob struct {
	request jobs.Request
	status  jobs.Status
	polls   int
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{
		scripts:     make(map[string]film.Script),
		characters:  make(map[string][]film.Character),
		shots:       make(map[string][]film.Shot),
		transitions: make(map[string][]film.Transition),
		jobs:        make(map[string]*fakeJob),
	}
}

// PutScript stores the chapter's script.
func (b *Backend) PutScript(chapterID string, script film.Script) {
	b.mu.Lock()
	defer b.mu.Unlock()
	script.ChapterID = chapterID
	b.scripts[chapterID] = script
}

// PutCharacters replaces the project's characters.
func (b *Backend) PutCharacters(projectID string, characters ...film.Character) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.characters[projectID] = slices.Clone(characters)
}

// PutShots replaces the script's shots.
func (b *Backend) PutShots(scriptID string, shots ...film.Shot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shots[scriptID] = slices.Clone(shots)
}

// PutTransitions replaces the script's transitions.
func (b *Backend) PutTransitions(scriptID string, transitions ...film.Transition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions[scriptID] = slices.Clone(transitions)
}

// FailSubmissions makes SubmitJob return err until cleared with nil.
func (b *Backend) FailSubmissions(err error) {
	b.mu.Lock()
	b.submitErr = err
	b.mu.Unlock()
}

// FailFetches makes FetchEntities return err until cleared with nil.
func (b *Backend) FailFetches(err error) {
	b.mu.Lock()
	b.fetchErr = err
	b.mu.Unlock()
}

// FailStatus makes GetJobStatus return err until cleared with nil.
func (b *Backend) FailStatus(err error) {
	b.mu.Lock()
	b.statusErr = err
	b.mu.Unlock()
}

// SubmitJob records the request and returns a fresh pending job id.
func (b *Backend) SubmitJob(_ context.Context, req jobs.Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.submitErr != nil {
		return "", b.submitErr
	}
	id := uuid.NewString()
	b.jobs[id] = &fakeJob{request: req, status: jobs.Status{State: jobs.StatePending}}
	b.jobOrder = append(b.jobOrder, id)
	return id, nil
}

// GetJobStatus reports the job's current status.
func (b *Backend) GetJobStatus(_ context.Context, jobID string) (jobs.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statusErr != nil {
		return jobs.Status{}, b.statusErr
	}
	job, ok := b.jobs[jobID]
	if !ok {
		return jobs.Status{}, fmt.Errorf("job %s: %w", jobID, services.ErrNotFound)
	}
	job.polls++
	return job.status, nil
}

// Succeed applies mutate to the entity data and then marks the job
// succeeded with result encoded as JSON.
func (b *Backend) Succeed(jobID string, result any, mutate func(*Backend)) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if mutate != nil {
		mutate(b)
	}
	return b.settle(jobID, jobs.Status{State: jobs.StateSucceeded, Result: jobs.Result{Raw: raw}})
}

// Fail marks the job failed with message.
func (b *Backend) Fail(jobID, message string) error {
	return b.settle(jobID, jobs.Status{State: jobs.StateFailed, Error: message})
}

// Report sets in-progress details on a pending job.
func (b *Backend) Report(jobID string, progress jobs.Progress) error {
	return b.settle(jobID, jobs.Status{State: jobs.StatePending, Progress: &progress})
}

func (b *Backend) settle(jobID string, status jobs.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.jobs[jobID]
	if !ok {
		return fmt.Errorf("unknown job %s", jobID)
	}
	job.status = status
	return nil
}

// Requests returns every submission attempt in order.
func (b *Backend) Requests() []jobs.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// JobIDs returns the accepted job ids in submission order.
func (b *Backend) JobIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.jobOrder)
}

// Polls reports how many status queries reached jobID.
func (b *Backend) Polls(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if job, ok := b.jobs[jobID]; ok {
		return job.polls
	}
	return 0
}

// Fetches reports how many FetchEntities calls were made.
func (b *Backend) Fetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

// FetchEntities returns the children of parentID. A chapter without a
// script is reported as not found.
func (b *Backend) FetchEntities(_ context.Context, stage film.Stage, parentID string) (film.Collection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches++
	if b.fetchErr != nil {
		return film.Collection{}, b.fetchErr
	}
	coll := film.Empty(stage)
	switch stage {
	case film.StageCharacter:
		coll.Characters = slices.Clone(b.characters[parentID])
	case film.StageScene:
		script, ok := b.scripts[parentID]
		if !ok {
			return film.Collection{}, fmt.Errorf("script for chapter %s: %w", parentID, services.ErrNotFound)
		}
		script.Scenes = slices.Clone(script.Scenes)
		coll.Script = &script
	case film.StageShot, film.StageKeyframe:
		coll.Shots = slices.Clone(b.shots[parentID])
	case film.StageTransition:
		coll.Transitions = slices.Clone(b.transitions[parentID])
	default:
		return film.Collection{}, fmt.Errorf("stage %s: %w", stage, services.ErrValidation)
	}
	return coll, nil
}

// DeleteEntity removes one entity. Missing entities are not found.
// UpdateEntity applies patch to a stored character or transition.
func (b *Backend) UpdateEntity(_ context.Context, stage film.Stage, id string, patch film.Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch stage {
	case film.StageCharacter:
		for parent, list := range b.characters {
			if i := slices.IndexFunc(list, func(c film.Character) bool { return c.ID == id }); i >= 0 {
				list = slices.Clone(list)
				if patch.AvatarRef != nil {
					list[i].AvatarRef = *patch.AvatarRef
				}
				b.characters[parent] = list
				return nil
			}
		}
	case film.StageTransition:
		for parent, list := range b.transitions {
			if i := slices.IndexFunc(list, func(t film.Transition) bool { return t.ID == id }); i >= 0 {
				list = slices.Clone(list)
				if patch.VideoPrompt != nil {
					list[i].VideoPrompt = *patch.VideoPrompt
				}
				b.transitions[parent] = list
				return nil
			}
		}
	default:
		return fmt.Errorf("%s has no editable fields: %w", stage, services.ErrValidation)
	}
	return fmt.Errorf("%s %s: %w", stage, id, services.ErrNotFound)
}

func (b *Backend) DeleteEntity(_ context.Context, stage film.Stage, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := false
	switch stage {
	case film.StageCharacter:
		for parent, list := range b.characters {
			next := slices.DeleteFunc(slices.Clone(list), func(c film.Character) bool { return c.ID == id })
			removed = removed || len(next) != len(list)
			b.characters[parent] = next
		}
	case film.StageScene:
		for chapter, script := range b.scripts {
			next := slices.DeleteFunc(slices.Clone(script.Scenes), func(s film.Scene) bool { return s.ID == id })
			if len(next) != len(script.Scenes) {
				removed = true
				script.Scenes = next
				b.scripts[chapter] = script
			}
		}
	case film.StageShot, film.StageKeyframe:
		for parent, list := range b.shots {
			next := slices.DeleteFunc(slices.Clone(list), func(s film.Shot) bool { return s.ID == id })
			removed = removed || len(next) != len(list)
			b.shots[parent] = next
		}
	case film.StageTransition:
		for parent, list := range b.transitions {
			next := slices.DeleteFunc(slices.Clone(list), func(t film.Transition) bool { return t.ID == id })
			removed = removed || len(next) != len(list)
			b.transitions[parent] = next
		}
	}
	if !removed {
		return fmt.Errorf("%s %s: %w", stage, id, services.ErrNotFound)
	}
	return nil
}
