package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
)

// ErrInFlight is returned when a job for the same stage and entity is
// already running. Nothing was submitted.
var ErrInFlight = errors.New("job already in flight")

// Outcome is the terminal result of a Job.
type Outcome struct {
	Result jobs.Result
	// Batch is set for batch kinds whose result payload decoded.
	Batch *jobs.BatchResult
	// Err is the job failure, nil on success.
	Err error
	// ReloadErr is set when the slice reload after completion failed. The
	// outcome itself still stands.
	ReloadErr error
	Cancelled bool
	// Detached is set when the caller stopped following a job that was still
	// running on the backend.
	Detached   bool
	FinishedAt time.Time
}

// Succeeded reports whether the job completed without failure, cancellation
// or detachment. A partial batch still succeeds.
func (o Outcome) Succeeded() bool { return o.Err == nil && !o.Cancelled && !o.Detached }

// Job is a submitted backend job followed until it ends.
type Job struct {
	ID          string
	Stage       film.Stage
	Kind        jobs.Kind
	Target      string
	SubmittedAt time.Time
	RequestID   string

	trackKey string
	done     chan struct{}

	mu       sync.Mutex
	handle   *jobs.Handle
	onStop   func(j *Job, detached bool)
	outcome  Outcome
	resolved bool
	progress jobs.Progress
}

func newJob(id string, kind jobs.Kind, target, trackKey, requestID string) *Job {
	return &Job{
		ID:          id,
		Stage:       kind.Stage(),
		Kind:        kind,
		Target:      target,
		SubmittedAt: time.Now().UTC(),
		RequestID:   requestID,
		trackKey:    trackKey,
		done:        make(chan struct{}),
	}
}

// Done is closed once the outcome is available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job ends or ctx is done.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		return j.Outcome(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the terminal outcome; the zero value while running.
func (j *Job) Outcome() Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome
}

// Progress returns the latest progress reported by the backend.
func (j *Job) Progress() jobs.Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Cancel stops following the job and resolves it as cancelled. The backend
// job itself keeps running; its result is discarded. Cancel returns false
// when the job already ended.
func (j *Job) Cancel() bool { return j.stop(false) }

// Detach stops following the job and resolves it as detached, recording that
// the backend job was left running. It returns false when the job already
// ended.
func (j *Job) Detach() bool { return j.stop(true) }

func (j *Job) stop(detached bool) bool {
	j.mu.Lock()
	handle, onStop := j.handle, j.onStop
	j.mu.Unlock()
	if handle == nil || !handle.Cancel() {
		return false
	}
	if onStop != nil {
		onStop(j, detached)
	}
	return true
}

func (j *Job) attach(handle *jobs.Handle, onStop func(j *Job, detached bool)) {
	j.mu.Lock()
	j.handle = handle
	j.onStop = onStop
	j.mu.Unlock()
}

func (j *Job) setProgress(p jobs.Progress) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
}

func (j *Job) resolve(o Outcome) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.resolved {
		return false
	}
	if o.FinishedAt.IsZero() {
		o.FinishedAt = time.Now().UTC()
	}
	j.outcome = o
	j.resolved = true
	close(j.done)
	return true
}

func (j *Job) isResolved() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.resolved
}

func (j *Job) pollDone() <-chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.handle == nil {
		return nil
	}
	return j.handle.Done()
}

// jobSet tracks the running jobs of a session.
type jobSet struct {
	mu   sync.Mutex
	jobs map[*Job]struct{}
}

func newJobSet() *jobSet {
	return &jobSet{jobs: make(map[*Job]struct{})}
}

// add registers job unless it already ended.
func (s *jobSet) add(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.isResolved() {
		return
	}
	s.jobs[job] = struct{}{}
}

func (s *jobSet) remove(job *Job) {
	s.mu.Lock()
	delete(s.jobs, job)
	s.mu.Unlock()
}

func (s *jobSet) list() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for job := range s.jobs {
		out = append(out, job)
	}
	return out
}
