package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"reelsmith/internal/entitystore"
	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/tracker"
)

// runtime is shared by every manager of a session.
type runtime struct {
	// ctx bounds polling loops and post-completion reloads. It ends when the
	// session closes.
	ctx      context.Context
	backend  jobs.Backend
	source   entitystore.Source
	store    *entitystore.Store
	tracker  *tracker.Tracker
	poller   *jobs.Poller
	jobs     *jobSet
	logger   *slog.Logger
	defaults Defaults

	onFinished func(*Job, Outcome)
	onRejected func(jobs.Request, string, error)
}

// stageManager implements the operations common to every entity slice.
type stageManager struct {
	rt     *runtime
	slice  film.Stage
	parent func() string
	logger *slog.Logger
}

func newStageManager(rt *runtime, slice film.Stage, parent func() string) *stageManager {
	return &stageManager{
		rt:     rt,
		slice:  slice,
		parent: parent,
		logger: rt.logger.With(logging.String(logging.FieldComponent, "workflow-"+slice.String())),
	}
}

// Load fetches the children of parentID and replaces the slice. A missing
// parent yields the empty initial state; other failures leave the slice as
// it was.
func (m *stageManager) Load(ctx context.Context, parentID string) error {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return m.rt.store.Replace(film.Empty(m.slice))
	}
	coll, err := m.rt.source.FetchEntities(ctx, m.slice, parentID)
	switch {
	case errors.Is(err, services.ErrNotFound):
		coll = film.Empty(m.slice)
	case err != nil:
		return fmt.Errorf("load %s slice for %s: %w", m.slice, parentID, err)
	}
	coll.Stage = m.slice
	if err := m.rt.store.Replace(coll); err != nil {
		return err
	}
	m.logger.Debug("slice reloaded",
		logging.String(logging.FieldEventType, logging.EventSliceReloaded),
		logging.String("parent_id", parentID),
		logging.Int("entities", coll.Len()),
	)
	return nil
}

func (m *stageManager) reload(ctx context.Context) error {
	return m.Load(ctx, m.parent())
}

// Delete removes one entity at the source and reloads the slice. A failed
// delete leaves the slice unchanged.
func (m *stageManager) Delete(ctx context.Context, entityID string) error {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return services.Wrap(services.ErrValidation, m.slice.String(), "delete", "entity id is required", nil)
	}
	if err := m.rt.source.DeleteEntity(ctx, m.slice, entityID); err != nil {
		return fmt.Errorf("delete %s %s: %w", m.slice, entityID, err)
	}
	m.logger.Info("entity deleted", logging.String("entity_id", entityID))
	return m.reload(ctx)
}

// update applies patch at the source and reloads the slice. An entity with a
// job in flight is not edited.
func (m *stageManager) update(ctx context.Context, entityID string, patch film.Patch) error {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return services.Wrap(services.ErrValidation, m.slice.String(), "update", "entity id is required", nil)
	}
	if patch.Empty() {
		return services.Wrap(services.ErrValidation, m.slice.String(), "update", "nothing to change", nil)
	}
	if m.rt.tracker.Busy(m.slice, entityID) {
		return ErrInFlight
	}
	if err := m.rt.source.UpdateEntity(ctx, m.slice, entityID, patch); err != nil {
		return fmt.Errorf("update %s %s: %w", m.slice, entityID, err)
	}
	m.logger.Info("entity updated", logging.String("entity_id", entityID))
	return m.reload(ctx)
}

func (m *stageManager) kind(op operation) (jobs.Kind, error) {
	kind, ok := kindFor(m.slice, op)
	if !ok {
		return 0, services.Wrap(services.ErrValidation, m.slice.String(), "submit", "operation not offered for this slice", nil)
	}
	return kind, nil
}

// submit admits, submits and starts following one job. trackKey is the
// tracker entity id; target is the backend resource the route addresses.
func (m *stageManager) submit(ctx context.Context, kind jobs.Kind, trackKey, target string, creds jobs.Credentials, params jobs.Params) (*Job, error) {
	track := kind.Stage()
	if !m.rt.tracker.TryBegin(track, trackKey) {
		m.logger.Debug("job already in flight",
			logging.String("kind", kind.String()),
			logging.String("entity_id", trackKey),
		)
		return nil, ErrInFlight
	}

	requestID := uuid.NewString()
	req := jobs.Request{
		Kind:        kind,
		Target:      target,
		Credentials: m.rt.defaults.credentials(kind, creds),
		Params:      m.rt.defaults.params(kind, params),
	}
	submitCtx := services.WithRequestID(services.WithStage(ctx, track.String()), requestID)
	logger := logging.WithContext(submitCtx, m.logger)

	jobID, err := m.rt.backend.SubmitJob(submitCtx, req)
	if err == nil && strings.TrimSpace(jobID) == "" {
		err = errors.New("backend returned an empty job id")
	}
	if err != nil {
		m.rt.tracker.End(track, trackKey)
		subErr := &jobs.SubmissionError{Kind: kind, Target: target, Err: err}
		logging.WarnWithContext(logger, "job submission failed", logging.EventJobFailed,
			logging.String("kind", kind.String()),
			logging.String("target", target),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend_url and api credentials"),
		)
		if m.rt.onRejected != nil {
			m.rt.onRejected(req, requestID, subErr)
		}
		return nil, subErr
	}

	job := newJob(jobID, kind, target, trackKey, requestID)
	pollCtx := services.WithRequestID(services.WithStage(m.rt.ctx, track.String()), requestID)
	jobLogger := logging.WithContext(services.WithJobID(pollCtx, jobID), m.logger)
	sampler := logging.NewProgressSampler(0)
	handle := m.rt.poller.Submit(pollCtx, jobID,
		func(res jobs.Result) { m.finish(job, Outcome{Result: res}, jobLogger) },
		func(err error) { m.finish(job, Outcome{Err: err}, jobLogger) },
		jobs.WithProgress(func(p jobs.Progress) {
			job.setProgress(p)
			if sampler.ShouldLog(p.Percent, p.Message) {
				jobLogger.Info("job progress",
					logging.String(logging.FieldEventType, logging.EventJobProgress),
					logging.Float64("percent", p.Percent),
					logging.String("message", p.Message),
				)
			}
		}),
	)
	job.attach(handle, func(j *Job, detached bool) { m.stopped(j, detached, jobLogger) })
	m.rt.jobs.add(job)

	jobLogger.Info("job submitted",
		logging.String(logging.FieldEventType, logging.EventJobSubmitted),
		logging.String("kind", kind.String()),
		logging.String("target", target),
	)
	return job, nil
}

// finish runs on the polling goroutine: reload the slice, release the
// tracker entry, then resolve the job.
func (m *stageManager) finish(job *Job, outcome Outcome, logger *slog.Logger) {
	if outcome.Err == nil && job.Kind.Batch() {
		batch, err := jobs.DecodeBatch(outcome.Result)
		if err != nil {
			logger.Warn("batch result unreadable", logging.Error(err))
		} else {
			outcome.Batch = &batch
		}
	}

	if err := m.reload(m.rt.ctx); err != nil {
		outcome.ReloadErr = err
		logging.WarnWithContext(logger, "slice reload after job failed", logging.EventSliceReloaded,
			logging.Error(err),
			logging.String(logging.FieldImpact, "entity view may be stale until the next refresh"),
		)
	}

	m.rt.tracker.End(job.Stage, job.trackKey)
	job.resolve(outcome)
	m.rt.jobs.remove(job)

	final := job.Outcome()
	attrs := []logging.Attr{
		logging.String("kind", job.Kind.String()),
		logging.String("target", job.Target),
		logging.Duration("elapsed", final.FinishedAt.Sub(job.SubmittedAt)),
	}
	if final.Batch != nil {
		attrs = append(attrs,
			logging.Int("success", final.Batch.SuccessCount),
			logging.Int("failed", final.Batch.FailedCount),
		)
	}
	if outcome.Err != nil {
		logging.WarnWithContext(logger, "job failed", logging.EventJobFailed,
			append(attrs, logging.Error(outcome.Err))...)
	} else {
		logger.Info("job succeeded", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, logging.EventJobSucceeded))...)...)
	}

	if m.rt.onFinished != nil {
		m.rt.onFinished(job, final)
	}
}

// stopped releases a job the caller cancelled or detached. No reload runs.
func (m *stageManager) stopped(job *Job, detached bool, logger *slog.Logger) {
	m.rt.tracker.End(job.Stage, job.trackKey)
	job.resolve(Outcome{Cancelled: !detached, Detached: detached})
	m.rt.jobs.remove(job)
	logger.Info("job no longer followed",
		logging.String(logging.FieldEventType, logging.EventJobCancelled),
		logging.String("kind", job.Kind.String()),
		logging.String("target", job.Target),
		logging.Bool("detached", detached),
	)
	if m.rt.onFinished != nil {
		m.rt.onFinished(job, job.Outcome())
	}
}
