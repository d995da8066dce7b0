package workflow

import (
	"errors"
	"time"

	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/journal"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// observeSnapshot runs after every store replace. Snapshots older than one
// already observed are ignored. While a Refresh is running the stage is not
// tracked here; Refresh sets it once loading ends.
func (s *Session) observeSnapshot(snap film.Snapshot) {
	next := stage.Derive(snap)
	s.stageMu.Lock()
	if snap.Version <= s.seenVersion {
		s.stageMu.Unlock()
		return
	}
	s.seenVersion = snap.Version
	prev := s.stage
	if s.refreshing > 0 || prev == next {
		s.stageMu.Unlock()
		return
	}
	s.stage = next
	listeners := append([]func(prev, next stage.Index){}, s.listeners...)
	s.stageMu.Unlock()

	s.logger.Info("stage changed",
		logging.String(logging.FieldEventType, logging.EventStageChanged),
		logging.String("from", prev.String()),
		logging.String("to", next.String()),
		logging.String("next_step", next.Next()),
	)
	for _, fn := range listeners {
		fn(prev, next)
	}
	if next > prev {
		s.publish(notifications.EventStageAdvanced, notifications.Payload{
			"chapter": s.chapter.ID,
			"stage":   next.String(),
			"next":    next.Next(),
		})
	}
}

func (s *Session) jobFinished(job *Job, outcome Outcome) {
	entry := journal.Entry{
		ChapterID:   s.chapter.ID,
		Stage:       job.Stage,
		Kind:        job.Kind,
		Target:      job.Target,
		JobID:       job.ID,
		RequestID:   job.RequestID,
		Batch:       outcome.Batch,
		SubmittedAt: job.SubmittedAt,
		FinishedAt:  outcome.FinishedAt,
	}
	switch {
	case outcome.Detached:
		entry.Outcome = journal.OutcomeDetached
	case outcome.Cancelled:
		entry.Outcome = journal.OutcomeCancelled
	case outcome.Err != nil:
		entry.Outcome = journal.OutcomeFailed
		entry.ErrorKind = services.Kind(outcome.Err)
		entry.ErrorMessage = failureMessage(outcome.Err)
	default:
		entry.Outcome = journal.OutcomeSucceeded
	}
	s.record(entry)

	if outcome.Cancelled || outcome.Detached {
		return
	}
	payload := notifications.Payload{
		"chapter": s.chapter.ID,
		"kind":    job.Kind.String(),
		"target":  job.Target,
	}
	if outcome.Err != nil {
		payload["error"] = failureMessage(outcome.Err)
		s.publish(notifications.EventJobFailed, payload)
		return
	}
	if outcome.Batch != nil {
		payload["success"] = outcome.Batch.SuccessCount
		payload["failed"] = outcome.Batch.FailedCount
	}
	s.publish(notifications.EventJobCompleted, payload)
}

func (s *Session) jobRejected(req jobs.Request, requestID string, err error) {
	now := time.Now().UTC()
	s.record(journal.Entry{
		ChapterID:    s.chapter.ID,
		Stage:        req.Kind.Stage(),
		Kind:         req.Kind,
		Target:       req.Target,
		RequestID:    requestID,
		Outcome:      journal.OutcomeSubmissionFailed,
		ErrorKind:    services.Kind(err),
		ErrorMessage: err.Error(),
		SubmittedAt:  now,
		FinishedAt:   now,
	})
}

func (s *Session) record(entry journal.Entry) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(s.ctx, entry); err != nil {
		logging.ErrorWithContext(s.logger, "journal write failed", logging.EventJournalWrite,
			logging.Error(err),
			logging.String(logging.FieldJobID, entry.JobID),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
		)
	}
}

func (s *Session) publish(event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(s.ctx, event, payload); err != nil {
		s.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// failureMessage prefers the backend's own failure text.
func failureMessage(err error) string {
	var failure *jobs.JobFailure
	if errors.As(err, &failure) && failure.Message != "" {
		return failure.Message
	}
	return err.Error()
}
