package logging

import (
	"context"
	"log/slog"

	"reelsmith/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldChapterID is the standardized structured logging key for chapter identifiers.
	FieldChapterID = "chapter_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldJobID is the standardized structured logging key for backend job identifiers.
	FieldJobID = "job_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags key lines so they can be filtered without parsing messages.
	FieldEventType = "event_type"
	// FieldErrorHint carries an operator-facing next step on warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// Event types emitted by the orchestration core.
const (
	EventJobSubmitted   = "job_submitted"
	EventJobSucceeded   = "job_succeeded"
	EventJobFailed      = "job_failed"
	EventJobCancelled   = "job_cancelled"
	EventJobProgress    = "job_progress"
	EventSliceReloaded  = "slice_reloaded"
	EventStageChanged   = "stage_changed"
	EventTransportRetry = "transport_retry"
	EventJournalWrite   = "journal_write"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.ChapterIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldChapterID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
