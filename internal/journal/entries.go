package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
)

// Outcome is the terminal disposition of a job.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeDetached marks a job the caller stopped following; the backend
	// job was still running and its result was never observed.
	OutcomeDetached         Outcome = "detached"
	OutcomeSubmissionFailed Outcome = "submission_failed"
)

// Entry is one journal row.
type Entry struct {
	ID           int64
	ChapterID    string
	Stage        film.Stage
	Kind         jobs.Kind
	Target       string
	JobID        string
	RequestID    string
	Outcome      Outcome
	Batch        *jobs.BatchResult
	ErrorKind    string
	ErrorMessage string
	SubmittedAt  time.Time
	FinishedAt   time.Time
}

// Duration returns the time between submission and the terminal outcome.
func (e Entry) Duration() time.Duration {
	if e.SubmittedAt.IsZero() || e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.SubmittedAt)
}

const entryColumns = `id, chapter_id, stage, kind, target, job_id, request_id, outcome,
    success_count, failed_count, error_kind, error_message, submitted_at, finished_at`

// Record appends an entry and returns its id.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.ChapterID) == "" {
		return 0, fmt.Errorf("record journal entry: chapter id required")
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = e.FinishedAt
	}
	var success, failed sql.NullInt64
	if e.Batch != nil {
		success = sql.NullInt64{Int64: int64(e.Batch.SuccessCount), Valid: true}
		failed = sql.NullInt64{Int64: int64(e.Batch.FailedCount), Valid: true}
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO job_entries (
                chapter_id, stage, kind, target, job_id, request_id, outcome,
                success_count, failed_count, error_kind, error_message, submitted_at, finished_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ChapterID,
			e.Stage.String(),
			e.Kind.String(),
			e.Target,
			nullableString(e.JobID),
			nullableString(e.RequestID),
			string(e.Outcome),
			success,
			failed,
			nullableString(e.ErrorKind),
			nullableString(e.ErrorMessage),
			e.SubmittedAt.UTC().Format(time.RFC3339Nano),
			e.FinishedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record journal entry: %w", err)
	}
	return id, nil
}

// Filter narrows List results. Zero values match everything; Limit defaults to 50.
type Filter struct {
	ChapterID string
	Outcome   Outcome
	Limit     int
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ChapterID != "" {
		clauses = append(clauses, "chapter_id = ?")
		args = append(args, f.ChapterID)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	query := `SELECT ` + entryColumns + ` FROM job_entries`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY finished_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return out, nil
}

// Stats counts entries per outcome for a chapter.
func (s *Store) Stats(ctx context.Context, chapterID string) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(1) FROM job_entries WHERE chapter_id = ? GROUP BY outcome`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan journal stats: %w", err)
		}
		stats[Outcome(outcome)] = count
	}
	return stats, rows.Err()
}

// Prune deletes entries that finished before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM job_entries WHERE finished_at < ?`,
			cutoff.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                       Entry
		stage, kind, outcome    string
		jobID, requestID        sql.NullString
		errorKind, errorMessage sql.NullString
		success, failed         sql.NullInt64
		submittedAt, finishedAt string
	)
	if err := row.Scan(&e.ID, &e.ChapterID, &stage, &kind, &e.Target, &jobID, &requestID, &outcome,
		&success, &failed, &errorKind, &errorMessage, &submittedAt, &finishedAt); err != nil {
		return Entry{}, fmt.Errorf("scan journal entry: %w", err)
	}
	var err error
	if e.Stage, err = film.ParseStage(stage); err != nil {
		return Entry{}, fmt.Errorf("journal entry %d: %w", e.ID, err)
	}
	if e.Kind, err = jobs.ParseKind(kind); err != nil {
		return Entry{}, fmt.Errorf("journal entry %d: %w", e.ID, err)
	}
	e.JobID = jobID.String
	e.RequestID = requestID.String
	e.Outcome = Outcome(outcome)
	e.ErrorKind = errorKind.String
	e.ErrorMessage = errorMessage.String
	if success.Valid && failed.Valid {
		e.Batch = &jobs.BatchResult{
			SuccessCount: int(success.Int64),
			FailedCount:  int(failed.Int64),
			Total:        int(success.Int64 + failed.Int64),
		}
	}
	e.SubmittedAt = parseTime(submittedAt)
	e.FinishedAt = parseTime(finishedAt)
	return e, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
