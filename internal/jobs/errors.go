package jobs

import (
	"fmt"
	"strings"

	"reelsmith/internal/services"
)

// SubmissionError reports that a job could not be created. No job id exists
// and no polling was started.
type SubmissionError struct {
	Kind   Kind
	Target string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s for %s: %v", e.Kind, e.Target, e.Err)
}

func (e *SubmissionError) Unwrap() []error { return unwrapWith(services.ErrSubmission, e.Err) }

// TransportError reports that status queries kept failing.
type TransportError struct {
	JobID    string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("poll job %s: %d consecutive transport errors: %v", e.JobID, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() []error { return unwrapWith(services.ErrTransport, e.Err) }

// JobFailure is the terminal failure of a job, either reported by the backend
// or escalated from repeated transport errors.
type JobFailure struct {
	JobID   string
	Message string
	Err     error
}

func (e *JobFailure) Error() string {
	var b strings.Builder
	b.WriteString("job ")
	b.WriteString(e.JobID)
	b.WriteString(" failed")
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *JobFailure) Unwrap() []error { return unwrapWith(services.ErrJobFailed, e.Err) }

func unwrapWith(marker, err error) []error {
	if err == nil {
		return []error{marker}
	}
	return []error{marker, err}
}
