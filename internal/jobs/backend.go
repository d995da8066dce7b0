package jobs

import (
	"context"
	"encoding/json"
	"fmt"
)

// Credentials identify the provider key and model a job runs with.
type Credentials struct {
	APIKeyID string
	Model    string
}

// Params carries optional per-operation parameters.
type Params struct {
	Prompt     string
	Style      string
	VideoModel string
}

// Request describes one job submission. Target is the entity or parent id the
// operation is addressed to.
type Request struct {
	Kind        Kind
	Target      string
	Credentials Credentials
	Params      Params
}

// Backend is the external job executor.
type Backend interface {
	StatusSource
	SubmitJob(ctx context.Context, req Request) (string, error)
}

// StatusSource reports the status of a submitted job.
type StatusSource interface {
	GetJobStatus(ctx context.Context, jobID string) (Status, error)
}

// State is the lifecycle state reported for a job.
type State int

const (
	StatePending State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state never changes again.
func (s State) Terminal() bool { return s == StateSucceeded || s == StateFailed }

// Progress is an optional intermediate report for pending jobs.
type Progress struct {
	Percent float64
	Message string
}

// Status is one poll cycle's view of a job.
type Status struct {
	State    State
	Result   Result
	Error    string
	Progress *Progress
}

// Result is the opaque terminal payload of a successful job.
type Result struct {
	Raw json.RawMessage
}

// Empty reports whether the job returned no payload.
func (r Result) Empty() bool {
	return len(r.Raw) == 0 || string(r.Raw) == "null"
}

// Decode unmarshals the payload into v.
func (r Result) Decode(v any) error {
	if r.Empty() {
		return fmt.Errorf("decode job result: empty payload")
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decode job result: %w", err)
	}
	return nil
}
