package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/jobs"
	"reelsmith/internal/services"
)

type step struct {
	status jobs.Status
	err    error
}

// scriptedSource replays steps in order and repeats the last one forever.
type scriptedSource struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (s *scriptedSource) GetJobStatus(_ context.Context, _ string) (jobs.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	s.calls++
	return s.steps[idx].status, s.steps[idx].err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recorder struct {
	successes atomic.Int32
	failures  atomic.Int32
	result    jobs.Result
	err       error
	mu        sync.Mutex
}

func (r *recorder) onSuccess(res jobs.Result) {
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()
	r.successes.Add(1)
}

func (r *recorder) onFailure(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.failures.Add(1)
}

func pending() step { return step{status: jobs.Status{State: jobs.StatePending}} }

func succeeded(payload string) step {
	return step{status: jobs.Status{State: jobs.StateSucceeded, Result: jobs.Result{Raw: json.RawMessage(payload)}}}
}

func transportErr() step { return step{err: errors.New("connection refused")} }

func waitDone(t *testing.T, h *jobs.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("polling loop did not exit")
	}
}

func newPoller(src jobs.StatusSource) *jobs.Poller {
	return jobs.NewPoller(src, jobs.WithInterval(time.Millisecond))
}

func TestPollerSuccessFiresOnce(t *testing.T) {
	src := &scriptedSource{steps: []step{pending(), pending(), succeeded(`{"avatar_url":"a.png"}`)}}
	rec := &recorder{}

	h := newPoller(src).Submit(context.Background(), "job-1", rec.onSuccess, rec.onFailure)
	waitDone(t, h)

	if rec.successes.Load() != 1 || rec.failures.Load() != 0 {
		t.Fatalf("callbacks: success=%d failure=%d", rec.successes.Load(), rec.failures.Load())
	}
	if string(rec.result.Raw) != `{"avatar_url":"a.png"}` {
		t.Fatalf("unexpected result: %s", rec.result.Raw)
	}
	if src.Calls() != 3 {
		t.Fatalf("expected 3 status queries, got %d", src.Calls())
	}
	if h.Cancel() {
		t.Fatal("Cancel after a callback fired should report false")
	}
}

func TestPollerJobFailureIsTerminal(t *testing.T) {
	src := &scriptedSource{steps: []step{pending(), {status: jobs.Status{State: jobs.StateFailed, Error: "provider quota exceeded"}}}}
	rec := &recorder{}

	h := newPoller(src).Submit(context.Background(), "job-2", rec.onSuccess, rec.onFailure)
	waitDone(t, h)

	if rec.successes.Load() != 0 || rec.failures.Load() != 1 {
		t.Fatalf("callbacks: success=%d failure=%d", rec.successes.Load(), rec.failures.Load())
	}
	var failure *jobs.JobFailure
	if !errors.As(rec.err, &failure) {
		t.Fatalf("expected JobFailure, got %T", rec.err)
	}
	if failure.Message != "provider quota exceeded" {
		t.Fatalf("unexpected message %q", failure.Message)
	}
	if !errors.Is(rec.err, services.ErrJobFailed) {
		t.Fatal("expected ErrJobFailed marker")
	}
	if jobs.IsTransport(rec.err) {
		t.Fatal("backend failure must not classify as transport")
	}
}

func TestPollerRetriesTransportErrorsThenSucceeds(t *testing.T) {
	src := &scriptedSource{steps: []step{transportErr(), transportErr(), succeeded(`{}`)}}
	rec := &recorder{}

	h := newPoller(src).Submit(context.Background(), "job-3", rec.onSuccess, rec.onFailure)
	waitDone(t, h)

	if rec.failures.Load() != 0 {
		t.Fatalf("unexpected failure: %v", rec.err)
	}
	if rec.successes.Load() != 1 {
		t.Fatal("expected success after transient transport errors")
	}
}

func TestPollerEscalatesPersistentTransportErrors(t *testing.T) {
	src := &scriptedSource{steps: []step{transportErr()}}
	rec := &recorder{}

	h := newPoller(src).Submit(context.Background(), "job-4", rec.onSuccess, rec.onFailure, jobs.WithMaxTransportRetries(3))
	waitDone(t, h)

	if rec.failures.Load() != 1 || rec.successes.Load() != 0 {
		t.Fatalf("callbacks: success=%d failure=%d", rec.successes.Load(), rec.failures.Load())
	}
	if src.Calls() != 4 {
		t.Fatalf("expected 1 attempt plus 3 retries, got %d queries", src.Calls())
	}
	var te *jobs.TransportError
	if !errors.As(rec.err, &te) || te.Attempts != 4 {
		t.Fatalf("expected TransportError with 4 attempts, got %v", rec.err)
	}
	if !errors.Is(rec.err, services.ErrJobFailed) || !errors.Is(rec.err, services.ErrTransport) {
		t.Fatal("escalated failure should carry both markers")
	}
}

func TestPollerSuccessfulQueryResetsRetryBudget(t *testing.T) {
	src := &scriptedSource{steps: []step{
		transportErr(), transportErr(), transportErr(),
		pending(),
		transportErr(), transportErr(), transportErr(),
		succeeded(`{}`),
	}}
	rec := &recorder{}

	h := newPoller(src).Submit(context.Background(), "job-5", rec.onSuccess, rec.onFailure)
	waitDone(t, h)

	if rec.successes.Load() != 1 || rec.failures.Load() != 0 {
		t.Fatalf("callbacks: success=%d failure=%d err=%v", rec.successes.Load(), rec.failures.Load(), rec.err)
	}
}

func TestPollerZeroRetriesFailsOnFirstTransportError(t *testing.T) {
	src := &scriptedSource{steps: []step{transportErr(), succeeded(`{}`)}}
	rec := &recorder{}

	h := newPoller(src).Submit(context.Background(), "job-6", rec.onSuccess, rec.onFailure, jobs.WithMaxTransportRetries(0))
	waitDone(t, h)

	if rec.failures.Load() != 1 {
		t.Fatal("expected immediate failure with zero retries")
	}
}

func TestPollerReportsProgress(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{status: jobs.Status{State: jobs.StatePending, Progress: &jobs.Progress{Percent: 40, Message: "rendering"}}},
		succeeded(`{}`),
	}}
	rec := &recorder{}
	var got []jobs.Progress
	var mu sync.Mutex

	h := newPoller(src).Submit(context.Background(), "job-7", rec.onSuccess, rec.onFailure, jobs.WithProgress(func(p jobs.Progress) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	waitDone(t, h)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Percent != 40 || got[0].Message != "rendering" {
		t.Fatalf("unexpected progress reports: %+v", got)
	}
}

// blockingSource holds each status query until released.
type blockingSource struct {
	entered chan struct{}
	release chan jobs.Status
}

func (b *blockingSource) GetJobStatus(_ context.Context, _ string) (jobs.Status, error) {
	b.entered <- struct{}{}
	return <-b.release, nil
}

func TestPollerCancelDiscardsInFlightResult(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}, 1), release: make(chan jobs.Status, 1)}
	rec := &recorder{}

	h := newPoller(src).Submit(context.Background(), "job-8", rec.onSuccess, rec.onFailure)
	select {
	case <-src.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("status query never started")
	}

	if !h.Cancel() {
		t.Fatal("Cancel before any callback should report true")
	}
	src.release <- jobs.Status{State: jobs.StateSucceeded, Result: jobs.Result{Raw: json.RawMessage(`{}`)}}
	waitDone(t, h)

	if rec.successes.Load() != 0 || rec.failures.Load() != 0 {
		t.Fatalf("cancelled loop fired callbacks: success=%d failure=%d", rec.successes.Load(), rec.failures.Load())
	}
}

func TestPollerCancelSuppressesInFlightProgress(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}, 1), release: make(chan jobs.Status, 1)}
	rec := &recorder{}
	var reports atomic.Int32

	h := newPoller(src).Submit(context.Background(), "job-9", rec.onSuccess, rec.onFailure,
		jobs.WithProgress(func(jobs.Progress) { reports.Add(1) }))
	select {
	case <-src.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("status query never started")
	}

	if !h.Cancel() {
		t.Fatal("Cancel before any callback should report true")
	}
	src.release <- jobs.Status{State: jobs.StatePending, Progress: &jobs.Progress{Percent: 55, Message: "rendering"}}
	waitDone(t, h)

	if reports.Load() != 0 {
		t.Fatalf("progress delivered after Cancel: %d reports", reports.Load())
	}
	if rec.successes.Load() != 0 || rec.failures.Load() != 0 {
		t.Fatal("cancelled loop fired callbacks")
	}
}

func TestPollerContextCancellationStopsLoop(t *testing.T) {
	src := &scriptedSource{steps: []step{pending()}}
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())

	h := newPoller(src).Submit(ctx, "job-9", rec.onSuccess, rec.onFailure)
	for src.Calls() < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	waitDone(t, h)

	if rec.successes.Load() != 0 || rec.failures.Load() != 0 {
		t.Fatal("no callback expected after context cancellation")
	}
}

type routedSource map[string]*scriptedSource

func (r routedSource) GetJobStatus(ctx context.Context, id string) (jobs.Status, error) {
	return r[id].GetJobStatus(ctx, id)
}

func TestPollerIndependentLoops(t *testing.T) {
	src := routedSource{
		"a": {steps: []step{succeeded(`{}`)}},
		"b": {steps: []step{pending(), pending(), pending(), succeeded(`{}`)}},
	}
	recFast, recSlow := &recorder{}, &recorder{}
	p := newPoller(src)

	h1 := p.Submit(context.Background(), "a", recFast.onSuccess, recFast.onFailure)
	h2 := p.Submit(context.Background(), "b", recSlow.onSuccess, recSlow.onFailure)
	waitDone(t, h1)
	waitDone(t, h2)

	if recFast.successes.Load() != 1 || recSlow.successes.Load() != 1 {
		t.Fatal("each submission should resolve independently")
	}
}
