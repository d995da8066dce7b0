package workflow_test

import (
	"context"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/film"
	"reelsmith/internal/journal"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

var testChapter = film.Chapter{ID: "ch-1", ProjectID: "proj-1", Ordinal: 1}

func newSession(t *testing.T, backend *testsupport.Backend, opts ...workflow.SessionOption) (*workflow.Session, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return openSession(t, cfg, backend, opts...), cfg
}

func openSession(t *testing.T, cfg *config.Config, backend *testsupport.Backend, opts ...workflow.SessionOption) *workflow.Session {
	t.Helper()
	session := workflow.NewSession(cfg, testChapter, backend, opts...)
	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func waitOutcome(t *testing.T, job *workflow.Job) workflow.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := job.Wait(ctx)
	if err != nil {
		t.Fatalf("job %s (%s) did not finish: %v", job.ID, job.Kind, err)
	}
	return outcome
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

// seedChapter stores a script with two scenes of two shots each.
func seedChapter(backend *testsupport.Backend, keyframes bool) (film.Script, []film.Shot) {
	script := testsupport.Script("script-1", 2)
	shots := testsupport.Shots(script, 2, keyframes)
	backend.PutScript(testChapter.ID, script)
	backend.PutShots(script.ID, shots...)
	return script, shots
}

func journalEntries(t *testing.T, store *journal.Store) []journal.Entry {
	t.Helper()
	entries, err := store.List(context.Background(), journal.Filter{ChapterID: testChapter.ID})
	if err != nil {
		t.Fatalf("journal List: %v", err)
	}
	return entries
}
