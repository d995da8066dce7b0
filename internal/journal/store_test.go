package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reelsmith/internal/film"
	"reelsmith/internal/jobs"
	"reelsmith/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := journal.Entry{
		ChapterID:   "ch-1",
		Stage:       film.StageKeyframe,
		Kind:        jobs.KindBatchKeyframes,
		Target:      "<batch>",
		JobID:       "job-1",
		RequestID:   "req-1",
		Outcome:     journal.OutcomeSucceeded,
		Batch:       &jobs.BatchResult{SuccessCount: 8, FailedCount: 2},
		SubmittedAt: base,
		FinishedAt:  base.Add(90 * time.Second),
	}
	second := journal.Entry{
		ChapterID:    "ch-1",
		Stage:        film.StageCharacter,
		Kind:         jobs.KindGenerateAvatar,
		Target:       "char-7",
		JobID:        "job-2",
		Outcome:      journal.OutcomeFailed,
		ErrorKind:    "job_failed",
		ErrorMessage: "provider quota exceeded",
		SubmittedAt:  base.Add(time.Minute),
		FinishedAt:   base.Add(2 * time.Minute),
	}
	other := journal.Entry{ChapterID: "ch-2", Stage: film.StageScene, Kind: jobs.KindExtractScenes, Target: "ch-2", Outcome: journal.OutcomeCancelled}

	for _, e := range []journal.Entry{first, second, other} {
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := store.List(ctx, journal.Filter{ChapterID: "ch-1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != jobs.KindGenerateAvatar || entries[1].Kind != jobs.KindBatchKeyframes {
		t.Fatalf("entries not newest first: %+v", entries)
	}
	batch := entries[1]
	if batch.Batch == nil || batch.Batch.SuccessCount != 8 || batch.Batch.FailedCount != 2 || !batch.Batch.Partial() {
		t.Fatalf("batch counts lost: %+v", batch.Batch)
	}
	if batch.Duration() != 90*time.Second {
		t.Fatalf("Duration = %s", batch.Duration())
	}
	if batch.RequestID != "req-1" || batch.Stage != film.StageKeyframe {
		t.Fatalf("unexpected round trip: %+v", batch)
	}
	if entries[0].Batch != nil || entries[0].ErrorMessage != "provider quota exceeded" {
		t.Fatalf("unexpected failure entry: %+v", entries[0])
	}

	failed, err := store.List(ctx, journal.Filter{Outcome: journal.OutcomeFailed})
	if err != nil || len(failed) != 1 {
		t.Fatalf("filter by outcome: %v, %d entries", err, len(failed))
	}
}

func TestRecordRequiresChapter(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), journal.Entry{Kind: jobs.KindExtractShots}); err == nil {
		t.Fatal("expected error without chapter id")
	}
}

func TestStatsAndPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	entries := []journal.Entry{
		{ChapterID: "ch-1", Stage: film.StageShot, Kind: jobs.KindExtractShots, Target: "s", Outcome: journal.OutcomeSucceeded, FinishedAt: old},
		{ChapterID: "ch-1", Stage: film.StageShot, Kind: jobs.KindExtractShots, Target: "s", Outcome: journal.OutcomeSucceeded, FinishedAt: recent},
		{ChapterID: "ch-1", Stage: film.StageShot, Kind: jobs.KindExtractShots, Target: "s", Outcome: journal.OutcomeSubmissionFailed, FinishedAt: recent},
	}
	for _, e := range entries {
		if _, err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := store.Stats(ctx, "ch-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[journal.OutcomeSucceeded] != 2 || stats[journal.OutcomeSubmissionFailed] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	removed, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), journal.Entry{ChapterID: "ch-1", Stage: film.StageTransition, Kind: jobs.KindCreateTransitions, Target: "s", Outcome: journal.OutcomeSucceeded}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(context.Background(), journal.Filter{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d (%v)", len(entries), err)
	}
}
