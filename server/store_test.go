package server

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestJobLifecycle walks a job queued -> running -> done and checks the
// timestamps appear along the way.
func TestJobLifecycle(t *testing.T) {
	store := newTestStore(t)
	job := &Job{ID: "abc", InputPath: "/in.mp4", OutputPath: "/out.mp4", CreatedAt: time.Now()}
	if err := store.CreateJob(job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	got, err := store.GetJob("abc")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got == nil || got.Status != StatusQueued {
		t.Fatalf("Expected queued job, got %+v", got)
	}
	if got.StartedAt != nil || got.FinishedAt != nil {
		t.Error("Expected no start/finish timestamps on a fresh job")
	}

	if err := store.MarkRunning("abc"); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	got, _ = store.GetJob("abc")
	if got.Status != StatusRunning || got.StartedAt == nil {
		t.Errorf("Expected running with start time, got %+v", got)
	}

	if err := store.MarkFinished("abc", StatusDone, ""); err != nil {
		t.Fatalf("MarkFinished failed: %v", err)
	}
	got, _ = store.GetJob("abc")
	if got.Status != StatusDone || got.FinishedAt == nil {
		t.Errorf("Expected done with finish time, got %+v", got)
	}
}

// TestGetJobUnknown verifies a missing id returns nil, not an error.
func TestGetJobUnknown(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetJob("nope")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for unknown id, got %+v", got)
	}
}

// TestLogStream verifies append ordering and incremental reads.
func TestLogStream(t *testing.T) {
	store := newTestStore(t)
	job := &Job{ID: "j", InputPath: "i", OutputPath: "o", CreatedAt: time.Now()}
	if err := store.CreateJob(job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	for _, line := range []string{"one", "two", "three"} {
		if err := store.AppendLog("j", line); err != nil {
			t.Fatalf("AppendLog failed: %v", err)
		}
	}

	lines, last, err := store.LogsSince("j", 0)
	if err != nil {
		t.Fatalf("LogsSince failed: %v", err)
	}
	if len(lines) != 3 || lines[0] != "one" || lines[2] != "three" {
		t.Errorf("Unexpected lines: %v", lines)
	}
	if last != 3 {
		t.Errorf("Expected cursor 3, got %d", last)
	}

	// Incremental read picks up only what arrived after the cursor.
	store.AppendLog("j", "four")
	lines, last, err = store.LogsSince("j", last)
	if err != nil {
		t.Fatalf("LogsSince failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "four" || last != 4 {
		t.Errorf("Unexpected incremental read: %v (cursor %d)", lines, last)
	}
}

// TestLogStreamsIsolated verifies per-job sequences do not interleave.
func TestLogStreamsIsolated(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"a", "b"} {
		job := &Job{ID: id, InputPath: "i", OutputPath: "o", CreatedAt: time.Now()}
		if err := store.CreateJob(job); err != nil {
			t.Fatalf("CreateJob failed: %v", err)
		}
	}
	store.AppendLog("a", "from-a")
	store.AppendLog("b", "from-b")

	lines, _, err := store.LogsSince("a", 0)
	if err != nil {
		t.Fatalf("LogsSince failed: %v", err)
	}
	if len(lines) != 1 || lines[0] != "from-a" {
		t.Errorf("Expected only job a's lines, got %v", lines)
	}
}
