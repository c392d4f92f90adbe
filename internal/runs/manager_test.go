package runs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/scenescope/scenescope-agent/internal/history"
	"github.com/scenescope/scenescope-agent/internal/pipeline"
	"github.com/scenescope/scenescope-agent/internal/scene"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	block   chan struct{} // when set, Run waits on it
	err     error
	results []scene.Result
}

func (f *fakeAnalyzer) Run(ctx context.Context, path, videoName string, cb pipeline.Callbacks) (*pipeline.Report, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return &pipeline.Report{VideoName: videoName}, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	total := len(f.results)
	for i, r := range f.results {
		if cb.OnResult != nil {
			cb.OnResult(r)
		}
		if cb.OnProgress != nil {
			cb.OnProgress(i+1, total)
		}
	}
	return &pipeline.Report{VideoName: videoName, Attempted: total, Results: f.results}, nil
}

type fakeStore struct {
	mu     sync.Mutex
	err    error
	nextID int
	saved  [][]scene.Result
}

func (f *fakeStore) Append(videoName string, results []scene.Result) (*history.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	f.saved = append(f.saved, results)
	return &history.Run{ID: f.nextID, VideoName: videoName, SceneCount: len(results), Results: results}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForStatus(t *testing.T, m *Manager, jobID string, statuses ...string) *Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %s to reach %v", jobID, statuses)
		case <-time.After(5 * time.Millisecond):
		}
		job := m.Get(jobID)
		if job == nil {
			t.Fatalf("job %s disappeared", jobID)
		}
		for _, s := range statuses {
			if job.Status == s {
				return job
			}
		}
	}
}

func TestStartCompletes(t *testing.T) {
	results := []scene.Result{
		{SceneID: 1, StartS: "0.00", EndS: "5.00", Description: "d", Tags: "t", Mood: "m"},
	}
	analyzer := &fakeAnalyzer{results: results}
	store := &fakeStore{}
	m := NewManager(context.Background(), analyzer, store, testLogger())

	job, err := m.Start("vid-1", "/tmp/v.mp4", "v.mp4")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if job.Status != StatusPending {
		t.Errorf("initial status = %q", job.Status)
	}

	done := waitForStatus(t, m, job.ID, StatusCompleted, StatusFailed)
	if done.Status != StatusCompleted {
		t.Fatalf("job failed: %s", done.Error)
	}
	if done.HistoryID != 1 {
		t.Errorf("HistoryID = %d, want 1", done.HistoryID)
	}
	if len(done.Results) != 1 || done.Results[0].SceneID != 1 {
		t.Errorf("results = %+v", done.Results)
	}
	if done.Progress != 100 {
		t.Errorf("Progress = %d, want 100", done.Progress)
	}
	if len(store.saved) != 1 {
		t.Errorf("store received %d saves, want 1", len(store.saved))
	}
}

func TestStartBusy(t *testing.T) {
	analyzer := &fakeAnalyzer{block: make(chan struct{})}
	m := NewManager(context.Background(), analyzer, &fakeStore{}, testLogger())

	first, err := m.Start("vid-1", "/tmp/a.mp4", "a.mp4")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := m.Start("vid-2", "/tmp/b.mp4", "b.mp4"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(analyzer.block)
	waitForStatus(t, m, first.ID, StatusCompleted, StatusFailed)

	// Idle again, a new run may start.
	if _, err := m.Start("vid-3", "/tmp/c.mp4", "c.mp4"); err != nil {
		t.Fatalf("Start after completion failed: %v", err)
	}
}

func TestAnalysisFailureSkipsHistory(t *testing.T) {
	analyzer := &fakeAnalyzer{err: pipeline.ErrNoResults}
	store := &fakeStore{}
	m := NewManager(context.Background(), analyzer, store, testLogger())

	job, err := m.Start("vid-1", "/tmp/v.mp4", "v.mp4")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := waitForStatus(t, m, job.ID, StatusCompleted, StatusFailed)
	if done.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", done.Status)
	}
	if done.Error == "" {
		t.Error("failed job should carry an error message")
	}
	if len(store.saved) != 0 {
		t.Errorf("failed run must not be saved to history, got %d saves", len(store.saved))
	}
}

func TestHistorySaveFailureFailsJob(t *testing.T) {
	analyzer := &fakeAnalyzer{results: []scene.Result{{SceneID: 1, StartS: "0.00", EndS: "1.00"}}}
	store := &fakeStore{err: errors.New("disk full")}
	m := NewManager(context.Background(), analyzer, store, testLogger())

	job, _ := m.Start("vid-1", "/tmp/v.mp4", "v.mp4")
	done := waitForStatus(t, m, job.ID, StatusCompleted, StatusFailed)
	if done.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", done.Status)
	}
}

func TestGetUnknown(t *testing.T) {
	m := NewManager(context.Background(), &fakeAnalyzer{}, &fakeStore{}, testLogger())
	if job := m.Get("nope"); job != nil {
		t.Errorf("Get(unknown) = %+v, want nil", job)
	}
}

func TestActive(t *testing.T) {
	analyzer := &fakeAnalyzer{block: make(chan struct{})}
	m := NewManager(context.Background(), analyzer, &fakeStore{}, testLogger())

	if m.Active() != nil {
		t.Error("idle manager should have no active job")
	}

	job, _ := m.Start("vid-1", "/tmp/v.mp4", "v.mp4")
	active := m.Active()
	if active == nil || active.ID != job.ID {
		t.Errorf("Active() = %+v, want job %s", active, job.ID)
	}

	close(analyzer.block)
	waitForStatus(t, m, job.ID, StatusCompleted, StatusFailed)
	if m.Active() != nil {
		t.Error("finished manager should have no active job")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	analyzer := &fakeAnalyzer{results: []scene.Result{{SceneID: 1, StartS: "0.00", EndS: "1.00"}}}
	m := NewManager(context.Background(), analyzer, &fakeStore{}, testLogger())

	job, _ := m.Start("vid-1", "/tmp/v.mp4", "v.mp4")
	done := waitForStatus(t, m, job.ID, StatusCompleted, StatusFailed)

	done.Results[0].SceneID = 99
	if fresh := m.Get(job.ID); fresh.Results[0].SceneID == 99 {
		t.Error("Get must return an isolated copy of results")
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if len(id) != 36 {
		t.Errorf("NewID() = %q, want 36 characters", id)
	}
	if id == NewID() {
		t.Error("NewID() should not repeat")
	}
}
