package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scenescope/scenescope-agent/internal/scene"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "analysis_history.json"))
	s.now = func() time.Time {
		return time.Date(2026, 8, 31, 14, 30, 0, 0, time.Local)
	}
	return s
}

func sampleResults() []scene.Result {
	return []scene.Result{
		{SceneID: 1, StartS: "0.00", EndS: "5.00", Description: "intro", Tags: "a, b", Mood: "calm"},
		{SceneID: 2, StartS: "5.00", EndS: "9.00", Description: "action", Tags: "c", Mood: "tense"},
	}
}

func TestLoadMissingDocument(t *testing.T) {
	s := testStore(t)
	runs, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("got %v, want empty slice", runs)
	}
}

func TestAppendAndLoad(t *testing.T) {
	s := testStore(t)

	run, err := s.Append("first.mp4", sampleResults())
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if run.ID != 1 {
		t.Errorf("first run ID = %d, want 1", run.ID)
	}
	if run.Date != "2026-08-31 14:30" {
		t.Errorf("Date = %q", run.Date)
	}
	if run.SceneCount != 2 {
		t.Errorf("SceneCount = %d, want 2", run.SceneCount)
	}

	second, err := s.Append("second.mp4", sampleResults()[:1])
	if err != nil {
		t.Fatalf("second Append failed: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("second run ID = %d, want 2", second.ID)
	}

	runs, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].VideoName != "second.mp4" || runs[1].VideoName != "first.mp4" {
		t.Errorf("order = %q, %q; want newest first", runs[0].VideoName, runs[1].VideoName)
	}
	if runs[1].Results[0].Description != "intro" {
		t.Errorf("results did not round-trip: %+v", runs[1].Results[0])
	}
}

func TestGet(t *testing.T) {
	s := testStore(t)
	if _, err := s.Append("v.mp4", sampleResults()); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	run, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run == nil || run.VideoName != "v.mp4" {
		t.Errorf("Get(1) = %+v", run)
	}

	missing, err := s.Get(42)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Get(42) = %+v, want nil", missing)
	}
}

func TestDocumentShape(t *testing.T) {
	s := testStore(t)
	if _, err := s.Append("v.mp4", sampleResults()); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}

	var doc []map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not a JSON array: %v", err)
	}

	entry := doc[0]
	for _, key := range []string{"id", "video_name", "date", "scene_count", "results"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("document entry missing %q", key)
		}
	}

	results := entry["results"].([]any)
	first := results[0].(map[string]any)
	if first["start_s"] != "0.00" || first["end_s"] != "5.00" {
		t.Errorf("bounds stored as %v / %v, want two-decimal strings", first["start_s"], first["end_s"])
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	s := testStore(t)
	if err := os.WriteFile(s.path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); err == nil {
		t.Error("expected error for corrupt document")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	if _, err := s.Append("v.mp4", sampleResults()); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(s.path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory has %v, want only the history document", names)
	}
}
