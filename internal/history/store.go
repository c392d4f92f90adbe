// Package history persists completed analysis runs to a single JSON array
// document, newest first. The whole document is read and rewritten on every
// save; the write goes through a temp file rename so a crash cannot leave a
// torn document behind.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/scenescope/scenescope-agent/internal/scene"
)

// DateLayout is the human-readable, local-time run timestamp format.
const DateLayout = "2006-01-02 15:04"

// Run is one completed analysis run as stored in the history document.
type Run struct {
	ID         int            `json:"id"`
	VideoName  string         `json:"video_name"`
	Date       string         `json:"date"`
	SceneCount int            `json:"scene_count"`
	Results    []scene.Result `json:"results"`
}

// Store reads and rewrites the history document. Safe for concurrent use
// within one process; concurrent writers from other processes are not
// supported.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load returns all stored runs, newest first. A missing document is an empty
// history, not an error.
func (s *Store) Load() ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Run, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Run{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var runs []Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to parse history document: %w", err)
	}
	return runs, nil
}

// Append constructs a run from the results, inserts it at the front, and
// rewrites the document. The run ID is one past the number of existing runs.
func (s *Store) Append(videoName string, results []scene.Result) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.load()
	if err != nil {
		return nil, err
	}

	run := Run{
		ID:         len(runs) + 1,
		VideoName:  videoName,
		Date:       s.now().Format(DateLayout),
		SceneCount: len(results),
		Results:    results,
	}
	runs = append([]Run{run}, runs...)

	if err := s.write(runs); err != nil {
		return nil, err
	}
	return &run, nil
}

// Get returns the run with the given ID, or nil when it does not exist.
func (s *Store) Get(id int) (*Run, error) {
	runs, err := s.Load()
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].ID == id {
			return &runs[i], nil
		}
	}
	return nil, nil
}

func (s *Store) write(runs []Run) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close history file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace history document: %w", err)
	}
	return nil
}
