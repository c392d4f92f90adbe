// Package runs tracks analysis jobs in memory. One analysis runs at a time;
// the browser polls the job for incremental results and progress.
package runs

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scenescope/scenescope-agent/internal/history"
	"github.com/scenescope/scenescope-agent/internal/pipeline"
	"github.com/scenescope/scenescope-agent/internal/scene"
)

// ErrBusy is returned when a new analysis is requested while one is running.
var ErrBusy = errors.New("an analysis is already running")

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is the mutable state of one analysis run.
type Job struct {
	ID        string         `json:"id"`
	VideoID   string         `json:"video_id"`
	VideoName string         `json:"video_name"`
	Status    string         `json:"status"`
	Progress  int            `json:"progress"`
	Attempted int            `json:"attempted"`
	Error     string         `json:"error,omitempty"`
	Results   []scene.Result `json:"results"`
	HistoryID int            `json:"history_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Analyzer is satisfied by *pipeline.Pipeline.
type Analyzer interface {
	Run(ctx context.Context, path, videoName string, cb pipeline.Callbacks) (*pipeline.Report, error)
}

// HistoryAppender is satisfied by *history.Store.
type HistoryAppender interface {
	Append(videoName string, results []scene.Result) (*history.Run, error)
}

// Manager owns the background analysis goroutine and the job table.
type Manager struct {
	analyzer Analyzer
	store    HistoryAppender
	logger   *slog.Logger
	baseCtx  context.Context

	mu       sync.Mutex
	jobs     map[string]*Job
	activeID string
}

// NewManager creates a manager. ctx bounds the lifetime of background runs;
// cancelling it aborts an in-flight analysis during shutdown.
func NewManager(ctx context.Context, analyzer Analyzer, store HistoryAppender, logger *slog.Logger) *Manager {
	return &Manager{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		baseCtx:  ctx,
		jobs:     make(map[string]*Job),
	}
}

// Start launches an analysis for the uploaded video. Returns ErrBusy while
// another run is in flight.
func (m *Manager) Start(videoID, videoPath, videoName string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID != "" {
		if active, ok := m.jobs[m.activeID]; ok &&
			(active.Status == StatusPending || active.Status == StatusRunning) {
			return nil, ErrBusy
		}
	}

	now := time.Now()
	job := &Job{
		ID:        NewID(),
		VideoID:   videoID,
		VideoName: videoName,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.jobs[job.ID] = job
	m.activeID = job.ID

	go m.execute(job.ID, videoPath, videoName)

	m.logger.Info("analysis started", "job_id", job.ID, "video", videoName)
	return snapshot(job), nil
}

func (m *Manager) execute(jobID, videoPath, videoName string) {
	m.update(jobID, func(j *Job) { j.Status = StatusRunning })

	cb := pipeline.Callbacks{
		OnResult: func(r scene.Result) {
			m.update(jobID, func(j *Job) { j.Results = append(j.Results, r) })
		},
		OnProgress: func(done, total int) {
			m.update(jobID, func(j *Job) {
				j.Attempted = total
				if total > 0 {
					j.Progress = done * 100 / total
				}
			})
		},
	}

	report, err := m.analyzer.Run(m.baseCtx, videoPath, videoName, cb)
	if err != nil {
		m.logger.Error("analysis failed", "job_id", jobID, "error", err)
		m.finish(jobID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		return
	}

	run, err := m.store.Append(videoName, report.Results)
	if err != nil {
		m.logger.Error("failed to save analysis to history", "job_id", jobID, "error", err)
		m.finish(jobID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = fmt.Sprintf("failed to save history: %v", err)
		})
		return
	}

	m.finish(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.HistoryID = run.ID
	})
	m.logger.Info("analysis completed", "job_id", jobID,
		"attempted", report.Attempted, "annotated", len(report.Results), "history_id", run.ID)
}

func (m *Manager) update(jobID string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
}

func (m *Manager) finish(jobID string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
	if m.activeID == jobID {
		m.activeID = ""
	}
}

// Get returns a snapshot of the job, or nil when unknown.
func (m *Manager) Get(id string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	return snapshot(job)
}

// Active returns a snapshot of the in-flight job, or nil when idle.
func (m *Manager) Active() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeID == "" {
		return nil
	}
	job, ok := m.jobs[m.activeID]
	if !ok {
		return nil
	}
	return snapshot(job)
}

func snapshot(job *Job) *Job {
	copied := *job
	copied.Results = append([]scene.Result(nil), job.Results...)
	return &copied
}

// NewID returns a random identifier in the uuid-ish format used throughout
// the agent.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
