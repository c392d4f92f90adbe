package api

import (
	"time"

	"github.com/scenescope/scenescope-agent/internal/history"
	"github.com/scenescope/scenescope-agent/internal/runs"
	"github.com/scenescope/scenescope-agent/internal/scene"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	Ready     bool         `json:"ready"`
	Model     string       `json:"model,omitempty"`
	ActiveJob *JobResponse `json:"active_job,omitempty"`
}

type UploadResponse struct {
	VideoID string `json:"video_id"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
}

type AnalyzeRequest struct {
	VideoID string `json:"video_id"`
}

type AnalyzeResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID        string         `json:"id"`
	VideoID   string         `json:"video_id"`
	VideoName string         `json:"video_name"`
	Status    string         `json:"status"`
	Progress  int            `json:"progress"`
	Attempted int            `json:"attempted"`
	Error     string         `json:"error,omitempty"`
	Results   []scene.Result `json:"results"`
	HistoryID int            `json:"history_id,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type RunSummary struct {
	ID         int    `json:"id"`
	VideoName  string `json:"video_name"`
	Date       string `json:"date"`
	SceneCount int    `json:"scene_count"`
}

type HistoryResponse struct {
	Runs []RunSummary `json:"runs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *runs.Job) JobResponse {
	results := j.Results
	if results == nil {
		results = []scene.Result{}
	}
	return JobResponse{
		ID:        j.ID,
		VideoID:   j.VideoID,
		VideoName: j.VideoName,
		Status:    j.Status,
		Progress:  j.Progress,
		Attempted: j.Attempted,
		Error:     j.Error,
		Results:   results,
		HistoryID: j.HistoryID,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}

func RunToSummary(r history.Run) RunSummary {
	return RunSummary{
		ID:         r.ID,
		VideoName:  r.VideoName,
		Date:       r.Date,
		SceneCount: r.SceneCount,
	}
}
