package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scenescope/scenescope-agent/internal/export"
	"github.com/scenescope/scenescope-agent/internal/history"
	"github.com/scenescope/scenescope-agent/internal/runs"
	"github.com/scenescope/scenescope-agent/internal/web"
)

// Uploads larger than this are rejected before hitting disk.
const maxUploadBytes = 2 << 30

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(cfg))
		r.Get("/status", statusHandler(cfg))
		r.Post("/videos", uploadVideoHandler(cfg))
		r.Post("/analyze", analyzeHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Get("/history", listHistoryHandler(cfg))
		r.Get("/history/{id}", getHistoryRunHandler(cfg))
		r.Get("/history/{id}/export", exportRunHandler(cfg))
		r.Get("/playback", playbackHandler(cfg))
	})

	r.Handle("/*", web.Handler())

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{Ready: cfg.APIKeySet && cfg.Runs != nil}
		if resp.Ready {
			resp.Model = cfg.Model
		}
		if cfg.Runs != nil {
			if active := cfg.Runs.Active(); active != nil {
				jr := JobToResponse(active)
				resp.ActiveJob = &jr
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func uploadVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("video")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "video file is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		video, err := cfg.Uploads.Save(header.Filename, file)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		cfg.Logger.Info("video uploaded", "video_id", video.ID, "name", video.Name, "size", video.Size)
		WriteJSON(w, http.StatusCreated, UploadResponse{
			VideoID: video.ID,
			Name:    video.Name,
			Size:    video.Size,
		})
	}
}

func analyzeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.APIKeySet {
			WriteError(w, http.StatusServiceUnavailable,
				"captioning API key is not configured", "NO_API_KEY")
			return
		}
		if cfg.Runs == nil {
			WriteError(w, http.StatusServiceUnavailable,
				"analysis pipeline unavailable (is ffmpeg installed?)", "PIPELINE_UNAVAILABLE")
			return
		}

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.VideoID == "" {
			WriteError(w, http.StatusBadRequest, "video_id is required", "BAD_REQUEST")
			return
		}

		video := cfg.Uploads.Get(req.VideoID)
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		job, err := cfg.Runs.Start(video.ID, video.Path, video.Name)
		if err == runs.ErrBusy {
			WriteError(w, http.StatusConflict, err.Error(), "BUSY")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, AnalyzeResponse{JobID: job.ID})
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runs == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		job := cfg.Runs.Get(chi.URLParam(r, "id"))
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func listHistoryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, err := cfg.History.Load()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load history", "INTERNAL_ERROR")
			return
		}

		resp := HistoryResponse{Runs: make([]RunSummary, len(stored))}
		for i, run := range stored {
			resp.Runs[i] = RunToSummary(run)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getHistoryRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, run)
	}
}

func exportRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(cfg, w, r)
		if !ok {
			return
		}

		format := r.URL.Query().Get("format")
		switch format {
		case "", "json":
			data, err := export.ResultsJSON(run.Results)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", export.JSONFilename))
			w.WriteHeader(http.StatusOK)
			w.Write(data)

		case "edl":
			edl := export.GenerateEDL(run.VideoName, run.VideoName, run.Results, 30.0)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", export.SanitizeName(run.VideoName, 60)+".edl"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(edl))

		default:
			WriteError(w, http.StatusBadRequest, "unknown export format", "BAD_REQUEST")
		}
	}
}

func lookupRun(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*history.Run, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid run id", "BAD_REQUEST")
		return nil, false
	}

	stored, err := cfg.History.Get(id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, false
	}
	if stored == nil {
		WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
		return nil, false
	}
	return stored, true
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := r.URL.Query().Get("video_id")
		if videoID == "" {
			WriteError(w, http.StatusBadRequest, "video_id is required", "BAD_REQUEST")
			return
		}

		video := cfg.Uploads.Get(videoID)
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		if err := cfg.PlaybackServer.ServeFile(w, r, video.Path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "video_id", videoID)
		}
	}
}
