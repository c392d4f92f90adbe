// Package pipeline orchestrates one analysis run: shot-boundary detection,
// representative frame extraction, and captioning, scene by scene.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/scenescope/scenescope-agent/internal/annotate"
	"github.com/scenescope/scenescope-agent/internal/ffmpeg"
	"github.com/scenescope/scenescope-agent/internal/scene"
)

// ErrNoResults marks a run that attempted every detected interval but
// produced nothing. No history entry is written for such a run.
var ErrNoResults = errors.New("analysis produced no results")

// Media is the subset of video operations the pipeline needs, satisfied by
// *ffmpeg.Executor.
type Media interface {
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
	DetectScenes(ctx context.Context, path string, threshold float64) ([]scene.Interval, error)
	ExtractFrame(ctx context.Context, path string, timestampMS float64) ([]byte, error)
}

// Callbacks receive incremental output during a run. Either field may be nil.
// OnResult fires as soon as a scene has been annotated; OnProgress fires after
// every attempted interval, whether or not it produced a result.
type Callbacks struct {
	OnResult   func(scene.Result)
	OnProgress func(done, total int)
}

// Report summarizes one finished run. Attempted counts detected intervals;
// len(Results) can be lower when individual scenes failed and were skipped.
type Report struct {
	VideoName string
	Attempted int
	Results   []scene.Result
}

// Pipeline runs the detect -> extract -> annotate sequence for one video.
type Pipeline struct {
	media     Media
	annotator annotate.Annotator
	threshold float64
	pace      time.Duration
	logger    *slog.Logger
}

// Options tunes a Pipeline.
type Options struct {
	// SceneThreshold is the shot-boundary sensitivity passed to detection.
	SceneThreshold float64
	// Pace inserts an artificial pause after each interval for UI pacing.
	// Zero disables it.
	Pace   time.Duration
	Logger *slog.Logger
}

func New(media Media, annotator annotate.Annotator, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		media:     media,
		annotator: annotator,
		threshold: opts.SceneThreshold,
		pace:      opts.Pace,
		logger:    logger,
	}
}

// Run analyzes the video at path. Unreadable input is fatal; per-scene frame
// or captioning failures drop that scene and continue, leaving a gap in the
// scene ID sequence. Every detected interval is attempted exactly once.
func (p *Pipeline) Run(ctx context.Context, path, videoName string, cb Callbacks) (*Report, error) {
	probe, err := p.media.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	intervals, err := p.media.DetectScenes(ctx, path, p.threshold)
	if err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		// Every video yields at least one scene.
		intervals = []scene.Interval{{StartMS: 0, EndMS: probe.DurationMS}}
	}

	total := len(intervals)
	p.logger.Info("scenes detected", "video", videoName, "count", total)

	report := &Report{VideoName: videoName, Attempted: total}

	for i, iv := range intervals {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sceneID := i + 1
		if result, ok := p.annotateInterval(ctx, path, sceneID, iv); ok {
			report.Results = append(report.Results, result)
			if cb.OnResult != nil {
				cb.OnResult(result)
			}
		}

		if cb.OnProgress != nil {
			cb.OnProgress(i+1, total)
		}

		if p.pace > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(p.pace):
			}
		}
	}

	if len(report.Results) == 0 {
		return report, ErrNoResults
	}

	p.logger.Info("analysis complete", "video", videoName,
		"attempted", total, "annotated", len(report.Results))
	return report, nil
}

func (p *Pipeline) annotateInterval(ctx context.Context, path string, sceneID int, iv scene.Interval) (scene.Result, bool) {
	frame, err := p.media.ExtractFrame(ctx, path, iv.Midpoint())
	if err != nil {
		p.logger.Warn("skipping scene, frame extraction failed",
			"scene_id", sceneID, "error", err)
		return scene.Result{}, false
	}

	annotation, err := p.annotator.Annotate(ctx, frame)
	if err != nil {
		p.logger.Warn("skipping scene, captioning failed",
			"scene_id", sceneID, "error", err)
		return scene.Result{}, false
	}

	return scene.Result{
		SceneID:     sceneID,
		StartS:      scene.FormatSeconds(iv.StartMS),
		EndS:        scene.FormatSeconds(iv.EndMS),
		Description: orPlaceholder(annotation.Description),
		Tags:        annotation.Tags,
		Mood:        orPlaceholder(annotation.Mood),
	}, true
}

func orPlaceholder(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
