package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/scenescope/scenescope-agent/internal/scene"
)

// DetectScenes finds shot boundaries using ffmpeg's scene change filter and
// returns the resulting ordered, non-overlapping intervals over the whole
// video. When the filter reports no cut points the returned slice is empty;
// the caller substitutes a single full-length interval.
func (e *Executor) DetectScenes(ctx context.Context, path string, threshold float64) ([]scene.Interval, error) {
	probe, err := e.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	e.logger.Info("detecting scene changes", "path", path, "threshold", threshold)

	args := []string{
		"-hide_banner",
		"-i", path,
		"-vf", fmt.Sprintf("select='gt(scene,%f)',showinfo", threshold),
		"-f", "null",
		"-",
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// ffmpeg exits non-zero for some decodable-but-odd inputs even though
		// showinfo output is usable. Only fail when no output was produced.
		if stderr.Len() == 0 {
			return nil, fmt.Errorf("scene detection failed: %w", err)
		}
	}

	cuts := parseSceneCuts(stderr.String())
	intervals := intervalsFromCuts(cuts, probe.DurationMS)
	e.logger.Info("scene detection complete", "cuts", len(cuts), "scenes", len(intervals))
	return intervals, nil
}

// parseSceneCuts extracts cut timestamps (milliseconds) from showinfo output.
func parseSceneCuts(output string) []float64 {
	var cuts []float64
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, "pts_time:")
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len("pts_time:"):])
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil {
			cuts = append(cuts, seconds*1000)
		}
	}
	return cuts
}

// intervalsFromCuts turns cut points into a partition of [0, durationMS).
// Cuts outside the stream or at its very edges are discarded. No usable cuts
// means no detected scenes, signalled by an empty slice.
func intervalsFromCuts(cuts []float64, durationMS float64) []scene.Interval {
	var bounds []float64
	for _, c := range cuts {
		if c > 0 && c < durationMS {
			bounds = append(bounds, c)
		}
	}
	if len(bounds) == 0 {
		return nil
	}

	sort.Float64s(bounds)

	var intervals []scene.Interval
	start := 0.0
	for _, b := range bounds {
		if b <= start {
			continue
		}
		intervals = append(intervals, scene.Interval{StartMS: start, EndMS: b})
		start = b
	}
	if durationMS > start {
		intervals = append(intervals, scene.Interval{StartMS: start, EndMS: durationMS})
	}
	return intervals
}
