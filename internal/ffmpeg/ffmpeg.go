// Package ffmpeg shells out to ffmpeg/ffprobe for probing, shot-boundary
// detection, and single-frame extraction.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// ErrNoFrame is returned when a frame could not be decoded at the requested
// timestamp, e.g. a seek past the end of the stream. Callers treat this as a
// recoverable per-scene condition.
var ErrNoFrame = errors.New("no frame decoded")

// Executor runs ffmpeg and ffprobe commands against local video files.
type Executor struct {
	logger      *slog.Logger
	ffmpegPath  string
	ffprobePath string
}

// ProbeResult holds the subset of ffprobe output the agent cares about.
type ProbeResult struct {
	DurationMS float64
	Width      int
	Height     int
	Codec      string
	FrameRate  float64
}

// New locates ffmpeg and ffprobe in PATH and returns an executor.
func New(logger *slog.Logger) (*Executor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	return &Executor{
		logger:      logger,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// Probe extracts container metadata. A video that cannot be read or has no
// positive duration is an error; the analysis run must abort in that case.
func (e *Executor) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (*ProbeResult, error) {
	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	result := &ProbeResult{}

	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("unreadable video duration %q", probe.Format.Duration)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("video has zero duration")
	}
	result.DurationMS = dur * 1000

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		result.Width = stream.Width
		result.Height = stream.Height
		result.Codec = stream.CodecName
		result.FrameRate = parseFrameRate(stream.RFrameRate)
		break
	}

	return result, nil
}

// parseFrameRate converts an ffprobe rational like "30000/1001" to a float.
func parseFrameRate(rational string) float64 {
	num, den, found := cutSlash(rational)
	if !found {
		v, _ := strconv.ParseFloat(rational, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func cutSlash(s string) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// ExtractFrame decodes exactly one JPEG frame at or after the timestamp
// (milliseconds). Returns ErrNoFrame when nothing could be decoded there.
func (e *Executor) ExtractFrame(ctx context.Context, path string, timestampMS float64) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", timestampMS/1000),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Debug("frame extraction failed", "ts_ms", timestampMS, "stderr", stderr.String())
		return nil, fmt.Errorf("%w at %.0fms: %v", ErrNoFrame, timestampMS, err)
	}

	frame := stdout.Bytes()
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w at %.0fms", ErrNoFrame, timestampMS)
	}
	return frame, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}
