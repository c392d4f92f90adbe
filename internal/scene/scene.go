// Package scene holds the domain model for detected video scenes and the
// playback synchronization logic shared between the pipeline and the review UI.
package scene

import (
	"fmt"
	"strconv"
)

// Interval is a half-open time span [StartMS, EndMS) of the source video,
// produced by shot-boundary detection. Times are milliseconds.
type Interval struct {
	StartMS float64
	EndMS   float64
}

// Valid reports whether the interval is well-formed.
func (iv Interval) Valid() bool {
	return iv.StartMS >= 0 && iv.EndMS > iv.StartMS
}

// Midpoint returns the middle of the interval in milliseconds. The pipeline
// samples one frame there as the representative frame of the scene.
func (iv Interval) Midpoint() float64 {
	return (iv.StartMS + iv.EndMS) / 2
}

// Result is one annotated scene. Start and end are kept as two-decimal
// second strings because that is the display and persistence format; the
// history document and the exported analysis.json carry them verbatim.
type Result struct {
	SceneID     int    `json:"scene_id"`
	StartS      string `json:"start_s"`
	EndS        string `json:"end_s"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Mood        string `json:"mood"`
}

// FormatSeconds renders a millisecond timestamp as seconds with two decimals.
func FormatSeconds(ms float64) string {
	return fmt.Sprintf("%.2f", ms/1000)
}

// FormatClock renders a position in seconds as m:ss for the status readout.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// ActiveScene returns the ID of the first scene whose [start, end) interval
// contains the playback position, scanning in order. ok is false when no
// scene covers the position (gaps are possible when scenes were skipped
// during analysis).
func ActiveScene(positionS float64, results []Result) (int, bool) {
	for _, r := range results {
		start, err := strconv.ParseFloat(r.StartS, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseFloat(r.EndS, 64)
		if err != nil {
			continue
		}
		if positionS >= start && positionS < end {
			return r.SceneID, true
		}
	}
	return 0, false
}
