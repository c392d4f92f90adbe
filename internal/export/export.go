// Package export renders a run's scene results for download, either as the
// canonical analysis.json document or as an EDL cutlist for editing tools.
package export

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/scenescope/scenescope-agent/internal/scene"
)

// JSONFilename is the fixed download name for exported results.
const JSONFilename = "analysis.json"

// ResultsJSON serializes the result sequence as indented JSON. Reloading the
// output yields field-for-field identical records.
func ResultsJSON(results []scene.Result) ([]byte, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return data, nil
}

// GenerateEDL renders the scenes of a run as a CMX-style edit decision list
// against the source video, one event per scene in order.
func GenerateEDL(title, mediaPath string, results []scene.Result, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 60))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffsetMs := 0
	event := 0
	for _, r := range results {
		startMs, endMs, ok := resultBoundsMs(r)
		if !ok {
			continue
		}
		event++

		srcIn := msToTimecode(startMs, fps)
		srcOut := msToTimecode(endMs, fps)
		recIn := msToTimecode(recordOffsetMs, fps)
		durationMs := endMs - startMs
		recOut := msToTimecode(recordOffsetMs+durationMs, fps)

		clipName := SanitizeName(fmt.Sprintf("Scene %d - %s", r.SceneID, r.Description), 60)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", event, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clipName),
			fmt.Sprintf("* MEDIA PATH:  %s", mediaPath),
		)

		recordOffsetMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func resultBoundsMs(r scene.Result) (startMs, endMs int, ok bool) {
	start, err := strconv.ParseFloat(r.StartS, 64)
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.ParseFloat(r.EndS, 64)
	if err != nil || end <= start {
		return 0, 0, false
	}
	return int(math.Round(start * 1000)), int(math.Round(end * 1000)), true
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
