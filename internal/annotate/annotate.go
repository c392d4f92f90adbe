// Package annotate sends representative scene frames to an external
// multimodal captioning service and parses its structured response.
package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks captioning responses that could not be parsed
// into the expected structure. The pipeline skips the scene and continues.
var ErrMalformedResponse = errors.New("malformed captioning response")

// Annotation is the structured result for a single frame. Tags is already
// flattened to a ", "-joined string.
type Annotation struct {
	Description string
	Tags        string
	Mood        string
}

// Annotator produces an annotation for a single JPEG frame.
type Annotator interface {
	Annotate(ctx context.Context, frame []byte) (Annotation, error)
}

// StripFence extracts the content of an optional ``` or ```json fenced block.
// Unfenced content passes through unchanged.
func StripFence(s string) string {
	if _, rest, ok := strings.Cut(s, "```json"); ok {
		inner, _, _ := strings.Cut(rest, "```")
		return strings.TrimSpace(inner)
	}
	if _, rest, ok := strings.Cut(s, "```"); ok {
		inner, _, _ := strings.Cut(rest, "```")
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(s)
}

// ParseResponse parses the raw text returned by the captioning service into
// an Annotation, tolerating a fenced code block around the JSON object.
func ParseResponse(raw string) (Annotation, error) {
	cleaned := StripFence(raw)

	var payload struct {
		Description string          `json:"description"`
		Tags        json.RawMessage `json:"tags"`
		Mood        string          `json:"mood"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return Annotation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return Annotation{
		Description: payload.Description,
		Tags:        flattenTags(payload.Tags),
		Mood:        payload.Mood,
	}, nil
}

// flattenTags joins a tag list with ", ". A non-list value is stringified
// as-is; an absent or null value yields an empty string.
func flattenTags(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ", ")
	case string:
		return t
	default:
		return stringify(t)
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}
