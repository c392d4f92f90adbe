package annotate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout = 90 * time.Second

	// Fixed instruction prompt; the service must reply with a bare JSON object.
	framePrompt = `Analyze this video frame. Reply with JSON only: ` +
		`{"description": "max 20 words", "tags": ["t1", "t2", "t3"], "mood": "mood"}`
)

// Client calls an OpenRouter-compatible chat-completions endpoint with an
// inline base64 frame image.
type Client struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient builds a captioning client. baseURL and model fall back to the
// configured defaults when empty.
func NewClient(apiKey, model, baseURL string) *Client {
	return &Client{
		key:     apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Annotate sends the frame and the fixed prompt to the captioning service and
// parses the structured reply. Transport failures, bad statuses, and
// malformed content all surface as errors the pipeline treats as a per-scene
// skip.
func (c *Client) Annotate(ctx context.Context, frame []byte) (Annotation, error) {
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)

	payload := map[string]any{
		"model":  c.model,
		"stream": false,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": framePrompt},
					{"type": "image_url", "image_url": map[string]any{"url": imageURL}},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Annotation{}, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		c.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Annotation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Annotation{}, fmt.Errorf("captioning request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Annotation{}, fmt.Errorf("captioning service status %d: %s",
			resp.StatusCode, truncate(redactKey(string(rb), c.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Annotation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(raw.Choices) == 0 {
		return Annotation{}, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	content, err := contentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return Annotation{}, err
	}

	return ParseResponse(content)
}

// contentToString handles both plain-string message content and the
// multi-part array form some providers return.
func contentToString(content any) (string, error) {
	switch v := content.(type) {
	case string:
		return v, nil
	case []any:
		var b strings.Builder
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				b.WriteString(text)
			}
		}
		if b.Len() == 0 {
			return "", fmt.Errorf("%w: empty message content", ErrMalformedResponse)
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("%w: unexpected content type %T", ErrMalformedResponse, content)
	}
}

func redactKey(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, "[REDACTED]")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
