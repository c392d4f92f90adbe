package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientAnnotate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content":
			"{\"description\": \"A city street at night\", \"tags\": [\"city\", \"night\"], \"mood\": \"moody\"}"
		}}]}`))
	}))
	defer ts.Close()

	client := NewClient("test-key", "test-model", ts.URL)
	ann, err := client.Annotate(context.Background(), []byte("fake jpeg"))
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}

	messages := gotBody["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("got %d content parts, want 2", len(content))
	}
	image := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(image, "data:image/jpeg;base64,") {
		t.Errorf("image url not a data URI: %.40s", image)
	}

	if ann.Description != "A city street at night" {
		t.Errorf("Description = %q", ann.Description)
	}
	if ann.Tags != "city, night" {
		t.Errorf("Tags = %q", ann.Tags)
	}
	if ann.Mood != "moody" {
		t.Errorf("Mood = %q", ann.Mood)
	}
}

func TestClientAnnotateMultipartContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": [
			{"type": "text", "text": "{\"description\": \"x\","},
			{"type": "text", "text": " \"tags\": [\"y\"], \"mood\": \"z\"}"}
		]}}]}`))
	}))
	defer ts.Close()

	client := NewClient("k", "m", ts.URL)
	ann, err := client.Annotate(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if ann.Description != "x" || ann.Tags != "y" || ann.Mood != "z" {
		t.Errorf("unexpected annotation: %+v", ann)
	}
}

func TestClientAnnotateBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid key secret-key-123"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := NewClient("secret-key-123", "m", ts.URL)
	_, err := client.Annotate(context.Background(), []byte("frame"))
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if strings.Contains(err.Error(), "secret-key-123") {
		t.Error("error message leaks the API key")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry status code: %v", err)
	}
}

func TestClientAnnotateMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices": []}`},
		{"not json", `garbage`},
		{"prose content", `{"choices": [{"message": {"content": "a nice sunset"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := NewClient("k", "m", ts.URL)
			_, err := client.Annotate(context.Background(), []byte("frame"))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}
