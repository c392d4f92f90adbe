package api

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/scenescope/scenescope-agent/internal/runs"
)

// VideoExtensions are the accepted upload container formats.
var VideoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Video is one uploaded file, kept for the duration of the session so the
// player can stream it back and the pipeline can read it.
type Video struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadStore writes uploads to disk and tracks them by ID in memory.
type UploadStore struct {
	dir string

	mu     sync.Mutex
	videos map[string]*Video
}

func NewUploadStore(dir string) *UploadStore {
	return &UploadStore{dir: dir, videos: make(map[string]*Video)}
}

// Save validates the extension and streams the upload into the uploads
// directory under a fresh ID.
func (u *UploadStore) Save(filename string, r io.Reader) (*Video, error) {
	if !IsVideoFile(filename) {
		return nil, fmt.Errorf("unsupported video format %q (want mp4, mov, or avi)", filepath.Ext(filename))
	}

	id := runs.NewID()
	path := filepath.Join(u.dir, id+strings.ToLower(filepath.Ext(filename)))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	video := &Video{
		ID:         id,
		Name:       filepath.Base(filename),
		Path:       path,
		Size:       size,
		UploadedAt: time.Now(),
	}

	u.mu.Lock()
	u.videos[id] = video
	u.mu.Unlock()

	return video, nil
}

// Get returns the uploaded video with the given ID, or nil.
func (u *UploadStore) Get(id string) *Video {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.videos[id]
}
