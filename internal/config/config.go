// Package config provides configuration management for the SceneScope Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort           = 8790
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultDataDir        = ".scenescope"
	DefaultModel          = "google/gemini-2.5-flash"
	DefaultBaseURL        = "https://openrouter.ai"
	DefaultSceneThreshold = 0.27

	// Environment variable names
	EnvPort           = "SCENESCOPE_PORT"
	EnvLogLevel       = "SCENESCOPE_LOG_LEVEL"
	EnvLogFormat      = "SCENESCOPE_LOG_FORMAT"
	EnvDataDir        = "SCENESCOPE_DATA_DIR"
	EnvAPIKey         = "SCENESCOPE_API_KEY"
	EnvModel          = "SCENESCOPE_MODEL"
	EnvBaseURL        = "SCENESCOPE_BASE_URL"
	EnvSceneThreshold = "SCENESCOPE_SCENE_THRESHOLD"
	EnvPaceMS         = "SCENESCOPE_PACE_MS"
	EnvHeadless       = "SCENESCOPE_HEADLESS"

	// History document filename
	HistoryFilename = "analysis_history.json"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFormat() string
	DataDir() string
	HistoryPath() string
	UploadsDir() string
	APIKey() string
	Model() string
	BaseURL() string
	SceneThreshold() float64
	PaceDelay() time.Duration
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	logFormat      string
	dataDir        string
	apiKey         string
	model          string
	baseURL        string
	sceneThreshold float64
	paceMS         int
	headless       bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		logFormat:      DefaultLogFormat,
		dataDir:        defaultDataDir(),
		model:          DefaultModel,
		baseURL:        DefaultBaseURL,
		sceneThreshold: DefaultSceneThreshold,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if lf := os.Getenv(EnvLogFormat); lf != "" {
		cfg.logFormat = lf
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.apiKey = os.Getenv(EnvAPIKey)

	if m := os.Getenv(EnvModel); m != "" {
		cfg.model = m
	}
	if bu := os.Getenv(EnvBaseURL); bu != "" {
		cfg.baseURL = bu
	}

	if st := os.Getenv(EnvSceneThreshold); st != "" {
		threshold, err := strconv.ParseFloat(st, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvSceneThreshold, err)
		}
		if threshold <= 0 || threshold >= 1 {
			return nil, fmt.Errorf("invalid %s: threshold must be in (0, 1)", EnvSceneThreshold)
		}
		cfg.sceneThreshold = threshold
	}

	if pm := os.Getenv(EnvPaceMS); pm != "" {
		paceMS, err := strconv.Atoi(pm)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPaceMS, err)
		}
		if paceMS < 0 {
			return nil, fmt.Errorf("invalid %s: pace must be >= 0", EnvPaceMS)
		}
		cfg.paceMS = paceMS
	}

	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		cfg.headless = true
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFormat returns the log output format (console or json)
func (c *EnvConfig) LogFormat() string {
	return c.logFormat
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// HistoryPath returns the full path to the analysis history document
func (c *EnvConfig) HistoryPath() string {
	return filepath.Join(c.dataDir, HistoryFilename)
}

// UploadsDir returns the directory uploaded videos are stored in
func (c *EnvConfig) UploadsDir() string {
	return filepath.Join(c.dataDir, "uploads")
}

// APIKey returns the captioning service API key (empty when unset)
func (c *EnvConfig) APIKey() string {
	return c.apiKey
}

// Model returns the captioning model identifier
func (c *EnvConfig) Model() string {
	return c.model
}

// BaseURL returns the captioning service base URL
func (c *EnvConfig) BaseURL() string {
	return c.baseURL
}

// SceneThreshold returns the shot-boundary detection sensitivity
func (c *EnvConfig) SceneThreshold() float64 {
	return c.sceneThreshold
}

// PaceDelay returns the optional per-scene pause used for UI pacing
func (c *EnvConfig) PaceDelay() time.Duration {
	return time.Duration(c.paceMS) * time.Millisecond
}

// Headless reports whether the system tray should be disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
