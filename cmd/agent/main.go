package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scenescope/scenescope-agent/internal/annotate"
	"github.com/scenescope/scenescope-agent/internal/api"
	"github.com/scenescope/scenescope-agent/internal/config"
	"github.com/scenescope/scenescope-agent/internal/ffmpeg"
	"github.com/scenescope/scenescope-agent/internal/history"
	"github.com/scenescope/scenescope-agent/internal/logging"
	"github.com/scenescope/scenescope-agent/internal/pipeline"
	"github.com/scenescope/scenescope-agent/internal/playback"
	"github.com/scenescope/scenescope-agent/internal/runs"
	"github.com/scenescope/scenescope-agent/internal/ui"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scenescope-agent",
		Short: "Local agent for AI video scene analysis",
		Long: "SceneScope Agent detects scene cuts in a video with ffmpeg, captions a\n" +
			"representative frame of each scene with a multimodal model, and serves a\n" +
			"browser dashboard for playback-synchronized review.",
		Version: config.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// A .env next to the binary is optional.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create uploads dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel(), cfg.LogFormat())
	logger.Info("starting scenescope agent",
		"version", config.Version, "data_dir", cfg.DataDir(), "model", cfg.Model())

	store := history.NewStore(cfg.HistoryPath())
	uploads := api.NewUploadStore(cfg.UploadsDir())
	playbackSvc := playback.NewServer(logging.WithComponent(logger, "playback"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var manager *runs.Manager

	executor, err := ffmpeg.New(logging.WithComponent(logger, "ffmpeg"))
	if err != nil {
		logger.Warn("ffmpeg not found, analysis disabled", "error", err)
	} else if cfg.APIKey() == "" {
		logger.Warn("no API key configured, analysis disabled",
			"hint", "set "+config.EnvAPIKey)
	} else {
		annotator := annotate.NewClient(cfg.APIKey(), cfg.Model(), cfg.BaseURL())
		pipe := pipeline.New(executor, annotator, pipeline.Options{
			SceneThreshold: cfg.SceneThreshold(),
			Pace:           cfg.PaceDelay(),
			Logger:         logging.WithComponent(logger, "pipeline"),
		})
		manager = runs.NewManager(ctx, pipe, store, logging.WithComponent(logger, "runs"))
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Version:        config.Version,
		APIKeySet:      cfg.APIKey() != "",
		Model:          cfg.Model(),
		Uploads:        uploads,
		Runs:           manager,
		History:        store,
		PlaybackServer: playbackSvc,
		Logger:         logging.WithComponent(logger, "api"),
		StartTime:      startTime,
	})

	dashboardURL := fmt.Sprintf("http://%s/", apiServer.Addr())
	logger.Info("dashboard available", "url", dashboardURL)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Manager:      manager,
			Logger:       logging.WithComponent(logger, "tray"),
			DashboardURL: dashboardURL,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
