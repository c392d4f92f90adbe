// Package ui provides the optional system tray icon for the agent.
package ui

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/scenescope/scenescope-agent/internal/runs"
)

type Tray struct {
	manager      *runs.Manager
	logger       *slog.Logger
	dashboardURL string

	statusItem *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Manager      *runs.Manager
	Logger       *slog.Logger
	DashboardURL string
	OnQuit       func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		manager:      cfg.Manager,
		logger:       cfg.Logger,
		dashboardURL: cfg.DashboardURL,
		onQuit:       cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("SceneScope")
	systray.SetTooltip("SceneScope Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Dashboard", "Open the dashboard in your browser")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit SceneScope Agent")

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-openItem.ClickedCh:
				t.openDashboard()
			case <-ticker.C:
				t.UpdateStatus(t.currentStatus())
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) currentStatus() string {
	if t.manager == nil {
		return "Analysis unavailable"
	}
	job := t.manager.Active()
	if job == nil {
		return "Idle"
	}
	return fmt.Sprintf("Analyzing %s (%d%%)", job.VideoName, job.Progress)
}

func (t *Tray) openDashboard() {
	if err := openBrowser(t.dashboardURL); err != nil {
		t.logger.Error("failed to open dashboard", "error", err, "url", t.dashboardURL)
	}
}

// UpdateStatus sets the tray status line.
func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statusItem != nil {
		t.statusItem.SetTitle("Status: " + status)
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
