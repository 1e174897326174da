package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const (
	defaultReadyTimeout = 15 * time.Second
	pollInterval        = 250 * time.Millisecond
	workerScript        = "background.js"
)

// Window is a startup window: its first URL plus extra tabs.
type Window struct {
	URL  string
	Tabs []string
}

// Config holds browser launch configuration.
type Config struct {
	BrowserPath  string
	ProfileDir   string
	ExtensionDir string
	Headful      bool
	WindowWidth  int
	WindowHeight int
	Windows      []Window
	ReadyTimeout time.Duration
}

// Launcher runs a Chromium instance with the companion extension loaded.
type Launcher struct {
	cfg Config

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	extensionID   string
}

// NewLauncher creates a new browser launcher with the given config.
func NewLauncher(cfg Config) *Launcher {
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1600, 1000
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	return &Launcher{cfg: cfg}
}

// Flags returns the command-line switches passed to the browser.
func (l *Launcher) Flags() map[string]any {
	flags := map[string]any{
		"no-first-run":                   true,
		"no-default-browser-check":       true,
		"disable-dev-shm-usage":          true,
		"disable-breakpad":               true,
		"disable-sync":                   true,
		"disable-session-crashed-bubble": true,
		"disable-extensions-except":      l.cfg.ExtensionDir,
		"load-extension":                 l.cfg.ExtensionDir,
	}
	if !l.cfg.Headful {
		// Extensions only run under the new headless mode.
		flags["headless"] = "new"
	}
	return flags
}

func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	flags := l.Flags()
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := []chromedp.ExecAllocatorOption{
		chromedp.UserDataDir(l.cfg.ProfileDir),
		chromedp.WindowSize(l.cfg.WindowWidth, l.cfg.WindowHeight),
	}
	if l.cfg.BrowserPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.BrowserPath))
	}
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}
	return opts
}

// Launch starts the browser, waits for the extension's service worker and
// opens the configured startup windows.
func (l *Launcher) Launch(ctx context.Context) error {
	if l.browserCtx != nil {
		return errors.New("browser: already launched")
	}
	if l.cfg.ExtensionDir == "" {
		return errors.New("browser: extension dir is required")
	}
	extDir, err := filepath.Abs(l.cfg.ExtensionDir)
	if err != nil {
		return fmt.Errorf("browser: extension dir: %w", err)
	}
	l.cfg.ExtensionDir = extDir
	if err := os.MkdirAll(l.cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("browser: create profile dir: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	l.allocCancel, l.browserCtx, l.browserCancel = allocCancel, browserCtx, browserCancel

	if err := chromedp.Run(browserCtx); err != nil {
		l.Stop()
		return fmt.Errorf("browser: start: %w", err)
	}
	slog.Info("browser process started", "profile_dir", l.cfg.ProfileDir, "extension_dir", extDir)

	worker, err := l.waitForExtension(ctx)
	if err != nil {
		l.Stop()
		return err
	}
	l.extensionID = ExtensionIDFromURL(worker.URL)
	slog.Info("extension service worker ready", "extension_id", l.extensionID, "target_id", worker.TargetID)

	for i, w := range l.cfg.Windows {
		if err := l.openWindow(w); err != nil {
			slog.Warn("open startup window failed", "index", i, "url", w.URL, "error", err)
		}
	}
	return nil
}

func (l *Launcher) waitForExtension(ctx context.Context) (*target.Info, error) {
	deadline := time.NewTimer(l.cfg.ReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		targets, err := chromedp.Targets(l.browserCtx)
		if err != nil {
			slog.Debug("list targets failed", "error", err)
		} else if worker, ok := FindExtensionWorker(targets); ok {
			return worker, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("browser: extension service worker not ready within %s", l.cfg.ReadyTimeout)
		case <-ticker.C:
		}
	}
}

func (l *Launcher) openWindow(w Window) error {
	return chromedp.Run(l.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := target.CreateTarget(w.URL).WithNewWindow(true).Do(ctx); err != nil {
			return err
		}
		for _, u := range w.Tabs {
			if _, err := target.CreateTarget(u).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

// ExtensionID returns the loaded extension's id once Launch succeeded.
func (l *Launcher) ExtensionID() string {
	return l.extensionID
}

// Running reports whether this launcher owns a live browser.
func (l *Launcher) Running() bool {
	return l.browserCtx != nil && l.browserCtx.Err() == nil
}

// Stop closes the browser and releases the allocator.
func (l *Launcher) Stop() {
	if l.browserCtx == nil {
		return
	}
	slog.Info("stopping browser")
	if err := chromedp.Cancel(l.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("browser close failed", "error", err)
	}
	l.browserCancel()
	l.allocCancel()
	l.browserCtx = nil
}

// FindExtensionWorker picks the companion extension's service worker out of
// a target list.
func FindExtensionWorker(targets []*target.Info) (*target.Info, bool) {
	for _, t := range targets {
		if t == nil || t.Type != "service_worker" {
			continue
		}
		if strings.HasPrefix(t.URL, "chrome-extension://") && strings.HasSuffix(t.URL, "/"+workerScript) {
			return t, true
		}
	}
	return nil, false
}

// ExtensionIDFromURL extracts the host part of a chrome-extension:// URL.
func ExtensionIDFromURL(u string) string {
	rest, ok := strings.CutPrefix(u, "chrome-extension://")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}
