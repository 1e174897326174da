package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/tabrestore/internal/api"
	"github.com/dgnsrekt/tabrestore/internal/bridge"
	"github.com/dgnsrekt/tabrestore/internal/browser"
	"github.com/dgnsrekt/tabrestore/internal/config"
	"github.com/dgnsrekt/tabrestore/internal/extension"
	"github.com/dgnsrekt/tabrestore/internal/feed"
	"github.com/dgnsrekt/tabrestore/internal/journal"
	"github.com/dgnsrekt/tabrestore/internal/metrics"
	"github.com/dgnsrekt/tabrestore/internal/netutil"
	"github.com/dgnsrekt/tabrestore/internal/service"
	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("tabrestored config loaded",
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"host_timeout_ms", cfg.HostTimeoutMS,
		"journal_enabled", cfg.JournalEnabled,
		"journal_dir", cfg.JournalDir,
		"launch_browser", cfg.LaunchBrowser,
		"extension_dir", cfg.ExtensionDir,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to bind listener", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}
	addr := ln.Addr().String()

	if err := extension.WriteTo(cfg.ExtensionDir, config.BridgeURL(addr)); err != nil {
		slog.Error("failed to write extension", "dir", cfg.ExtensionDir, "error", err)
		os.Exit(1)
	}
	slog.Info("extension written", "dir", cfg.ExtensionDir, "bridge_url", config.BridgeURL(addr))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	m := metrics.New()
	broker := feed.NewBroker()
	observers := tabs.Observers{m, broker}

	var jw *journal.Writer
	if cfg.JournalEnabled {
		jw = journal.NewWriter(cfg.JournalDir, 0, 0)
		observers = append(observers, jw)
	}

	loop := tabs.NewLoop()
	go loop.Run(ctx)

	br := bridge.New(bridge.Options{Timeout: cfg.HostTimeout(), Recorder: m})
	engine := tabs.NewEngine(br, tabs.Options{Scheduler: loop, Observer: observers})
	svc := service.New(ctx, loop, engine, nil, br)
	br.SetEvents(svc)

	h := api.NewServer(svc, api.Options{Bridge: br, Feed: broker, Metrics: m})
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		slog.Info("tabrestored listening", "addr", addr, "docs", "http://"+addr+"/docs", "bridge", config.BridgeURL(addr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("tabrestored server failed", "error", err)
			os.Exit(1)
		}
	}()

	var launcher *browser.Launcher
	if cfg.LaunchBrowser {
		launcher = startBrowser(ctx, cfg)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("tabrestored shutting down")

	if launcher != nil {
		launcher.Stop()
	}
	br.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("tabrestored shutdown failed", "error", err)
	}

	stop()
	<-loop.Done()
	if jw != nil {
		if err := jw.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}
}

// startBrowser launches the managed browser. Failure is logged and the
// daemon keeps serving; a user-run browser can still load the extension.
func startBrowser(ctx context.Context, cfg *config.Config) *browser.Launcher {
	var windows []browser.Window
	wc, err := config.LoadWindows(cfg.WindowsConfig)
	switch {
	case err == nil:
		for _, w := range wc.Windows {
			windows = append(windows, browser.Window{URL: w.URL, Tabs: w.Tabs})
		}
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("no windows config, starting with an empty window", "path", cfg.WindowsConfig)
	default:
		slog.Warn("windows config ignored", "path", cfg.WindowsConfig, "error", err)
	}

	l := browser.NewLauncher(browser.Config{
		BrowserPath:  cfg.BrowserPath,
		ProfileDir:   cfg.ProfileDir,
		ExtensionDir: cfg.ExtensionDir,
		Headful:      cfg.BrowserHeadful,
		Windows:      windows,
	})
	if err := l.Launch(ctx); err != nil {
		slog.Error("browser launch failed", "error", err)
		return nil
	}
	slog.Info("browser launched", "extension_id", l.ExtensionID(), "windows", len(windows))
	return l
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
