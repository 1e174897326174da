package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minHostTimeoutMS = 100

// Config holds all configuration for the tabrestored daemon.
type Config struct {
	// HTTP listener
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Logging
	LogLevel string
	LogFile  string

	// Bridge round trip deadline for each host command
	HostTimeoutMS int

	// Decision journal
	JournalEnabled bool
	JournalDir     string

	// Managed browser
	LaunchBrowser  bool
	BrowserPath    string
	ProfileDir     string
	WindowsConfig  string
	ExtensionDir   string
	BrowserHeadful bool
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("TABRESTORE_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   getEnvListOrDefault("TABRESTORE_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192"}),
		PortAutoFallback: getEnvBoolOrDefault("TABRESTORE_PORT_AUTO_FALLBACK", true),
		LogLevel:         strings.ToLower(getEnvOrDefault("TABRESTORE_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("TABRESTORE_LOG_FILE", "logs/tabrestored.log"),
		HostTimeoutMS:    getEnvIntOrDefault("TABRESTORE_HOST_TIMEOUT_MS", 2000),
		JournalEnabled:   getEnvBoolOrDefault("TABRESTORE_JOURNAL_ENABLED", true),
		JournalDir:       getEnvOrDefault("TABRESTORE_JOURNAL_DIR", "./journal"),
		LaunchBrowser:    getEnvBoolOrDefault("TABRESTORE_LAUNCH_BROWSER", false),
		BrowserPath:      getEnvOrDefault("TABRESTORE_BROWSER_PATH", ""),
		ProfileDir:       getEnvOrDefault("TABRESTORE_PROFILE_DIR", "./browser_profile"),
		WindowsConfig:    getEnvOrDefault("TABRESTORE_WINDOWS_CONFIG", "./config/windows.yaml"),
		ExtensionDir:     getEnvOrDefault("TABRESTORE_EXTENSION_DIR", "./browser_extension"),
		BrowserHeadful:   getEnvBoolOrDefault("TABRESTORE_BROWSER_HEADFUL", true),
	}
	if cfg.HostTimeoutMS < minHostTimeoutMS {
		cfg.HostTimeoutMS = minHostTimeoutMS
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("config: TABRESTORE_LOG_LEVEL must be one of debug|info|warn|error, got %q", cfg.LogLevel)
	}

	return cfg, nil
}

// HostTimeout returns the per-command bridge deadline.
func (c *Config) HostTimeout() time.Duration {
	return time.Duration(c.HostTimeoutMS) * time.Millisecond
}

// BridgeURL returns the websocket URL the extension dials for the given
// listen address.
func BridgeURL(addr string) string {
	return "ws://" + addr + "/bridge"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
