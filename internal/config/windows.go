package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// WindowEntry describes one browser window to open at startup. Extra URLs
// open as additional tabs in the same window.
type WindowEntry struct {
	URL  string   `yaml:"url"`
	Tabs []string `yaml:"tabs,omitempty"`
}

// WindowsConfig is the top-level YAML configuration for startup windows.
type WindowsConfig struct {
	Windows []WindowEntry `yaml:"windows"`
}

// LoadWindows reads and validates a windows YAML config file. A missing
// file yields an os.ErrNotExist-wrapped error; callers skip in that case.
func LoadWindows(path string) (*WindowsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("windows config: %w", err)
	}
	var cfg WindowsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("windows config: %w", err)
	}
	if len(cfg.Windows) < 1 {
		return nil, fmt.Errorf("windows config: at least one window entry is required")
	}
	for i, w := range cfg.Windows {
		if w.URL == "" {
			return nil, fmt.Errorf("windows config: windows[%d] missing url", i)
		}
		for _, u := range append([]string{w.URL}, w.Tabs...) {
			if _, err := url.ParseRequestURI(u); err != nil {
				return nil, fmt.Errorf("windows config: windows[%d] invalid url %q: %w", i, u, err)
			}
		}
	}
	return &cfg, nil
}
