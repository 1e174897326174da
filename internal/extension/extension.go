// Package extension holds the companion browser extension that forwards tab
// events to the daemon's bridge endpoint.
package extension

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed assets/manifest.json assets/background.js
var assets embed.FS

const configFile = "config.js"

// Files lists the static files of the extension, excluding the generated
// config.js.
func Files() []string {
	entries, err := fs.ReadDir(assets, "assets")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

// WriteTo materialises the unpacked extension in dir, pointing it at
// bridgeURL. Existing files are overwritten.
func WriteTo(dir, bridgeURL string) error {
	if bridgeURL == "" {
		return fmt.Errorf("extension: bridge url is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("extension: create dir: %w", err)
	}

	for _, name := range Files() {
		data, err := assets.ReadFile("assets/" + name)
		if err != nil {
			return fmt.Errorf("extension: read %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("extension: write %s: %w", name, err)
		}
	}

	quoted, err := json.Marshal(bridgeURL)
	if err != nil {
		return fmt.Errorf("extension: encode bridge url: %w", err)
	}
	cfg := fmt.Sprintf("export const BRIDGE_URL = %s;\n", quoted)
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte(cfg), 0o644); err != nil {
		return fmt.Errorf("extension: write %s: %w", configFile, err)
	}
	return nil
}
