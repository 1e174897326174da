package browser

import (
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsLoadOnlyCompanionExtension(t *testing.T) {
	l := NewLauncher(Config{ExtensionDir: "/opt/tabrestore/ext", Headful: true})
	flags := l.Flags()

	assert.Equal(t, "/opt/tabrestore/ext", flags["load-extension"])
	assert.Equal(t, "/opt/tabrestore/ext", flags["disable-extensions-except"])
	assert.Equal(t, true, flags["no-first-run"])
	_, headless := flags["headless"]
	assert.False(t, headless)
}

func TestFlagsHeadlessUsesNewMode(t *testing.T) {
	l := NewLauncher(Config{ExtensionDir: "/ext"})
	assert.Equal(t, "new", l.Flags()["headless"])
}

func TestNewLauncherDefaults(t *testing.T) {
	l := NewLauncher(Config{})
	assert.Equal(t, 1600, l.cfg.WindowWidth)
	assert.Equal(t, 1000, l.cfg.WindowHeight)
	assert.Equal(t, defaultReadyTimeout, l.cfg.ReadyTimeout)
	assert.False(t, l.Running())
	assert.Len(t, l.allocatorOptions(), 2+len(l.Flags()))
}

func TestFindExtensionWorker(t *testing.T) {
	targets := []*target.Info{
		nil,
		{TargetID: "page-1", Type: "page", URL: "chrome-extension://abcdef/background.js"},
		{TargetID: "sw-other", Type: "service_worker", URL: "https://site.example/sw.js"},
		{TargetID: "sw-ext", Type: "service_worker", URL: "chrome-extension://abcdef/background.js"},
	}

	got, ok := FindExtensionWorker(targets)
	require.True(t, ok)
	assert.Equal(t, target.ID("sw-ext"), got.TargetID)

	_, ok = FindExtensionWorker(targets[:3])
	assert.False(t, ok)
}

func TestExtensionIDFromURL(t *testing.T) {
	assert.Equal(t, "abcdef", ExtensionIDFromURL("chrome-extension://abcdef/background.js"))
	assert.Equal(t, "abcdef", ExtensionIDFromURL("chrome-extension://abcdef"))
	assert.Empty(t, ExtensionIDFromURL("https://abcdef/background.js"))
}
