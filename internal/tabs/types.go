package tabs

import (
	"strings"
	"time"
)

// Heuristic thresholds. They are not configurable.
const (
	// SettleDelay is how long a created tab with an upfront URL is left alone
	// before its opener and final URL are trusted.
	SettleDelay = 100 * time.Millisecond

	// RestoreMatchWindow bounds how old a closure may be and still classify a
	// new tab as a restore.
	RestoreMatchWindow = 10 * time.Second

	// RetentionWindow bounds how long closure records are kept at all.
	RetentionWindow = 10 * time.Minute
)

// StatusComplete is the update status reported once a tab finished loading.
const StatusComplete = "complete"

// WindowID and TabID are host-assigned identifiers. They are only used as
// map keys and are never interpreted.
type (
	WindowID int64
	TabID    int64
)

// Tab is the host's view of a single tab.
type Tab struct {
	ID          TabID    `json:"id"`
	WindowID    WindowID `json:"windowId"`
	Index       int      `json:"index"`
	URL         string   `json:"url,omitempty"`
	PendingURL  string   `json:"pendingUrl,omitempty"`
	Title       string   `json:"title,omitempty"`
	Active      bool     `json:"active"`
	OpenerTabID *TabID   `json:"openerTabId,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// HasOpener reports whether the tab was spawned from another tab.
func (t Tab) HasOpener() bool {
	return t.OpenerTabID != nil
}

// EffectiveURL is the committed URL, or the pending one while the first
// navigation has not committed yet.
func (t Tab) EffectiveURL() string {
	if t.URL != "" {
		return t.URL
	}
	return t.PendingURL
}

// Snapshot is the cached metadata of a tab that showed a meaningful page.
type Snapshot struct {
	URL      string   `json:"url"`
	Index    int      `json:"index"`
	WindowID WindowID `json:"window_id"`
	Title    string   `json:"title,omitempty"`
}

// SnapshotOf captures the cacheable fields of a tab.
func SnapshotOf(t Tab) Snapshot {
	return Snapshot{URL: t.URL, Index: t.Index, WindowID: t.WindowID, Title: t.Title}
}

var placeholderURLs = map[string]bool{
	"chrome://newtab/": true,
	"edge://newtab/":   true,
	"about:newtab":     true,
}

// internalPrefixes are host-internal pages that the host never restores.
var internalPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"about:",
}

// IsPlaceholder reports whether url is empty or the host's blank new-tab page.
func IsPlaceholder(url string) bool {
	return url == "" || placeholderURLs[url]
}

// IsRestorable reports whether a page at url can come back through an
// undo-close action.
func IsRestorable(url string) bool {
	if url == "" {
		return false
	}
	for _, p := range internalPrefixes {
		if strings.HasPrefix(url, p) {
			return false
		}
	}
	return true
}
