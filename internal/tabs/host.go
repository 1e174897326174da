package tabs

import "context"

// Host is the windowing host the engine observes and steers. Every call may
// race with tab or window teardown, so results are optional rather than
// errors: a false ok means "nothing usable came back" and callers degrade to
// taking no action.
type Host interface {
	// QueryTabs enumerates every open tab.
	QueryTabs(ctx context.Context) ([]Tab, bool)
	// GetTab fetches the current state of a tab.
	GetTab(ctx context.Context, id TabID) (Tab, bool)
	// ActiveTab asks the host which tab is active in window w.
	ActiveTab(ctx context.Context, w WindowID) (Tab, bool)
	// MoveTab moves a tab to an absolute index. Failures are ignored.
	MoveTab(ctx context.Context, id TabID, index int)
}
