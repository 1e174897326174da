package tabs

// Tracker remembers the last reported active tab of each window.
//
// A tracked id is a hint: the tab may have closed since it was recorded, so
// consumers re-validate it against the host before relying on it.
type Tracker struct {
	active map[WindowID]TabID
}

// NewTracker returns a tracker with no windows.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[WindowID]TabID)}
}

// SetActive overwrites the active tab of w. Activation events arrive in
// order per window, so the last writer wins.
func (t *Tracker) SetActive(w WindowID, id TabID) {
	t.active[w] = id
}

// Active returns the tracked active tab of w, if any.
func (t *Tracker) Active(w WindowID) (TabID, bool) {
	id, ok := t.active[w]
	return id, ok
}

// Len returns the number of windows with a tracked active tab.
func (t *Tracker) Len() int {
	return len(t.active)
}

// All returns a copy of the window to active-tab mapping.
func (t *Tracker) All() map[WindowID]TabID {
	out := make(map[WindowID]TabID, len(t.active))
	for w, id := range t.active {
		out[w] = id
	}
	return out
}
