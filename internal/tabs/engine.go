package tabs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Options configures an Engine. Zero values fall back to the system clock
// and a scheduler built on it.
type Options struct {
	Clock     Clock
	Scheduler Scheduler
	Observer  Observer
}

// Engine reacts to host lifecycle events and places newly created tabs.
//
// Engine is single-threaded: every method must be called from the same
// timeline (see Loop), including the deferred tasks it hands to its
// Scheduler.
type Engine struct {
	host     Host
	clock    Clock
	sched    Scheduler
	observer Observer

	cache   *MetaCache
	tracker *Tracker
	ledger  *Ledger
}

func NewEngine(host Host, opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	sched := opts.Scheduler
	if sched == nil {
		if s, ok := clock.(Scheduler); ok {
			sched = s
		} else {
			sched = timerScheduler{}
		}
	}
	return &Engine{
		host:     host,
		clock:    clock,
		sched:    sched,
		observer: opts.Observer,
		cache:    NewMetaCache(),
		tracker:  NewTracker(),
		ledger:   NewLedger(clock),
	}
}

func (e *Engine) Cache() *MetaCache { return e.cache }

func (e *Engine) Tracker() *Tracker { return e.tracker }

func (e *Engine) Ledger() *Ledger { return e.ledger }

func (e *Engine) Stats() Stats {
	return Stats{Windows: e.tracker.Len(), Cached: e.cache.Len(), Closed: e.ledger.Len()}
}

// Prime seeds the tracker and cache from the host's current tabs. It returns
// the number of tabs seen.
func (e *Engine) Prime(ctx context.Context) int {
	all, ok := e.host.QueryTabs(ctx)
	if !ok {
		slog.Debug("tabs prime skipped, host query failed")
		return 0
	}
	for _, t := range all {
		if t.Active {
			e.tracker.SetActive(t.WindowID, t.ID)
		}
		e.cache.RecordIfMeaningful(t.ID, SnapshotOf(t))
	}
	slog.Info("tabs primed", "tabs", len(all), "windows", e.tracker.Len(), "cached", e.cache.Len())
	e.observeEvent(EventPrimed)
	return len(all)
}

func (e *Engine) OnActivated(w WindowID, id TabID) {
	e.tracker.SetActive(w, id)
	e.observeEvent(EventActivated)
}

// OnUpdated caches the tab once it finished loading a meaningful page.
func (e *Engine) OnUpdated(id TabID, status string, tab Tab) {
	if status == StatusComplete {
		e.cache.RecordIfMeaningful(id, SnapshotOf(tab))
	}
	e.observeEvent(EventUpdated)
}

// OnRemoved evicts the tab from the cache and, unless its whole window is
// closing, records where it was so a restore can put it back.
func (e *Engine) OnRemoved(id TabID, isWindowClosing bool) {
	snap, ok := e.cache.Remove(id)
	if ok && !isWindowClosing && IsRestorable(snap.URL) {
		e.ledger.RecordClosure(snap.URL, snap.WindowID, snap.Index, snap.Title)
		slog.Debug("tab closure recorded", "tab_id", id, "window_id", snap.WindowID, "index", snap.Index)
	}
	if n := e.ledger.SweepExpired(RetentionWindow); n > 0 {
		slog.Debug("closed tab records swept", "removed", n)
	}
	e.observeEvent(EventRemoved)
}

// OnCreated classifies a newly created tab and places it.
func (e *Engine) OnCreated(ctx context.Context, tab Tab) {
	defer e.observeEvent(EventCreated)

	if cached, ok := e.tracker.Active(tab.WindowID); ok && cached == tab.ID {
		e.decide(Decision{Outcome: OutcomeSkippedSelf, TabID: tab.ID, WindowID: tab.WindowID})
		return
	}

	// Only the committed URL counts here: a tab that so far has just a
	// pending URL is still blank and is placed at once.
	if IsPlaceholder(tab.URL) {
		e.placeRightOfActive(ctx, tab.ID, tab.WindowID, OutcomePlaceholder, "")
		return
	}

	id, w := tab.ID, tab.WindowID
	e.sched.AfterFunc(SettleDelay, func() {
		e.classify(ctx, id, w)
	})
}

// classify runs after the settle delay. Everything is re-fetched because
// other events may have been handled in the meantime.
func (e *Engine) classify(ctx context.Context, id TabID, w WindowID) {
	tab, ok := e.host.GetTab(ctx, id)
	if !ok {
		slog.Debug("tab gone before classification", "tab_id", id, "window_id", w)
		e.decide(Decision{Outcome: OutcomeLostRace, TabID: id, WindowID: w})
		return
	}

	// A navigation that has not committed after the settle delay is matched
	// on its pending URL.
	url := tab.EffectiveURL()
	if IsRestorable(url) {
		if rec, found := e.ledger.FindMatch(url, tab.WindowID, RestoreMatchWindow); found {
			e.host.MoveTab(ctx, id, rec.Index)
			e.ledger.Invalidate(url, tab.WindowID)
			slog.Info("restored tab moved to original position", "tab_id", id, "window_id", tab.WindowID, "index", rec.Index)
			e.decide(Decision{Outcome: OutcomeRestore, TabID: id, WindowID: tab.WindowID, URL: url, Moved: true, Index: rec.Index})
			return
		}
	}

	if tab.HasOpener() {
		e.placeRightOfActive(ctx, id, tab.WindowID, OutcomeOpenedFromActive, url)
		return
	}

	e.decide(Decision{Outcome: OutcomeAmbient, TabID: id, WindowID: tab.WindowID, URL: url})
}

// placeRightOfActive moves tab id to just after the active tab of window w.
func (e *Engine) placeRightOfActive(ctx context.Context, id TabID, w WindowID, outcome Outcome, url string) {
	active, ok := e.resolveActive(ctx, w)
	if !ok {
		slog.Debug("no active tab to place against", "tab_id", id, "window_id", w)
		e.decide(Decision{Outcome: OutcomeNoActiveTab, TabID: id, WindowID: w, URL: url})
		return
	}
	if active.ID == id {
		e.decide(Decision{Outcome: OutcomeSkippedSelf, TabID: id, WindowID: w, URL: url})
		return
	}

	index := active.Index + 1
	e.host.MoveTab(ctx, id, index)
	slog.Debug("tab placed right of active", "tab_id", id, "window_id", w, "active_tab_id", active.ID, "index", index, "outcome", outcome)
	e.decide(Decision{Outcome: outcome, TabID: id, WindowID: w, URL: url, Moved: true, Index: index})
}

// resolveActive prefers the tracked active tab, re-validated against the
// host, and falls back to asking the host directly.
func (e *Engine) resolveActive(ctx context.Context, w WindowID) (Tab, bool) {
	if cached, ok := e.tracker.Active(w); ok {
		if t, ok := e.host.GetTab(ctx, cached); ok && t.WindowID == w {
			return t, true
		}
		slog.Debug("tracked active tab is stale", "window_id", w, "tab_id", cached)
	}

	t, ok := e.host.ActiveTab(ctx, w)
	if !ok {
		return Tab{}, false
	}
	e.tracker.SetActive(w, t.ID)
	return t, true
}

func (e *Engine) decide(d Decision) {
	d.ID = uuid.NewString()
	d.At = e.clock.Now()
	if e.observer != nil {
		e.observer.ObserveDecision(d)
	}
}

func (e *Engine) observeEvent(kind EventKind) {
	if eo, ok := e.observer.(EventObserver); ok {
		eo.ObserveEvent(kind, e.Stats())
	}
}
