package tabs

import "time"

// Outcome classifies how a tab-creation event was handled.
type Outcome string

const (
	OutcomeRestore          Outcome = "restore"
	OutcomePlaceholder      Outcome = "placeholder"
	OutcomeOpenedFromActive Outcome = "opened_from_active"
	OutcomeAmbient          Outcome = "ambient"
	OutcomeSkippedSelf      Outcome = "skipped_self"
	OutcomeLostRace         Outcome = "lost_race"
	OutcomeNoActiveTab      Outcome = "no_active_tab"
)

// Decision is the terminal result of one tab-creation event.
type Decision struct {
	ID       string    `json:"id"`
	Outcome  Outcome   `json:"outcome"`
	TabID    TabID     `json:"tab_id"`
	WindowID WindowID  `json:"window_id"`
	URL      string    `json:"url,omitempty"`
	Moved    bool      `json:"moved"`
	Index    int       `json:"index,omitempty"`
	At       time.Time `json:"at"`
}

// EventKind names a host lifecycle event.
type EventKind string

const (
	EventPrimed    EventKind = "primed"
	EventActivated EventKind = "activated"
	EventUpdated   EventKind = "updated"
	EventRemoved   EventKind = "removed"
	EventCreated   EventKind = "created"
)

// Stats are the sizes of the engine's state after an event.
type Stats struct {
	Windows int `json:"windows"`
	Cached  int `json:"cached"`
	Closed  int `json:"closed"`
}

// Observer receives every decision. Observers must not block and never
// influence placement.
type Observer interface {
	ObserveDecision(Decision)
}

// EventObserver is optionally implemented by observers that also want to
// see every handled event.
type EventObserver interface {
	ObserveEvent(EventKind, Stats)
}

// Observers fans out to several observers.
type Observers []Observer

func (obs Observers) ObserveDecision(d Decision) {
	for _, o := range obs {
		if o != nil {
			o.ObserveDecision(d)
		}
	}
}

func (obs Observers) ObserveEvent(kind EventKind, st Stats) {
	for _, o := range obs {
		if eo, ok := o.(EventObserver); ok {
			eo.ObserveEvent(kind, st)
		}
	}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Decision)

func (f ObserverFunc) ObserveDecision(d Decision) { f(d) }
