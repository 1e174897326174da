package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/tabrestore/internal/bridge"
	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

// StatusSource reports the extension session state.
type StatusSource interface {
	Status() bridge.Status
}

// Service owns the engine's event loop. Host events are posted onto the loop
// and read-side queries run on it through Do, so the engine is only ever
// touched from one goroutine.
type Service struct {
	ctx     context.Context
	loop    *tabs.Loop
	engine  *tabs.Engine
	clock   tabs.Clock
	status  StatusSource
	started time.Time
}

// New wires a service. ctx bounds every host call the engine makes.
func New(ctx context.Context, loop *tabs.Loop, engine *tabs.Engine, clock tabs.Clock, status StatusSource) *Service {
	if clock == nil {
		clock = tabs.SystemClock()
	}
	return &Service{ctx: ctx, loop: loop, engine: engine, clock: clock, status: status, started: clock.Now()}
}

var _ bridge.Events = (*Service)(nil)

func (s *Service) SessionStarted(string) {
	s.loop.Post(func() { s.engine.Prime(s.ctx) })
}

func (s *Service) SessionEnded(string) {}

func (s *Service) TabActivated(w tabs.WindowID, id tabs.TabID) {
	s.loop.Post(func() { s.engine.OnActivated(w, id) })
}

func (s *Service) TabUpdated(id tabs.TabID, status string, tab tabs.Tab) {
	s.loop.Post(func() { s.engine.OnUpdated(id, status, tab) })
}

func (s *Service) TabRemoved(id tabs.TabID, isWindowClosing bool) {
	s.loop.Post(func() { s.engine.OnRemoved(id, isWindowClosing) })
}

func (s *Service) TabCreated(tab tabs.Tab) {
	s.loop.Post(func() { s.engine.OnCreated(s.ctx, tab) })
}

// State is a point-in-time view of the engine.
type State struct {
	Stats  tabs.Stats                   `json:"stats"`
	Active map[tabs.WindowID]tabs.TabID `json:"active"`
	Cached []tabs.TabID                 `json:"cached"`
	Bridge bridge.Status                `json:"bridge"`
	Uptime string                       `json:"uptime"`
}

func (s *Service) State(ctx context.Context) (State, error) {
	var st State
	err := s.loop.Do(ctx, func() {
		st.Stats = s.engine.Stats()
		st.Active = s.engine.Tracker().All()
		st.Cached = s.engine.Cache().IDs()
	})
	if err != nil {
		return State{}, fmt.Errorf("service: state: %w", err)
	}
	st.Bridge = s.bridgeStatus()
	st.Uptime = s.clock.Now().Sub(s.started).Round(time.Second).String()
	return st, nil
}

// ClosedTab is a ledger record annotated with its age.
type ClosedTab struct {
	tabs.ClosedRecord
	AgeMS      int64 `json:"age_ms"`
	Restorable bool  `json:"restorable"`
}

// ListClosed returns the ledger newest first. limit <= 0 means all.
func (s *Service) ListClosed(ctx context.Context, limit int) ([]ClosedTab, error) {
	if limit < 0 {
		return nil, &bridge.CodedError{Code: bridge.CodeValidation, Message: "limit must be >= 0"}
	}
	var recs []tabs.ClosedRecord
	if err := s.loop.Do(ctx, func() { recs = s.engine.Ledger().Records() }); err != nil {
		return nil, fmt.Errorf("service: list closed: %w", err)
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	now := s.clock.Now()
	out := make([]ClosedTab, 0, len(recs))
	for _, r := range recs {
		out = append(out, s.annotate(r, now))
	}
	return out, nil
}

// MatchClosed reports the record a tab opening url in window w would be
// restored from right now. It does not consume the record.
func (s *Service) MatchClosed(ctx context.Context, url string, w tabs.WindowID) (ClosedTab, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return ClosedTab{}, &bridge.CodedError{Code: bridge.CodeValidation, Message: "url is required"}
	}
	if w <= 0 {
		return ClosedTab{}, &bridge.CodedError{Code: bridge.CodeValidation, Message: "window_id must be > 0"}
	}

	var (
		rec   tabs.ClosedRecord
		found bool
	)
	if err := s.loop.Do(ctx, func() {
		rec, found = s.engine.Ledger().FindMatch(url, w, tabs.RestoreMatchWindow)
	}); err != nil {
		return ClosedTab{}, fmt.Errorf("service: match closed: %w", err)
	}
	if !found {
		return ClosedTab{}, &bridge.CodedError{Code: bridge.CodeNotFound, Message: fmt.Sprintf("no restorable record for %s in window %d", url, w)}
	}
	return s.annotate(rec, s.clock.Now()), nil
}

func (s *Service) annotate(r tabs.ClosedRecord, now time.Time) ClosedTab {
	age := now.Sub(r.ClosedAt)
	return ClosedTab{ClosedRecord: r, AgeMS: age.Milliseconds(), Restorable: age < tabs.RestoreMatchWindow}
}

// Health reports whether the loop is responsive and an extension is attached.
type Health struct {
	LoopAlive bool          `json:"loop_alive"`
	Bridge    bridge.Status `json:"bridge"`
}

func (s *Service) Health(ctx context.Context) Health {
	return Health{
		LoopAlive: s.loop.Do(ctx, func() {}) == nil,
		Bridge:    s.bridgeStatus(),
	}
}

func (s *Service) bridgeStatus() bridge.Status {
	if s.status == nil {
		return bridge.Status{}
	}
	return s.status.Status()
}
