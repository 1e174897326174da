package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/tabrestore/internal/bridge"
	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

type stubHost struct {
	mu   sync.Mutex
	tabs []tabs.Tab
}

func (h *stubHost) QueryTabs(context.Context) ([]tabs.Tab, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]tabs.Tab(nil), h.tabs...), true
}

func (h *stubHost) GetTab(_ context.Context, id tabs.TabID) (tabs.Tab, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.tabs {
		if t.ID == id {
			return t, true
		}
	}
	return tabs.Tab{}, false
}

func (h *stubHost) ActiveTab(context.Context, tabs.WindowID) (tabs.Tab, bool) {
	return tabs.Tab{}, false
}

func (h *stubHost) MoveTab(context.Context, tabs.TabID, int) {}

type stubStatus struct{ st bridge.Status }

func (s stubStatus) Status() bridge.Status { return s.st }

func newTestService(t *testing.T, host tabs.Host) (*Service, *tabs.ManualClock) {
	t.Helper()
	clock := tabs.NewManualClock(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	loop := tabs.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	engine := tabs.NewEngine(host, tabs.Options{Clock: clock, Scheduler: loop})
	svc := New(ctx, loop, engine, clock, stubStatus{st: bridge.Status{Connected: true, SessionID: "s-1"}})
	return svc, clock
}

func TestSessionStartPrimesEngine(t *testing.T) {
	host := &stubHost{tabs: []tabs.Tab{
		{ID: 1, WindowID: 1, Index: 0, URL: "https://a.example", Active: true},
		{ID: 2, WindowID: 1, Index: 1, URL: "https://b.example"},
	}}
	svc, _ := newTestService(t, host)

	svc.SessionStarted("s-1")
	st, err := svc.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if st.Stats.Windows != 1 || st.Stats.Cached != 2 {
		t.Fatalf("State().Stats = %+v; want 1 window, 2 cached", st.Stats)
	}
	if got := st.Active[1]; got != 1 {
		t.Fatalf("State().Active[1] = %d; want 1", got)
	}
	if !st.Bridge.Connected || st.Bridge.SessionID != "s-1" {
		t.Fatalf("State().Bridge = %+v; want connected s-1", st.Bridge)
	}
}

func TestEventsFeedLedger(t *testing.T) {
	svc, clock := newTestService(t, &stubHost{})

	tab := tabs.Tab{ID: 7, WindowID: 3, Index: 2, URL: "https://a.example", Title: "A"}
	svc.TabUpdated(7, tabs.StatusComplete, tab)
	svc.TabRemoved(7, false)
	svc.TabActivated(3, 8)

	if _, err := svc.State(context.Background()); err != nil {
		t.Fatalf("State() error = %v", err)
	}
	clock.Advance(4 * time.Second)

	closed, err := svc.ListClosed(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListClosed() error = %v", err)
	}
	if len(closed) != 1 {
		t.Fatalf("ListClosed() len = %d; want 1", len(closed))
	}
	if closed[0].Index != 2 || closed[0].AgeMS != 4000 || !closed[0].Restorable {
		t.Fatalf("ListClosed()[0] = %+v; want index 2, age 4000ms, restorable", closed[0])
	}

	match, err := svc.MatchClosed(context.Background(), "https://a.example", 3)
	if err != nil {
		t.Fatalf("MatchClosed() error = %v", err)
	}
	if match.Title != "A" {
		t.Fatalf("MatchClosed().Title = %q; want %q", match.Title, "A")
	}

	clock.Advance(10 * time.Second)
	_, err = svc.MatchClosed(context.Background(), "https://a.example", 3)
	var coded *bridge.CodedError
	if !errors.As(err, &coded) || coded.Code != bridge.CodeNotFound {
		t.Fatalf("MatchClosed() after window error = %v; want NOT_FOUND", err)
	}
}

func TestListClosedLimit(t *testing.T) {
	svc, clock := newTestService(t, &stubHost{})
	for i, url := range []string{"https://1.example", "https://2.example", "https://3.example"} {
		id := tabs.TabID(i + 1)
		svc.TabUpdated(id, tabs.StatusComplete, tabs.Tab{ID: id, WindowID: 1, Index: i, URL: url})
		svc.TabRemoved(id, false)
		if _, err := svc.State(context.Background()); err != nil {
			t.Fatalf("State() error = %v", err)
		}
		clock.Advance(time.Second)
	}

	closed, err := svc.ListClosed(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListClosed() error = %v", err)
	}
	if len(closed) != 2 || closed[0].URL != "https://3.example" {
		t.Fatalf("ListClosed(2) = %+v; want newest two", closed)
	}
}

func TestValidation(t *testing.T) {
	svc, _ := newTestService(t, &stubHost{})

	tests := []struct {
		name string
		call func() error
		msg  string
	}{
		{
			name: "negative limit",
			call: func() error {
				_, err := svc.ListClosed(context.Background(), -1)
				return err
			},
			msg: "limit must be >= 0",
		},
		{
			name: "blank url",
			call: func() error {
				_, err := svc.MatchClosed(context.Background(), "  ", 1)
				return err
			},
			msg: "url is required",
		},
		{
			name: "zero window",
			call: func() error {
				_, err := svc.MatchClosed(context.Background(), "https://a.example", 0)
				return err
			},
			msg: "window_id must be > 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var got *bridge.CodedError
			if !errors.As(err, &got) {
				t.Fatalf("error type = %T; want *bridge.CodedError", err)
			}
			if got.Code != bridge.CodeValidation {
				t.Fatalf("code = %q; want %q", got.Code, bridge.CodeValidation)
			}
			if got.Message != tt.msg {
				t.Fatalf("message = %q; want %q", got.Message, tt.msg)
			}
		})
	}
}

func TestHealthReportsStoppedLoop(t *testing.T) {
	loop := tabs.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	svc := New(ctx, loop, tabs.NewEngine(&stubHost{}, tabs.Options{}), nil, nil)

	if h := svc.Health(context.Background()); !h.LoopAlive {
		t.Fatalf("Health().LoopAlive = false; want true")
	}
	cancel()
	<-loop.Done()
	if h := svc.Health(context.Background()); h.LoopAlive || h.Bridge.Connected {
		t.Fatalf("Health() = %+v; want dead loop, no bridge", h)
	}
	if _, err := svc.State(context.Background()); !errors.Is(err, tabs.ErrLoopStopped) {
		t.Fatalf("State() error = %v; want ErrLoopStopped", err)
	}
}
