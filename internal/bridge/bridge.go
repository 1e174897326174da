package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"

	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

const DefaultTimeout = 2 * time.Second

var noDeadline time.Time

// Events receives decoded extension events. Calls arrive from the session's
// read goroutine in wire order and must not block.
type Events interface {
	SessionStarted(sessionID string)
	SessionEnded(sessionID string)
	TabActivated(w tabs.WindowID, id tabs.TabID)
	TabUpdated(id tabs.TabID, status string, tab tabs.Tab)
	TabRemoved(id tabs.TabID, isWindowClosing bool)
	TabCreated(tab tabs.Tab)
}

// Recorder receives bridge telemetry. All methods must be cheap.
type Recorder interface {
	SessionOpened()
	SessionClosed()
	CallDone(method, code string, elapsed time.Duration)
	EventReceived(method string)
}

type Options struct {
	// Timeout bounds every command round trip. Zero means DefaultTimeout.
	Timeout  time.Duration
	Events   Events
	Recorder Recorder
}

// Bridge accepts the companion extension's websocket and exposes it as a
// tabs.Host. Only one extension session is live at a time; a new connection
// replaces the previous one. While no session is live every host call
// reports absent.
type Bridge struct {
	timeout  time.Duration
	events   Events
	recorder Recorder

	mu   sync.Mutex
	sess *session
}

var _ tabs.Host = (*Bridge)(nil)

func New(opts Options) *Bridge {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{timeout: timeout, events: opts.Events, recorder: opts.Recorder}
}

// SetEvents installs the event sink. It must be called before the first
// session is served.
func (b *Bridge) SetEvents(ev Events) { b.events = ev }

// ServeHTTP upgrades the request and serves the session until it ends.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		slog.Warn("bridge upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	b.Serve(conn)
}

// Serve runs an extension session over an already upgraded connection and
// blocks until it ends.
func (b *Bridge) Serve(conn net.Conn) {
	s := newSession(uuid.NewString(), conn)

	b.mu.Lock()
	prev := b.sess
	b.sess = s
	b.mu.Unlock()
	if prev != nil {
		slog.Info("bridge session replaced", "old_session_id", prev.id, "session_id", s.id)
		prev.close()
	}

	slog.Info("bridge session started", "session_id", s.id, "remote_addr", s.remote)
	if b.recorder != nil {
		b.recorder.SessionOpened()
	}
	if b.events != nil {
		b.events.SessionStarted(s.id)
	}

	s.readLoop(func(method string, params json.RawMessage) {
		b.dispatch(s, method, params)
	})

	b.mu.Lock()
	current := b.sess == s
	if current {
		b.sess = nil
	}
	b.mu.Unlock()

	slog.Info("bridge session ended", "session_id", s.id)
	if b.recorder != nil {
		b.recorder.SessionClosed()
	}
	if current && b.events != nil {
		b.events.SessionEnded(s.id)
	}
}

func (b *Bridge) dispatch(s *session, method string, params json.RawMessage) {
	if b.recorder != nil {
		b.recorder.EventReceived(method)
	}

	switch method {
	case EventHello:
		var p helloParams
		if decode(s, method, params, &p) {
			s.hello.Store(&p)
			slog.Info("bridge extension identified", "session_id", s.id, "extension_id", p.ExtensionID, "version", p.Version)
		}
		return
	case EventPing:
		return
	}

	if b.events == nil {
		return
	}
	switch method {
	case EventActivated:
		var p activatedParams
		if decode(s, method, params, &p) {
			b.events.TabActivated(p.WindowID, p.TabID)
		}
	case EventUpdated:
		var p updatedParams
		if decode(s, method, params, &p) {
			if p.Tab.ID == 0 {
				p.Tab.ID = p.TabID
			}
			b.events.TabUpdated(p.TabID, p.ChangeInfo.Status, p.Tab)
		}
	case EventRemoved:
		var p removedParams
		if decode(s, method, params, &p) {
			b.events.TabRemoved(p.TabID, p.RemoveInfo.IsWindowClosing)
		}
	case EventCreated:
		var p createdParams
		if decode(s, method, params, &p) {
			b.events.TabCreated(p.Tab)
		}
	default:
		slog.Debug("bridge ignored unknown event", "session_id", s.id, "method", method)
	}
}

func decode(s *session, method string, params json.RawMessage, v any) bool {
	if err := json.Unmarshal(params, v); err != nil {
		slog.Debug("bridge dropped malformed event", "session_id", s.id, "method", method, "error", err)
		return false
	}
	return true
}

func (b *Bridge) current() *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sess
}

// Status reports the live session, if any.
func (b *Bridge) Status() Status {
	s := b.current()
	if s == nil {
		return Status{}
	}
	st := Status{Connected: true, SessionID: s.id, RemoteAddr: s.remote}
	if h := s.hello.Load(); h != nil {
		st.ExtensionID = h.ExtensionID
		st.Version = h.Version
	}
	return st
}

// Close ends the live session, if any.
func (b *Bridge) Close() {
	if s := b.current(); s != nil {
		s.close()
	}
}

// Call sends a command to the live session and returns its raw result.
func (b *Bridge) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s := b.current()
	if s == nil {
		return nil, newError(CodeBridgeUnavailable, "no extension connected", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.call(ctx, method, params)
	if b.recorder != nil {
		b.recorder.CallDone(method, errorCode(err), time.Since(start))
	}
	return raw, err
}

func errorCode(err error) string {
	if err == nil {
		return "ok"
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return "error"
}

// callInto runs Call and decodes the result into out. Failures are logged at
// debug level; races with tab teardown are routine.
func (b *Bridge) callInto(ctx context.Context, method string, params, out any) bool {
	raw, err := b.Call(ctx, method, params)
	if err != nil {
		slog.Debug("bridge call failed", "method", method, "error", err)
		return false
	}
	if out == nil {
		return true
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Debug("bridge result malformed", "method", method, "error", err)
		return false
	}
	return true
}

func (b *Bridge) QueryTabs(ctx context.Context) ([]tabs.Tab, bool) {
	var out []tabs.Tab
	if !b.callInto(ctx, MethodQuery, queryParams{}, &out) {
		return nil, false
	}
	return out, true
}

func (b *Bridge) GetTab(ctx context.Context, id tabs.TabID) (tabs.Tab, bool) {
	var out tabs.Tab
	if !b.callInto(ctx, MethodGet, getParams{TabID: id}, &out) {
		return tabs.Tab{}, false
	}
	return out, out.ID != 0
}

func (b *Bridge) ActiveTab(ctx context.Context, w tabs.WindowID) (tabs.Tab, bool) {
	var out []tabs.Tab
	if !b.callInto(ctx, MethodQuery, queryParams{Active: true, WindowID: w}, &out) {
		return tabs.Tab{}, false
	}
	for _, t := range out {
		if t.WindowID == w {
			return t, true
		}
	}
	return tabs.Tab{}, false
}

func (b *Bridge) MoveTab(ctx context.Context, id tabs.TabID, index int) {
	b.callInto(ctx, MethodMove, moveParams{TabID: id, Index: index}, nil)
}
