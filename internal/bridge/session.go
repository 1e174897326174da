package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gobwas/ws/wsutil"
)

// session is one live websocket connection to the extension. Commands are
// matched to responses by id; everything else read from the socket is an
// event and is handed to onEvent in arrival order.
type session struct {
	id     string
	conn   net.Conn
	remote string

	writeMu sync.Mutex
	seq     atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan message

	closeOnce sync.Once
	closed    chan struct{}

	hello atomic.Pointer[helloParams]
}

func newSession(id string, conn net.Conn) *session {
	s := &session{
		id:      id,
		conn:    conn,
		pending: make(map[int64]chan message),
		closed:  make(chan struct{}),
	}
	if addr := conn.RemoteAddr(); addr != nil {
		s.remote = addr.String()
	}
	return s
}

// readLoop blocks until the connection fails or is closed.
func (s *session) readLoop(onEvent func(method string, params json.RawMessage)) {
	defer s.close()
	for {
		data, err := wsutil.ReadClientText(s.conn)
		if err != nil {
			slog.Debug("bridge read loop exit", "session_id", s.id, "error", err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("bridge dropped malformed frame", "session_id", s.id, "error", err)
			continue
		}
		if msg.ID > 0 {
			s.pendingMu.Lock()
			ch, ok := s.pending[msg.ID]
			if ok {
				delete(s.pending, msg.ID)
			}
			s.pendingMu.Unlock()
			if ok {
				ch <- msg
			}
		} else if msg.Method != "" {
			onEvent(msg.Method, msg.Params)
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
		close(s.closed)
		s.closeAllPending()
	})
}

func (s *session) closeAllPending() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

func (s *session) deletePending(id int64) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// call sends a command and waits for the matching response.
func (s *session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	select {
	case <-s.closed:
		return nil, newError(CodeBridgeUnavailable, "extension session closed", nil)
	default:
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal %s: %w", method, err)
	}
	id := s.seq.Add(1)
	data, err := json.Marshal(message{ID: id, Method: method, Params: raw})
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal %s: %w", method, err)
	}

	ch := make(chan message, 1)
	s.pendingMu.Lock()
	s.pending[id] = ch
	s.pendingMu.Unlock()

	if err := s.write(ctx, data); err != nil {
		s.deletePending(id)
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, newError(CodeBridgeUnavailable, "extension session closed", nil)
		}
		if resp.Error != nil {
			return nil, newError(CodeBridgeRemote, method+": "+resp.Error.Message, nil)
		}
		return resp.Result, nil
	case <-ctx.Done():
		s.deletePending(id)
		return nil, newError(CodeBridgeTimeout, method+" timed out", ctx.Err())
	}
}

// write sends one text frame, bounded by ctx's deadline.
func (s *session) write(ctx context.Context, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(noDeadline)
	}
	if err := wsutil.WriteServerText(s.conn, data); err != nil {
		return newError(CodeBridgeUnavailable, "send failed", err)
	}
	return nil
}
