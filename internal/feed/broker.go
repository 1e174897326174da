package feed

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

const subscriberBufSize = 256

// SSE event names.
const (
	TypeDecision = "decision"
	TypeState    = "state"
)

// Event is a single message sent to stream subscribers.
type Event struct {
	Type    string
	Outcome tabs.Outcome
	Payload string
}

type stateEvent struct {
	Event tabs.EventKind `json:"event"`
	tabs.Stats
}

// Broker fans out engine decisions and state changes to subscribed clients.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
	dropped     atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
	}
}

var (
	_ tabs.Observer      = (*Broker)(nil)
	_ tabs.EventObserver = (*Broker)(nil)
)

// Subscribe registers a new client. The channel is buffered; slow consumers
// have events dropped.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers without blocking.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Broker) ObserveDecision(d tabs.Decision) {
	if b.ClientCount() == 0 {
		return
	}
	data, err := json.Marshal(d)
	if err != nil {
		slog.Warn("feed marshal decision failed", "error", err)
		return
	}
	b.Publish(Event{Type: TypeDecision, Outcome: d.Outcome, Payload: string(data)})
}

func (b *Broker) ObserveEvent(kind tabs.EventKind, st tabs.Stats) {
	if b.ClientCount() == 0 {
		return
	}
	data, err := json.Marshal(stateEvent{Event: kind, Stats: st})
	if err != nil {
		slog.Warn("feed marshal state failed", "error", err)
		return
	}
	b.Publish(Event{Type: TypeState, Payload: string(data)})
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}
