// Package events provides the in-process event bus the engine publishes
// progress on: rounds, tool calls, background completions, compactions,
// teammate lifecycle. Subscribers observe; nothing in the loop depends on
// them, so a slow subscriber never stalls a run.
package events

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Type distinguishes event kinds.
type Type string

const (
	TypeRoundStarted    Type = "round.started"
	TypeToolCall        Type = "tool.call"
	TypeToolResult      Type = "tool.result"
	TypeAssistantReply  Type = "assistant.reply"
	TypeCompaction      Type = "context.compacted"
	TypeJobFinished     Type = "background.finished"
	TypeTeammateSpawned Type = "teammate.spawned"
	TypeTeammateDone    Type = "teammate.done"
)

// Event is one bus record. Payload keys are set by the constructors in
// events.go.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Source    string         `json:"source"` // agent identity or component name
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

var eventSeq uint64

// New creates an event stamped with a sequential id and the current time.
func New(typ Type, source string, payload map[string]any) Event {
	return Event{
		ID:        newEventID(),
		Type:      typ,
		Source:    source,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

func newEventID() string {
	seq := atomic.AddUint64(&eventSeq, 1)
	return "e-" + strconv.FormatUint(seq, 10)
}

// Subscriber receives events. Handlers run on their own goroutine per
// event; they must be safe for concurrent invocation.
type Subscriber func(Event)

type subscription struct {
	types   []Type
	handler Subscriber
}

// Bus fans events out to subscribers and retains a bounded history.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscription
	nextID  int
	ch      chan Event
	history *ring
	closed  bool
	done    chan struct{}
}

// NewBus creates a bus retaining the last bufferSize events. Publishing
// never blocks: when the buffer is full the event is dropped.
func NewBus(bufferSize int) *Bus {
	b := &Bus{
		subs:    make(map[int]*subscription),
		ch:      make(chan Event, bufferSize),
		history: newRing(bufferSize),
		done:    make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	for {
		select {
		case ev := <-b.ch:
			b.history.add(ev)
			b.mu.RLock()
			for _, sub := range b.subs {
				if sub.wants(ev.Type) {
					go sub.handler(ev)
				}
			}
			b.mu.RUnlock()
		case <-b.done:
			return
		}
	}
}

func (s *subscription) wants(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, want := range s.types {
		if want == t {
			return true
		}
	}
	return false
}

// Publish queues an event. Closed or full buses drop it silently.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}
	select {
	case b.ch <- ev:
	default:
	}
}

// Subscribe registers a handler for the given types, or all types when none
// are given. The returned function unsubscribes.
func (b *Bus) Subscribe(handler Subscriber, types ...Type) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{types: types, handler: handler}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// History returns up to limit most recent events in publish order.
func (b *Bus) History(limit int) []Event {
	return b.history.get(limit)
}

// Close stops dispatch. Publishes after Close are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

// ring is a fixed-size circular event buffer.
type ring struct {
	mu    sync.RWMutex
	buf   []Event
	pos   int
	count int
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 1
	}
	return &ring{buf: make([]Event, size)}
}

func (r *ring) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.pos] = ev
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *ring) get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Event, n)
	start := (r.pos - n + len(r.buf)) % len(r.buf)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
