package events

import (
	"sync"
	"time"
)

// Event kinds published on the bus.
const (
	KindSignalFused      = "signal.fused"
	KindAlertTriggered   = "alert.triggered"
	KindAnalysisFinished = "analysis.finished"
)

// Event is one typed occurrence published by the orchestrator, rule engine,
// or analysis queue.
type Event struct {
	Kind    string      `json:"kind"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

// Bus fans events out to subscribers over bounded channels. Backpressure is
// drop-oldest per subscriber: a slow dashboard consumer loses history, it
// never blocks the pipeline.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	bufSize int
	closed  bool
}

// NewBus creates a bus; bufSize bounds each subscriber channel.
func NewBus(bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Bus{subs: make(map[int]chan Event), bufSize: bufSize}
}

// Publish delivers the event to every subscriber, dropping the oldest queued
// event for a subscriber whose buffer is full.
func (b *Bus) Publish(kind string, payload interface{}) {
	ev := Event{Kind: kind, At: time.Now(), Payload: payload}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Subscribe registers a new consumer. The returned cancel func must be called
// to release the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.bufSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
