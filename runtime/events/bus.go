// Package events carries live-session observations from the runtime to
// listeners such as the Prometheus metrics listener.
package events

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueSize bounds the number of undelivered events.
const DefaultQueueSize = 1024

// Listener handles one event.
type Listener func(*Event)

// EventBus delivers events to listeners on a single worker goroutine, in
// publish order. Publishing never blocks: when the queue is full the event is
// dropped and counted.
type EventBus struct {
	mu              sync.RWMutex
	listeners       map[EventType][]Listener
	globalListeners []Listener

	queue   chan *Event
	done    chan struct{}
	closed  bool
	dropped atomic.Uint64
}

// NewEventBus creates a bus with DefaultQueueSize and starts its worker.
func NewEventBus() *EventBus {
	return NewEventBusWithSize(DefaultQueueSize)
}

// NewEventBusWithSize creates a bus with a custom queue size.
func NewEventBusWithSize(size int) *EventBus {
	if size <= 0 {
		size = DefaultQueueSize
	}
	eb := &EventBus{
		listeners: make(map[EventType][]Listener),
		queue:     make(chan *Event, size),
		done:      make(chan struct{}),
	}
	go eb.run()
	return eb
}

// Subscribe registers a listener for one event type.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners[eventType] = append(eb.listeners[eventType], listener)
}

// SubscribeAll registers a listener for every event type.
func (eb *EventBus) SubscribeAll(listener Listener) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.globalListeners = append(eb.globalListeners, listener)
}

// Publish enqueues event for delivery. It is a no-op on a nil or closed bus.
func (eb *EventBus) Publish(event *Event) {
	if eb == nil || event == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}
	select {
	case eb.queue <- event:
	default:
		eb.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (eb *EventBus) Dropped() uint64 {
	return eb.dropped.Load()
}

// Close stops accepting events, delivers what is queued, and waits for the
// worker to exit. It is safe to call more than once.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		<-eb.done
		return
	}
	eb.closed = true
	close(eb.queue)
	eb.mu.Unlock()
	<-eb.done
}

// Clear removes all listeners.
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]Listener)
	eb.globalListeners = nil
}

func (eb *EventBus) run() {
	defer close(eb.done)
	for event := range eb.queue {
		eb.mu.RLock()
		specific := append([]Listener(nil), eb.listeners[event.Type]...)
		global := append([]Listener(nil), eb.globalListeners...)
		eb.mu.RUnlock()

		for _, l := range specific {
			safeInvoke(l, event)
		}
		for _, l := range global {
			safeInvoke(l, event)
		}
	}
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
