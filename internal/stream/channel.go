// Package stream implements the ordered event channel that bridges a
// background generation job to a long-lived client connection, plus the
// progress sink abstraction the pipeline reports through.
package stream

import (
	"context"
	"sync"
)

// EventType identifies the kind of a stream event.
type EventType string

const (
	EventProgress    EventType = "progress"
	EventLog         EventType = "log"
	EventError       EventType = "error"
	EventFinalResult EventType = "final_result"
	EventEndStream   EventType = "end_stream"
)

// Event is a single typed message on the channel. Data must be
// JSON-serializable.
type Event struct {
	Type EventType
	Data interface{}
}

// Channel is a single-producer, single-consumer FIFO of events. Publish
// never blocks (the buffer is unbounded — payloads are small and bounded by
// job length), so a slow or absent consumer can never stall the producer.
// The consumer reads until it sees an end_stream event.
type Channel struct {
	mu     sync.Mutex
	events []Event
	// notify carries a wake-up signal to a blocked consumer. Capacity 1 is
	// enough: the consumer re-checks the buffer after every wake-up.
	notify chan struct{}
}

// NewChannel creates an empty event channel.
func NewChannel() *Channel {
	return &Channel{
		notify: make(chan struct{}, 1),
	}
}

// Publish appends an event to the channel. It never blocks.
func (ch *Channel) Publish(eventType EventType, data interface{}) {
	ch.mu.Lock()
	ch.events = append(ch.events, Event{Type: eventType, Data: data})
	ch.mu.Unlock()

	select {
	case ch.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available or ctx is done. Events are
// delivered strictly in publish order. After delivering an end_stream event
// the caller must stop consuming.
func (ch *Channel) Next(ctx context.Context) (Event, error) {
	for {
		ch.mu.Lock()
		if len(ch.events) > 0 {
			ev := ch.events[0]
			ch.events = ch.events[1:]
			ch.mu.Unlock()
			return ev, nil
		}
		ch.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-ch.notify:
		}
	}
}
