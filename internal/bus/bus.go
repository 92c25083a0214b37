// Package bus carries change notifications between the persistence layer and
// sync gateways, standing in for the realtime channel that lets one client
// observe another client's writes.
package bus

import (
	"log"
	"sync"
	"time"

	"lifelock/internal/model"
)

// Op is the kind of change a notification describes.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// ChangeEvent identifies one remote write. Task is a best-effort payload and
// may be nil (deletes, or transports that only carry ids).
type ChangeEvent struct {
	EntityID  string
	Op        Op
	Task      *model.Task
	Origin    string // client id of the writer, lets a client skip its own echo
	Timestamp time.Time
}

// Bus is an in-process fan-out of change events. Slow subscribers do not
// block publishers: an event that does not fit a subscriber's buffer is
// dropped with a warning, on the theory that a poll refresh will catch up.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan ChangeEvent
	bufSize int
	closed  bool
}

// New creates a bus whose subscriber channels hold bufSize pending events.
func New(bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Bus{bufSize: bufSize}
}

// Subscribe registers a new listener and returns its receive channel.
func (b *Bus) Subscribe() <-chan ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan ChangeEvent, b.bufSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ev ChangeEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[warn] bus: subscriber buffer full, dropping %s %s", ev.Op, ev.EntityID)
		}
	}
}

// Close shuts every subscriber channel. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
