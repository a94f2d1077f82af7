package app

import (
	"sync"
	"sync/atomic"
	"time"
)

// BusMessageType represents the type of event bus message.
type BusMessageType string

const (
	BusMessageJobSubmitted BusMessageType = "job_submitted"
	BusMessageJobProgress  BusMessageType = "job_progress"
	BusMessageJobCompleted BusMessageType = "job_completed"
	BusMessageJobFailed    BusMessageType = "job_failed"
	BusMessageCacheCleared BusMessageType = "cache_cleared"
	BusMessageMaintenance  BusMessageType = "maintenance"
)

// BusMessage is a message published to the EventBus.
type BusMessage struct {
	ID        uint64         `json:"id"`
	Type      BusMessageType `json:"type"`
	JobID     string         `json:"job_id,omitempty"`
	PostID    string         `json:"post_id,omitempty"`
	State     JobState       `json:"state,omitempty"`
	Progress  float64        `json:"progress,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

const subscriberBufferSize = 64

// EventBus is an in-memory pub/sub bus broadcasting job lifecycle and
// maintenance updates to SSE clients.
type EventBus struct {
	nextID      atomic.Uint64
	mu          sync.RWMutex
	subscribers map[chan BusMessage]struct{}
}

// NewEventBus creates a new EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[chan BusMessage]struct{}),
	}
}

// Subscribe returns a buffered channel that receives bus messages and an
// unsubscribe function. The caller must call unsubscribe when done.
func (b *EventBus) Subscribe() (<-chan BusMessage, func()) {
	ch := make(chan BusMessage, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		b.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish sends a message to all subscribers with a non-blocking send.
// Slow consumers that have full buffers will miss messages.
func (b *EventBus) Publish(msg BusMessage) {
	msg.ID = b.nextID.Add(1)
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message for slow consumer
		}
	}
}
