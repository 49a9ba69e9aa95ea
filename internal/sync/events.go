// Package sync keeps the SQLite mirror consistent with a watched Eagle
// library: a debounced filesystem watcher feeds a durable pending queue,
// and a single-flight orchestrator reconciles folders and images.
package sync

import (
	gosync "sync"

	"github.com/google/uuid"
)

// Stream names the two progress channels consumers can subscribe to.
type Stream string

const (
	// StreamWatch carries watcher/flush progress.
	StreamWatch Stream = "watch"
	// StreamSync carries sync-pass progress.
	StreamSync Stream = "sync"
)

// Event statuses.
const (
	StatusStart     = "start"
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCompleted = "completed"
)

// Event types on StreamSync.
const (
	TypeFolder = "folder"
	TypeImage  = "image"
)

// Event is one progress notification. Count is a running counter within the
// current batch; consumers must treat "completed" as the authoritative
// signal and tolerate out-of-order "ok" events.
type Event struct {
	Status  string `json:"status"`
	Type    string `json:"type,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// PathChange is the Data payload of watch events.
type PathChange struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// FolderRef is the Data payload of folder sync events.
type FolderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const subscriberBuffer = 64

// Hub fans progress events out to any number of subscribers. A slow
// subscriber loses events rather than blocking the producers.
type Hub struct {
	mu   gosync.RWMutex
	subs map[Stream]map[string]chan Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[Stream]map[string]chan Event)}
}

// Subscribe registers a consumer on one stream. The returned cancel func
// removes the subscription and closes the channel.
func (h *Hub) Subscribe(stream Stream) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	id := uuid.New().String()

	h.mu.Lock()
	if h.subs[stream] == nil {
		h.subs[stream] = make(map[string]chan Event)
	}
	h.subs[stream][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if sub, ok := h.subs[stream][id]; ok {
			delete(h.subs[stream], id)
			close(sub)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of a stream without blocking.
func (h *Hub) Publish(stream Stream, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[stream] {
		select {
		case ch <- ev:
		default:
			// subscriber buffer full, drop
		}
	}
}
