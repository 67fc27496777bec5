package remote

import (
	"log/slog"
	"sync"
)

// subscriberBuffer bounds how far a slow subscriber may lag before
// notifications are dropped. Dropped notifications are safe: every
// delivery carries the full document, so the next one supersedes it.
const subscriberBuffer = 16

// Hub fans document change notifications out to path subscribers. It never
// filters echoes: a subscriber receives notifications for its own writes too.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Document
	nextID int
	logger *slog.Logger
}

// NewHub creates an empty notification hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]map[int]chan Document),
		logger: logger,
	}
}

// Subscribe registers a listener for a path. The returned cancel func must
// be called exactly once; it closes the channel.
func (h *Hub) Subscribe(path string) (<-chan Document, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Document, subscriberBuffer)
	id := h.nextID
	h.nextID++
	if h.subs[path] == nil {
		h.subs[path] = make(map[int]chan Document)
	}
	h.subs[path][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[path][id]; ok {
			delete(h.subs[path], id)
			if len(h.subs[path]) == 0 {
				delete(h.subs, path)
			}
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a document snapshot to every subscriber of the path.
// A nil document signals deletion.
func (h *Hub) Publish(path string, doc Document) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[path] {
		select {
		case ch <- doc:
		default:
			h.logger.Warn("dropping notification for slow subscriber", "path", path)
		}
	}
}
