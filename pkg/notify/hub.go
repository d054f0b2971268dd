package notify

import (
	"log/slog"
	"sync"
)

// Subscriber receives serialized events for one owner's documents.
// This is an interface to avoid circular dependencies between the hub and
// the websocket client.
type Subscriber interface {
	Send([]byte)
	Close()
	ID() string
	// Owner returns the subscriber's resolved user identifier and whether
	// the subscription is user-scoped.
	Owner() (string, bool)
}

// Hub fans document lifecycle events out to subscribers. Delivery honors
// tenant isolation: a scoped subscriber only sees events for its own owner,
// and an unscoped subscriber only sees events for legacy ownerless records.
type Hub struct {
	// Registered subscribers
	subscribers map[Subscriber]bool

	// Inbound events from the lifecycle service
	events chan Event

	// Register requests
	register chan Subscriber

	// Unregister requests
	unregister chan Subscriber

	// Mutex for thread-safe subscriber map access
	mu sync.RWMutex

	// Logger
	logger *slog.Logger

	// Shutdown signal
	done chan struct{}
}

// New creates a new Hub instance
func New(logger *slog.Logger) *Hub {
	return &Hub{
		events:      make(chan Event, 256),
		register:    make(chan Subscriber),
		unregister:  make(chan Subscriber),
		subscribers: make(map[Subscriber]bool),
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main event loop
// This should be called in a goroutine
func (h *Hub) Run() {
	h.logger.Info("notification hub started")

	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub] = true
			h.mu.Unlock()

			owner, scoped := sub.Owner()
			h.logger.Info("subscriber registered",
				slog.String("subscriberID", sub.ID()),
				slog.String("owner", owner),
				slog.Bool("scoped", scoped),
				slog.Int("totalSubscribers", h.SubscriberCount()))

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				sub.Close()
			}
			h.mu.Unlock()

			h.logger.Info("subscriber unregistered",
				slog.String("subscriberID", sub.ID()),
				slog.Int("totalSubscribers", h.SubscriberCount()))

		case event := <-h.events:
			h.deliver(event)

		case <-h.done:
			h.logger.Info("notification hub shutting down")
			h.mu.Lock()
			for sub := range h.subscribers {
				sub.Close()
			}
			h.subscribers = make(map[Subscriber]bool)
			h.mu.Unlock()
			return
		}
	}
}

// deliver serializes the event once and sends it to every subscriber whose
// owner matches the event's owner.
func (h *Hub) deliver(event Event) {
	data, err := event.ToJSON()
	if err != nil {
		h.logger.Error("failed to marshal event",
			slog.String("objectKey", event.ObjectKey),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		owner, scoped := sub.Owner()
		if scoped && owner != event.UserID {
			continue
		}
		if !scoped && event.UserID != "" {
			continue
		}
		// Non-blocking send; slow subscribers drop events
		sub.Send(data)
	}
}

// Register adds a subscriber to the hub. After shutdown the run loop is
// gone, so the subscriber is closed instead of blocking on the channel.
func (h *Hub) Register(sub Subscriber) {
	select {
	case h.register <- sub:
	case <-h.done:
		sub.Close()
	}
}

// Unregister removes a subscriber from the hub. A no-op after shutdown;
// the run loop already closed every subscriber on its way out.
func (h *Hub) Unregister(sub Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues an event for delivery. Never blocks the caller: when the
// event buffer is full the event is dropped, the tracking table stays the
// source of truth.
func (h *Hub) Publish(event Event) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("event buffer full, dropping event",
			slog.String("objectKey", event.ObjectKey))
	}
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	close(h.done)
}
