package notify

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/epw80/document-tracking-platform/pkg/document"
)

// mockSubscriber implements the Subscriber interface for testing
type mockSubscriber struct {
	id      string
	ownerID string
	scoped  bool

	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

func (m *mockSubscriber) Send(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.messages = append(m.messages, data)
	}
}

func (m *mockSubscriber) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockSubscriber) ID() string {
	return m.id
}

func (m *mockSubscriber) Owner() (string, bool) {
	return m.ownerID, m.scoped
}

func (m *mockSubscriber) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *mockSubscriber) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newMockSubscriber(id, ownerID string, scoped bool) *mockSubscriber {
	return &mockSubscriber{id: id, ownerID: ownerID, scoped: scoped}
}

func newTestHub() *Hub {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
	return New(logger)
}

// waitFor polls until cond returns true or the deadline passes
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func queuedEvent(objectKey, userID string) Event {
	return NewEvent(EventQueued, &document.Document{
		ObjectKey: objectKey,
		UserID:    userID,
		Status:    document.StatusQueued,
	})
}

func TestHub_RegisterAndCount(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Shutdown()

	sub := newMockSubscriber("s1", "owner-a", true)
	hub.Register(sub)

	if !waitFor(t, func() bool { return hub.SubscriberCount() == 1 }) {
		t.Errorf("SubscriberCount = %d, want 1", hub.SubscriberCount())
	}
}

func TestHub_DeliversToMatchingOwner(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Shutdown()

	subA := newMockSubscriber("sA", "owner-a", true)
	subB := newMockSubscriber("sB", "owner-b", true)
	hub.Register(subA)
	hub.Register(subB)
	waitFor(t, func() bool { return hub.SubscriberCount() == 2 })

	hub.Publish(queuedEvent("report.pdf", "owner-a"))

	if !waitFor(t, func() bool { return subA.MessageCount() == 1 }) {
		t.Errorf("owner-a subscriber got %d events, want 1", subA.MessageCount())
	}
	// Owner B must never see A's event
	time.Sleep(50 * time.Millisecond)
	if subB.MessageCount() != 0 {
		t.Errorf("owner-b subscriber got %d events, want 0", subB.MessageCount())
	}
}

func TestHub_UnscopedSubscriberSeesOnlyLegacyEvents(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Shutdown()

	sub := newMockSubscriber("ops", "", false)
	hub.Register(sub)
	waitFor(t, func() bool { return hub.SubscriberCount() == 1 })

	hub.Publish(queuedEvent("scoped.pdf", "owner-a"))
	hub.Publish(queuedEvent("legacy.pdf", ""))

	if !waitFor(t, func() bool { return sub.MessageCount() == 1 }) {
		t.Fatalf("unscoped subscriber got %d events, want 1", sub.MessageCount())
	}
	time.Sleep(50 * time.Millisecond)
	if sub.MessageCount() != 1 {
		t.Errorf("unscoped subscriber got %d events, want exactly the legacy one", sub.MessageCount())
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Shutdown()

	sub := newMockSubscriber("s1", "owner-a", true)
	hub.Register(sub)
	waitFor(t, func() bool { return hub.SubscriberCount() == 1 })

	hub.Unregister(sub)
	if !waitFor(t, func() bool { return hub.SubscriberCount() == 0 }) {
		t.Errorf("SubscriberCount = %d, want 0", hub.SubscriberCount())
	}
	if !sub.IsClosed() {
		t.Error("unregistered subscriber should be closed")
	}
}

func TestHub_ShutdownClosesSubscribers(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	sub := newMockSubscriber("s1", "owner-a", true)
	hub.Register(sub)
	waitFor(t, func() bool { return hub.SubscriberCount() == 1 })

	hub.Shutdown()
	if !waitFor(t, func() bool { return sub.IsClosed() }) {
		t.Error("shutdown should close all subscribers")
	}
}

func TestHub_UnregisterAfterShutdownDoesNotBlock(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	sub := newMockSubscriber("s1", "owner-a", true)
	hub.Register(sub)
	waitFor(t, func() bool { return hub.SubscriberCount() == 1 })

	hub.Shutdown()
	waitFor(t, func() bool { return sub.IsClosed() })

	// A read pump tearing down after shutdown must not leak its goroutine
	returned := make(chan struct{})
	go func() {
		hub.Unregister(sub)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Unregister blocked after shutdown")
	}
}

func TestHub_RegisterAfterShutdownClosesSubscriber(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	hub.Shutdown()

	sub := newMockSubscriber("late", "owner-a", true)
	done := make(chan struct{})
	go func() {
		hub.Register(sub)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Register blocked after shutdown")
	}
	if !waitFor(t, func() bool { return sub.IsClosed() }) {
		t.Error("late subscriber should be closed immediately")
	}
}

func TestEvent_ToJSON(t *testing.T) {
	event := queuedEvent("report.pdf", "owner-a")
	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("ToJSON returned empty payload")
	}
}
