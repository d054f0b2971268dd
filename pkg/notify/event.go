package notify

import (
	"encoding/json"
	"time"

	"github.com/epw80/document-tracking-platform/pkg/document"
)

// EventType distinguishes lifecycle events on the feed
type EventType string

const (
	EventQueued EventType = "queued"
	EventStatus EventType = "status"
)

// Event is one document lifecycle change pushed to subscribers
type Event struct {
	Type      EventType       `json:"type"`
	ObjectKey string          `json:"objectKey"`
	UserID    string          `json:"userId,omitempty"`
	Status    document.Status `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an event from a document's current state
func NewEvent(t EventType, doc *document.Document) Event {
	return Event{
		Type:      t,
		ObjectKey: doc.ObjectKey,
		UserID:    doc.UserID,
		Status:    doc.Status,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
