package document

import (
	"errors"
	"fmt"
	"time"
)

// Status represents a document's processing state
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// statusRank orders statuses for forward-only transition checks. COMPLETED
// and FAILED are both terminal; neither succeeds the other.
var statusRank = map[Status]int{
	StatusQueued:    0,
	StatusRunning:   1,
	StatusCompleted: 2,
	StatusFailed:    2,
}

var (
	ErrEmptyObjectKey    = errors.New("object key cannot be empty")
	ErrEmptyQueuedTime   = errors.New("queued time cannot be empty")
	ErrInvalidQueuedTime = errors.New("queued time must be RFC3339")
	ErrInvalidStatus     = errors.New("invalid document status")
	ErrInvalidTransition = errors.New("status transition is not forward-only")
)

// Valid reports whether s is a known status value
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether next is a legal forward transition from s
func (s Status) CanAdvanceTo(next Status) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// Document represents one uploaded document's processing state. The record's
// partition key is always derived from ObjectKey and UserID, never carried
// on the struct.
type Document struct {
	ObjectKey      string            `json:"objectKey" dynamodbav:"ObjectKey"`
	UserID         string            `json:"userId,omitempty" dynamodbav:"UserId,omitempty"`
	Status         Status            `json:"status" dynamodbav:"ObjectStatus"`
	QueuedTime     string            `json:"queuedTime" dynamodbav:"QueuedTime"`
	ExpiresAfter   int64             `json:"expiresAfter,omitempty" dynamodbav:"ExpiresAfter,omitempty"`
	CompletionTime string            `json:"completionTime,omitempty" dynamodbav:"CompletionTime,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty" dynamodbav:"Metadata,omitempty"`
}

// ListEntry is the denormalized list-index pointer for one document. UserId
// drives the server-side owner filter; entries written without it are only
// visible to unscoped listings.
type ListEntry struct {
	ObjectKey    string `json:"objectKey" dynamodbav:"ObjectKey"`
	UserID       string `json:"userId,omitempty" dynamodbav:"UserId,omitempty"`
	QueuedTime   string `json:"queuedTime" dynamodbav:"QueuedTime"`
	ExpiresAfter int64  `json:"expiresAfter,omitempty" dynamodbav:"ExpiresAfter,omitempty"`
}

// New creates a queued document
func New(objectKey, userID, queuedTime string) *Document {
	return &Document{
		ObjectKey:  objectKey,
		UserID:     userID,
		Status:     StatusQueued,
		QueuedTime: queuedTime,
	}
}

// Validate checks that the document meets all requirements
func (d *Document) Validate() error {
	if d.ObjectKey == "" {
		return ErrEmptyObjectKey
	}
	if d.QueuedTime == "" {
		return ErrEmptyQueuedTime
	}
	if _, err := time.Parse(time.RFC3339, d.QueuedTime); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidQueuedTime, d.QueuedTime)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}
	return nil
}

// Advance applies a forward-only status transition and attaches completion
// metadata. The document is unchanged when the transition is rejected.
func (d *Document) Advance(next Status, metadata map[string]string) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if !d.Status.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, next)
	}

	d.Status = next
	if next == StatusCompleted || next == StatusFailed {
		d.CompletionTime = time.Now().UTC().Format(time.RFC3339)
	}
	if len(metadata) > 0 {
		if d.Metadata == nil {
			d.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			d.Metadata[k] = v
		}
	}
	return nil
}
