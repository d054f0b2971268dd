package storage

import (
	"context"
	"time"

	"github.com/epw80/document-tracking-platform/pkg/document"
)

// ListPage is one page of list-index entries from a single shard, in
// ascending sort-key order. Cursor is opaque; a non-nil Cursor means more
// entries remain in the shard.
type ListPage struct {
	Entries []*document.ListEntry
	Cursor  map[string]string
}

// TrackingRepository defines the interface for document tracking persistence.
// Implementations should be safe for concurrent use.
type TrackingRepository interface {
	// CreateDocument inserts a new document record at its derived key.
	// Returns ErrAlreadyExists if a record is already present at that key.
	CreateDocument(ctx context.Context, doc *document.Document) error

	// UpdateDocument rewrites the record at its derived key. The key is
	// derived from the document's ObjectKey and UserID exactly as at
	// creation; returns ErrNotFound when no record exists there.
	UpdateDocument(ctx context.Context, doc *document.Document) error

	// GetDocument looks up a record by derived key. ownerID must be the
	// identity the record was created under; passing the empty string looks
	// up the legacy, unscoped key.
	GetDocument(ctx context.Context, objectKey, ownerID string) (*document.Document, error)

	// AppendListEntry writes one list-index entry for the document.
	AppendListEntry(ctx context.Context, entry *document.ListEntry) error

	// QueryListShard returns one page of a single shard partition for the
	// given date, ordered by sort key ascending. A non-empty ownerID is
	// applied as a server-side equality filter so other users' entries never
	// leave the store. Pass the previous page's Cursor to continue.
	QueryListShard(ctx context.Context, ownerID string, date time.Time, shard int, cursor map[string]string) (*ListPage, error)

	// HealthCheck verifies the storage backend is accessible and operational.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the repository.
	Close() error
}
