// Package lifecycle is the façade other subsystems call to track documents:
// intake at upload time, advance at workflow completion, fetch and list on
// the read side.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/epw80/document-tracking-platform/pkg/document"
	"github.com/epw80/document-tracking-platform/pkg/identity"
	"github.com/epw80/document-tracking-platform/pkg/keys"
	"github.com/epw80/document-tracking-platform/pkg/notify"
	"github.com/epw80/document-tracking-platform/pkg/storage"
)

// Notifier publishes lifecycle events to subscribed clients
type Notifier interface {
	Publish(notify.Event)
}

// nopNotifier drops events; used when no hub is wired
type nopNotifier struct{}

func (nopNotifier) Publish(notify.Event) {}

// Service composes identity resolution, key derivation, the record store
// and the list index into the document tracking API.
type Service struct {
	repo          storage.TrackingRepository
	notifier      Notifier
	shardCount    int
	retentionDays int
	logger        *slog.Logger
}

// NewService creates a lifecycle service. notifier may be nil.
func NewService(repo storage.TrackingRepository, notifier Notifier, shardCount, retentionDays int, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if shardCount < 1 {
		shardCount = keys.DefaultShardCount
	}
	return &Service{
		repo:          repo,
		notifier:      notifier,
		shardCount:    shardCount,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Intake records a newly uploaded document: resolves the owner from claims,
// writes the primary record and appends the list-index entry. The two
// writes are not transactional; when only the list write fails the primary
// record stands and a *PartialIntakeError is returned alongside the
// document. Absent identity is not rejected: the record falls back to
// legacy, unscoped keying and loses per-user isolation.
func (s *Service) Intake(ctx context.Context, objectKey, queuedTime string, claims identity.Claims, expiresAfter int64) (*document.Document, error) {
	if objectKey == "" {
		return nil, &ValidationError{Field: "objectKey", Reason: "must not be empty"}
	}
	if queuedTime == "" {
		return nil, &ValidationError{Field: "queuedTime", Reason: "must not be empty"}
	}
	queued, err := time.Parse(time.RFC3339, queuedTime)
	if err != nil {
		return nil, &ValidationError{Field: "queuedTime", Reason: "must be an RFC3339 timestamp"}
	}

	owner := identity.Resolve(claims, s.logger)
	ownerID, scoped := owner.ID()
	if !scoped {
		s.logger.Warn("intake without identity, using legacy unscoped key",
			slog.String("objectKey", objectKey))
	}

	doc := document.New(objectKey, ownerID, queuedTime)
	if expiresAfter > 0 {
		doc.ExpiresAfter = expiresAfter
	} else if s.retentionDays > 0 {
		doc.ExpiresAfter = queued.AddDate(0, 0, s.retentionDays).Unix()
	}
	if err := doc.Validate(); err != nil {
		return nil, &ValidationError{Field: "document", Reason: err.Error()}
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	entry := &document.ListEntry{
		ObjectKey:    doc.ObjectKey,
		UserID:       doc.UserID,
		QueuedTime:   doc.QueuedTime,
		ExpiresAfter: doc.ExpiresAfter,
	}
	if err := s.repo.AppendListEntry(ctx, entry); err != nil {
		s.logger.Error("list entry write failed after record create",
			slog.String("objectKey", objectKey),
			slog.String("userId", ownerID),
			slog.String("error", err.Error()))
		return doc, &PartialIntakeError{Doc: doc, Err: err}
	}

	s.logger.Info("document intake complete",
		slog.String("objectKey", objectKey),
		slog.String("userId", ownerID),
		slog.String("queuedTime", queuedTime))

	s.notifier.Publish(notify.NewEvent(notify.EventQueued, doc))
	return doc, nil
}

// Advance loads the record at its derived key, applies a forward-only
// status transition with optional completion metadata, and writes it back.
// The owner must be the identity propagated from intake: omitting it for a
// scoped record derives a different key and yields storage.ErrNotFound.
func (s *Service) Advance(ctx context.Context, objectKey string, owner identity.Owner, next document.Status, metadata map[string]string) (*document.Document, error) {
	ownerID, _ := owner.ID()
	doc, err := s.repo.GetDocument(ctx, objectKey, ownerID)
	if err != nil {
		return nil, err
	}

	if err := doc.Advance(next, metadata); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document advanced",
		slog.String("objectKey", objectKey),
		slog.String("userId", ownerID),
		slog.String("status", string(next)))

	s.notifier.Publish(notify.NewEvent(notify.EventStatus, doc))
	return doc, nil
}

// Fetch returns the record at its derived key
func (s *Service) Fetch(ctx context.Context, objectKey string, owner identity.Owner) (*document.Document, error) {
	ownerID, _ := owner.ID()
	return s.repo.GetDocument(ctx, objectKey, ownerID)
}

// List enumerates one owner's list-index entries across the given UTC date
// range, inclusive. Each shard yields an already time-ordered sequence; the
// per-shard sequences are merged here because the store does not merge
// across partitions. An anonymous caller sees only legacy ownerless
// entries, never scoped tenants' entries.
func (s *Service) List(ctx context.Context, owner identity.Owner, start, end time.Time) ([]*document.ListEntry, error) {
	if end.Before(start) {
		return nil, &ValidationError{Field: "dateRange", Reason: "end date before start date"}
	}
	ownerID, scoped := owner.ID()

	var merged []*document.ListEntry
	for date := start.UTC().Truncate(24 * time.Hour); !date.After(end.UTC()); date = date.AddDate(0, 0, 1) {
		shards := make([][]*document.ListEntry, 0, s.shardCount)
		for shard := 0; shard < s.shardCount; shard++ {
			entries, err := s.drainShard(ctx, ownerID, date, shard)
			if err != nil {
				return nil, err
			}
			if !scoped {
				entries = legacyOnly(entries)
			}
			if len(entries) > 0 {
				shards = append(shards, entries)
			}
		}
		merged = append(merged, mergeShards(shards)...)
	}

	s.logger.Debug("listed documents",
		slog.String("userId", ownerID),
		slog.Int("count", len(merged)))
	return merged, nil
}

// drainShard pages through one shard partition until exhausted
func (s *Service) drainShard(ctx context.Context, ownerID string, date time.Time, shard int) ([]*document.ListEntry, error) {
	var entries []*document.ListEntry
	var cursor map[string]string
	for {
		page, err := s.repo.QueryListShard(ctx, ownerID, date, shard, cursor)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.Entries...)
		if page.Cursor == nil {
			return entries, nil
		}
		cursor = page.Cursor
	}
}

// mergeShards k-way merges per-shard sequences that are each ordered by
// (QueuedTime, ObjectKey) into one time-ordered sequence.
func mergeShards(shards [][]*document.ListEntry) []*document.ListEntry {
	total := 0
	for _, s := range shards {
		total += len(s)
	}
	merged := make([]*document.ListEntry, 0, total)

	heads := make([]int, len(shards))
	for len(merged) < total {
		min := -1
		for i, s := range shards {
			if heads[i] >= len(s) {
				continue
			}
			if min == -1 || entryLess(s[heads[i]], shards[min][heads[min]]) {
				min = i
			}
		}
		merged = append(merged, shards[min][heads[min]])
		heads[min]++
	}
	return merged
}

// legacyOnly keeps entries with no owner. The shard query filters
// server-side only when an owner id is present, so an anonymous listing
// would otherwise surface every tenant's entries.
func legacyOnly(entries []*document.ListEntry) []*document.ListEntry {
	kept := entries[:0]
	for _, e := range entries {
		if e.UserID == "" {
			kept = append(kept, e)
		}
	}
	return kept
}

// entryLess orders entries by queued time, tie-broken by object key
func entryLess(a, b *document.ListEntry) bool {
	if a.QueuedTime != b.QueuedTime {
		return a.QueuedTime < b.QueuedTime
	}
	return a.ObjectKey < b.ObjectKey
}
