package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/epw80/document-tracking-platform/pkg/document"
	"github.com/epw80/document-tracking-platform/pkg/lifecycle"
	"github.com/epw80/document-tracking-platform/pkg/storage"
	"github.com/segmentio/kafka-go"
)

// flakyRepo fails document creation a fixed number of times before
// succeeding, simulating store throttling during intake
type flakyRepo struct {
	mu       sync.Mutex
	failures int
	attempts int
	docs     map[string]*document.Document
}

func newFlakyRepo(failures int) *flakyRepo {
	return &flakyRepo{failures: failures, docs: make(map[string]*document.Document)}
}

func (r *flakyRepo) CreateDocument(_ context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.attempts <= r.failures {
		return fmt.Errorf("create: %w", storage.ErrUnavailable)
	}
	copied := *doc
	r.docs[doc.ObjectKey] = &copied
	return nil
}

func (r *flakyRepo) UpdateDocument(context.Context, *document.Document) error { return nil }

func (r *flakyRepo) GetDocument(context.Context, string, string) (*document.Document, error) {
	return nil, storage.ErrNotFound
}

func (r *flakyRepo) AppendListEntry(context.Context, *document.ListEntry) error { return nil }

func (r *flakyRepo) QueryListShard(context.Context, string, time.Time, int, map[string]string) (*storage.ListPage, error) {
	return &storage.ListPage{}, nil
}

func (r *flakyRepo) HealthCheck(context.Context) error { return nil }
func (r *flakyRepo) Close() error                      { return nil }

func (r *flakyRepo) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func notificationMessage(t *testing.T, note Notification) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("failed to marshal notification: %v", err)
	}
	return kafka.Message{Value: payload, Offset: 7}
}

func TestProcessMessage_RetriesSameMessageUntilIntakeSucceeds(t *testing.T) {
	logger := testLogger()
	repo := newFlakyRepo(2)
	consumer := &Consumer{
		service:    lifecycle.NewService(repo, nil, 10, 0, logger),
		retryDelay: time.Millisecond,
		logger:     logger,
	}

	msg := notificationMessage(t, Notification{
		ObjectKey:  "users/u1-uuid/report.pdf",
		QueuedTime: "2025-10-17T10:00:00Z",
	})

	if err := consumer.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("processMessage returned error: %v", err)
	}
	if got := repo.Attempts(); got != 3 {
		t.Errorf("create attempts = %d, want 3 (two failures then success)", got)
	}
	if _, ok := repo.docs["users/u1-uuid/report.pdf"]; !ok {
		t.Error("document was never stored")
	}
}

func TestProcessMessage_StopsOnContextCancel(t *testing.T) {
	logger := testLogger()
	repo := newFlakyRepo(1 << 30) // never succeeds
	consumer := &Consumer{
		service:    lifecycle.NewService(repo, nil, 10, 0, logger),
		retryDelay: time.Millisecond,
		logger:     logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	msg := notificationMessage(t, Notification{
		ObjectKey:  "users/u1-uuid/report.pdf",
		QueuedTime: "2025-10-17T10:00:00Z",
	})

	err := consumer.processMessage(ctx, msg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("processMessage error = %v, want context.Canceled", err)
	}
}

func TestUserFromPath(t *testing.T) {
	tests := []struct {
		name      string
		objectKey string
		want      string
		wantErr   bool
	}{
		{"standard path", "users/u1-uuid/report.pdf", "u1-uuid", false},
		{"nested subdirectory", "users/u1-uuid/2025/q3/report.pdf", "u1-uuid", false},
		{"no users prefix", "uploads/report.pdf", "", true},
		{"missing user segment", "users//report.pdf", "", true},
		{"no file segment", "users/u1-uuid", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := userFromPath(tt.objectKey)
			if tt.wantErr {
				if err == nil {
					t.Errorf("userFromPath(%q) = %q, want error", tt.objectKey, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("userFromPath(%q) returned error: %v", tt.objectKey, err)
			}
			if got != tt.want {
				t.Errorf("userFromPath(%q) = %q, want %q", tt.objectKey, got, tt.want)
			}
		})
	}
}
