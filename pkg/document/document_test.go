package document

import (
	"errors"
	"testing"
)

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{
			name: "valid queued document",
			doc: Document{
				ObjectKey:  "users/u1/report.pdf",
				UserID:     "u1-uuid",
				Status:     StatusQueued,
				QueuedTime: "2025-10-17T10:00:00Z",
			},
			wantErr: nil,
		},
		{
			name: "valid legacy document without owner",
			doc: Document{
				ObjectKey:  "report.pdf",
				Status:     StatusQueued,
				QueuedTime: "2025-10-17T10:00:00Z",
			},
			wantErr: nil,
		},
		{
			name: "empty object key",
			doc: Document{
				Status:     StatusQueued,
				QueuedTime: "2025-10-17T10:00:00Z",
			},
			wantErr: ErrEmptyObjectKey,
		},
		{
			name: "empty queued time",
			doc: Document{
				ObjectKey: "report.pdf",
				Status:    StatusQueued,
			},
			wantErr: ErrEmptyQueuedTime,
		},
		{
			name: "malformed queued time",
			doc: Document{
				ObjectKey:  "report.pdf",
				Status:     StatusQueued,
				QueuedTime: "yesterday",
			},
			wantErr: ErrInvalidQueuedTime,
		},
		{
			name: "unknown status",
			doc: Document{
				ObjectKey:  "report.pdf",
				Status:     Status("PENDING"),
				QueuedTime: "2025-10-17T10:00:00Z",
			},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusCompleted, true},
		{StatusQueued, StatusFailed, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusCompleted, StatusQueued, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusRunning, StatusQueued, false},
		{StatusQueued, StatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
				t.Errorf("CanAdvanceTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocument_Advance(t *testing.T) {
	doc := New("report.pdf", "u1", "2025-10-17T10:00:00Z")

	if err := doc.Advance(StatusRunning, nil); err != nil {
		t.Fatalf("QUEUED -> RUNNING failed: %v", err)
	}
	if err := doc.Advance(StatusCompleted, map[string]string{"pages": "12"}); err != nil {
		t.Fatalf("RUNNING -> COMPLETED failed: %v", err)
	}

	if doc.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", doc.Status, StatusCompleted)
	}
	if doc.CompletionTime == "" {
		t.Error("completion time should be set on terminal transition")
	}
	if doc.Metadata["pages"] != "12" {
		t.Errorf("metadata not attached: %v", doc.Metadata)
	}
}

func TestDocument_AdvanceBackwardRejected(t *testing.T) {
	doc := New("report.pdf", "u1", "2025-10-17T10:00:00Z")
	doc.Status = StatusCompleted

	err := doc.Advance(StatusQueued, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("COMPLETED -> QUEUED = %v, want ErrInvalidTransition", err)
	}
	if doc.Status != StatusCompleted {
		t.Errorf("rejected transition mutated status to %s", doc.Status)
	}
}

func TestDocument_AdvanceInvalidStatus(t *testing.T) {
	doc := New("report.pdf", "u1", "2025-10-17T10:00:00Z")
	if err := doc.Advance(Status("ARCHIVED"), nil); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Advance to unknown status = %v, want ErrInvalidStatus", err)
	}
}

func TestNew(t *testing.T) {
	doc := New("report.pdf", "u1", "2025-10-17T10:00:00Z")
	if doc.Status != StatusQueued {
		t.Errorf("new document status = %s, want %s", doc.Status, StatusQueued)
	}
	if doc.ObjectKey != "report.pdf" || doc.UserID != "u1" {
		t.Errorf("unexpected identity fields: %+v", doc)
	}
}
