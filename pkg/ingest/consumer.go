// Package ingest consumes upload notifications from Kafka and feeds them
// into document intake. Offsets are committed only after intake succeeds or
// is known to be unrecoverable for the message.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	appconfig "github.com/epw80/document-tracking-platform/pkg/config"
	"github.com/epw80/document-tracking-platform/pkg/identity"
	"github.com/epw80/document-tracking-platform/pkg/lifecycle"
	"github.com/epw80/document-tracking-platform/pkg/storage"
	"github.com/segmentio/kafka-go"
)

const retryDelay = 2 * time.Second

// Notification is the upload event payload on the queue
type Notification struct {
	Bucket     string `json:"bucket"`
	ObjectKey  string `json:"objectKey"`
	QueuedTime string `json:"queuedTime"`
	UserID     string `json:"userId,omitempty"`
}

// Consumer reads upload notifications and drives document intake
type Consumer struct {
	reader     *kafka.Reader
	service    *lifecycle.Service
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewConsumer creates a Kafka consumer for upload notifications
func NewConsumer(cfg *appconfig.Config, service *lifecycle.Service, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaTopic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:     reader,
		service:    service,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Run consumes until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("upload consumer started",
		slog.String("topic", c.reader.Config().Topic),
		slog.String("groupId", c.reader.Config().GroupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.processMessage(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

// processMessage retries intake on the same message until it succeeds or the
// context is cancelled. The reader's position advances on every fetch, so a
// later commit would mark all earlier offsets consumed; the consumer must
// not fetch past a message while a retryable failure stands.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	for {
		err := c.handle(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.Error("intake failed, retrying message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()))
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handle processes one notification. A nil return means the offset can be
// committed, including for malformed or duplicate messages that would never
// succeed on redelivery.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var note Notification
	if err := json.Unmarshal(msg.Value, &note); err != nil {
		c.logger.Error("dropping malformed notification",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()))
		return nil
	}

	claims := identity.Claims{Sub: note.UserID}
	if note.UserID == "" {
		// Upload paths shaped users/<uid>/... carry the owner in the path
		if uid, err := userFromPath(note.ObjectKey); err == nil {
			claims.Sub = uid
		} else {
			c.logger.Warn("no identity on notification",
				slog.String("objectKey", note.ObjectKey),
				slog.String("error", err.Error()))
		}
	}

	_, err := c.service.Intake(ctx, note.ObjectKey, note.QueuedTime, claims, 0)
	if err == nil {
		return nil
	}

	var verr *lifecycle.ValidationError
	if errors.As(err, &verr) {
		c.logger.Error("dropping invalid notification",
			slog.String("objectKey", note.ObjectKey),
			slog.String("error", verr.Error()))
		return nil
	}
	if errors.Is(err, storage.ErrAlreadyExists) {
		c.logger.Warn("dropping duplicate notification",
			slog.String("objectKey", note.ObjectKey))
		return nil
	}
	var perr *lifecycle.PartialIntakeError
	if errors.As(err, &perr) {
		// Degraded success: the record exists, the document is tracked.
		c.logger.Warn("intake degraded, list entry missing",
			slog.String("objectKey", note.ObjectKey),
			slog.String("error", perr.Error()))
		return nil
	}
	return err
}

// userFromPath extracts the owner from an object key shaped users/<uid>/...
func userFromPath(objectKey string) (string, error) {
	if !strings.HasPrefix(objectKey, "users/") {
		return "", fmt.Errorf("object key %q is not user-scoped", objectKey)
	}
	parts := strings.SplitN(objectKey, "/", 3)
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("object key %q has no user segment", objectKey)
	}
	return parts[1], nil
}

// Close shuts down the underlying reader
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("close reader: %w", err)
	}
	return nil
}
