package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appconfig "github.com/epw80/document-tracking-platform/pkg/config"
	"github.com/epw80/document-tracking-platform/pkg/storage"
	"github.com/spf13/cobra"
)

var reconcileDate string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Report list entries whose primary record is missing",
	Long: "Scan every list shard of one UTC date and report orphaned entries: " +
		"list pointers whose primary document record does not exist. The dual " +
		"write at intake is not transactional, so a crash can leave either side " +
		"without the other. Report-only; nothing is deleted.",
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileDate, "date", "", "UTC date to scan, YYYY-MM-DD (required)")
	_ = reconcileCmd.MarkFlagRequired("date")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := newLogger()

	date, err := time.Parse("2006-01-02", reconcileDate)
	if err != nil {
		return fmt.Errorf("invalid --date %q: %w", reconcileDate, err)
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	repo, err := storage.NewDynamoDBRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	var scanned, orphans int
	for shard := 0; shard < cfg.ListShardCount; shard++ {
		var cursor map[string]string
		for {
			page, err := repo.QueryListShard(ctx, "", date, shard, cursor)
			if err != nil {
				return fmt.Errorf("shard %d: %w", shard, err)
			}

			for _, entry := range page.Entries {
				scanned++
				_, err := repo.GetDocument(ctx, entry.ObjectKey, entry.UserID)
				if errors.Is(err, storage.ErrNotFound) {
					orphans++
					logger.Warn("orphaned list entry",
						slog.String("objectKey", entry.ObjectKey),
						slog.String("userId", entry.UserID),
						slog.String("queuedTime", entry.QueuedTime),
						slog.Int("shard", shard))
					continue
				}
				if err != nil {
					return fmt.Errorf("resolving %s: %w", entry.ObjectKey, err)
				}
			}

			if page.Cursor == nil {
				break
			}
			cursor = page.Cursor
		}
	}

	logger.Info("reconcile sweep complete",
		slog.String("date", reconcileDate),
		slog.Int("scanned", scanned),
		slog.Int("orphans", orphans))
	return nil
}
