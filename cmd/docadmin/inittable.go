package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	appconfig "github.com/epw80/document-tracking-platform/pkg/config"
	"github.com/epw80/document-tracking-platform/pkg/storage"
	"github.com/spf13/cobra"
)

var recreate bool

// tableWaitTimeout bounds the DescribeTable polling after create and delete.
// The waiter takes a time.Duration; a bare integer here would mean
// nanoseconds and expire before the first poll.
const tableWaitTimeout = 60 * time.Second

var initTableCmd = &cobra.Command{
	Use:   "init-table",
	Short: "Create the document tracking table",
	Long:  "Create the tracking table with its PK/SK schema and TTL on the expiry attribute. Use --recreate to drop an existing table first.",
	RunE:  runInitTable,
}

func init() {
	initTableCmd.Flags().BoolVar(&recreate, "recreate", false, "delete and recreate the table if it exists")
}

func runInitTable(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := newLogger()

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	client, err := storage.NewClient(ctx, cfg)
	if err != nil {
		return err
	}

	schema := storage.GetTableSchema(cfg.TrackingTable)

	// Check if table already exists
	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(schema.TableName),
	})
	if err == nil {
		if !recreate {
			logger.Info("table already exists, nothing to do",
				slog.String("table", schema.TableName))
			return nil
		}

		logger.Info("table already exists, deleting and recreating",
			slog.String("table", schema.TableName))

		_, err = client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(schema.TableName),
		})
		if err != nil {
			return fmt.Errorf("failed to delete existing table: %w", err)
		}

		waiter := dynamodb.NewTableNotExistsWaiter(client)
		err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(schema.TableName),
		}, tableWaitTimeout)
		if err != nil {
			return fmt.Errorf("failed waiting for table deletion: %w", err)
		}

		logger.Info("existing table deleted successfully")
	}

	logger.Info("creating DynamoDB table",
		slog.String("table", schema.TableName))

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(schema.TableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(schema.PartitionKey),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String(schema.SortKey),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(schema.PartitionKey),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String(schema.SortKey),
				KeyType:       types.KeyTypeRange,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(schema.TableName),
	}, tableWaitTimeout)
	if err != nil {
		return fmt.Errorf("failed waiting for table creation: %w", err)
	}

	// Store-level expiry for both record and list entries
	_, err = client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(schema.TableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(schema.TTLAttribute),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		logger.Warn("failed to enable TTL; local DynamoDB may not support it",
			slog.String("error", err.Error()))
	}

	logger.Info("table created",
		slog.String("table", schema.TableName),
		slog.String("ttl_attribute", schema.TTLAttribute))
	return nil
}
