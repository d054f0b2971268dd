package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	appconfig "github.com/epw80/document-tracking-platform/pkg/config"
	"github.com/epw80/document-tracking-platform/pkg/document"
	"github.com/epw80/document-tracking-platform/pkg/keys"
)

// DynamoDBRepository implements TrackingRepository using AWS DynamoDB
type DynamoDBRepository struct {
	client     *dynamodb.Client
	table      string
	shardCount int
	logger     *slog.Logger
}

// NewDynamoDBRepository creates a new DynamoDB-backed tracking repository
func NewDynamoDBRepository(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*DynamoDBRepository, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	repo := &DynamoDBRepository{
		client:     client,
		table:      cfg.TrackingTable,
		shardCount: cfg.ListShardCount,
		logger:     logger,
	}

	// Verify connection with health check
	if err := repo.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("DynamoDB health check failed: %w", err)
	}

	logger.Info("DynamoDB repository initialized",
		slog.String("table", cfg.TrackingTable),
		slog.String("region", cfg.DynamoDBRegion),
		slog.String("endpoint", cfg.DynamoDBEndpoint))

	return repo, nil
}

// NewClient builds a DynamoDB client from application config. A configured
// local endpoint uses static credentials; production uses the default
// credentials chain.
func NewClient(ctx context.Context, cfg *appconfig.Config) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDBEndpoint != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.DynamoDBRegion),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKey,
				cfg.AWSSecretKey,
				"",
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.DynamoDBRegion),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	}), nil
}

// CreateDocument inserts a new document record at its derived key
func (r *DynamoDBRepository) CreateDocument(ctx context.Context, doc *document.Document) error {
	pk, err := keys.RecordKey(doc.ObjectKey, doc.UserID)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	item[AttrPK] = &types.AttributeValueMemberS{Value: pk}
	item[AttrSK] = &types.AttributeValueMemberS{Value: keys.RecordSortKey}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		if conditionFailed(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, pk)
		}
		r.logger.Error("failed to create document record",
			slog.String("pk", pk),
			slog.String("error", err.Error()))
		return r.wrap("create document", err)
	}

	r.logger.Debug("document record created",
		slog.String("pk", pk),
		slog.String("objectKey", doc.ObjectKey))
	return nil
}

// UpdateDocument rewrites the record at its derived key
func (r *DynamoDBRepository) UpdateDocument(ctx context.Context, doc *document.Document) error {
	pk, err := keys.RecordKey(doc.ObjectKey, doc.UserID)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	item[AttrPK] = &types.AttributeValueMemberS{Value: pk}
	item[AttrSK] = &types.AttributeValueMemberS{Value: keys.RecordSortKey}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK) AND attribute_exists(SK)"),
	})
	if err != nil {
		if conditionFailed(err) {
			// The historical failure mode: writer and reader derived
			// different keys for the same logical document.
			return fmt.Errorf("%w: %s", ErrNotFound, pk)
		}
		r.logger.Error("failed to update document record",
			slog.String("pk", pk),
			slog.String("error", err.Error()))
		return r.wrap("update document", err)
	}

	r.logger.Debug("document record updated",
		slog.String("pk", pk),
		slog.String("status", string(doc.Status)))
	return nil
}

// GetDocument looks up a record by derived key
func (r *DynamoDBRepository) GetDocument(ctx context.Context, objectKey, ownerID string) (*document.Document, error) {
	pk, err := keys.RecordKey(objectKey, ownerID)
	if err != nil {
		return nil, err
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: pk},
			AttrSK: &types.AttributeValueMemberS{Value: keys.RecordSortKey},
		},
	})
	if err != nil {
		r.logger.Error("failed to get document record",
			slog.String("pk", pk),
			slog.String("error", err.Error()))
		return nil, r.wrap("get document", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pk)
	}

	var doc document.Document
	if err := attributevalue.UnmarshalMap(result.Item, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &doc, nil
}

// AppendListEntry writes one list-index entry for the document
func (r *DynamoDBRepository) AppendListEntry(ctx context.Context, entry *document.ListEntry) error {
	pk, sk, err := keys.ListKeys(entry.ObjectKey, entry.QueuedTime, r.shardCount)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal list entry: %w", err)
	}
	item[AttrPK] = &types.AttributeValueMemberS{Value: pk}
	item[AttrSK] = &types.AttributeValueMemberS{Value: sk}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		r.logger.Error("failed to append list entry",
			slog.String("pk", pk),
			slog.String("sk", sk),
			slog.String("error", err.Error()))
		return r.wrap("append list entry", err)
	}

	r.logger.Debug("list entry appended",
		slog.String("pk", pk),
		slog.String("sk", sk))
	return nil
}

// QueryListShard returns one page of a single shard partition for a date.
// A non-empty ownerID becomes a server-side filter expression: other users'
// entries are dropped inside the store, not on the client.
func (r *DynamoDBRepository) QueryListShard(ctx context.Context, ownerID string, date time.Time, shard int, cursor map[string]string) (*ListPage, error) {
	pk := keys.ListPartitionKey(date, shard)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": AttrPK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		ScanIndexForward: aws.Bool(true), // Ascending order (oldest first)
	}

	if ownerID != "" {
		input.FilterExpression = aws.String("#uid = :uid")
		input.ExpressionAttributeNames["#uid"] = AttrUserID
		input.ExpressionAttributeValues[":uid"] = &types.AttributeValueMemberS{Value: ownerID}
	}

	if len(cursor) > 0 {
		start := make(map[string]types.AttributeValue, len(cursor))
		for k, v := range cursor {
			start[k] = &types.AttributeValueMemberS{Value: v}
		}
		input.ExclusiveStartKey = start
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		r.logger.Error("failed to query list shard",
			slog.String("pk", pk),
			slog.String("error", err.Error()))
		return nil, r.wrap("query list shard", err)
	}

	page := &ListPage{
		Entries: make([]*document.ListEntry, 0, len(result.Items)),
	}
	for _, item := range result.Items {
		var entry document.ListEntry
		if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
			r.logger.Error("failed to unmarshal list entry",
				slog.String("error", err.Error()))
			continue
		}
		page.Entries = append(page.Entries, &entry)
	}

	if len(result.LastEvaluatedKey) > 0 {
		page.Cursor = make(map[string]string, len(result.LastEvaluatedKey))
		for k, v := range result.LastEvaluatedKey {
			if s, ok := v.(*types.AttributeValueMemberS); ok {
				page.Cursor[k] = s.Value
			}
		}
	}

	r.logger.Debug("queried list shard",
		slog.String("pk", pk),
		slog.Int("count", len(page.Entries)),
		slog.Bool("more", page.Cursor != nil))
	return page, nil
}

// HealthCheck verifies DynamoDB is accessible
func (r *DynamoDBRepository) HealthCheck(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		return fmt.Errorf("DynamoDB health check failed: %w", err)
	}
	return nil
}

// Close releases resources (DynamoDB client doesn't need explicit cleanup)
func (r *DynamoDBRepository) Close() error {
	r.logger.Info("DynamoDB repository closed")
	return nil
}

// wrap classifies a store failure: throttling and availability errors are
// tagged retryable, everything else is surfaced as-is.
func (r *DynamoDBRepository) wrap(op string, err error) error {
	if throttled(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
