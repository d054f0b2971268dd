package storage

const (
	// DefaultTableName is the tracking table used when none is configured
	DefaultTableName = "document-tracking"

	// Attribute names
	AttrPK             = "PK"
	AttrSK             = "SK"
	AttrObjectKey      = "ObjectKey"
	AttrUserID         = "UserId"
	AttrObjectStatus   = "ObjectStatus"
	AttrQueuedTime     = "QueuedTime"
	AttrExpiresAfter   = "ExpiresAfter"
	AttrCompletionTime = "CompletionTime"
)

// TableSchema returns the DynamoDB table creation parameters
type TableSchema struct {
	TableName string
	// Primary key
	PartitionKey string
	SortKey      string
	// TTL attribute for store-level expiry
	TTLAttribute string
}

// GetTableSchema returns the schema configuration for the tracking table
func GetTableSchema(tableName string) TableSchema {
	if tableName == "" {
		tableName = DefaultTableName
	}
	return TableSchema{
		TableName:    tableName,
		PartitionKey: AttrPK,
		SortKey:      AttrSK,
		TTLAttribute: AttrExpiresAfter,
	}
}
