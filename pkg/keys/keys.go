// Package keys is the single source of truth for tracking-table key
// construction. Every writer and reader of a document record derives keys
// through this package; duplicating the derivation inline at a call site is
// how the legacy/user-scoped key mismatch bug happens.
package keys

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

const (
	// RecordSortKey is the fixed sort key of every primary document record.
	RecordSortKey = "none"

	// DefaultShardCount bounds the list-index fan-out per calendar date.
	DefaultShardCount = 10
)

// RecordKey returns the partition key of a document's primary record.
// Scoped owners get `user#<owner>#doc#<key>`; the anonymous owner gets the
// legacy `doc#<key>` form. The two forms address disjoint records.
func RecordKey(objectKey, ownerID string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object key must not be empty")
	}
	if ownerID == "" {
		return "doc#" + escape(objectKey), nil
	}
	return "user#" + escape(ownerID) + "#doc#" + escape(objectKey), nil
}

// ListKeys returns the shard partition key and time-ordered sort key of a
// document's list-index entry. queuedTime must be an RFC3339 timestamp; the
// date bucket is its UTC calendar date.
func ListKeys(objectKey, queuedTime string, shardCount int) (pk, sk string, err error) {
	if objectKey == "" {
		return "", "", fmt.Errorf("object key must not be empty")
	}
	t, err := time.Parse(time.RFC3339, queuedTime)
	if err != nil {
		return "", "", fmt.Errorf("invalid queued time %q: %w", queuedTime, err)
	}
	pk = ListPartitionKey(t, Shard(objectKey, shardCount))
	sk = "ts#" + queuedTime + "#id#" + escape(objectKey)
	return pk, sk, nil
}

// ListPartitionKey builds the shard partition key for a date and shard.
func ListPartitionKey(date time.Time, shard int) string {
	return fmt.Sprintf("list#%s#s#%02d", date.UTC().Format("2006-01-02"), shard)
}

// Shard maps an object key onto a bounded shard. The fan-out spreads a hot
// date across partitions; collisions between object keys are harmless.
func Shard(objectKey string, shardCount int) int {
	if shardCount < 1 {
		shardCount = DefaultShardCount
	}
	h := fnv.New32a()
	h.Write([]byte(objectKey))
	return int(h.Sum32() % uint32(shardCount))
}

// escape makes a value safe to embed in a `#`-delimited key segment.
// `%` must be escaped first so unescaping is unambiguous.
func escape(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, "#", "%23")
}

// Unescape reverses escape for callers that parse keys back apart.
func Unescape(s string) string {
	s = strings.ReplaceAll(s, "%23", "#")
	return strings.ReplaceAll(s, "%25", "%")
}
