package storage

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrNotFound is returned when no record exists at the derived key.
	// Callers must not treat this as "create it": a miss on an update path
	// usually means the reader derived a different key than the writer.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when a create hits an existing record.
	// Re-intake of the same object key is rejected; updates go through the
	// explicit advance path.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrUnavailable wraps transient store failures. Callers may retry with
	// backoff; the repository never retries internally.
	ErrUnavailable = errors.New("tracking store unavailable")
)

// IsRetryable reports whether err is a transient store failure
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// throttled reports whether err is a DynamoDB throttling or capacity error
func throttled(err error) bool {
	var capacity *types.ProvisionedThroughputExceededException
	if errors.As(err, &capacity) {
		return true
	}
	var limit *types.RequestLimitExceeded
	if errors.As(err, &limit) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailable", "InternalServerError":
			return true
		}
	}
	return false
}

// conditionFailed reports whether err is a conditional-write rejection
func conditionFailed(err error) bool {
	var cond *types.ConditionalCheckFailedException
	return errors.As(err, &cond)
}
