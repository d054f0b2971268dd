// Package identity resolves a stable owner identifier from authentication
// claims. The stable subject identifier always wins over the display name:
// display names are operator-chosen and can collide across accounts, and a
// colliding partition key merges two users' document namespaces.
package identity

import (
	"log/slog"

	"github.com/google/uuid"
)

// Claims is the subset of an authentication context this package consumes.
// Populate it at the boundary (HTTP headers, queue payloads) instead of
// passing raw claim maps into business logic.
type Claims struct {
	Sub      string
	Username string
}

// FromMap adapts a raw claims map into Claims. Unknown keys are ignored.
func FromMap(m map[string]string) Claims {
	return Claims{
		Sub:      m["sub"],
		Username: m["username"],
	}
}

// Owner is the resolved identity of a document's owner. The zero value is
// the anonymous owner used for legacy, unscoped records.
type Owner struct {
	id     string
	scoped bool
}

// ScopedOwner returns an Owner for the given user identifier.
func ScopedOwner(id string) Owner {
	return Owner{id: id, scoped: true}
}

// Anonymous returns the unscoped owner used for legacy records.
func Anonymous() Owner {
	return Owner{}
}

// ID returns the owner identifier and whether the owner is scoped.
func (o Owner) ID() (string, bool) {
	return o.id, o.scoped
}

// Scoped reports whether the owner carries a user identifier.
func (o Owner) Scoped() bool {
	return o.scoped
}

// Resolve picks the owner identity from claims. The stable subject
// identifier is preferred; the display name is a logged fallback. Absence of
// both is a valid outcome and yields the anonymous owner.
func Resolve(claims Claims, logger *slog.Logger) Owner {
	if claims.Sub != "" {
		validateShape(claims.Sub, logger)
		return ScopedOwner(claims.Sub)
	}

	if claims.Username != "" {
		logger.Warn("resolved identity from display name; partitioning on an unstable identifier",
			slog.String("username", claims.Username))
		validateShape(claims.Username, logger)
		return ScopedOwner(claims.Username)
	}

	return Anonymous()
}

// validateShape warns when an identifier does not look like a provider-issued
// UUID. Advisory only: the identifier is used either way.
func validateShape(id string, logger *slog.Logger) {
	if _, err := uuid.Parse(id); err != nil {
		logger.Warn("user identifier does not match UUID shape",
			slog.String("userId", id))
	}
}
