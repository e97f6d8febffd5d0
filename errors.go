package warrant

import (
	"errors"

	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/replica"
)

var (
	// ErrAccessDenied is returned by Enforce when authorization fails.
	ErrAccessDenied = errors.New("warrant: access denied")

	// ErrUnknownOperation is returned for an operation missing from the
	// permission table.
	ErrUnknownOperation = errors.New("warrant: unknown operation")
)

// Re-exported entity sentinels, so callers holding only the root package
// can match the full taxonomy with errors.Is.
var (
	// ErrNotFound mirrors object.ErrNotFound.
	ErrNotFound = object.ErrNotFound

	// ErrIdentifierConflict mirrors object.ErrIdentifierConflict.
	ErrIdentifierConflict = object.ErrIdentifierConflict

	// ErrAlreadyObsoleted mirrors object.ErrAlreadyObsoleted.
	ErrAlreadyObsoleted = object.ErrAlreadyObsoleted

	// ErrReplicaNotFound mirrors replica.ErrNotFound.
	ErrReplicaNotFound = replica.ErrNotFound

	// ErrReplicaDuplicate mirrors replica.ErrDuplicate.
	ErrReplicaDuplicate = replica.ErrDuplicate

	// ErrInvalidStatusTransition mirrors replica.ErrInvalidStatusTransition.
	ErrInvalidStatusTransition = replica.ErrInvalidStatusTransition
)
